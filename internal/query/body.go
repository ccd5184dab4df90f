// ABOUTME: Body measurement aggregations: weight trend, heart rate distribution and BMI.
// ABOUTME: BMI uses each user's latest height and latest weight sample.
package query

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/harperreed/vamos/internal/models"
)

// DailyWeight is the mean weight across all sampled users on one day.
type DailyWeight struct {
	Day         time.Time `json:"day" yaml:"day"`
	AvgWeightKg float64   `json:"avg_weight_kg" yaml:"avg_weight_kg"`
	Samples     int       `json:"samples" yaml:"samples"`
}

// WeightSeries is ordered by day ascending. Days without samples are omitted.
type WeightSeries []DailyWeight

// WeightTrend averages weight samples per local day over the trailing window.
func (s *Service) WeightTrend(ctx context.Context, f models.Filter, window time.Duration) (WeightSeries, error) {
	key := queryKey("weight_trend", f, window, s.dayOf(s.now()).Format("2006-01-02"))
	return cached(ctx, s, "weight_trend", key, s.ttl, func(ctx context.Context) (WeightSeries, error) {
		points, err := s.docs.WeightSamples(ctx, s.windowed(f, window))
		if err != nil {
			return nil, err
		}
		type acc struct {
			sum float64
			n   int
		}
		byDay := make(map[time.Time]*acc)
		for _, p := range points {
			d := s.dayOf(p.TS)
			a, ok := byDay[d]
			if !ok {
				a = &acc{}
				byDay[d] = a
			}
			a.sum += p.WeightKg
			a.n++
		}
		out := make(WeightSeries, 0, len(byDay))
		for d, a := range byDay {
			out = append(out, DailyWeight{Day: d, AvgWeightKg: models.Round2(a.sum / float64(a.n)), Samples: a.n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
		return out, nil
	})
}

func (w WeightSeries) Table() Table {
	t := NewTable("weight_trend", "day", "avg_weight_kg", "samples")
	for _, p := range w {
		t.Append(p.Day.Format("2006-01-02"), p.AvgWeightKg, p.Samples)
	}
	return t
}

// HeartRates holds raw heart rate samples in bpm, oldest first.
type HeartRates []int

// HeartRateDistribution returns every heart rate sample matching f.
func (s *Service) HeartRateDistribution(ctx context.Context, f models.Filter) (HeartRates, error) {
	return cached(ctx, s, "heart_rate", queryKey("heart_rate", f), s.ttl, func(ctx context.Context) (HeartRates, error) {
		points, err := s.docs.HeartRateSamples(ctx, f)
		if err != nil {
			return nil, err
		}
		out := make(HeartRates, 0, len(points))
		for _, p := range points {
			out = append(out, p.BPM)
		}
		return out, nil
	})
}

func (h HeartRates) Table() Table {
	t := NewTable("heart_rate", "heart_rate_bpm")
	for _, v := range h {
		t.Append(v)
	}
	return t
}

// Bucket is one histogram bin covering [Low, High). The last bin also includes High.
type Bucket struct {
	Low   float64 `json:"low" yaml:"low"`
	High  float64 `json:"high" yaml:"high"`
	Count int     `json:"count" yaml:"count"`
}

// Buckets is a histogram.
type Buckets []Bucket

// Histogram splits the samples into bins equal-width buckets spanning min..max.
func (h HeartRates) Histogram(bins int) Buckets {
	return Histogram(h, bins)
}

// Histogram bin limits.
const (
	DefaultBins = 20
	MaxBins     = 200
)

// Histogram buckets values into bins equal-width bins, clamped to MaxBins.
// Empty input yields no buckets.
func Histogram(values []int, bins int) Buckets {
	out := Buckets{}
	if len(values) == 0 {
		return out
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	bins = min(bins, MaxBins)
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		return append(out, Bucket{Low: float64(lo), High: float64(hi), Count: len(values)})
	}

	width := float64(hi-lo) / float64(bins)
	for i := 0; i < bins; i++ {
		out = append(out, Bucket{Low: float64(lo) + float64(i)*width, High: float64(lo) + float64(i+1)*width})
	}
	out[bins-1].High = float64(hi)
	for _, v := range values {
		i := int(math.Floor(float64(v-lo) / width))
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

func (b Buckets) Table() Table {
	t := NewTable("heart_rate_histogram", "low", "high", "count")
	for _, x := range b {
		t.Append(models.Round2(x.Low), models.Round2(x.High), x.Count)
	}
	return t
}

// BMIRow is one user's BMI from their latest samples.
type BMIRow struct {
	UserID   string             `json:"user_id" yaml:"user_id"`
	HeightCm float64            `json:"height_cm" yaml:"height_cm"`
	WeightKg float64            `json:"weight_kg" yaml:"weight_kg"`
	BMI      float64            `json:"bmi" yaml:"bmi"`
	Category models.BMICategory `json:"category" yaml:"category"`
}

// BMIRows is ordered by user id.
type BMIRows []BMIRow

// BMIDistribution computes BMI for every user that has both a height and a weight sample.
func (s *Service) BMIDistribution(ctx context.Context, f models.Filter) (BMIRows, error) {
	return cached(ctx, s, "bmi", queryKey("bmi", f), s.ttl, func(ctx context.Context) (BMIRows, error) {
		samples, err := s.docs.LatestBodyMetrics(ctx, f)
		if err != nil {
			return nil, err
		}
		out := make(BMIRows, 0, len(samples))
		for _, b := range samples {
			bmi, ok := b.BMI()
			if !ok {
				continue
			}
			out = append(out, BMIRow{
				UserID:   b.UserID,
				HeightCm: *b.HeightCm,
				WeightKg: *b.WeightKg,
				BMI:      models.Round2(bmi),
				Category: models.CategorizeBMI(bmi),
			})
		}
		return out, nil
	})
}

func (r BMIRows) Table() Table {
	t := NewTable("bmi", "user_id", "height_cm", "weight_kg", "bmi", "category")
	for _, b := range r {
		t.Append(b.UserID, b.HeightCm, b.WeightKg, b.BMI, string(b.Category))
	}
	return t
}

// CategoryCount is the number of users in one BMI category.
type CategoryCount struct {
	Category models.BMICategory `json:"category" yaml:"category"`
	Count    int                `json:"count" yaml:"count"`
}

// CategoryCounts always holds the four categories in ascending BMI order.
type CategoryCounts []CategoryCount

// BMICategoryBreakdown counts users per BMI category, zero counts included.
func (s *Service) BMICategoryBreakdown(ctx context.Context, f models.Filter) (CategoryCounts, error) {
	rows, err := s.BMIDistribution(ctx, f)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.BMICategory]int, len(models.AllBMICategories))
	for _, r := range rows {
		counts[r.Category]++
	}
	out := make(CategoryCounts, 0, len(models.AllBMICategories))
	for _, c := range models.AllBMICategories {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	return out, nil
}

func (c CategoryCounts) Table() Table {
	t := NewTable("bmi_categories", "category", "count")
	for _, x := range c {
		t.Append(string(x.Category), x.Count)
	}
	return t
}
