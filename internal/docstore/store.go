// ABOUTME: Document store contract shared by the MongoDB and in-memory backends.
// ABOUTME: Also derives stable document ids so re-imports upsert instead of duplicating.
package docstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storeerr"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Limits for RecentRealTime. A non-positive limit means DefaultRecentLimit.
const (
	DefaultRecentLimit = 500
	MaxRecentLimit     = 5000
)

// UpsertResult tallies the outcome of an upsert call.
type UpsertResult struct {
	Upserted int
	Matched  int
	Skipped  int
}

// BodySample is a user's latest height and latest weight, taken independently.
type BodySample struct {
	UserID   string
	HeightCm *float64
	HeightTS time.Time
	WeightKg *float64
	WeightTS time.Time
}

// BMI computes the body mass index when both measurements are present.
func (b BodySample) BMI() (float64, bool) {
	if b.HeightCm == nil || b.WeightKg == nil {
		return 0, false
	}
	return models.BMI(*b.HeightCm, *b.WeightKg)
}

// WeightPoint is one weight sample.
type WeightPoint struct {
	UserID   string    `bson:"user_id"`
	TS       time.Time `bson:"ts"`
	WeightKg float64   `bson:"weight_kg"`
}

// HeartRatePoint is one heart rate sample.
type HeartRatePoint struct {
	UserID string    `bson:"user_id"`
	TS     time.Time `bson:"ts"`
	BPM    int       `bson:"heart_rate_bpm"`
}

// NutritionSummary aggregates a user's food logs.
type NutritionSummary struct {
	Logs          int64   `json:"logs"`
	Days          int     `json:"days"`
	TotalCalories float64 `json:"total_calories"`
	AvgDailyKcal  float64 `json:"avg_daily_calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
}

// SleepSummary aggregates a user's sleep records.
type SleepSummary struct {
	Nights          int64     `json:"nights"`
	AvgHours        float64   `json:"avg_hours"`
	AvgQualityScore float64   `json:"avg_quality_score"`
	LastNight       time.Time `json:"last_night,omitempty"`
}

// CollectionCount is the document count of one collection.
type CollectionCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Store is the document store used by the importer, the aggregation layer and the feed.
type Store interface {
	Backend() string
	Ping(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error

	UpsertUserMetrics(ctx context.Context, docs []models.UserMetric) (UpsertResult, error)
	UpsertNutritionLogs(ctx context.Context, docs []models.NutritionLog) (UpsertResult, error)
	UpsertSleepRecords(ctx context.Context, docs []models.SleepRecord) (UpsertResult, error)
	UpsertRealTimeMetrics(ctx context.Context, docs []models.RealTimeMetric) (UpsertResult, error)
	InsertRealTime(ctx context.Context, docs []models.RealTimeMetric) error

	LatestBodyMetrics(ctx context.Context, f models.Filter) ([]BodySample, error)
	WeightSamples(ctx context.Context, f models.Filter) ([]WeightPoint, error)
	HeartRateSamples(ctx context.Context, f models.Filter) ([]HeartRatePoint, error)
	RecentRealTime(ctx context.Context, from, to time.Time, limit int) ([]models.RealTimeMetric, error)
	NutritionSummary(ctx context.Context, f models.Filter) (NutritionSummary, error)
	SleepSummary(ctx context.Context, f models.Filter) (SleepSummary, error)
	Counts(ctx context.Context) ([]CollectionCount, error)

	Close(ctx context.Context) error
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/harperreed/vamos/docstore"))

func deriveID(collection string, parts ...string) string {
	key := collection
	for _, p := range parts {
		key += "\x1f" + p
	}
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func tsKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// UserMetricID returns the document's id, deriving one from (user_id, sensor_id, ts) if unset.
func UserMetricID(m *models.UserMetric) string {
	if m.ID != "" {
		return m.ID
	}
	return deriveID(models.CollUserMetrics, m.UserID, m.SensorID, tsKey(m.TS))
}

func NutritionLogID(n *models.NutritionLog) string {
	if n.LogID != "" {
		return n.LogID
	}
	return deriveID(models.CollNutritionLogs, n.UserID, tsKey(n.Timestamp), n.FoodItem)
}

func SleepRecordID(s *models.SleepRecord) string {
	if s.RecordID != "" {
		return s.RecordID
	}
	return deriveID(models.CollSleepRecords, s.UserID, tsKey(s.Date))
}

func RealTimeID(r *models.RealTimeMetric) string {
	if r.ID != "" {
		return r.ID
	}
	return deriveID(models.CollRealTimeMetrics, r.UserID, r.RunID, tsKey(r.TS))
}

// mergeLatest combines per-user latest height and weight into BodySamples sorted by user.
func mergeLatest(heights, weights map[string]latestValue) []BodySample {
	byUser := make(map[string]*BodySample)
	get := func(id string) *BodySample {
		b, ok := byUser[id]
		if !ok {
			b = &BodySample{UserID: id}
			byUser[id] = b
		}
		return b
	}
	for id, v := range heights {
		h := v.value
		b := get(id)
		b.HeightCm, b.HeightTS = &h, v.ts
	}
	for id, v := range weights {
		w := v.value
		b := get(id)
		b.WeightKg, b.WeightTS = &w, v.ts
	}

	out := make([]BodySample, 0, len(byUser))
	for _, b := range byUser {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

type latestValue struct {
	value float64
	ts    time.Time
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

var errStoreClosed = errors.New("document store is closed")

// errClosed reads as unreachable so callers treat a closed store like a lost one.
func errClosed(backend string) error {
	return storeerr.Connect(backend, errStoreClosed)
}
