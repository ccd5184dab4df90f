// ABOUTME: Synthetic sample data generator producing importer-ready CSV and JSON files.
// ABOUTME: Deterministic for a given seed and reference time.
package sample

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/vamos/internal/models"
)

// Options controls the size and randomness of the generated data set.
type Options struct {
	Users   int
	Coaches int
	Seed    int64
	Now     time.Time
}

// DefaultOptions matches the classic demo data set: 500 users and 50 coaches.
func DefaultOptions() Options {
	return Options{Users: 500, Coaches: 50, Seed: 1, Now: time.Now()}
}

// Dataset holds generated rows for every table and collection.
type Dataset struct {
	Users         []models.User
	Coaches       []models.Coach
	UserCoaches   []models.UserCoach
	Goals         []models.Goal
	Activities    []models.Activity
	HealthMetrics []models.HealthMetric
	Alerts        []models.Alert
	UserMetrics   []models.UserMetric
	Nutrition     []models.NutritionLog
	Sleep         []models.SleepRecord
}

// Counts returns the number of generated records per table or collection.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"users":                  len(d.Users),
		"coaches":                len(d.Coaches),
		"user_coach":             len(d.UserCoaches),
		"goals":                  len(d.Goals),
		"activities":             len(d.Activities),
		"health_metrics":         len(d.HealthMetrics),
		"alerts":                 len(d.Alerts),
		models.CollUserMetrics:   len(d.UserMetrics),
		models.CollNutritionLogs: len(d.Nutrition),
		models.CollSleepRecords:  len(d.Sleep),
	}
}

var (
	firstNames = []string{"Ada", "Bo", "Carmen", "Dev", "Elena", "Farid", "Grace", "Hiro", "Imani", "Jonas",
		"Kira", "Luis", "Maya", "Noah", "Olu", "Priya", "Quinn", "Rosa", "Sven", "Tara", "Uma", "Victor", "Wen", "Yusuf", "Zoe"}
	lastNames = []string{"Abara", "Berg", "Costa", "Diaz", "Eriksen", "Fischer", "Garcia", "Huang", "Ivanova", "Jensen",
		"Kim", "Lopez", "Moreau", "Nakamura", "Okafor", "Patel", "Quist", "Rossi", "Silva", "Tanaka", "Ueda", "Varga", "Weber", "Xu", "Young"}
	emailDomains = []string{"example.com", "example.org", "example.net"}
	specialties  = []string{"Weight Loss", "Cardio", "Strength", "Yoga", "Nutrition", "General Fitness"}
	goalTypes    = []string{"weight_loss", "muscle_gain", "endurance", "flexibility", "general_health"}
	metricTypes  = []string{"weight", "heart_rate", "blood_pressure", "sleep_quality", "steps"}
	mealTypes    = []string{"breakfast", "lunch", "dinner", "snack"}
	foods        = []string{"Chicken Breast", "Salmon", "Brown Rice", "Broccoli", "Apple", "Greek Yogurt", "Almonds", "Eggs"}
	qualities    = []string{"high", "medium", "low"}
	kcalPerMin   = map[models.ActivityType]float64{
		models.ActivityRunning: 10, models.ActivityWalking: 4, models.ActivityCycling: 8,
		models.ActivitySwimming: 12, models.ActivityYoga: 3, models.ActivityWeightTraining: 6,
	}
)

type alertTemplate struct {
	kind     string
	message  string
	severity models.Severity
}

var alertTemplates = []alertTemplate{
	{"high_heart_rate", "Resting heart rate consistently above 100 bpm", models.SeverityHigh},
	{"low_activity", "Daily steps below target for 7 consecutive days", models.SeverityMedium},
	{"weight_change", "Significant weight change detected (>5% in one month)", models.SeverityMedium},
	{"sleep_issue", "Poor sleep quality detected (score < 30 for 3+ days)", models.SeverityLow},
	{"goal_achieved", "Congratulations! You've achieved your fitness goal", models.SeverityInfo},
}

type generator struct {
	rnd *rand.Rand
	now time.Time
}

func (g *generator) uniform(lo, hi float64) float64 { return lo + g.rnd.Float64()*(hi-lo) }
func (g *generator) between(lo, hi int) int         { return lo + g.rnd.Intn(hi-lo+1) }
func (g *generator) round1(v float64) float64       { return math.Round(v*10) / 10 }

// within returns a random instant in the trailing window, truncated to the second.
func (g *generator) within(window time.Duration) time.Time {
	back := time.Duration(g.rnd.Int63n(int64(window)))
	return g.now.Add(-back).Truncate(time.Second).UTC()
}

func (g *generator) day(daysBack int) time.Time {
	d := g.now.AddDate(0, 0, -g.rnd.Intn(daysBack+1)).UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func pick[T any](g *generator, xs []T) T { return xs[g.rnd.Intn(len(xs))] }

// Generate builds a dataset.
func Generate(opts Options) *Dataset {
	if opts.Users <= 0 {
		opts.Users = 500
	}
	if opts.Coaches <= 0 {
		opts.Coaches = 50
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	g := &generator{rnd: rand.New(rand.NewSource(opts.Seed)), now: opts.Now}
	d := &Dataset{}
	const day = 24 * time.Hour

	for i := 1; i <= opts.Coaches; i++ {
		first, last := pick(g, firstNames), pick(g, lastNames)
		d.Coaches = append(d.Coaches, models.Coach{
			CoachID:   fmt.Sprintf("coach-%03d", i),
			Name:      first + " " + last,
			Specialty: pick(g, specialties),
			Email:     fmt.Sprintf("%s.%s@%s", strings.ToLower(first), strings.ToLower(last), pick(g, emailDomains)),
		})
	}

	heights := make(map[string]float64, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		first, last := pick(g, firstNames), pick(g, lastNames)
		id := fmt.Sprintf("user-%04d", i)
		h := g.round1(g.uniform(150, 190))
		heights[id] = h
		w := g.round1((h - 100) * 0.9 * g.uniform(0.9, 1.25))
		d.Users = append(d.Users, models.User{
			UserID:    id,
			Name:      first + " " + last,
			Email:     fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), i, pick(g, emailDomains)),
			Age:       g.between(18, 70),
			Gender:    pick(g, []string{"Male", "Female"}),
			HeightCm:  h,
			WeightKg:  &w,
			CreatedAt: g.within(2 * 365 * day),
		})
	}

	// Four in five users have a coach.
	for _, u := range d.Users[:opts.Users*4/5] {
		d.UserCoaches = append(d.UserCoaches, models.UserCoach{UserID: u.UserID, CoachID: pick(g, d.Coaches).CoachID})
	}

	for _, u := range d.Users {
		for n := g.between(1, 3); n > 0; n-- {
			gt := pick(g, goalTypes)
			var target float64
			switch gt {
			case "weight_loss":
				target = g.round1(g.uniform(50, 90))
			case "muscle_gain":
				target = g.round1(g.uniform(60, 100))
			default:
				target = g.round1(g.uniform(1, 100))
			}
			deadline := g.now.AddDate(0, 0, g.rnd.Intn(366)).UTC().Truncate(day)
			d.Goals = append(d.Goals, models.Goal{
				GoalID:       fmt.Sprintf("goal-%05d", len(d.Goals)+1),
				UserID:       u.UserID,
				GoalType:     gt,
				TargetValue:  target,
				CurrentValue: g.round1(target * g.uniform(0.3, 1.2)),
				Deadline:     &deadline,
				Status:       pick(g, models.AllGoalStatuses),
				CreatedAt:    g.within(365 * day),
			})
		}

		for n := g.between(3, 8); n > 0; n-- {
			at := pick(g, models.AllActivityTypes)
			duration := g.between(15, 120)
			a := models.Activity{
				ActivityID:     fmt.Sprintf("act-%06d", len(d.Activities)+1),
				UserID:         u.UserID,
				ActivityType:   at,
				DurationMin:    duration,
				CaloriesBurned: int(float64(duration) * kcalPerMin[at] * g.uniform(0.8, 1.2)),
				Date:           g.within(90 * day),
			}
			if at.HasDistance() {
				dist := math.Round(float64(duration)*g.uniform(0.08, 0.15)*100) / 100
				a.DistanceKm = &dist
			}
			d.Activities = append(d.Activities, a)
		}

		base := (u.HeightCm - 100) * 0.9
		for n := g.between(5, 15); n > 0; n-- {
			mt := pick(g, metricTypes)
			var value string
			switch mt {
			case "weight":
				value = strconv.FormatFloat(g.round1(base*g.uniform(0.8, 1.2)), 'f', 1, 64)
			case "heart_rate":
				value = strconv.Itoa(g.between(60, 100))
			case "blood_pressure":
				value = fmt.Sprintf("%d/%d", g.between(110, 130), g.between(70, 85))
			case "sleep_quality":
				value = strconv.Itoa(g.between(1, 100))
			default:
				value = strconv.Itoa(g.between(2000, 15000))
			}
			d.HealthMetrics = append(d.HealthMetrics, models.HealthMetric{
				MetricID:   fmt.Sprintf("metric-%06d", len(d.HealthMetrics)+1),
				UserID:     u.UserID,
				MetricType: mt,
				Value:      value,
				RecordedAt: g.within(90 * day),
			})
		}
	}

	// One in five users has an alert.
	for _, u := range d.Users[:opts.Users/5] {
		tpl := pick(g, alertTemplates)
		d.Alerts = append(d.Alerts, models.Alert{
			AlertID:     fmt.Sprintf("alert-%05d", len(d.Alerts)+1),
			UserID:      u.UserID,
			AlertType:   tpl.kind,
			Message:     tpl.message,
			Severity:    tpl.severity,
			TriggeredAt: g.within(30 * day),
			Resolved:    g.rnd.Intn(2) == 0,
		})
	}

	generateDocuments(g, d, heights)
	return d
}

func generateDocuments(g *generator, d *Dataset, heights map[string]float64) {
	const day = 24 * time.Hour
	for _, u := range d.Users {
		h := heights[u.UserID] + g.uniform(-0.5, 0.5)
		base := (h - 100) * 0.9
		for n := g.between(3, 8); n > 0; n-- {
			height := g.round1(h + g.uniform(-0.5, 0.5))
			weight := g.round1(base * g.uniform(0.9, 1.1))
			fat := g.round1(g.uniform(15, 35))
			hr := g.between(60, 100)
			d.UserMetrics = append(d.UserMetrics,
				models.UserMetric{
					SensorID: "height-001",
					UserID:   u.UserID,
					Meta: models.SensorMeta{SensorType: "height", MeasurementUnit: "cm",
						DeviceModel: "HealthTrack Pro", FirmwareVersion: "2.1.0"},
					TS:                 g.within(90 * day),
					HeightCm:           &height,
					MeasurementQuality: pick(g, qualities),
					Status:             "completed",
				},
				models.UserMetric{
					SensorID: "weight-001",
					UserID:   u.UserID,
					Meta: models.SensorMeta{SensorType: "weight", MeasurementUnit: "kg",
						DeviceModel: "SmartScale X1", FirmwareVersion: "1.5.2"},
					TS:                 g.within(90 * day),
					WeightKg:           &weight,
					BodyFatPercentage:  &fat,
					MeasurementQuality: pick(g, qualities),
					Status:             "completed",
				},
				models.UserMetric{
					SensorID: "hr-001",
					UserID:   u.UserID,
					Meta: models.SensorMeta{SensorType: "heart_rate", MeasurementUnit: "bpm",
						DeviceModel: "FitBand Pro", FirmwareVersion: "3.2.1"},
					TS:                 g.within(90 * day),
					HeartRateBPM:       &hr,
					MeasurementQuality: pick(g, qualities),
					Status:             "completed",
				},
			)
		}

		for n := g.between(5, 15); n > 0; n-- {
			d.Nutrition = append(d.Nutrition, models.NutritionLog{
				LogID:     fmt.Sprintf("nutr-%06d", len(d.Nutrition)+1),
				UserID:    u.UserID,
				MealType:  pick(g, mealTypes),
				FoodItem:  pick(g, foods),
				Calories:  float64(g.between(100, 600)),
				ProteinG:  g.round1(g.uniform(5, 40)),
				CarbsG:    g.round1(g.uniform(10, 80)),
				FatG:      g.round1(g.uniform(2, 30)),
				Timestamp: g.within(30 * day),
			})
		}

		for n := g.between(10, 20); n > 0; n-- {
			hours := g.uniform(4, 9)
			mins := hours * 60
			d.Sleep = append(d.Sleep, models.SleepRecord{
				RecordID:           fmt.Sprintf("sleep-%06d", len(d.Sleep)+1),
				UserID:             u.UserID,
				Date:               g.day(30),
				SleepDurationHours: g.round1(hours),
				SleepQualityScore:  g.between(50, 95),
				DeepSleepMinutes:   int(mins * 0.2 * g.uniform(0.8, 1.2)),
				LightSleepMinutes:  int(mins * 0.6 * g.uniform(0.8, 1.2)),
				RemSleepMinutes:    int(mins * 0.2 * g.uniform(0.8, 1.2)),
				TimesAwakened:      g.between(0, 5),
			})
		}
	}
}

const csvTime = "2006-01-02 15:04:05"

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(csvTime) + "Z"
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func fmtFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtFloat(*v)
}

// Write stores the dataset under dir as postgres/<table>.csv and mongo/<collection>.json.
func (d *Dataset) Write(dir string) error {
	pgDir := filepath.Join(dir, "postgres")
	mongoDir := filepath.Join(dir, "mongo")
	for _, p := range []string{pgDir, mongoDir} {
		if err := os.MkdirAll(p, 0750); err != nil {
			return fmt.Errorf("create %s: %w", p, err)
		}
	}

	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"users", []string{"user_id", "name", "email", "age", "gender", "height_cm", "weight_kg", "created_at"}, mapRows(d.Users, func(u models.User) []string {
			return []string{u.UserID, u.Name, u.Email, strconv.Itoa(u.Age), u.Gender, fmtFloat(u.HeightCm), fmtFloatPtr(u.WeightKg), fmtTime(u.CreatedAt)}
		})},
		{"coaches", []string{"coach_id", "name", "specialty", "email"}, mapRows(d.Coaches, func(c models.Coach) []string {
			return []string{c.CoachID, c.Name, c.Specialty, c.Email}
		})},
		{"user_coach", []string{"user_id", "coach_id"}, mapRows(d.UserCoaches, func(uc models.UserCoach) []string {
			return []string{uc.UserID, uc.CoachID}
		})},
		{"goals", []string{"goal_id", "user_id", "goal_type", "target_value", "current_value", "deadline", "status", "created_at"}, mapRows(d.Goals, func(g models.Goal) []string {
			deadline := ""
			if g.Deadline != nil {
				deadline = g.Deadline.Format("2006-01-02")
			}
			return []string{g.GoalID, g.UserID, g.GoalType, fmtFloat(g.TargetValue), fmtFloat(g.CurrentValue), deadline, string(g.Status), fmtTime(g.CreatedAt)}
		})},
		{"activities", []string{"activity_id", "user_id", "activity_type", "duration_min", "calories_burned", "distance_km", "date"}, mapRows(d.Activities, func(a models.Activity) []string {
			return []string{a.ActivityID, a.UserID, string(a.ActivityType), strconv.Itoa(a.DurationMin), strconv.Itoa(a.CaloriesBurned), fmtFloatPtr(a.DistanceKm), fmtTime(a.Date)}
		})},
		{"health_metrics", []string{"metric_id", "user_id", "metric_type", "value", "recorded_at"}, mapRows(d.HealthMetrics, func(m models.HealthMetric) []string {
			return []string{m.MetricID, m.UserID, m.MetricType, m.Value, fmtTime(m.RecordedAt)}
		})},
		{"alerts", []string{"alert_id", "user_id", "alert_type", "message", "severity", "triggered_at", "resolved"}, mapRows(d.Alerts, func(a models.Alert) []string {
			return []string{a.AlertID, a.UserID, a.AlertType, a.Message, string(a.Severity), fmtTime(a.TriggeredAt), strconv.FormatBool(a.Resolved)}
		})},
	}
	for _, t := range tables {
		if err := writeCSV(filepath.Join(pgDir, t.name+".csv"), t.header, t.rows); err != nil {
			return err
		}
	}

	docs := []struct {
		name string
		v    any
	}{
		{models.CollUserMetrics, d.UserMetrics},
		{models.CollNutritionLogs, d.Nutrition},
		{models.CollSleepRecords, d.Sleep},
	}
	for _, doc := range docs {
		data, err := json.MarshalIndent(doc.v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.name, err)
		}
		if err := os.WriteFile(filepath.Join(mongoDir, doc.name+".json"), data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", doc.name, err)
		}
	}
	return nil
}

func mapRows[T any](xs []T, f func(T) []string) [][]string {
	out := make([][]string, 0, len(xs))
	for _, x := range xs {
		out = append(out, f(x))
	}
	return out
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
