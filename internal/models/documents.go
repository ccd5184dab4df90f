// ABOUTME: Document-store record types for sensor, nutrition, sleep and live samples.
// ABOUTME: Required fields are validated explicitly; unknown extra fields are dropped on decode.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Collection names in the document store.
const (
	CollUserMetrics     = "user_metrics"
	CollNutritionLogs   = "nutrition_logs"
	CollSleepRecords    = "sleep_records"
	CollRealTimeMetrics = "real_time_metrics"
)

// AllCollections lists document collections in import order.
var AllCollections = []string{CollUserMetrics, CollNutritionLogs, CollSleepRecords, CollRealTimeMetrics}

// RealTimeRetention is how long live samples survive before the store expires them.
const RealTimeRetention = 7 * 24 * time.Hour

var errMissingUser = errors.New("missing user_id")

// SensorMeta describes the device that produced a UserMetric.
type SensorMeta struct {
	SensorType      string `bson:"sensor_type,omitempty" json:"sensor_type,omitempty"`
	MeasurementUnit string `bson:"measurement_unit,omitempty" json:"measurement_unit,omitempty"`
	DeviceModel     string `bson:"device_model,omitempty" json:"device_model,omitempty"`
	FirmwareVersion string `bson:"firmware_version,omitempty" json:"firmware_version,omitempty"`
}

// UserMetric is a body measurement sample. Any of height, weight and heart rate may be set.
type UserMetric struct {
	ID                 string     `bson:"_id,omitempty" json:"id,omitempty"`
	SensorID           string     `bson:"sensor_id,omitempty" json:"sensor_id,omitempty"`
	UserID             string     `bson:"user_id" json:"user_id"`
	Meta               SensorMeta `bson:"meta" json:"meta"`
	TS                 time.Time  `bson:"ts" json:"ts"`
	HeightCm           *float64   `bson:"height_cm,omitempty" json:"height_cm,omitempty"`
	WeightKg           *float64   `bson:"weight_kg,omitempty" json:"weight_kg,omitempty"`
	HeartRateBPM       *int       `bson:"heart_rate_bpm,omitempty" json:"heart_rate_bpm,omitempty"`
	BodyFatPercentage  *float64   `bson:"body_fat_percentage,omitempty" json:"body_fat_percentage,omitempty"`
	MeasurementQuality string     `bson:"measurement_quality,omitempty" json:"measurement_quality,omitempty"`
	Status             string     `bson:"status,omitempty" json:"status,omitempty"`
}

// Validate checks required fields and that at least one measurement is present and plausible.
func (m *UserMetric) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return errMissingUser
	}
	if m.TS.IsZero() {
		return errors.New("missing ts")
	}
	if m.HeightCm == nil && m.WeightKg == nil && m.HeartRateBPM == nil {
		return errors.New("no measurement")
	}
	if m.HeightCm != nil && !PlausibleHeightCm(*m.HeightCm) {
		return errors.New("height_cm out of range")
	}
	if m.WeightKg != nil && !PlausibleWeightKg(*m.WeightKg) {
		return errors.New("weight_kg out of range")
	}
	if m.HeartRateBPM != nil && (*m.HeartRateBPM < 20 || *m.HeartRateBPM > 250) {
		return errors.New("heart_rate_bpm out of range")
	}
	return nil
}

func (m *UserMetric) UnmarshalJSON(b []byte) error {
	type alias UserMetric
	aux := struct {
		*alias
		TS FlexTime `json:"ts"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.TS = aux.TS.Time
	return nil
}

// NutritionLog is one logged food item.
type NutritionLog struct {
	LogID     string    `bson:"_id" json:"log_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	MealType  string    `bson:"meal_type,omitempty" json:"meal_type,omitempty"`
	FoodItem  string    `bson:"food_item" json:"food_item"`
	Calories  float64   `bson:"calories" json:"calories"`
	ProteinG  float64   `bson:"protein_g" json:"protein_g"`
	CarbsG    float64   `bson:"carbs_g" json:"carbs_g"`
	FatG      float64   `bson:"fat_g" json:"fat_g"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

func (n *NutritionLog) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return errMissingUser
	}
	if n.Timestamp.IsZero() {
		return errors.New("missing timestamp")
	}
	if n.Calories < 0 || n.ProteinG < 0 || n.CarbsG < 0 || n.FatG < 0 {
		return errors.New("negative nutrient value")
	}
	return nil
}

func (n *NutritionLog) UnmarshalJSON(b []byte) error {
	type alias NutritionLog
	aux := struct {
		*alias
		Timestamp FlexTime `json:"timestamp"`
	}{alias: (*alias)(n)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	n.Timestamp = aux.Timestamp.Time
	return nil
}

// SleepRecord summarizes one night of sleep.
type SleepRecord struct {
	RecordID           string    `bson:"_id" json:"record_id"`
	UserID             string    `bson:"user_id" json:"user_id"`
	Date               time.Time `bson:"date" json:"date"`
	SleepDurationHours float64   `bson:"sleep_duration_hours" json:"sleep_duration_hours"`
	SleepQualityScore  int       `bson:"sleep_quality_score" json:"sleep_quality_score"`
	DeepSleepMinutes   int       `bson:"deep_sleep_minutes,omitempty" json:"deep_sleep_minutes,omitempty"`
	LightSleepMinutes  int       `bson:"light_sleep_minutes,omitempty" json:"light_sleep_minutes,omitempty"`
	RemSleepMinutes    int       `bson:"rem_sleep_minutes,omitempty" json:"rem_sleep_minutes,omitempty"`
	TimesAwakened      int       `bson:"times_awakened,omitempty" json:"times_awakened,omitempty"`
}

func (s *SleepRecord) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return errMissingUser
	}
	if s.Date.IsZero() {
		return errors.New("missing date")
	}
	if s.SleepDurationHours < 0 || s.SleepDurationHours > 24 {
		return errors.New("sleep_duration_hours out of range")
	}
	if s.SleepQualityScore < 0 || s.SleepQualityScore > 100 {
		return errors.New("sleep_quality_score out of range")
	}
	return nil
}

func (s *SleepRecord) UnmarshalJSON(b []byte) error {
	type alias SleepRecord
	aux := struct {
		*alias
		Date FlexTime `json:"date"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Date = aux.Date.Time
	return nil
}

// RealTimeMetric is a live sample appended by the feed generator.
// Steps, Calories and ActiveMinutes are cumulative within a feed run.
type RealTimeMetric struct {
	ID            string    `bson:"_id" json:"id"`
	RunID         string    `bson:"run_id,omitempty" json:"run_id,omitempty"`
	UserID        string    `bson:"user_id" json:"user_id"`
	TS            time.Time `bson:"ts" json:"ts"`
	HeartRateBPM  int       `bson:"heart_rate_bpm" json:"heart_rate_bpm"`
	Steps         int       `bson:"steps" json:"steps"`
	Calories      float64   `bson:"calories" json:"calories"`
	ActiveMinutes float64   `bson:"active_minutes" json:"active_minutes"`
}

func (r *RealTimeMetric) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errMissingUser
	}
	if r.TS.IsZero() {
		return errors.New("missing ts")
	}
	return nil
}

func (r *RealTimeMetric) UnmarshalJSON(b []byte) error {
	type alias RealTimeMetric
	aux := struct {
		*alias
		TS FlexTime `json:"ts"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.TS = aux.TS.Time
	return nil
}
