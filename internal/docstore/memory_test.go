// ABOUTME: Tests for the in-memory document store and shared id derivation.
// ABOUTME: The same behavior is expected of the MongoDB backend.
package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storeerr"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func TestDerivedIDsAreStable(t *testing.T) {
	ts := time.Date(2025, 2, 1, 7, 0, 0, 0, time.UTC)
	a := models.UserMetric{UserID: "user-0001", SensorID: "s1", TS: ts}
	b := models.UserMetric{UserID: "user-0001", SensorID: "s1", TS: ts.In(time.FixedZone("X", 3600))}
	c := models.UserMetric{UserID: "user-0001", SensorID: "s2", TS: ts}

	assert.Equal(t, UserMetricID(&a), UserMetricID(&b), "same instant in another zone must map to the same id")
	assert.NotEqual(t, UserMetricID(&a), UserMetricID(&c))

	a.ID = "explicit"
	assert.Equal(t, "explicit", UserMetricID(&a))

	n := models.NutritionLog{UserID: "user-0001", Timestamp: ts, FoodItem: "oats"}
	assert.NotEmpty(t, NutritionLogID(&n))
	n.LogID = "log-1"
	assert.Equal(t, "log-1", NutritionLogID(&n))
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ts := time.Date(2025, 2, 1, 7, 0, 0, 0, time.UTC)
	docs := []models.UserMetric{
		{UserID: "user-0001", SensorID: "w", TS: ts, WeightKg: fp(70)},
		{UserID: "user-0002", SensorID: "w", TS: ts, WeightKg: fp(80)},
	}

	res, err := m.UpsertUserMetrics(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)

	res, err = m.UpsertUserMetrics(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upserted)
	assert.Equal(t, 2, res.Matched)

	counts, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, CollectionCount{Name: models.CollUserMetrics, Count: 2}, counts[0])
}

func TestMemoryLatestBodyMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	t0 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	_, err := m.UpsertUserMetrics(ctx, []models.UserMetric{
		{UserID: "user-0001", SensorID: "h", TS: t0, HeightCm: fp(175)},
		{UserID: "user-0001", SensorID: "w", TS: t0, WeightKg: fp(90)},
		{UserID: "user-0001", SensorID: "w", TS: t0.Add(48 * time.Hour), WeightKg: fp(70)},
		{UserID: "user-0002", SensorID: "w", TS: t0, WeightKg: fp(60)},
		{UserID: "user-0003", SensorID: "hr", TS: t0, HeartRateBPM: ip(72)},
	})
	require.NoError(t, err)

	samples, err := m.LatestBodyMetrics(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, "user-0001", first.UserID)
	require.NotNil(t, first.WeightKg)
	assert.Equal(t, 70.0, *first.WeightKg)
	bmi, ok := first.BMI()
	require.True(t, ok)
	assert.Equal(t, 22.86, models.Round2(bmi))

	_, ok = samples[1].BMI()
	assert.False(t, ok, "user without height has no BMI")

	only, err := m.LatestBodyMetrics(ctx, models.Filter{UserID: "user-0002"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "user-0002", only[0].UserID)
}

func TestMemorySamplesAreSortedAndFiltered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	t0 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	_, err := m.UpsertUserMetrics(ctx, []models.UserMetric{
		{UserID: "u1", SensorID: "w", TS: t0.Add(2 * time.Hour), WeightKg: fp(71)},
		{UserID: "u1", SensorID: "w", TS: t0, WeightKg: fp(70)},
		{UserID: "u1", SensorID: "hr", TS: t0, HeartRateBPM: ip(65)},
		{UserID: "u2", SensorID: "hr", TS: t0.Add(time.Hour), HeartRateBPM: ip(90)},
	})
	require.NoError(t, err)

	weights, err := m.WeightSamples(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.Equal(t, 70.0, weights[0].WeightKg)

	hr, err := m.HeartRateSamples(ctx, models.Filter{From: t0.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, hr, 1)
	assert.Equal(t, 90, hr[0].BPM)

	none, err := m.HeartRateSamples(ctx, models.Filter{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryRealTimeWindowAndTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.SetClock(func() time.Time { return now })

	docs := []models.RealTimeMetric{
		{UserID: "u1", RunID: "r", TS: now.Add(-10 * time.Second), HeartRateBPM: 80},
		{UserID: "u1", RunID: "r", TS: now.Add(-5 * time.Second), HeartRateBPM: 82},
		{UserID: "u2", RunID: "r", TS: now.Add(-5 * time.Second), HeartRateBPM: 95},
		{UserID: "u1", RunID: "r", TS: now.Add(-2 * time.Minute), HeartRateBPM: 70},
		{UserID: "u1", RunID: "old", TS: now.Add(-8 * 24 * time.Hour), HeartRateBPM: 60},
	}
	require.NoError(t, m.InsertRealTime(ctx, docs))

	recent, err := m.RecentRealTime(ctx, now.Add(-30*time.Second), now, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, !recent[0].TS.Before(recent[1].TS) && !recent[1].TS.Before(recent[2].TS), "expected ts descending")
	for _, r := range recent {
		assert.NotEmpty(t, r.ID)
	}

	capped, err := m.RecentRealTime(ctx, now.Add(-30*time.Second), now, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	counts, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[3].Count, "sample older than retention should have expired")
}

func TestMemorySummaries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	_, err := m.UpsertNutritionLogs(ctx, []models.NutritionLog{
		{LogID: "n1", UserID: "u1", FoodItem: "oats", Calories: 300, ProteinG: 10, Timestamp: day.Add(8 * time.Hour)},
		{LogID: "n2", UserID: "u1", FoodItem: "salad", Calories: 500, ProteinG: 20, Timestamp: day.Add(13 * time.Hour)},
		{LogID: "n3", UserID: "u1", FoodItem: "rice", Calories: 400, ProteinG: 5, Timestamp: day.Add(32 * time.Hour)},
		{LogID: "n4", UserID: "u2", FoodItem: "cake", Calories: 900, Timestamp: day},
	})
	require.NoError(t, err)

	n, err := m.NutritionSummary(ctx, models.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n.Logs)
	assert.Equal(t, 2, n.Days)
	assert.InDelta(t, 600.0, n.AvgDailyKcal, 1e-9)
	assert.InDelta(t, 35.0, n.ProteinG, 1e-9)

	_, err = m.UpsertSleepRecords(ctx, []models.SleepRecord{
		{RecordID: "s1", UserID: "u1", Date: day, SleepDurationHours: 7, SleepQualityScore: 80},
		{RecordID: "s2", UserID: "u1", Date: day.Add(24 * time.Hour), SleepDurationHours: 8, SleepQualityScore: 90},
	})
	require.NoError(t, err)

	s, err := m.SleepSummary(ctx, models.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Nights)
	assert.InDelta(t, 7.5, s.AvgHours, 1e-9)
	assert.InDelta(t, 85.0, s.AvgQualityScore, 1e-9)
	assert.Equal(t, day.Add(24*time.Hour), s.LastNight)

	empty, err := m.SleepSummary(ctx, models.Filter{UserID: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, empty.Nights)
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Close(ctx))
	store, ok := storeerr.IsConnect(m.Ping(ctx))
	assert.True(t, ok, "a closed store reads as unreachable")
	assert.Equal(t, BackendMemory, store)
	_, err := m.UpsertUserMetrics(ctx, nil)
	assert.Error(t, err)
}
