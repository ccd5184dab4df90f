// ABOUTME: Integration tests for the MongoDB backend.
// ABOUTME: Skipped unless TEST_MONGO_URI points at a disposable server.
package docstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storeerr"
)

func setupMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	dbName := fmt.Sprintf("vamos_test_%d", time.Now().UnixNano())
	m, err := OpenMongo(ctx, uri, dbName, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.db.Drop(context.Background())
		_ = m.Close(context.Background())
	})
	require.NoError(t, m.EnsureIndexes(ctx))
	return m
}

func TestMongoURI(t *testing.T) {
	assert.Equal(t, "mongodb://localhost:27017/", MongoURI("localhost", 27017))
}

func TestOpenMongoUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := OpenMongo(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=500", "x", nil)
	require.Error(t, err)
	store, ok := storeerr.IsConnect(err)
	assert.True(t, ok)
	assert.Equal(t, BackendMongo, store)
}

func TestMongoUpsertAndRead(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	docs := []models.UserMetric{
		{UserID: "user-0001", SensorID: "h", TS: t0, HeightCm: fp(175)},
		{UserID: "user-0001", SensorID: "w", TS: t0, WeightKg: fp(70)},
		{UserID: "user-0001", SensorID: "hr", TS: t0, HeartRateBPM: ip(64)},
	}
	res, err := m.UpsertUserMetrics(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Upserted)

	res, err = m.UpsertUserMetrics(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upserted)
	assert.Equal(t, 3, res.Matched)

	samples, err := m.LatestBodyMetrics(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	bmi, ok := samples[0].BMI()
	require.True(t, ok)
	assert.Equal(t, 22.86, models.Round2(bmi))

	hr, err := m.HeartRateSamples(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, hr, 1)
	assert.Equal(t, 64, hr[0].BPM)

	now := time.Now().UTC()
	require.NoError(t, m.InsertRealTime(ctx, []models.RealTimeMetric{
		{UserID: "user-0001", RunID: "r1", TS: now.Add(-time.Second), HeartRateBPM: 90},
	}))
	recent, err := m.RecentRealTime(ctx, now.Add(-time.Minute), now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 90, recent[0].HeartRateBPM)
}
