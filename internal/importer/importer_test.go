// ABOUTME: Tests for the importer against SQLite and the in-memory document store.
// ABOUTME: Covers ordering, skipped rows, double import and connectivity aborts.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/vamos/internal/cache"
	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storage"
	"github.com/harperreed/vamos/internal/storeerr"
)

const usersCSV = `user_id,name,email,age,gender,height_cm,created_at
user-0001,Ada,ada@example.com,34,Female,168.5,2024-05-01 10:00:00
user-0002,Bo,bo@example.com,41,Male,181.0,2024-06-01 10:00:00.123456
,Nobody,none@example.com,20,Male,170,2024-06-01
user-0003,Cy,cy@example.com,abc,Male,175,2024-06-01
`

const coachesCSV = `coach_id,name,specialty,email
coach-001,Sam,Cardio,sam@example.com
`

const userCoachCSV = `user_id,coach_id
user-0001,coach-001
user-0404,coach-001
`

const goalsCSV = `goal_id,user_id,goal_type,target_value,current_value,deadline,status,created_at
goal-00001,user-0001,weight_loss,70.0,80.5,2025-12-31,active,2025-01-01 00:00:00
goal-00002,user-0002,endurance,50,10,2025-12-31,Completed,2025-01-01 00:00:00
goal-00003,user-0002,endurance,50,10,2025-12-31,paused,2025-01-01 00:00:00
`

const activitiesCSV = `activity_id,user_id,activity_type,duration_min,calories_burned,distance_km,date
act-000001,user-0001,running,30,300,5.2,2025-03-01 07:00:00
act-000002,user-0001,yoga,45,120,0,2025-03-02 07:00:00
act-000003,user-0002,weights,50,300.0,,2025-03-02 18:00:00
act-000004,user-0002,skydiving,50,300,,2025-03-02 18:00:00
act-000005,user-0002,cycling,-5,300,10,2025-03-02 18:00:00
`

const alertsCSV = `alert_id,user_id,alert_type,message,severity,triggered_at,resolved
alert-00001,user-0001,high_heart_rate,Resting HR high,high,2025-03-01 09:00:00,False
alert-00002,user-0002,goal_achieved,Nice,info,2025-03-02 09:00:00,True
`

const userMetricsJSONL = `{"sensor_id":"height-001","user_id":"user-0001","meta":{"sensor_type":"height"},"ts":"2025-02-01 08:00:00","height_cm":175.0,"status":"completed"}
{"sensor_id":"weight-001","user_id":"user-0001","meta":{"sensor_type":"weight"},"ts":"2025-02-01 08:05:00","weight_kg":70.0,"body_fat_percentage":20.1}
not json at all
{"sensor_id":"weight-001","meta":{"sensor_type":"weight"},"ts":"2025-02-01 08:05:00","weight_kg":70.0}
`

const nutritionJSON = `[
  {"log_id":"nutr-000001","user_id":"user-0001","meal_type":"lunch","food_item":"Salmon","calories":450,"protein_g":30.5,"carbs_g":5,"fat_g":20,"timestamp":"2025-02-01 12:30:00"},
  {"log_id":"nutr-000002","user_id":"user-0001","food_item":"Apple","calories":-1,"timestamp":"2025-02-01 15:00:00"}
]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, StructuredDir, "users.csv"), usersCSV)
	writeFile(t, filepath.Join(dir, StructuredDir, "coaches.csv"), coachesCSV)
	writeFile(t, filepath.Join(dir, StructuredDir, "user_coach.csv"), userCoachCSV)
	writeFile(t, filepath.Join(dir, StructuredDir, "goals.csv"), goalsCSV)
	writeFile(t, filepath.Join(dir, StructuredDir, "activities.csv"), activitiesCSV)
	writeFile(t, filepath.Join(dir, StructuredDir, "alerts.csv"), alertsCSV)
	writeFile(t, filepath.Join(dir, DocumentDir, "user_metrics.json"), userMetricsJSONL)
	writeFile(t, filepath.Join(dir, DocumentDir, "nutrition_logs.json"), nutritionJSON)
	return dir
}

type fixture struct {
	store *storage.Store
	docs  *docstore.Memory
	cache *cache.Badger
	imp   *Importer
}

func setupImporter(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "vamos.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, err := cache.OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	docs := docstore.NewMemory()
	return &fixture{store: store, docs: docs, cache: c, imp: New(store, docs, c, nil, nil)}
}

func tableReport(t *testing.T, rep *Report, name string) TableReport {
	t.Helper()
	for _, tr := range rep.Tables {
		if tr.Name == name {
			return tr
		}
	}
	t.Fatalf("no report for %s", name)
	return TableReport{}
}

func TestImportCountsAndSkips(t *testing.T) {
	fx := setupImporter(t)
	dir := writeFixtures(t)

	rep, err := fx.imp.Run(context.Background(), dir)
	require.NoError(t, err)

	users := tableReport(t, rep, "users")
	assert.Equal(t, 4, users.Read)
	assert.Equal(t, 2, users.Inserted)
	assert.Equal(t, 2, users.Skipped)
	assert.Len(t, users.Problems, 2)

	uc := tableReport(t, rep, "user_coach")
	assert.Equal(t, 1, uc.Inserted)
	assert.Equal(t, 1, uc.Skipped, "orphan user_coach row should be rejected by the foreign key")

	goals := tableReport(t, rep, "goals")
	assert.Equal(t, 2, goals.Inserted)
	assert.Equal(t, 1, goals.Skipped)

	acts := tableReport(t, rep, "activities")
	assert.Equal(t, 3, acts.Inserted)
	assert.Equal(t, 2, acts.Skipped)

	hm := tableReport(t, rep, "health_metrics")
	assert.True(t, hm.Missing)
	assert.Contains(t, rep.Missing(), "health_metrics")
	assert.Contains(t, rep.Missing(), "sleep_records")

	metrics := tableReport(t, rep, models.CollUserMetrics)
	assert.Equal(t, 4, metrics.Read)
	assert.Equal(t, 2, metrics.Inserted)
	assert.Equal(t, 2, metrics.Skipped)

	nutrition := tableReport(t, rep, models.CollNutritionLogs)
	assert.Equal(t, 1, nutrition.Inserted)
	assert.Equal(t, 1, nutrition.Skipped)

	assert.Equal(t, 2+1+1+2+0+2+1, rep.TotalSkipped())
}

func TestImportNormalizesValues(t *testing.T) {
	fx := setupImporter(t)
	ctx := context.Background()
	_, err := fx.imp.Run(ctx, writeFixtures(t))
	require.NoError(t, err)

	acts, err := fx.store.ListActivities(ctx, models.Filter{}, 0)
	require.NoError(t, err)
	byID := map[string]models.Activity{}
	for _, a := range acts {
		byID[a.ActivityID] = a
	}
	assert.Equal(t, models.ActivityWeightTraining, byID["act-000003"].ActivityType)
	assert.Nil(t, byID["act-000002"].DistanceKm, "yoga should not carry a distance")
	require.NotNil(t, byID["act-000001"].DistanceKm)
	assert.Equal(t, 5.2, *byID["act-000001"].DistanceKm)

	goals, err := fx.store.ListGoals(ctx, models.Filter{UserID: "user-0002"}, "")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, models.GoalCompleted, goals[0].Status)

	n, err := fx.store.CountUnresolvedAlerts(ctx, models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDoubleImportIsIdempotent(t *testing.T) {
	fx := setupImporter(t)
	ctx := context.Background()
	dir := writeFixtures(t)

	_, err := fx.imp.Run(ctx, dir)
	require.NoError(t, err)
	before, err := fx.store.Counts(ctx)
	require.NoError(t, err)
	docsBefore, err := fx.docs.Counts(ctx)
	require.NoError(t, err)

	rep, err := fx.imp.Run(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.TotalInserted())
	assert.Equal(t, 2, tableReport(t, rep, "users").Existing)

	after, err := fx.store.Counts(ctx)
	require.NoError(t, err)
	docsAfter, err := fx.docs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, docsBefore, docsAfter)
}

func TestImportInvalidatesCache(t *testing.T) {
	fx := setupImporter(t)
	ctx := context.Background()
	require.NoError(t, fx.cache.Set(ctx, "query:overview", []byte("stale"), 0))

	_, err := fx.imp.Run(ctx, writeFixtures(t))
	require.NoError(t, err)

	_, ok, err := fx.cache.Get(ctx, "query:overview")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImportAbortsWhenStoreUnreachable(t *testing.T) {
	fx := setupImporter(t)
	require.NoError(t, fx.store.Close())

	_, err := fx.imp.Run(context.Background(), writeFixtures(t))
	require.Error(t, err)
	store, ok := storeerr.IsConnect(err)
	assert.True(t, ok)
	assert.Equal(t, storage.BackendSQLite, store)

	n, _ := fx.docs.Counts(context.Background())
	assert.Zero(t, n[0].Count, "nothing should be written when a store is down")
}

func TestImportEmptyDirectory(t *testing.T) {
	fx := setupImporter(t)
	rep, err := fx.imp.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Len(t, rep.Missing(), len(storage.Tables)+len(models.AllCollections))
	assert.Zero(t, rep.TotalInserted())
}

func TestSplitDocuments(t *testing.T) {
	docs, problems, read, err := splitDocuments([]byte(`[{"a":1},{"a":2}]`))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Empty(t, problems)
	assert.Equal(t, 2, read)

	docs, problems, read, err = splitDocuments([]byte("{\"a\":1}\n\n{oops\n{\"a\":3}\n"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Len(t, problems, 1)
	assert.Equal(t, 3, read)

	_, _, _, err = splitDocuments([]byte(`[{"a":1},`))
	assert.Error(t, err)
}

func TestReadCSVHandlesBOMAndShortRows(t *testing.T) {
	in := "\ufeffcoach_id,name\ncoach-1,Sam\ncoach-2\n"
	rows, problems, read, err := readCSV(strings.NewReader(in), parseCoach)
	require.NoError(t, err)
	assert.Equal(t, 2, read)
	assert.Empty(t, problems)
	require.Len(t, rows, 2)
	assert.Equal(t, "coach-1", rows[0].CoachID)
	assert.Equal(t, "", rows[1].Name)
}

func TestImportContinuesPastUndecodableFiles(t *testing.T) {
	fx := setupImporter(t)
	ctx := context.Background()
	dir := writeFixtures(t)
	// Unterminated quote in the header row.
	writeFile(t, filepath.Join(dir, StructuredDir, "coaches.csv"), "coach_id,\"name\ncoach-001,Sam\n")
	// Truncated JSON array.
	writeFile(t, filepath.Join(dir, DocumentDir, "nutrition_logs.json"), `[{"log_id":"nutr-000001","user_id":"user-0001",`)
	writeFile(t, filepath.Join(dir, DocumentDir, "sleep_records.json"),
		`[{"record_id":"sleep-000001","user_id":"user-0001","date":"2025-02-01","sleep_duration_hours":7.5,"sleep_quality_score":80}]`)
	require.NoError(t, fx.cache.Set(ctx, "query:overview", []byte("stale"), 0))

	rep, err := fx.imp.Run(ctx, dir)
	require.NoError(t, err, "undecodable files must not abort the import")

	coaches := tableReport(t, rep, "coaches")
	assert.True(t, coaches.Failed)
	assert.Zero(t, coaches.Inserted)
	require.NotEmpty(t, coaches.Problems)
	assert.Contains(t, coaches.Problems[len(coaches.Problems)-1], "read header")

	nutrition := tableReport(t, rep, models.CollNutritionLogs)
	assert.True(t, nutrition.Failed)
	require.NotEmpty(t, nutrition.Problems)
	assert.Contains(t, nutrition.Problems[len(nutrition.Problems)-1], "decode JSON array")

	assert.ElementsMatch(t, []string{"coaches", models.CollNutritionLogs}, rep.Failed())

	// Steps after the failures still ran.
	assert.Equal(t, 2, tableReport(t, rep, "alerts").Inserted)
	assert.Equal(t, 1, tableReport(t, rep, models.CollSleepRecords).Inserted)
	counts, err := fx.docs.Counts(ctx)
	require.NoError(t, err)
	for _, c := range counts {
		if c.Name == models.CollSleepRecords {
			assert.Equal(t, int64(1), c.Count)
		}
	}

	_, ok, err := fx.cache.Get(ctx, "query:overview")
	require.NoError(t, err)
	assert.False(t, ok, "cache must be invalidated after a partially failed import")
}
