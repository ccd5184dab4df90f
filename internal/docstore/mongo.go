// ABOUTME: MongoDB document store backend.
// ABOUTME: Bulk upserts keyed by document id and aggregation pipelines for the read side.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storeerr"
)

const upsertBatchSize = 1000

// Mongo is a Store backed by a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	log    *logger.Logger
}

// MongoURI builds a connection string from host and port.
func MongoURI(host string, port int) string {
	u := url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%d", host, port), Path: "/"}
	return u.String()
}

// OpenMongo connects to uri, pings the server and selects dbName.
func OpenMongo(ctx context.Context, uri, dbName string, log *logger.Logger) (*Mongo, error) {
	if log == nil {
		log = logger.Nop()
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(5 * time.Second)
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, storeerr.Connect(BackendMongo, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, storeerr.Connect(BackendMongo, err)
	}

	log.Debug("connected to document store", "database", dbName)
	return &Mongo{client: client, db: client.Database(dbName), log: log.With("store", BackendMongo)}, nil
}

func (m *Mongo) Backend() string { return BackendMongo }

func (m *Mongo) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return storeerr.Connect(BackendMongo, m.client.Ping(pingCtx, nil))
}

func (m *Mongo) coll(name string) *mongo.Collection { return m.db.Collection(name) }

// EnsureIndexes declares the TTL index on live samples and lookup indexes elsewhere.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		models.CollRealTimeMetrics: {
			{
				Keys: bson.D{{Key: "ts", Value: 1}},
				Options: options.Index().
					SetName("ts_ttl").
					SetExpireAfterSeconds(int32(models.RealTimeRetention / time.Second)),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ts", Value: -1}}},
		},
		models.CollUserMetrics: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "ts", Value: -1}}},
		},
		models.CollNutritionLogs: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		models.CollSleepRecords: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
		},
	}
	for _, name := range models.AllCollections {
		if _, err := m.coll(name).Indexes().CreateMany(ctx, specs[name]); err != nil {
			if pingErr := m.Ping(ctx); pingErr != nil {
				return pingErr
			}
			return &storeerr.SchemaError{Store: BackendMongo, Object: name, Err: err}
		}
	}
	return nil
}

// bulkUpsert replaces each document by _id, inserting when absent.
func (m *Mongo) bulkUpsert(ctx context.Context, collection string, ids []string, docs []any) (UpsertResult, error) {
	var res UpsertResult
	coll := m.coll(collection)
	opts := options.BulkWrite().SetOrdered(false)

	for start := 0; start < len(docs); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(docs))
		writes := make([]mongo.WriteModel, 0, end-start)
		for i := start; i < end; i++ {
			writes = append(writes, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": ids[i]}).
				SetReplacement(docs[i]).
				SetUpsert(true))
		}

		out, err := coll.BulkWrite(ctx, writes, opts)
		if out != nil {
			res.Upserted += int(out.UpsertedCount)
			res.Matched += int(out.MatchedCount)
		}
		if err != nil {
			var bwe mongo.BulkWriteException
			if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
				res.Skipped += len(bwe.WriteErrors)
				m.log.Warn("documents rejected", "collection", collection, "count", len(bwe.WriteErrors))
				continue
			}
			if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
				return res, storeerr.Connect(BackendMongo, err)
			}
			return res, fmt.Errorf("upsert %s: %w", collection, err)
		}
	}
	return res, nil
}

func (m *Mongo) UpsertUserMetrics(ctx context.Context, docs []models.UserMetric) (UpsertResult, error) {
	ids := make([]string, len(docs))
	out := make([]any, len(docs))
	for i := range docs {
		d := docs[i]
		d.ID = UserMetricID(&d)
		ids[i], out[i] = d.ID, d
	}
	return m.bulkUpsert(ctx, models.CollUserMetrics, ids, out)
}

func (m *Mongo) UpsertNutritionLogs(ctx context.Context, docs []models.NutritionLog) (UpsertResult, error) {
	ids := make([]string, len(docs))
	out := make([]any, len(docs))
	for i := range docs {
		d := docs[i]
		d.LogID = NutritionLogID(&d)
		ids[i], out[i] = d.LogID, d
	}
	return m.bulkUpsert(ctx, models.CollNutritionLogs, ids, out)
}

func (m *Mongo) UpsertSleepRecords(ctx context.Context, docs []models.SleepRecord) (UpsertResult, error) {
	ids := make([]string, len(docs))
	out := make([]any, len(docs))
	for i := range docs {
		d := docs[i]
		d.RecordID = SleepRecordID(&d)
		ids[i], out[i] = d.RecordID, d
	}
	return m.bulkUpsert(ctx, models.CollSleepRecords, ids, out)
}

func (m *Mongo) UpsertRealTimeMetrics(ctx context.Context, docs []models.RealTimeMetric) (UpsertResult, error) {
	ids := make([]string, len(docs))
	out := make([]any, len(docs))
	for i := range docs {
		d := docs[i]
		d.ID = RealTimeID(&d)
		ids[i], out[i] = d.ID, d
	}
	return m.bulkUpsert(ctx, models.CollRealTimeMetrics, ids, out)
}

// InsertRealTime appends live samples without upsert semantics.
func (m *Mongo) InsertRealTime(ctx context.Context, docs []models.RealTimeMetric) error {
	if len(docs) == 0 {
		return nil
	}
	out := make([]any, len(docs))
	for i := range docs {
		d := docs[i]
		d.ID = RealTimeID(&d)
		out[i] = d
	}
	_, err := m.coll(models.CollRealTimeMetrics).InsertMany(ctx, out, options.InsertMany().SetOrdered(false))
	if err != nil {
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return storeerr.Connect(BackendMongo, err)
		}
		return fmt.Errorf("insert real-time metrics: %w", err)
	}
	return nil
}

func matchStage(f models.Filter, tsField string, extra bson.M) bson.D {
	match := bson.M{}
	for k, v := range extra {
		match[k] = v
	}
	if f.UserID != "" {
		match["user_id"] = f.UserID
	}
	rng := bson.M{}
	if !f.From.IsZero() {
		rng["$gte"] = f.From.UTC()
	}
	if !f.To.IsZero() {
		rng["$lt"] = f.To.UTC()
	}
	if len(rng) > 0 {
		match[tsField] = rng
	}
	return bson.D{{Key: "$match", Value: match}}
}

func (m *Mongo) latestField(ctx context.Context, field string, f models.Filter) (map[string]latestValue, error) {
	pipeline := mongo.Pipeline{
		matchStage(f, "ts", bson.M{field: bson.M{"$type": "number"}}),
		bson.D{{Key: "$sort", Value: bson.D{{Key: "user_id", Value: 1}, {Key: "ts", Value: -1}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$user_id",
			"value": bson.M{"$first": "$" + field},
			"ts":    bson.M{"$first": "$ts"},
		}}},
	}
	cursor, err := m.coll(models.CollUserMetrics).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("latest %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserID string    `bson:"_id"`
		Value  float64   `bson:"value"`
		TS     time.Time `bson:"ts"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode latest %s: %w", field, err)
	}
	out := make(map[string]latestValue, len(rows))
	for _, r := range rows {
		out[r.UserID] = latestValue{value: r.Value, ts: r.TS.UTC()}
	}
	return out, nil
}

func (m *Mongo) LatestBodyMetrics(ctx context.Context, f models.Filter) ([]BodySample, error) {
	heights, err := m.latestField(ctx, "height_cm", f)
	if err != nil {
		return nil, err
	}
	weights, err := m.latestField(ctx, "weight_kg", f)
	if err != nil {
		return nil, err
	}
	return mergeLatest(heights, weights), nil
}

func (m *Mongo) findSorted(ctx context.Context, collection string, f models.Filter, tsField string, extra bson.M, projection bson.M, out any) error {
	filter := matchStage(f, tsField, extra)[0].Value
	opts := options.Find().SetSort(bson.D{{Key: tsField, Value: 1}}).SetProjection(projection)
	cursor, err := m.coll(collection).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

func (m *Mongo) WeightSamples(ctx context.Context, f models.Filter) ([]WeightPoint, error) {
	out := []WeightPoint{}
	err := m.findSorted(ctx, models.CollUserMetrics, f, "ts",
		bson.M{"weight_kg": bson.M{"$type": "number"}},
		bson.M{"_id": 0, "user_id": 1, "ts": 1, "weight_kg": 1}, &out)
	return out, err
}

func (m *Mongo) HeartRateSamples(ctx context.Context, f models.Filter) ([]HeartRatePoint, error) {
	out := []HeartRatePoint{}
	err := m.findSorted(ctx, models.CollUserMetrics, f, "ts",
		bson.M{"heart_rate_bpm": bson.M{"$type": "number"}},
		bson.M{"_id": 0, "user_id": 1, "ts": 1, "heart_rate_bpm": 1}, &out)
	return out, err
}

// realTimeRow tolerates ObjectId _id values written by other tools.
type realTimeRow struct {
	ID            any       `bson:"_id"`
	RunID         string    `bson:"run_id"`
	UserID        string    `bson:"user_id"`
	TS            time.Time `bson:"ts"`
	HeartRateBPM  int       `bson:"heart_rate_bpm"`
	Steps         int       `bson:"steps"`
	Calories      float64   `bson:"calories"`
	ActiveMinutes float64   `bson:"active_minutes"`
}

func (m *Mongo) RecentRealTime(ctx context.Context, from, to time.Time, limit int) ([]models.RealTimeMetric, error) {
	filter := bson.M{"ts": bson.M{"$gte": from.UTC(), "$lte": to.UTC()}}
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "user_id", Value: 1}}).
		SetLimit(int64(clampLimit(limit, DefaultRecentLimit, MaxRecentLimit)))
	cursor, err := m.coll(models.CollRealTimeMetrics).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find real-time metrics: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.RealTimeMetric{}
	for cursor.Next(ctx) {
		var row realTimeRow
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode real-time metric: %w", err)
		}
		r := models.RealTimeMetric{
			RunID:         row.RunID,
			UserID:        row.UserID,
			TS:            row.TS.UTC(),
			HeartRateBPM:  row.HeartRateBPM,
			Steps:         row.Steps,
			Calories:      row.Calories,
			ActiveMinutes: row.ActiveMinutes,
		}
		switch id := row.ID.(type) {
		case string:
			r.ID = id
		case primitive.ObjectID:
			r.ID = id.Hex()
		}
		out = append(out, r)
	}
	return out, cursor.Err()
}

func (m *Mongo) NutritionSummary(ctx context.Context, f models.Filter) (NutritionSummary, error) {
	var s NutritionSummary
	pipeline := mongo.Pipeline{
		matchStage(f, "timestamp", nil),
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"logs":     bson.M{"$sum": 1},
			"calories": bson.M{"$sum": "$calories"},
			"protein":  bson.M{"$sum": "$protein_g"},
			"carbs":    bson.M{"$sum": "$carbs_g"},
			"fat":      bson.M{"$sum": "$fat_g"},
			"days": bson.M{"$addToSet": bson.M{
				"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$timestamp"},
			}},
		}}},
	}
	cursor, err := m.coll(models.CollNutritionLogs).Aggregate(ctx, pipeline)
	if err != nil {
		return s, fmt.Errorf("nutrition summary: %w", err)
	}
	defer cursor.Close(ctx)

	var row struct {
		Logs     int64    `bson:"logs"`
		Calories float64  `bson:"calories"`
		Protein  float64  `bson:"protein"`
		Carbs    float64  `bson:"carbs"`
		Fat      float64  `bson:"fat"`
		Days     []string `bson:"days"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return s, fmt.Errorf("decode nutrition summary: %w", err)
		}
	}
	s = NutritionSummary{
		Logs:          row.Logs,
		Days:          len(row.Days),
		TotalCalories: row.Calories,
		ProteinG:      row.Protein,
		CarbsG:        row.Carbs,
		FatG:          row.Fat,
	}
	if s.Days > 0 {
		s.AvgDailyKcal = s.TotalCalories / float64(s.Days)
	}
	return s, cursor.Err()
}

func (m *Mongo) SleepSummary(ctx context.Context, f models.Filter) (SleepSummary, error) {
	var s SleepSummary
	pipeline := mongo.Pipeline{
		matchStage(f, "date", nil),
		bson.D{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"nights":  bson.M{"$sum": 1},
			"hours":   bson.M{"$avg": "$sleep_duration_hours"},
			"quality": bson.M{"$avg": "$sleep_quality_score"},
			"last":    bson.M{"$max": "$date"},
		}}},
	}
	cursor, err := m.coll(models.CollSleepRecords).Aggregate(ctx, pipeline)
	if err != nil {
		return s, fmt.Errorf("sleep summary: %w", err)
	}
	defer cursor.Close(ctx)

	var row struct {
		Nights  int64     `bson:"nights"`
		Hours   float64   `bson:"hours"`
		Quality float64   `bson:"quality"`
		Last    time.Time `bson:"last"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return s, fmt.Errorf("decode sleep summary: %w", err)
		}
	}
	s = SleepSummary{Nights: row.Nights, AvgHours: row.Hours, AvgQualityScore: row.Quality}
	if !row.Last.IsZero() {
		s.LastNight = row.Last.UTC()
	}
	return s, cursor.Err()
}

func (m *Mongo) Counts(ctx context.Context) ([]CollectionCount, error) {
	out := make([]CollectionCount, 0, len(models.AllCollections))
	for _, name := range models.AllCollections {
		n, err := m.coll(name).CountDocuments(ctx, bson.D{})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out = append(out, CollectionCount{Name: name, Count: n})
	}
	return out, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

var _ Store = (*Mongo)(nil)
