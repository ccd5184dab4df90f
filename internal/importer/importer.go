// ABOUTME: Loads CSV and JSON sample files into the structured and document stores.
// ABOUTME: Idempotent and non-destructive; bad rows and undecodable files are reported, unreachable stores abort.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/vamos/internal/cache"
	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/metrics"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storage"
	"github.com/harperreed/vamos/internal/storeerr"
)

const (
	StructuredDir = "postgres"
	DocumentDir   = "mongo"
	maxProblems   = 20
)

// Importer writes import files into both stores.
type Importer struct {
	structured storage.Repository
	docs       docstore.Store
	cache      cache.Cache
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// New builds an importer. c, m and log may be nil.
func New(structured storage.Repository, docs docstore.Store, c cache.Cache, m *metrics.Metrics, log *logger.Logger) *Importer {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{structured: structured, docs: docs, cache: c, metrics: m, log: log.With("component", "importer")}
}

// Run imports everything under dir: dir/postgres/<table>.csv then dir/mongo/<collection>.json.
func (im *Importer) Run(ctx context.Context, dir string) (*Report, error) {
	rep := &Report{Dir: dir, Started: time.Now()}

	if err := im.structured.Ping(ctx); err != nil {
		return rep, err
	}
	if err := im.docs.Ping(ctx); err != nil {
		return rep, err
	}
	if err := im.structured.EnsureSchema(ctx); err != nil {
		return rep, err
	}
	if err := im.docs.EnsureIndexes(ctx); err != nil {
		return rep, err
	}

	s := im.structured
	steps := []func() (TableReport, error){
		func() (TableReport, error) { return importTable(ctx, im, dir, "users", parseUser, s.InsertUsers) },
		func() (TableReport, error) { return importTable(ctx, im, dir, "coaches", parseCoach, s.InsertCoaches) },
		func() (TableReport, error) {
			return importTable(ctx, im, dir, "user_coach", parseUserCoach, s.InsertUserCoaches)
		},
		func() (TableReport, error) { return importTable(ctx, im, dir, "goals", parseGoal, s.InsertGoals) },
		func() (TableReport, error) {
			return importTable(ctx, im, dir, "activities", parseActivity, s.InsertActivities)
		},
		func() (TableReport, error) {
			return importTable(ctx, im, dir, "health_metrics", parseHealthMetric, s.InsertHealthMetrics)
		},
		func() (TableReport, error) { return importTable(ctx, im, dir, "alerts", parseAlert, s.InsertAlerts) },
		func() (TableReport, error) {
			return importCollection[models.UserMetric](ctx, im, dir, models.CollUserMetrics, im.docs.UpsertUserMetrics)
		},
		func() (TableReport, error) {
			return importCollection[models.NutritionLog](ctx, im, dir, models.CollNutritionLogs, im.docs.UpsertNutritionLogs)
		},
		func() (TableReport, error) {
			return importCollection[models.SleepRecord](ctx, im, dir, models.CollSleepRecords, im.docs.UpsertSleepRecords)
		},
		func() (TableReport, error) {
			return importCollection[models.RealTimeMetric](ctx, im, dir, models.CollRealTimeMetrics, im.docs.UpsertRealTimeMetrics)
		},
	}

	// Whatever was written before a failure must not be hidden behind stale cached results.
	defer func() {
		if err := im.cache.Invalidate(context.WithoutCancel(ctx), ""); err != nil {
			im.log.Warn("cache invalidation failed", "error", err)
		}
	}()

	for _, step := range steps {
		tr, err := step()
		if err != nil {
			if _, ok := storeerr.IsConnect(err); ok || ctx.Err() != nil {
				rep.Tables = append(rep.Tables, tr)
				rep.Finished = time.Now()
				return rep, fmt.Errorf("import %s: %w", tr.Name, err)
			}
			// A file that cannot be decoded at all fails only its own table.
			tr.Failed = true
			tr.Problems = append(tr.Problems, err.Error())
			im.log.Warn("import step failed", "table", tr.Name, "file", tr.File, "error", err)
		}
		rep.Tables = append(rep.Tables, tr)
		im.metrics.ImportRow(tr.Name, tr.Inserted, tr.Existing, tr.Skipped)
	}
	rep.Finished = time.Now()

	im.log.Info("import finished",
		"dir", dir,
		"inserted", rep.TotalInserted(),
		"skipped", rep.TotalSkipped(),
		"failed", len(rep.Failed()),
		"elapsed", rep.Finished.Sub(rep.Started).String())
	return rep, nil
}

func openSource(path string) (*os.File, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func importTable[T any](
	ctx context.Context,
	im *Importer,
	dir, table string,
	parse func(row) (T, error),
	insert func(context.Context, []T) (storage.InsertResult, error),
) (TableReport, error) {
	path := filepath.Join(dir, StructuredDir, table+".csv")
	tr := TableReport{Name: table, Store: im.structured.Backend(), File: path}

	f, ok, err := openSource(path)
	if err != nil {
		return tr, err
	}
	if !ok {
		tr.Missing = true
		im.log.Warn("import file not found", "table", table, "file", path)
		return tr, nil
	}
	defer f.Close()

	rows, problems, read, err := readCSV(f, parse)
	if err != nil {
		return tr, fmt.Errorf("%s: %w", path, err)
	}
	tr.Read = read
	tr.Skipped = len(problems)
	tr.addProblems(problems)

	res, err := insert(ctx, rows)
	if err != nil {
		return tr, err
	}
	tr.Inserted = res.Inserted
	tr.Existing = res.Existing
	tr.Skipped += res.Skipped
	tr.addProblems(res.Errors)

	im.log.Info("table imported", "table", table, "read", tr.Read, "inserted", tr.Inserted, "existing", tr.Existing, "skipped", tr.Skipped)
	return tr, nil
}

func importCollection[T any, PT interface {
	*T
	validator
}](
	ctx context.Context,
	im *Importer,
	dir, collection string,
	upsert func(context.Context, []T) (docstore.UpsertResult, error),
) (TableReport, error) {
	path := filepath.Join(dir, DocumentDir, collection+".json")
	tr := TableReport{Name: collection, Store: im.docs.Backend(), File: path}

	f, ok, err := openSource(path)
	if err != nil {
		return tr, err
	}
	if !ok {
		tr.Missing = true
		if collection != models.CollRealTimeMetrics {
			im.log.Warn("import file not found", "collection", collection, "file", path)
		}
		return tr, nil
	}
	defer f.Close()

	docs, problems, read, err := readDocs[T, PT](io.Reader(f))
	if err != nil {
		return tr, fmt.Errorf("%s: %w", path, err)
	}
	tr.Read = read
	tr.Skipped = len(problems)
	tr.addProblems(problems)

	res, err := upsert(ctx, docs)
	if err != nil {
		return tr, err
	}
	tr.Inserted = res.Upserted
	tr.Existing = res.Matched
	tr.Skipped += res.Skipped

	im.log.Info("collection imported", "collection", collection, "read", tr.Read, "upserted", tr.Inserted, "matched", tr.Existing, "skipped", tr.Skipped)
	return tr, nil
}
