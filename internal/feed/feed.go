// ABOUTME: Timer-driven generator appending synthetic live samples to the document store.
// ABOUTME: Idle/active state machine; Stop waits for the in-flight tick and never deletes data.
package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/metrics"
	"github.com/harperreed/vamos/internal/models"
)

// Interval bounds accepted by Start.
const (
	MinInterval = 2 * time.Second
	MaxInterval = 10 * time.Second
)

// Heart rate random walk bounds in bpm.
const (
	MinHeartRate = 50
	MaxHeartRate = 190
	maxHRStep    = 6
)

var (
	ErrInvalidInterval = fmt.Errorf("feed interval must be between %s and %s", MinInterval, MaxInterval)
	ErrNoUsers         = errors.New("feed needs at least one user")
	ErrAlreadyActive   = errors.New("feed is already running")
	ErrNotActive       = errors.New("feed is not running")
)

// TickHook runs after every tick with the samples that were generated.
// err is non-nil when the insert failed.
type TickHook func(ctx context.Context, samples []models.RealTimeMetric, err error)

// Options carries the optional collaborators of a Generator.
type Options struct {
	Metrics *metrics.Metrics
	Logger  *logger.Logger
	Now     func() time.Time
	Seed    int64
	OnTick  TickHook
}

// Status describes the generator for display.
type Status struct {
	Active    bool          `json:"active"`
	RunID     string        `json:"run_id,omitempty"`
	Interval  time.Duration `json:"interval"`
	Users     int           `json:"users"`
	Ticks     int64         `json:"ticks"`
	Samples   int64         `json:"samples"`
	Errors    int64         `json:"errors"`
	StartedAt time.Time     `json:"started_at,omitempty"`
}

type userState struct {
	heartRate     int
	steps         int
	calories      float64
	activeMinutes float64
}

// Generator produces one sample per tracked user on every tick.
type Generator struct {
	docs    docstore.Store
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
	onTick  TickHook

	mu       sync.Mutex
	rnd      *rand.Rand
	active   bool
	cancel   context.CancelFunc
	done     chan struct{}
	runID    string
	interval time.Duration
	users    []string
	state    map[string]*userState
	started  time.Time
	ticks    int64
	samples  int64
	failures int64
}

// New creates an idle generator writing to docs.
func New(docs docstore.Store, opts Options) *Generator {
	g := &Generator{
		docs:    docs,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
		onTick:  opts.OnTick,
	}
	if g.log == nil {
		g.log = logger.Nop()
	}
	g.log = g.log.With("component", "feed")
	if g.now == nil {
		g.now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g.rnd = rand.New(rand.NewSource(seed))
	return g
}

// Start moves the generator from idle to active and ticks every interval until Stop or ctx ends.
func (g *Generator) Start(ctx context.Context, interval time.Duration, users []string) error {
	if interval < MinInterval || interval > MaxInterval {
		return ErrInvalidInterval
	}
	if len(users) == 0 {
		return ErrNoUsers
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return ErrAlreadyActive
	}
	if err := g.prepare(interval, users); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	g.active = true
	g.metrics.SetFeedActive(true)
	go g.loop(runCtx, interval, g.runID, g.done)

	g.log.Info("feed started", "run_id", g.runID, "interval", interval.String(), "users", len(users))
	return nil
}

// Prime prepares a run without starting the timer, so Tick can be driven by hand.
func (g *Generator) Prime(interval time.Duration, users []string) error {
	if len(users) == 0 {
		return ErrNoUsers
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return ErrAlreadyActive
	}
	return g.prepare(interval, users)
}

// prepare resets per-run state. Caller holds g.mu.
func (g *Generator) prepare(interval time.Duration, users []string) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	g.runID = id.String()
	g.interval = interval
	g.users = append([]string(nil), users...)
	g.state = make(map[string]*userState, len(users))
	for _, u := range g.users {
		g.state[u] = &userState{heartRate: 60 + g.rnd.Intn(41)}
	}
	g.started = g.now()
	g.ticks, g.samples, g.failures = 0, 0, 0
	return nil
}

// Stop moves the generator to idle and waits for the loop to exit.
func (g *Generator) Stop() error {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return ErrNotActive
	}
	cancel, done := g.cancel, g.done
	g.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (g *Generator) loop(ctx context.Context, interval time.Duration, runID string, done chan struct{}) {
	defer func() {
		g.mu.Lock()
		g.active = false
		g.cancel = nil
		g.mu.Unlock()
		g.metrics.SetFeedActive(false)
		g.log.Info("feed stopped", "run_id", runID)
		close(done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick that has begun finishes its insert even if Stop arrives meanwhile,
			// bounded by one interval. Failures are counted inside Tick.
			tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), interval)
			_, _ = g.Tick(tickCtx)
			cancel()
		}
	}
}

// Tick generates and stores one sample per tracked user.
func (g *Generator) Tick(ctx context.Context) ([]models.RealTimeMetric, error) {
	g.mu.Lock()
	if g.state == nil {
		g.mu.Unlock()
		return nil, ErrNotActive
	}
	ts := g.now().UTC()
	seconds := g.interval.Seconds()
	if seconds <= 0 {
		seconds = MinInterval.Seconds()
	}
	batch := make([]models.RealTimeMetric, 0, len(g.users))
	for _, u := range g.users {
		st := g.state[u]
		g.advance(st, seconds)
		batch = append(batch, models.RealTimeMetric{
			ID:            uuid.NewString(),
			RunID:         g.runID,
			UserID:        u,
			TS:            ts,
			HeartRateBPM:  st.heartRate,
			Steps:         st.steps,
			Calories:      round1(st.calories),
			ActiveMinutes: round1(st.activeMinutes),
		})
	}
	g.ticks++
	g.mu.Unlock()

	err := g.docs.InsertRealTime(ctx, batch)

	g.mu.Lock()
	if err != nil {
		g.failures++
	} else {
		g.samples += int64(len(batch))
	}
	g.mu.Unlock()

	if err != nil {
		g.log.Warn("feed insert failed", "samples", len(batch), "error", err)
		g.metrics.FeedTick(0, true)
	} else {
		g.metrics.FeedTick(len(batch), false)
	}
	if g.onTick != nil {
		g.onTick(ctx, batch, err)
	}
	if err != nil {
		return batch, fmt.Errorf("insert live samples: %w", err)
	}
	return batch, nil
}

// advance moves one user's state forward by seconds. Counters never decrease.
func (g *Generator) advance(st *userState, seconds float64) {
	st.heartRate += g.rnd.Intn(2*maxHRStep+1) - maxHRStep
	st.heartRate = min(max(st.heartRate, MinHeartRate), MaxHeartRate)

	// Cadence scales with effort: resting users barely move.
	effort := float64(st.heartRate-MinHeartRate) / float64(MaxHeartRate-MinHeartRate)
	stepsPerSecond := effort * 3 * g.rnd.Float64()
	steps := int(stepsPerSecond * seconds)
	st.steps += steps
	st.calories += seconds / 60 * (1.2 + 10*effort)
	if steps > 0 {
		st.activeMinutes += seconds / 60
	}
}

// Status reports the current state and counters.
func (g *Generator) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Active:    g.active,
		RunID:     g.runID,
		Interval:  g.interval,
		Users:     len(g.users),
		Ticks:     g.ticks,
		Samples:   g.samples,
		Errors:    g.failures,
		StartedAt: g.started,
	}
}

// Active reports whether the timer loop is running.
func (g *Generator) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
