// ABOUTME: Tests for the live feed generator state machine and sample invariants.
// ABOUTME: Ticks are driven by hand against a fake clock and the in-memory document store.
package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/metrics"
	"github.com/harperreed/vamos/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setupFeed(t *testing.T, opts Options) (*Generator, *docstore.Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	docs := docstore.NewMemory()
	docs.SetClock(clock.Now)
	opts.Now = clock.Now
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	return New(docs, opts), docs, clock
}

func TestStartValidation(t *testing.T) {
	g, _, _ := setupFeed(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name     string
		interval time.Duration
		users    []string
		want     error
	}{
		{"too fast", time.Second, []string{"u1"}, ErrInvalidInterval},
		{"too slow", 11 * time.Second, []string{"u1"}, ErrInvalidInterval},
		{"no users", 5 * time.Second, nil, ErrNoUsers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Start(ctx, tt.interval, tt.users)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, g.Active())
		})
	}
}

func TestStartStopStateMachine(t *testing.T) {
	m := metrics.New()
	g, _, _ := setupFeed(t, Options{Metrics: m})
	ctx := context.Background()

	assert.ErrorIs(t, g.Stop(), ErrNotActive)

	require.NoError(t, g.Start(ctx, MinInterval, []string{"u1", "u2"}))
	assert.True(t, g.Active())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedActive))
	assert.ErrorIs(t, g.Start(ctx, MinInterval, []string{"u1"}), ErrAlreadyActive)

	st := g.Status()
	assert.Equal(t, 2, st.Users)
	assert.NotEmpty(t, st.RunID)

	require.NoError(t, g.Stop())
	assert.False(t, g.Active())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeedActive))
	assert.ErrorIs(t, g.Stop(), ErrNotActive)

	// A stopped generator can be started again with a fresh run.
	require.NoError(t, g.Start(ctx, MaxInterval, []string{"u1"}))
	assert.NotEqual(t, st.RunID, g.Status().RunID)
	require.NoError(t, g.Stop())
}

func TestContextCancelStopsLoop(t *testing.T) {
	g, _, _ := setupFeed(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, g.Start(ctx, MinInterval, []string{"u1"}))
	cancel()
	require.Eventually(t, func() bool { return !g.Active() }, 2*time.Second, 10*time.Millisecond)
}

func TestTickRequiresRun(t *testing.T) {
	g, _, _ := setupFeed(t, Options{})
	_, err := g.Tick(context.Background())
	assert.ErrorIs(t, err, ErrNotActive)
	assert.ErrorIs(t, g.Prime(MinInterval, nil), ErrNoUsers)
}

func TestTicksProduceBoundedCumulativeSamples(t *testing.T) {
	g, _, clock := setupFeed(t, Options{})
	ctx := context.Background()
	users := []string{"u1", "u2", "u3"}
	require.NoError(t, g.Prime(5*time.Second, users))

	last := map[string]models.RealTimeMetric{}
	const ticks = 200
	for i := 0; i < ticks; i++ {
		clock.Advance(5 * time.Second)
		batch, err := g.Tick(ctx)
		require.NoError(t, err)
		require.Len(t, batch, len(users))
		for _, s := range batch {
			assert.GreaterOrEqual(t, s.HeartRateBPM, MinHeartRate)
			assert.LessOrEqual(t, s.HeartRateBPM, MaxHeartRate)
			if prev, ok := last[s.UserID]; ok {
				assert.GreaterOrEqual(t, s.Steps, prev.Steps)
				assert.GreaterOrEqual(t, s.Calories, prev.Calories)
				assert.GreaterOrEqual(t, s.ActiveMinutes, prev.ActiveMinutes)
				assert.LessOrEqual(t, abs(s.HeartRateBPM-prev.HeartRateBPM), maxHRStep)
			}
			last[s.UserID] = s
		}
	}
	st := g.Status()
	assert.Equal(t, int64(ticks), st.Ticks)
	assert.Equal(t, int64(ticks*len(users)), st.Samples)
}

func TestTicksLandInRecentWindow(t *testing.T) {
	g, docs, clock := setupFeed(t, Options{})
	ctx := context.Background()
	users := []string{"u1", "u2"}
	require.NoError(t, g.Prime(2*time.Second, users))

	const n = 10
	for i := 0; i < n; i++ {
		clock.Advance(2 * time.Second)
		_, err := g.Tick(ctx)
		require.NoError(t, err)
	}

	now := clock.Now()
	lookback := 7 * time.Second
	recent, err := docs.RecentRealTime(ctx, now.Add(-lookback), now, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 4*len(users), "ticks at now, -2s, -4s and -6s fall in the window")
	for i, s := range recent {
		assert.False(t, s.TS.Before(now.Add(-lookback)))
		assert.False(t, s.TS.After(now))
		if i > 0 {
			assert.False(t, s.TS.After(recent[i-1].TS), "newest first")
		}
	}

	all, err := docs.RecentRealTime(ctx, now.Add(-time.Hour), now, 0)
	require.NoError(t, err)
	assert.Len(t, all, n*len(users))
}

// gatedDocs holds live inserts until released.
type gatedDocs struct {
	*docstore.Memory
	entered chan struct{}
	release chan struct{}
}

func (d *gatedDocs) InsertRealTime(ctx context.Context, docs []models.RealTimeMetric) error {
	d.entered <- struct{}{}
	<-d.release
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.Memory.InsertRealTime(ctx, docs)
}

func TestStopLetsInFlightTickFinish(t *testing.T) {
	docs := docstore.NewMemory()
	gate := &gatedDocs{Memory: docs, entered: make(chan struct{}, 1), release: make(chan struct{})}
	g := New(gate, Options{Seed: 1})
	require.NoError(t, g.Start(context.Background(), MinInterval, []string{"u1"}))

	select {
	case <-gate.entered:
	case <-time.After(3 * MinInterval):
		t.Fatal("no tick reached the store")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- g.Stop() }()
	time.Sleep(50 * time.Millisecond)
	close(gate.release)

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}

	st := g.Status()
	assert.False(t, st.Active)
	assert.Zero(t, st.Errors, "the in-flight insert must not be cut off")
	assert.Equal(t, int64(1), st.Samples)
	stored, err := docs.RecentRealTime(context.Background(), time.Now().Add(-time.Hour), time.Now(), 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestInsertFailureIsCountedAndReported(t *testing.T) {
	var (
		mu      sync.Mutex
		hookErr error
		calls   int
	)
	m := metrics.New()
	g, docs, _ := setupFeed(t, Options{
		Metrics: m,
		OnTick: func(_ context.Context, _ []models.RealTimeMetric, err error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			hookErr = err
		},
	})
	ctx := context.Background()
	require.NoError(t, g.Prime(MinInterval, []string{"u1"}))
	require.NoError(t, docs.Close(ctx))

	_, err := g.Tick(ctx)
	require.Error(t, err)
	assert.Equal(t, int64(1), g.Status().Errors)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedErrors))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Error(t, hookErr)
	assert.False(t, errors.Is(hookErr, ErrNotActive))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
