package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/techviz/internal/topology"
)

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped int
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{c: make(chan time.Time)}
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeTicker) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type spyInput struct {
	mu      sync.Mutex
	pointer map[int]func(x, y float64)
	resize  map[int]func(w, h float64)
	next    int
	added   int
	removed int
}

func newSpyInput() *spyInput {
	return &spyInput{
		pointer: make(map[int]func(x, y float64)),
		resize:  make(map[int]func(w, h float64)),
	}
}

func (s *spyInput) AddPointerListener(fn func(x, y float64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.pointer[id] = fn
	s.added++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.pointer, id)
		s.removed++
	}
}

func (s *spyInput) AddResizeListener(fn func(w, h float64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.resize[id] = fn
	s.added++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.resize, id)
		s.removed++
	}
}

func (s *spyInput) counts() (added, removed, live int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added, s.removed, len(s.pointer) + len(s.resize)
}

func (s *spyInput) move(x, y float64) {
	s.mu.Lock()
	fns := make([]func(x, y float64), 0, len(s.pointer))
	for _, fn := range s.pointer {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(x, y)
	}
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []Frame
	ch     chan Frame
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{ch: make(chan Frame, 16)}
}

func (r *frameRecorder) PublishFrame(f Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	select {
	case r.ch <- f:
	default:
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	return opts
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(topology.Layout{}, testOptions())
	assert.Error(t, err)

	opts := testOptions()
	opts.FrameRate = 1000
	_, err = New(topology.DefaultLayout(), opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.PacketCount = -1
	_, err = New(topology.DefaultLayout(), opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.StandOff = -5
	_, err = New(topology.DefaultLayout(), opts)
	assert.Error(t, err)
}

func TestStepProducesFrames(t *testing.T) {
	rec := newFrameRecorder()
	e, err := New(topology.DefaultLayout(), testOptions(), WithSink(rec))
	require.NoError(t, err)

	initial := e.Latest()
	assert.Equal(t, uint64(0), initial.Tick)
	assert.Len(t, initial.Nodes, 13)

	ctx := context.Background()
	var f Frame
	for i := 0; i < 5; i++ {
		f = e.Step(ctx)
	}
	assert.Equal(t, uint64(5), f.Tick)
	assert.Equal(t, 1920.0, f.Width)
	assert.Len(t, f.Nodes, 13)
	assert.Equal(t, f, e.Latest())
	assert.Len(t, rec.frames, 5)

	for _, edge := range f.Edges {
		assert.Less(t, edge.From, edge.To)
		assert.GreaterOrEqual(t, len(edge.Points), 3)
	}
	for _, p := range f.Packets {
		assert.NotEmpty(t, p.Fill)
		assert.NotEmpty(t, p.Route)
	}
}

func TestSameSeedSameFrames(t *testing.T) {
	a, err := New(topology.DefaultLayout(), testOptions())
	require.NoError(t, err)
	b, err := New(topology.DefaultLayout(), testOptions())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		a.Step(ctx)
		b.Step(ctx)
	}
	assert.Equal(t, a.Latest(), b.Latest())
}

func TestQueuedInputAppliesOnStep(t *testing.T) {
	e, err := New(topology.DefaultLayout(), testOptions())
	require.NoError(t, err)

	e.Resize(800, 600)
	e.Resize(-1, 600)
	f := e.Step(context.Background())
	assert.Equal(t, 800.0, f.Width)
	assert.Equal(t, 600.0, f.Height)

	e.Pointer(100, 100)
	e.Step(context.Background())
	assert.True(t, e.pointer.Active)
}

func TestReset(t *testing.T) {
	e, err := New(topology.DefaultLayout(), testOptions())
	require.NoError(t, err)
	ctx := context.Background()
	e.Step(ctx)

	assert.Error(t, e.Reset(topology.Layout{}))

	small := topology.Layout{Name: "small", Components: []topology.Component{
		{Kind: topology.KindService, Label: "A", Zone: topology.ZoneCenter},
		{Kind: topology.KindPostgres, Label: "DB", Zone: topology.ZoneTop},
	}}
	require.NoError(t, e.Reset(small))
	require.NoError(t, e.Reset(small))

	f := e.Step(ctx)
	assert.Len(t, f.Nodes, 2)
	assert.Equal(t, uint64(1), f.Tick)
	assert.Equal(t, "small", e.Layout().Name)
}

func TestResetQueuedBeforeStart(t *testing.T) {
	ticker := newFakeTicker()
	rec := newFrameRecorder()
	e, err := New(topology.DefaultLayout(), testOptions(),
		WithSink(rec),
		WithTicker(func(time.Duration) Ticker { return ticker }),
	)
	require.NoError(t, err)

	small := topology.Layout{Name: "small", Components: []topology.Component{
		{Kind: topology.KindService, Label: "A", Zone: topology.ZoneCenter},
		{Kind: topology.KindPostgres, Label: "DB", Zone: topology.ZoneTop},
	}}
	require.NoError(t, e.Reset(small))
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	ticker.c <- time.Now()
	select {
	case f := <-rec.ch:
		assert.Len(t, f.Nodes, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	ticker := newFakeTicker()
	input := newSpyInput()
	rec := newFrameRecorder()

	e, err := New(topology.DefaultLayout(), testOptions(),
		WithInputSource(input),
		WithSink(rec),
		WithTicker(func(time.Duration) Ticker { return ticker }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	assert.ErrorIs(t, e.Start(ctx), ErrAlreadyRunning)
	assert.True(t, e.Running())

	added, removed, live := input.counts()
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, live)

	input.move(960, 540)
	ticker.c <- time.Now()
	select {
	case f := <-rec.ch:
		assert.Equal(t, uint64(1), f.Tick)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
	}

	e.Stop()
	e.Stop()

	added, removed, live = input.counts()
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, live)
	assert.Equal(t, 1, ticker.stops())
	assert.False(t, e.Running())

	// The loop has exited, so a pending tick is never consumed.
	select {
	case ticker.c <- time.Now():
		t.Fatal("tick consumed after stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartAfterStop(t *testing.T) {
	tickers := 0
	e, err := New(topology.DefaultLayout(), testOptions(),
		WithTicker(func(time.Duration) Ticker { tickers++; return newFakeTicker() }),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	e.Stop()
	require.NoError(t, e.Start(ctx))
	e.Stop()
	assert.Equal(t, 2, tickers)
}

func TestContextCancelStopsLoop(t *testing.T) {
	ticker := newFakeTicker()
	e, err := New(topology.DefaultLayout(), testOptions(),
		WithTicker(func(time.Duration) Ticker { return ticker }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return ticker.stops() == 1 }, 2*time.Second, 10*time.Millisecond)
	e.Stop()
	assert.Equal(t, 1, ticker.stops())
}
