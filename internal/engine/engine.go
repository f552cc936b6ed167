// Package engine runs the frame loop that drives the topology simulation,
// connection routing and packet animation, and hands each resulting frame to
// its sinks.
//
// An Engine is an explicit lifecycle object. Start registers the pointer and
// resize listeners and launches a single loop goroutine that owns all
// simulation state; Stop removes the listeners, cancels the pending frame and
// waits for the loop to exit. Input arriving from other goroutines is queued
// and applied between frames, so a frame never observes a half-applied
// pointer move or resize.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/observability"
	"github.com/conneroisu/techviz/internal/packets"
	"github.com/conneroisu/techviz/internal/routing"
	"github.com/conneroisu/techviz/internal/topology"
)

// ErrAlreadyRunning is returned when Start is called on a running engine.
var ErrAlreadyRunning = errors.New("engine already running")

// DefaultFrameRate is the number of frames per second.
const DefaultFrameRate = 60

// Options configures an Engine.
type Options struct {
	Topology              topology.Options
	MaxConnectionDistance float64
	StandOff              float64
	PacketCount           int
	PacketStep            float64
	FrameRate             int
	Seed                  int64
}

// DefaultOptions returns the stock animation settings.
func DefaultOptions() Options {
	return Options{
		Topology:              topology.DefaultOptions(),
		MaxConnectionDistance: routing.DefaultMaxConnectionDistance,
		StandOff:              routing.DefaultStandOff,
		PacketCount:           packets.DefaultCount,
		PacketStep:            packets.DefaultStep,
		FrameRate:             DefaultFrameRate,
	}
}

// InputSource delivers pointer and resize events. Each Add call returns a
// function that removes the listener.
type InputSource interface {
	AddPointerListener(fn func(x, y float64)) (remove func())
	AddResizeListener(fn func(width, height float64)) (remove func())
}

// FrameSink receives every frame the loop produces.
type FrameSink interface {
	PublishFrame(frame Frame)
}

// Ticker schedules frames. time.Ticker is adapted by NewTimeTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every interval.
type TickerFactory func(interval time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(interval time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(interval)}
}

// Option customises an Engine.
type Option func(*Engine)

// WithInputSource sets where pointer and resize events come from.
func WithInputSource(src InputSource) Option {
	return func(e *Engine) { e.input = src }
}

// WithSink adds a frame sink.
func WithSink(sink FrameSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sink) }
}

// WithTicker replaces the frame scheduler.
func WithTicker(factory TickerFactory) Option {
	return func(e *Engine) { e.newTicker = factory }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRandom replaces the random source; it takes precedence over Seed.
func WithRandom(rnd topology.Random) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithTracer sets the tracer frames are recorded with.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithPolicy replaces the adjacency policy.
func WithPolicy(policy topology.AdjacencyPolicy) Option {
	return func(e *Engine) { e.policy = policy }
}

// Engine drives the simulation.
type Engine struct {
	opts   Options
	policy topology.AdjacencyPolicy
	rnd    topology.Random
	logger logging.Logger
	tracer trace.Tracer

	input     InputSource
	sinks     []FrameSink
	newTicker TickerFactory

	// Owned by whichever goroutine steps: the loop while running, the caller
	// of Step otherwise.
	sim      *topology.Simulator
	router   *routing.Router
	animator *packets.Animator
	pointer  topology.Pointer
	tick     uint64

	pointerCh chan topology.Vec
	resizeCh  chan topology.Vec
	resetCh   chan topology.Layout

	frameMu sync.RWMutex
	latest  Frame
	layout  topology.Layout

	stateMu  sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	removers []func()
}

// New builds an engine for layout. It fails only on invalid options or an
// invalid layout.
func New(layout topology.Layout, opts Options, options ...Option) (*Engine, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.FrameRate > 240 {
		return nil, fmt.Errorf("frame rate %d exceeds 240", opts.FrameRate)
	}
	if opts.PacketCount < 0 {
		return nil, fmt.Errorf("packet count %d must not be negative", opts.PacketCount)
	}
	if opts.PacketStep < 0 || opts.PacketStep > 1 {
		return nil, fmt.Errorf("packet step %g must be between 0 and 1", opts.PacketStep)
	}
	if opts.MaxConnectionDistance < 0 || opts.StandOff < 0 {
		return nil, fmt.Errorf("connection distance and stand-off must not be negative")
	}

	e := &Engine{
		opts:      opts,
		newTicker: NewTimeTicker,
		pointerCh: make(chan topology.Vec, 64),
		resizeCh:  make(chan topology.Vec, 8),
		resetCh:   make(chan topology.Layout, 1),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	e.logger = e.logger.WithComponent("engine")
	if e.tracer == nil {
		e.tracer = otel.Tracer(observability.TracerName)
	}
	if e.policy == nil {
		e.policy = topology.DefaultPolicy()
	}
	if e.rnd == nil {
		e.rnd = topology.NewRandom(opts.Seed)
	}

	if err := e.build(layout, opts.Topology); err != nil {
		return nil, err
	}
	e.latest = e.snapshot(nil, nil)
	return e, nil
}

// build replaces the simulator, router and animator for layout on a canvas
// described by topo.
func (e *Engine) build(layout topology.Layout, topo topology.Options) error {
	sim, err := topology.NewSimulator(layout, e.policy, topo, e.rnd)
	if err != nil {
		return err
	}
	router := routing.NewRouter(e.policy, e.opts.MaxConnectionDistance, e.opts.StandOff)
	e.frameMu.Lock()
	e.layout = layout
	e.frameMu.Unlock()
	e.sim = sim
	e.router = router
	e.animator = packets.NewAnimator(sim.Nodes(), e.policy, router, e.rnd, e.opts.PacketCount, e.opts.PacketStep)
	e.tick = 0
	return nil
}

// Simulator exposes the simulator for headless inspection. It must not be
// used while the engine is running.
func (e *Engine) Simulator() *topology.Simulator {
	return e.sim
}

// Layout returns the layout the engine was last built from. It is safe to
// call while the loop is running.
func (e *Engine) Layout() topology.Layout {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.layout
}

// Policy returns the adjacency policy. It never changes after New.
func (e *Engine) Policy() topology.AdjacencyPolicy {
	return e.policy
}

// Latest returns the most recent frame.
func (e *Engine) Latest() Frame {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.latest
}

// Running reports whether the frame loop is active.
func (e *Engine) Running() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.running
}

// Pointer queues a pointer move. It never blocks; moves beyond the queue
// capacity are dropped, and the next one supersedes them anyway.
func (e *Engine) Pointer(x, y float64) {
	select {
	case e.pointerCh <- topology.Vec{X: x, Y: y}:
	default:
	}
}

// Resize queues a canvas resize.
func (e *Engine) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	select {
	case e.resizeCh <- topology.Vec{X: width, Y: height}:
	default:
	}
}

// Reset validates layout and queues a rebuild from it, replacing any reset
// still pending.
func (e *Engine) Reset(layout topology.Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	for {
		select {
		case e.resetCh <- layout:
			return nil
		default:
		}
		select {
		case <-e.resetCh:
		default:
		}
	}
}

func (e *Engine) applyPointer(p topology.Vec) {
	e.pointer = topology.Pointer{Position: p, Active: true}
}

func (e *Engine) applyResize(size topology.Vec) {
	e.sim.Resize(size.X, size.Y)
}

func (e *Engine) applyReset(ctx context.Context, layout topology.Layout) {
	ctx, span := e.tracer.Start(ctx, "engine.reset")
	defer span.End()

	topo := e.sim.Options()
	if err := e.build(layout, topo); err != nil {
		observability.RecordError(span, err)
		e.logger.Warn(ctx, err, "Layout reset rejected, keeping current layout")
		return
	}
	e.logger.Info(ctx, "Layout reset", "name", layout.Name, "components", len(layout.Components))
}

// drainInputs applies every queued input without blocking.
func (e *Engine) drainInputs(ctx context.Context) {
	for {
		select {
		case p := <-e.pointerCh:
			e.applyPointer(p)
		case s := <-e.resizeCh:
			e.applyResize(s)
		case l := <-e.resetCh:
			e.applyReset(ctx, l)
		default:
			return
		}
	}
}

// Step applies queued input and advances one frame: simulate, route, animate
// and snapshot. Headless callers use it directly; it must not be called
// while the loop is running.
func (e *Engine) Step(ctx context.Context) Frame {
	e.drainInputs(ctx)
	return e.frame(ctx)
}

func (e *Engine) frame(ctx context.Context) Frame {
	ctx, span := observability.StartFrameSpan(ctx, e.tracer, e.tick+1)
	defer span.End()

	e.sim.Step(e.pointer)
	nodes := e.sim.Nodes()
	edges := e.router.Edges(nodes)
	placed := e.animator.Advance(nodes, edges)
	e.tick++

	f := e.snapshot(edges, placed)
	observability.RecordFrame(span, len(f.Nodes), len(f.Edges), len(f.Packets), e.sim.Overlaps())

	e.frameMu.Lock()
	e.latest = f
	e.frameMu.Unlock()

	for _, sink := range e.sinks {
		sink.PublishFrame(f)
	}
	return f
}

func (e *Engine) snapshot(edges []routing.Edge, placed []packets.Placed) Frame {
	w, h := e.sim.Size()
	return buildFrame(e.tick, w, h, e.sim.Nodes(), edges, placed)
}

// Start registers input listeners and launches the frame loop. The loop runs
// until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.removers = e.removers[:0]
	if e.input != nil {
		e.removers = append(e.removers,
			e.input.AddPointerListener(e.Pointer),
			e.input.AddResizeListener(e.Resize),
		)
	}

	// The loop owns the simulation once it runs.
	nodeCount, packetCount := len(e.sim.Nodes()), len(e.animator.Packets())

	ticker := e.newTicker(time.Second / time.Duration(e.opts.FrameRate))
	e.running = true
	go e.loop(loopCtx, ticker, e.done)

	e.logger.Info(ctx, "Frame loop started",
		"frame_rate", e.opts.FrameRate,
		"nodes", nodeCount,
		"packets", packetCount,
	)
	return nil
}

func (e *Engine) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-e.pointerCh:
			e.applyPointer(p)
		case s := <-e.resizeCh:
			e.applyResize(s)
		case l := <-e.resetCh:
			e.applyReset(ctx, l)
		case <-ticker.C():
			// Stop may have raced the tick.
			if ctx.Err() != nil {
				return
			}
			e.drainInputs(ctx)
			e.frame(ctx)
		}
	}
}

// Stop removes the input listeners, cancels the pending frame and waits for
// the loop to exit. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stateMu.Lock()
	if !e.running {
		e.stateMu.Unlock()
		return
	}
	for _, remove := range e.removers {
		if remove != nil {
			remove()
		}
	}
	e.removers = nil
	e.cancel()
	done := e.done
	e.running = false
	e.stateMu.Unlock()

	<-done
	e.logger.Info(context.Background(), "Frame loop stopped", "ticks", e.tick)
}
