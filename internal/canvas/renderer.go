// Package canvas paints a remote desktop stream onto a local surface.
//
// A Renderer binds one streaming client to one Surface. Frames delivered
// by the client are queued and applied once per display refresh, never on
// the client's delivery goroutine. Screen geometry, error, close and open
// notifications are passed through immediately. Local input on the surface
// is forwarded to caller-supplied handlers along with the client, which
// encode and send it.
//
// Every handler in Config is optional. Only the handlers that are set get
// wired, and teardown removes exactly what was wired.
package canvas

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/junsooki/deskview/internal/events"
	"github.com/junsooki/deskview/internal/input"
	"github.com/junsooki/deskview/internal/tdp"
)

// Client is the streaming collaborator the renderer binds to. Identity
// (==) decides whether Bind is a rebind.
type Client interface {
	comparable
	Subscribe(kind tdp.Event, fn events.Listener) events.Subscription
	Unsubscribe(s events.Subscription)
	// Init starts the session once listeners are attached.
	Init() error
	// Nuke releases the client for good.
	Nuke()
}

// Config selects which events the renderer wires.
type Config[C Client] struct {
	OnFrame      func(ctx Context, frame tdp.PNGFrame)
	OnScreenSpec func(surface Surface, spec tdp.ClientScreenSpec)
	OnError      func(err error)
	OnClose      func()
	OnOpen       func()

	OnMouseMove   func(cli C, surface Surface, e input.Event)
	OnMouseDown   func(cli C, e input.Event)
	OnMouseUp     func(cli C, e input.Event)
	OnMouseWheel  func(cli C, e input.Event)
	OnKeyDown     func(cli C, e input.Event)
	OnKeyUp       func(cli C, e input.Event)
	OnContextMenu func()

	Style Style

	// MaxQueuedFrames bounds the frame queue; 0 leaves it unbounded.
	MaxQueuedFrames int
}

// Renderer is the frame-buffered canvas renderer.
type Renderer[C Client] struct {
	surface Surface
	cfg     Config[C]
	sched   Scheduler
	logger  zerolog.Logger

	mu      sync.Mutex
	current *binding[C]
}

// New creates a renderer for surface. A nil surface means nothing is
// mounted yet: Bind then wires nothing and starts no loop.
func New[C Client](surface Surface, cfg Config[C], sched Scheduler, logger zerolog.Logger) *Renderer[C] {
	return &Renderer[C]{
		surface: surface,
		cfg:     cfg,
		sched:   sched,
		logger:  logger.With().Str("module", "canvas").Logger(),
	}
}

// Bind attaches the renderer to cli. Binding the client that is already
// bound does nothing. Binding a different client, or the zero value,
// tears the previous binding down completely first.
func (r *Renderer[C]) Bind(cli C) {
	var zero C

	r.mu.Lock()
	if r.surface == nil {
		r.mu.Unlock()
		r.logger.Debug().Msg("no surface mounted, skipping bind")
		return
	}
	if r.current != nil && r.current.cli == cli {
		r.mu.Unlock()
		return
	}
	if r.current != nil {
		r.current.teardown()
		r.current = nil
	}
	if cli == zero {
		r.mu.Unlock()
		return
	}
	b := r.wire(cli)
	r.current = b
	r.mu.Unlock()

	// Init may emit open synchronously; handlers must be free to call
	// back into the renderer.
	if err := cli.Init(); err != nil {
		err = errors.Wrap(err, "start session")
		if b.isClosed() {
			return
		}
		if r.cfg.OnError != nil {
			r.cfg.OnError(err)
		} else {
			r.logger.Error().Err(err).Msg("session failed to start")
		}
	}
}

// Close tears down the current binding, if any.
func (r *Renderer[C]) Close() {
	var zero C
	r.Bind(zero)
}

// Queued returns how many frames wait for the next tick.
func (r *Renderer[C]) Queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return 0
	}
	return r.current.queue.Len()
}

type inboundHandler struct {
	kind tdp.Event
	fn   events.Listener
}

type inputHandler struct {
	kind input.EventType
	fn   func(input.Event)
}

// binding is everything wired against one client. It is never reused.
type binding[C Client] struct {
	cli     C
	surface Surface
	sched   Scheduler
	queue   *FrameQueue
	onFrame func(Context, tdp.PNGFrame)
	logger  zerolog.Logger

	subs      []events.Subscription
	listeners []ListenerID

	mu     sync.Mutex
	closed bool
	cancel func()
}

func (r *Renderer[C]) wire(cli C) *binding[C] {
	b := &binding[C]{
		cli:     cli,
		surface: r.surface,
		sched:   r.sched,
		queue:   NewFrameQueue(r.cfg.MaxQueuedFrames),
		onFrame: r.cfg.OnFrame,
		logger:  r.logger,
	}

	r.surface.Focus()
	r.surface.SetStyle(r.cfg.Style)

	for _, h := range r.inboundHandlers(b) {
		b.subs = append(b.subs, cli.Subscribe(h.kind, h.fn))
	}
	for _, h := range r.inputHandlers(b) {
		b.listeners = append(b.listeners, r.surface.AddListener(h.kind, h.fn))
	}

	if b.onFrame != nil {
		b.mu.Lock()
		b.cancel = b.sched.RequestFrame(b.tick)
		b.mu.Unlock()
	}

	r.logger.Debug().
		Int("subscriptions", len(b.subs)).
		Int("listeners", len(b.listeners)).
		Msg("client bound")
	return b
}

// inboundHandlers lists the client subscriptions to make, skipping the
// handlers the caller left unset.
func (r *Renderer[C]) inboundHandlers(b *binding[C]) []inboundHandler {
	cfg := r.cfg
	var hs []inboundHandler
	if cfg.OnFrame != nil {
		hs = append(hs, inboundHandler{tdp.EventPNGFrame, b.guard(func(p any) {
			frame, ok := p.(tdp.PNGFrame)
			if !ok {
				b.logger.Warn().Type("payload", p).Msg("unexpected frame payload")
				return
			}
			b.queue.Push(frame)
		})})
	}
	if cfg.OnScreenSpec != nil {
		hs = append(hs, inboundHandler{tdp.EventScreenSpec, b.guard(func(p any) {
			spec, ok := p.(tdp.ClientScreenSpec)
			if !ok {
				b.logger.Warn().Type("payload", p).Msg("unexpected screen spec payload")
				return
			}
			cfg.OnScreenSpec(b.surface, spec)
		})})
	}
	if cfg.OnError != nil {
		hs = append(hs, inboundHandler{tdp.EventError, b.guard(func(p any) {
			err, ok := p.(error)
			if !ok {
				err = errors.Errorf("%v", p)
			}
			cfg.OnError(err)
		})})
	}
	if cfg.OnClose != nil {
		hs = append(hs, inboundHandler{tdp.EventClose, b.guard(func(any) { cfg.OnClose() })})
	}
	if cfg.OnOpen != nil {
		hs = append(hs, inboundHandler{tdp.EventOpen, b.guard(func(any) { cfg.OnOpen() })})
	}
	return hs
}

// inputHandlers lists the surface listeners to attach.
func (r *Renderer[C]) inputHandlers(b *binding[C]) []inputHandler {
	cfg := r.cfg
	cli := b.cli
	var hs []inputHandler
	add := func(kind input.EventType, fn func(input.Event)) {
		hs = append(hs, inputHandler{kind, func(e input.Event) {
			if b.isClosed() {
				return
			}
			fn(e)
		}})
	}
	if cfg.OnContextMenu != nil {
		add(input.EventContextMenu, func(input.Event) { cfg.OnContextMenu() })
	}
	if cfg.OnMouseMove != nil {
		add(input.EventMouseMove, func(e input.Event) { cfg.OnMouseMove(cli, b.surface, e) })
	}
	if cfg.OnMouseDown != nil {
		add(input.EventMouseDown, func(e input.Event) { cfg.OnMouseDown(cli, e) })
	}
	if cfg.OnMouseUp != nil {
		add(input.EventMouseUp, func(e input.Event) { cfg.OnMouseUp(cli, e) })
	}
	if cfg.OnMouseWheel != nil {
		add(input.EventMouseWheel, func(e input.Event) { cfg.OnMouseWheel(cli, e) })
	}
	if cfg.OnKeyDown != nil {
		add(input.EventKeyDown, func(e input.Event) { cfg.OnKeyDown(cli, e) })
	}
	if cfg.OnKeyUp != nil {
		add(input.EventKeyUp, func(e input.Event) { cfg.OnKeyUp(cli, e) })
	}
	return hs
}

// guard drops events that arrive after teardown started.
func (b *binding[C]) guard(fn events.Listener) events.Listener {
	return func(p any) {
		if b.isClosed() {
			return
		}
		fn(p)
	}
}

func (b *binding[C]) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// tick paints everything queued since the last tick, in arrival order,
// then asks for the next refresh.
func (b *binding[C]) tick() {
	if b.isClosed() {
		return
	}
	frames, dropped := b.queue.DrainAll()
	if dropped > 0 {
		b.logger.Warn().Int("dropped", dropped).Msg("frame queue overflowed")
	}
	if len(frames) > 0 {
		ctx := b.surface.Context()
		for _, f := range frames {
			if b.isClosed() {
				return
			}
			b.onFrame(ctx, f)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.cancel = b.sched.RequestFrame(b.tick)
	}
}

func (b *binding[C]) teardown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	b.cli.Nuke()
	for _, s := range b.subs {
		b.cli.Unsubscribe(s)
	}
	for _, id := range b.listeners {
		b.surface.RemoveListener(id)
	}
	if cancel != nil {
		cancel()
	}
	b.queue.DrainAll()

	b.logger.Debug().
		Int("subscriptions", len(b.subs)).
		Int("listeners", len(b.listeners)).
		Msg("client released")
}
