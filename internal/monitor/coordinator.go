package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"redwatch/internal/registry"
	rtsup "redwatch/internal/runtime/supervisor"
	logx "redwatch/pkg/logx"
)

// SourceFactory builds a fresh content-source client. The coordinator
// calls it on every start so stale connections/credentials from a
// previous session are never reused.
type SourceFactory func() (Source, error)

// Session is one monitoring run: the supervisor owning the two runner
// goroutines plus the externally visible running flag. It exists from
// start until stop completes; constructing it per start (rather than
// keeping ambient global state) is what makes isolated tests possible.
type Session struct {
	sup     *rtsup.Supervisor
	running atomic.Bool
}

// Running reports whether the session's runners should keep going.
func (s *Session) Running() bool { return s.running.Load() }

// Coordinator owns the monitoring on/off lifecycle. It is the only
// component allowed to transition global monitoring state, and it
// starts/stops the poll runner and stream runner strictly as a pair.
type Coordinator struct {
	mu sync.Mutex

	cfg       Config
	reg       *registry.Registry
	sink      Sink
	newSource SourceFactory
	log       logx.Logger

	session *Session
}

func NewCoordinator(cfg Config, reg *registry.Registry, sink Sink, newSource SourceFactory, log logx.Logger) *Coordinator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Coordinator{
		cfg:       cfg.withDefaults(),
		reg:       reg,
		sink:      sink,
		newSource: newSource,
		log:       log,
	}
}

// Running reports whether monitoring is currently up.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.Running()
}

// Start launches both runners under a fresh session. Starting while
// already running is a no-op. ctx should be the process lifetime
// context: the session outlives the command that started it.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Running() {
		return nil
	}

	src, err := c.newSource()
	if err != nil {
		return fmt.Errorf("content source init: %w", err)
	}

	sess := &Session{sup: rtsup.New(ctx, rtsup.WithLogger(c.log))}
	sess.running.Store(true)

	p := newPoller(c.cfg, c.reg, src, c.sink, c.log.With(logx.String("runner", "poll")))
	st := newStreamer(c.cfg, c.reg, src, c.sink, c.log.With(logx.String("runner", "stream")))
	sess.sup.Go("poll-cycle", p.run)
	sess.sup.Go("stream-fanout", st.run)

	c.session = sess
	c.log.Info("monitoring started")
	return nil
}

// Stop clears the running flag first (so loop bodies observe it
// promptly), then cancels both runners and waits for each to
// acknowledge termination. Stopping while stopped is a no-op.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.session
	if sess == nil {
		return nil
	}
	c.session = nil

	sess.running.Store(false)
	err := sess.sup.Stop(ctx)
	if err != nil {
		c.log.Warn("monitoring stop incomplete", logx.Err(err))
		return err
	}
	c.log.Info("monitoring stopped")
	return nil
}
