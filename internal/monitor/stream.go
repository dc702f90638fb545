package monitor

import (
	"context"
	"strings"

	"redwatch/internal/feed"
	"redwatch/internal/match"
	"redwatch/internal/registry"
	logx "redwatch/pkg/logx"
)

// streamer maintains one merged live feed over the union of all watched
// sources and fans each arriving item out to every eligible
// destination. The union is recomputed on every (re)connect, not
// live-updated mid-stream.
type streamer struct {
	deliverer
	cfg Config
	reg *registry.Registry
	src Source
	log logx.Logger
}

func newStreamer(cfg Config, reg *registry.Registry, src Source, sink Sink, log logx.Logger) *streamer {
	return &streamer{
		deliverer: deliverer{reg: reg, sink: sink, log: log},
		cfg:       cfg,
		reg:       reg,
		src:       src,
		log:       log,
	}
}

func (s *streamer) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		union := s.reg.WatchedUnion()
		if len(union) == 0 {
			// Nothing watched; don't open a degenerate connection.
			sleep(ctx, s.cfg.IdleDelay)
			continue
		}

		items, errs := s.src.StreamComments(ctx, union)
		s.log.Info("comment stream opened", logx.String("sources", strings.Join(union, "+")))

	consume:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-errs:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Warn("comment stream failed; reconnecting",
					logx.Err(err),
					logx.Duration("backoff", s.cfg.StreamRetryDelay))
				sleep(ctx, s.cfg.StreamRetryDelay)
				break consume
			case it, ok := <-items:
				if !ok {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					// The source buffers its terminal error before closing
					// items; this case can win the select, so drain it here
					// or it never reaches the log.
					select {
					case err := <-errs:
						s.log.Warn("comment stream failed; reconnecting",
							logx.Err(err),
							logx.Duration("backoff", s.cfg.StreamRetryDelay))
					default:
						s.log.Warn("comment stream ended; reconnecting",
							logx.Duration("backoff", s.cfg.StreamRetryDelay))
					}
					sleep(ctx, s.cfg.StreamRetryDelay)
					break consume
				}
				s.fanOut(ctx, it)
			}
		}
	}
}

// fanOut evaluates one arriving item against every enabled destination.
// Destinations are independent: a skip or failure for one never affects
// another, and each receives at most one notification per item even
// when several of its keywords match.
func (s *streamer) fanOut(ctx context.Context, it feed.Item) {
	for _, dest := range s.reg.EnabledDestinations() {
		if ctx.Err() != nil {
			return
		}
		if !s.reg.Watches(dest, it.Source) {
			continue
		}
		if s.reg.Has(dest, it.ID) {
			continue
		}
		for _, kw := range s.reg.Keywords(dest) {
			if !match.Matches(it.Body, kw) {
				continue
			}
			s.deliver(ctx, dest, it, kw)
			break
		}
	}
}
