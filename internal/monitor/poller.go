package monitor

import (
	"context"

	"redwatch/internal/match"
	"redwatch/internal/registry"
	logx "redwatch/pkg/logx"
)

// poller runs the periodic bulk pass: for every enabled destination,
// every watched source, every keyword, pull a bounded page of recent
// results, re-verify matches locally, deduplicate, and forward.
type poller struct {
	deliverer
	cfg Config
	reg *registry.Registry
	src Source
	log logx.Logger
}

func newPoller(cfg Config, reg *registry.Registry, src Source, sink Sink, log logx.Logger) *poller {
	return &poller{
		deliverer: deliverer{reg: reg, sink: sink, log: log},
		cfg:       cfg,
		reg:       reg,
		src:       src,
		log:       log,
	}
}

func (p *poller) run(ctx context.Context) error {
	for {
		p.runPass(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Persist dedup marks accumulated during the pass.
		if err := p.reg.Flush(); err != nil {
			p.log.Warn("post-pass flush failed", logx.Err(err))
		}

		p.log.Debug("poll pass complete", logx.Duration("sleep", p.cfg.PollInterval))
		sleep(ctx, p.cfg.PollInterval)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// runPass visits every enabled destination once. Fetch errors for one
// (destination, source) pair never abort the pass; cancellation exits
// at every loop level.
func (p *poller) runPass(ctx context.Context) {
	for _, dest := range p.reg.EnabledDestinations() {
		if ctx.Err() != nil {
			return
		}
		keywords := p.reg.Keywords(dest)
		if len(keywords) == 0 {
			continue
		}
		for _, source := range p.reg.Sources(dest) {
			if ctx.Err() != nil {
				return
			}
			for _, kw := range keywords {
				if ctx.Err() != nil {
					return
				}
				p.pollPosts(ctx, dest, source, kw)
			}
			p.pollComments(ctx, dest, source, keywords)
		}
	}
}

// pollPosts searches source for kw. The server-side search can match
// substrings and stemmed forms, so every hit is re-verified against the
// whole-word matcher before sending.
func (p *poller) pollPosts(ctx context.Context, dest, source, kw string) {
	items, err := p.src.Search(ctx, source, kw, p.cfg.SearchLimit)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("post search failed",
				logx.String("destination", dest),
				logx.String("source", source),
				logx.String("keyword", kw),
				logx.Err(err))
		}
		return
	}
	for _, it := range items {
		if ctx.Err() != nil {
			return
		}
		if p.reg.Has(dest, it.ID) {
			continue
		}
		if !match.Matches(it.Title, kw) && !match.Matches(it.Body, kw) {
			continue
		}
		if p.deliver(ctx, dest, it, kw) {
			sleep(ctx, p.cfg.SendDelay)
		}
	}
	sleep(ctx, p.cfg.FetchDelay)
}

// pollComments pulls the most recent comments from source once and
// matches all of the destination's keywords against each body. At most
// one notification goes out per comment.
func (p *poller) pollComments(ctx context.Context, dest, source string, keywords []string) {
	items, err := p.src.RecentComments(ctx, source, p.cfg.SearchLimit)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("comment fetch failed",
				logx.String("destination", dest),
				logx.String("source", source),
				logx.Err(err))
		}
		return
	}
	for _, it := range items {
		if ctx.Err() != nil {
			return
		}
		if p.reg.Has(dest, it.ID) {
			continue
		}
		for _, kw := range keywords {
			if !match.Matches(it.Body, kw) {
				continue
			}
			if p.deliver(ctx, dest, it, kw) {
				sleep(ctx, p.cfg.SendDelay)
			}
			break
		}
	}
	sleep(ctx, p.cfg.FetchDelay)
}
