package monitor

import (
	"context"

	"redwatch/internal/feed"
	"redwatch/internal/registry"
	logx "redwatch/pkg/logx"
)

// deliverer is the shared send path of both runners: atomically reserve
// the (destination, item) pair in the dedup set, then send.
type deliverer struct {
	reg  *registry.Registry
	sink Sink
	log  logx.Logger
}

// deliver sends it to dest if this caller wins the dedup reservation.
// The reservation sticks even when the send fails, so a flaky sink
// cannot trigger retry storms; the miss is logged and accepted.
// Returns true when a send was attempted.
func (d *deliverer) deliver(ctx context.Context, dest string, it feed.Item, keyword string) bool {
	if !d.reg.MarkIfNew(dest, it.ID) {
		return false
	}
	text := FormatNotification(it, keyword)
	if err := d.sink.Send(ctx, dest, text); err != nil {
		d.log.Error("notification send failed",
			logx.String("destination", dest),
			logx.String("item", it.ID),
			logx.Err(err))
		return true
	}
	d.log.Info("notification sent",
		logx.String("destination", dest),
		logx.String("keyword", keyword),
		logx.String("kind", string(it.Kind)),
		logx.String("item", it.ID))
	return true
}
