package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"redwatch/internal/feed"
	logx "redwatch/pkg/logx"
)

func TestPollPassSendsMatchingPost(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"golang"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.posts["golang|pain"] = []feed.Item{{
		ID: "t3_a", Kind: feed.KindPost, Source: "golang",
		Author: "x", Title: "so much pain", Permalink: "/r/golang/a",
	}}
	sink := &fakeSink{}

	p := newPoller(fastConfig(), reg, src, sink, logx.Nop())
	p.runPass(context.Background())

	sends := sink.sent()
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sends))
	}
	if sends[0].dest != "1" {
		t.Errorf("dest = %q", sends[0].dest)
	}
	if !strings.Contains(sends[0].text, "so much pain") {
		t.Errorf("text = %q", sends[0].text)
	}
	if !reg.Has("1", "t3_a") {
		t.Error("delivered item not marked")
	}
}

func TestPollPassReverifiesServerHits(t *testing.T) {
	// The search backend matches substrings; the local whole-word pass
	// must filter those out.
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"golang"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.posts["golang|pain"] = []feed.Item{
		{ID: "t3_loose", Kind: feed.KindPost, Source: "golang", Title: "Painkillers on sale"},
		{ID: "t3_exact", Kind: feed.KindPost, Source: "golang", Title: "the pain is real"},
	}
	sink := &fakeSink{}

	p := newPoller(fastConfig(), reg, src, sink, logx.Nop())
	p.runPass(context.Background())

	if sink.count() != 1 {
		t.Fatalf("sends = %d, want 1 (loose hit filtered)", sink.count())
	}
	if reg.Has("1", "t3_loose") {
		t.Error("filtered item must not be marked")
	}
	if !reg.Has("1", "t3_exact") {
		t.Error("exact match not marked")
	}
}

func TestPollPassBodyMatchCounts(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"golang"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.posts["golang|pain"] = []feed.Item{{
		ID: "t3_body", Kind: feed.KindPost, Source: "golang",
		Title: "unrelated title", Body: "hidden pain inside",
	}}
	sink := &fakeSink{}

	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(context.Background())

	if sink.count() != 1 {
		t.Fatalf("sends = %d, want 1 (body match)", sink.count())
	}
}

func TestPollPassSkipsAlreadyNotified(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"golang"}); err != nil {
		t.Fatal(err)
	}
	reg.MarkIfNew("1", "t3_seen")

	src := newFakeSource()
	src.posts["golang|pain"] = []feed.Item{{
		ID: "t3_seen", Kind: feed.KindPost, Source: "golang", Title: "pain again",
	}}
	sink := &fakeSink{}

	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(context.Background())

	if sink.count() != 0 {
		t.Errorf("sends = %d, want 0", sink.count())
	}
}

func TestPollPassCommentsOneNotificationPerComment(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain", "killer"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"golang"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.comments["golang"] = []feed.Item{{
		ID: "t1_both", Kind: feed.KindComment, Source: "golang",
		Body: "pain and killer both appear",
	}}
	sink := &fakeSink{}

	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(context.Background())

	if sink.count() != 1 {
		t.Errorf("sends = %d, want 1 even with two matching keywords", sink.count())
	}
}

func TestPollPassErrorIsolation(t *testing.T) {
	// A failing source must not stop the pass for the others.
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"broken", "golang"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.searchErr["broken"] = errors.New("boom")
	src.posts["golang|pain"] = []feed.Item{{
		ID: "t3_ok", Kind: feed.KindPost, Source: "golang", Title: "pain here",
	}}
	sink := &fakeSink{}

	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(context.Background())

	if sink.count() != 1 {
		t.Errorf("sends = %d, want 1 despite failing source", sink.count())
	}
}

func TestPollPassSkipsDisabledAndKeywordless(t *testing.T) {
	reg := newTestRegistry(t)

	// Disabled destination with keywords.
	if _, err := reg.AddKeywords("off", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetEnabled("off", false); err != nil {
		t.Fatal(err)
	}
	// Enabled destination with no keywords.
	if err := reg.GetOrCreate("empty"); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.posts["all|pain"] = []feed.Item{{
		ID: "t3_x", Kind: feed.KindPost, Source: "all", Title: "pain",
	}}
	sink := &fakeSink{}

	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(context.Background())

	if sink.count() != 0 {
		t.Errorf("sends = %d, want 0", sink.count())
	}
}

func TestPollPassFailedSendStillMarks(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSources("1", []string{"golang"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.posts["golang|pain"] = []feed.Item{{
		ID: "t3_fail", Kind: feed.KindPost, Source: "golang", Title: "pain",
	}}
	sink := &fakeSink{fail: errors.New("telegram down")}

	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(context.Background())

	if !reg.Has("1", "t3_fail") {
		t.Error("mark must stick even when the send fails")
	}
}

func TestPollPassCancelledContext(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.AddKeywords("1", []string{"pain"}); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	src.posts["all|pain"] = []feed.Item{{
		ID: "t3_x", Kind: feed.KindPost, Source: "all", Title: "pain",
	}}
	sink := &fakeSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newPoller(fastConfig(), reg, src, sink, logx.Nop()).runPass(ctx)

	if sink.count() != 0 {
		t.Errorf("sends = %d after cancellation, want 0", sink.count())
	}
}
