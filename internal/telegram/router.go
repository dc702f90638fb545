package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"redwatch/internal/monitor"
	"redwatch/internal/registry"
	logx "redwatch/pkg/logx"
)

const helpText = `Keyword Monitor Bot

Commands:
/start - Show this help
/menu - Open interactive menu
/status - Show current status
/toggle - Enable/disable notifications

/addkw <keyword> - Add keyword
/removekw <keyword> - Remove keyword
/listkw - List keywords
/clearkw - Clear all keywords

/addsub <subreddit> - Add subreddit (without r/)
/removesub <subreddit> - Remove subreddit
/listsub - List subreddits
/clearsub - Clear subreddits (resets to r/all)

/startmon - Start monitoring
/stopmon - Stop monitoring

Examples:
/addkw pain killer
/addsub wallstreetbets`

// stopGrace bounds how long /stopmon waits for both runners to
// acknowledge termination.
const stopGrace = 30 * time.Second

// Router wires the chat commands to the registry and the coordinator.
type Router struct {
	bot   *Bot
	reg   *registry.Registry
	coord *monitor.Coordinator
	fsm   *inputFSM
	log   logx.Logger

	// appCtx is the process-lifetime context; monitoring sessions
	// started from a command must outlive that command.
	appCtx context.Context
}

func NewRouter(bot *Bot, reg *registry.Registry, coord *monitor.Coordinator, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		bot:   bot,
		reg:   reg,
		coord: coord,
		fsm:   newInputFSM(),
		log:   log,
	}
}

// Bind registers all handlers. ctx is the process lifetime context.
func (r *Router) Bind(ctx context.Context) {
	r.appCtx = ctx
	b := r.bot.bot

	b.Handle("/start", r.guard(r.handleStart))
	b.Handle("/status", r.guard(r.handleStatus))
	b.Handle("/toggle", r.guard(r.handleToggle))

	b.Handle("/addkw", r.guard(r.handleAddKw))
	b.Handle("/removekw", r.guard(r.handleRemoveKw))
	b.Handle("/listkw", r.guard(r.handleListKw))
	b.Handle("/clearkw", r.guard(r.handleClearKw))

	b.Handle("/addsub", r.guard(r.handleAddSub))
	b.Handle("/removesub", r.guard(r.handleRemoveSub))
	b.Handle("/listsub", r.guard(r.handleListSub))
	b.Handle("/clearsub", r.guard(r.handleClearSub))

	b.Handle("/startmon", r.guard(r.handleStartMon))
	b.Handle("/stopmon", r.guard(r.handleStopMon))

	b.Handle("/menu", r.guard(r.handleMenu))
	r.bindMenu(b)

	b.Handle(tele.OnText, r.guard(r.handleText))
}

// guard drops updates from chats we don't serve and keeps handler
// panics out of telebot's dispatch loop.
func (r *Router) guard(fn func(tele.Context) error) func(tele.Context) error {
	return func(c tele.Context) error {
		if !r.bot.allowed(c) {
			return nil
		}
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("command handler panicked", logx.Any("panic", p))
			}
		}()
		if err := fn(c); err != nil {
			r.log.Warn("command failed",
				logx.String("text", c.Text()),
				logx.Err(err))
		}
		return nil
	}
}

func (r *Router) handleStart(c tele.Context) error {
	return c.Send(helpText)
}

func (r *Router) handleStatus(c tele.Context) error {
	return c.Send(r.statusText(destOf(c)))
}

func (r *Router) statusText(dest string) string {
	st := r.reg.Status(dest)
	mon := "stopped"
	if r.coord.Running() {
		mon = "running"
	}
	enabled := "disabled"
	if st.Enabled {
		enabled = "enabled"
	}
	return fmt.Sprintf(
		"Status\n\nNotifications: %s\nMonitoring: %s\nKeywords: %d\nSubreddits: %d\nProcessed items: %d",
		enabled, mon, st.Keywords, st.Sources, st.Processed)
}

func (r *Router) handleToggle(c tele.Context) error {
	dest := destOf(c)
	if err := r.reg.GetOrCreate(dest); err != nil {
		return err
	}
	next := !r.reg.Enabled(dest)
	if err := r.reg.SetEnabled(dest, next); err != nil {
		return err
	}
	if next {
		return c.Send("Notifications enabled")
	}
	return c.Send("Notifications disabled")
}

// ---- keywords ----

func (r *Router) handleAddKw(c tele.Context) error {
	kw := strings.TrimSpace(strings.Join(c.Args(), " "))
	if kw == "" {
		return c.Send("Usage: /addkw <keyword>")
	}
	added, err := r.reg.AddKeywords(destOf(c), []string{kw})
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return c.Send("Already watching: " + kw)
	}
	return c.Send("Added keyword: " + added[0])
}

func (r *Router) handleRemoveKw(c tele.Context) error {
	kw := strings.TrimSpace(strings.Join(c.Args(), " "))
	if kw == "" {
		return c.Send("Usage: /removekw <keyword>")
	}
	removed, err := r.reg.RemoveKeywords(destOf(c), []string{kw})
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return c.Send("Not watching: " + kw)
	}
	return c.Send("Removed keyword: " + removed[0])
}

func (r *Router) handleListKw(c tele.Context) error {
	kws := r.reg.Keywords(destOf(c))
	if len(kws) == 0 {
		return c.Send("No keywords yet. Add one with /addkw")
	}
	return c.Send("Keywords:\n" + strings.Join(kws, "\n"))
}

func (r *Router) handleClearKw(c tele.Context) error {
	if err := r.reg.ClearKeywords(destOf(c)); err != nil {
		return err
	}
	return c.Send("All keywords cleared")
}

// ---- sources ----

func (r *Router) handleAddSub(c tele.Context) error {
	if len(c.Args()) == 0 {
		return c.Send("Usage: /addsub <subreddit>")
	}
	added, err := r.reg.AddSources(destOf(c), c.Args())
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return c.Send("Nothing to add")
	}
	return c.Send("Added subreddits: " + strings.Join(added, ", "))
}

func (r *Router) handleRemoveSub(c tele.Context) error {
	if len(c.Args()) == 0 {
		return c.Send("Usage: /removesub <subreddit>")
	}
	removed, err := r.reg.RemoveSources(destOf(c), c.Args())
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return c.Send("Nothing to remove")
	}
	return c.Send("Removed subreddits: " + strings.Join(removed, ", "))
}

func (r *Router) handleListSub(c tele.Context) error {
	srcs := r.reg.Sources(destOf(c))
	if len(srcs) == 0 {
		srcs = []string{registry.SourceAll}
	}
	return c.Send("Subreddits:\n" + strings.Join(srcs, "\n"))
}

func (r *Router) handleClearSub(c tele.Context) error {
	if err := r.reg.ClearSources(destOf(c)); err != nil {
		return err
	}
	return c.Send("Subreddits reset to r/" + registry.SourceAll)
}

// ---- monitoring ----

func (r *Router) handleStartMon(c tele.Context) error {
	if r.coord.Running() {
		return c.Send("Monitoring is already running")
	}
	if err := r.reg.GetOrCreate(destOf(c)); err != nil {
		return err
	}
	if err := r.coord.Start(r.appCtx); err != nil {
		return c.Send("Failed to start monitoring: " + err.Error())
	}
	return c.Send("Monitoring started")
}

func (r *Router) handleStopMon(c tele.Context) error {
	if !r.coord.Running() {
		return c.Send("Monitoring is not running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := r.coord.Stop(ctx); err != nil {
		return c.Send("Monitoring stop timed out; tasks may still be unwinding")
	}
	return c.Send("Monitoring stopped")
}

// ---- free text (menu prompts) ----

func (r *Router) handleText(c tele.Context) error {
	dest := destOf(c)
	st := r.fsm.take(dest)
	if st == stateIdle {
		return nil
	}

	values := splitInput(c.Text())
	if len(values) == 0 {
		return c.Send("Nothing recognized; try again from /menu")
	}

	switch st {
	case stateAwaitKeywordsAdd:
		added, err := r.reg.AddKeywords(dest, values)
		if err != nil {
			return err
		}
		return c.Send(fmt.Sprintf("Added %d keyword(s)", len(added)))
	case stateAwaitKeywordsRemove:
		removed, err := r.reg.RemoveKeywords(dest, values)
		if err != nil {
			return err
		}
		return c.Send(fmt.Sprintf("Removed %d keyword(s)", len(removed)))
	case stateAwaitSourcesAdd:
		added, err := r.reg.AddSources(dest, values)
		if err != nil {
			return err
		}
		return c.Send(fmt.Sprintf("Added %d subreddit(s)", len(added)))
	case stateAwaitSourcesRemove:
		removed, err := r.reg.RemoveSources(dest, values)
		if err != nil {
			return err
		}
		return c.Send(fmt.Sprintf("Removed %d subreddit(s)", len(removed)))
	}
	return nil
}

func splitInput(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
