package telegram

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"redwatch/internal/registry"
)

// The interactive menu mirrors the command surface: every button either
// answers directly or arms the input FSM and prompts for comma-separated
// values.

var (
	menuMarkup = &tele.ReplyMarkup{}

	btnAddKw     = menuMarkup.Data("Add Keywords", "kw_add")
	btnRemoveKw  = menuMarkup.Data("Remove Keywords", "kw_remove")
	btnListKw    = menuMarkup.Data("List Keywords", "kw_list")
	btnClearKw   = menuMarkup.Data("Clear Keywords", "kw_clear")
	btnAddSub    = menuMarkup.Data("Add Subreddits", "sub_add")
	btnRemoveSub = menuMarkup.Data("Remove Subreddits", "sub_remove")
	btnListSub   = menuMarkup.Data("List Subreddits", "sub_list")
	btnClearSub  = menuMarkup.Data("Reset Subreddits", "sub_clear")
	btnStatus    = menuMarkup.Data("Status", "status")
	btnToggle    = menuMarkup.Data("Toggle Notifications", "toggle")
	btnToggleMon = menuMarkup.Data("Start/Stop Monitoring", "toggle_mon")
)

func init() {
	menuMarkup.Inline(
		menuMarkup.Row(btnAddKw, btnRemoveKw),
		menuMarkup.Row(btnListKw, btnClearKw),
		menuMarkup.Row(btnAddSub, btnRemoveSub),
		menuMarkup.Row(btnListSub, btnClearSub),
		menuMarkup.Row(btnStatus, btnToggle),
		menuMarkup.Row(btnToggleMon),
	)
}

func (r *Router) handleMenu(c tele.Context) error {
	return c.Send("Bot Menu:", menuMarkup)
}

func (r *Router) bindMenu(b *tele.Bot) {
	b.Handle(&btnAddKw, r.guard(func(c tele.Context) error {
		dest := destOf(c)
		r.fsm.set(dest, stateAwaitKeywordsAdd)
		current := "None"
		if kws := r.reg.Keywords(dest); len(kws) > 0 {
			current = strings.Join(kws, ", ")
		}
		return c.Edit("Current keywords: " + current +
			"\n\nSend keywords separated by commas:\nExample: pain killer, crypto news")
	}))

	b.Handle(&btnRemoveKw, r.guard(func(c tele.Context) error {
		dest := destOf(c)
		kws := r.reg.Keywords(dest)
		if len(kws) == 0 {
			return c.Edit("No keywords to remove")
		}
		r.fsm.set(dest, stateAwaitKeywordsRemove)
		return c.Edit("Current keywords:\n" + strings.Join(kws, "\n") +
			"\n\nSend keywords to remove (comma-separated):")
	}))

	b.Handle(&btnListKw, r.guard(func(c tele.Context) error {
		kws := r.reg.Keywords(destOf(c))
		if len(kws) == 0 {
			return c.Edit("No keywords yet")
		}
		return c.Edit("Keywords:\n" + strings.Join(kws, "\n"))
	}))

	b.Handle(&btnClearKw, r.guard(func(c tele.Context) error {
		if err := r.reg.ClearKeywords(destOf(c)); err != nil {
			return err
		}
		return c.Edit("All keywords cleared")
	}))

	b.Handle(&btnAddSub, r.guard(func(c tele.Context) error {
		dest := destOf(c)
		r.fsm.set(dest, stateAwaitSourcesAdd)
		return c.Edit("Current subreddits: " + strings.Join(r.reg.Sources(dest), ", ") +
			"\n\nSend subreddits separated by commas (without r/):")
	}))

	b.Handle(&btnRemoveSub, r.guard(func(c tele.Context) error {
		dest := destOf(c)
		srcs := r.reg.Sources(dest)
		if len(srcs) == 1 && srcs[0] == registry.SourceAll {
			return c.Edit("Only r/" + registry.SourceAll + " is watched; nothing to remove")
		}
		r.fsm.set(dest, stateAwaitSourcesRemove)
		return c.Edit("Current subreddits:\n" + strings.Join(srcs, "\n") +
			"\n\nSend subreddits to remove (comma-separated):")
	}))

	b.Handle(&btnListSub, r.guard(func(c tele.Context) error {
		return c.Edit("Subreddits:\n" + strings.Join(r.reg.Sources(destOf(c)), "\n"))
	}))

	b.Handle(&btnClearSub, r.guard(func(c tele.Context) error {
		if err := r.reg.ClearSources(destOf(c)); err != nil {
			return err
		}
		return c.Edit("Subreddits reset to r/" + registry.SourceAll)
	}))

	b.Handle(&btnStatus, r.guard(func(c tele.Context) error {
		return c.Edit(r.statusText(destOf(c)))
	}))

	b.Handle(&btnToggle, r.guard(func(c tele.Context) error {
		dest := destOf(c)
		if err := r.reg.GetOrCreate(dest); err != nil {
			return err
		}
		next := !r.reg.Enabled(dest)
		if err := r.reg.SetEnabled(dest, next); err != nil {
			return err
		}
		if next {
			return c.Edit("Notifications enabled")
		}
		return c.Edit("Notifications disabled")
	}))

	b.Handle(&btnToggleMon, r.guard(func(c tele.Context) error {
		if r.coord.Running() {
			return r.handleStopMon(c)
		}
		return r.handleStartMon(c)
	}))
}
