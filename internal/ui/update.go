package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/feed"
	"github.com/abelbrown/cinelog/internal/logging"
	"github.com/abelbrown/cinelog/internal/otel"
	"github.com/abelbrown/cinelog/internal/pointer"
	"github.com/abelbrown/cinelog/internal/search"
	"github.com/abelbrown/cinelog/internal/store"
)

// Update handles messages and returns the updated model and any commands.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.help.Width = msg.Width
		a.input.Width = max(msg.Width-8, 10)
		t := a.tabs[a.active]
		t.offset = scrollOffset(t.offset, t.cursor, a.listHeight(), len(t.state.Items))
		a.maybeLoadNext(t)
		return a, nil

	case inboxMsg:
		var cmds []tea.Cmd
		for _, m := range msg.msgs {
			cmds = append(cmds, a.handle(m))
		}
		cmds = append(cmds, a.inbox.wait())
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)
	}

	return a, a.handle(msg)
}

// handle applies results from controllers and commands.
func (a *App) handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case searchStateMsg:
		if msg.state.Rev < a.results.Rev {
			return nil
		}
		a.results = msg.state

	case searchSelectedMsg:
		r := msg.result
		a.blurSearch()
		return a.openDetails(r.ID, r.Title, r.Year(), "search")

	case feedStateMsg:
		t := a.tabs[msg.tab]
		if msg.state.Rev < t.state.Rev {
			return nil
		}
		grew := len(msg.state.Items) > len(t.state.Items)
		t.state = msg.state
		if t.cursor >= len(t.state.Items) {
			t.cursor = max(len(t.state.Items)-1, 0)
		}
		t.offset = scrollOffset(t.offset, t.cursor, a.listHeight(), len(t.state.Items))
		// Keep filling the viewport after a page lands. Failures are not
		// retried here; the user presses r.
		if grew && msg.tab == a.active {
			a.maybeLoadNext(t)
		}

	case DetailsLoaded:
		if a.details == nil || a.details.tmdbID != msg.TmdbID {
			return nil
		}
		a.details.loading = false
		if msg.Err != nil {
			logging.Warn("ui: details failed", "tmdb_id", msg.TmdbID, "err", msg.Err)
			a.details.err = msg.Err
			return nil
		}
		d := msg.Details
		a.details.details = &d

	case AuthDone:
		return a.authDone(msg)

	case ListUpdated:
		if msg.Err != nil {
			logging.Warn("ui: list update failed", "err", msg.Err)
			a.err = msg.Err
			return nil
		}
		a.status = msg.Note
		if t := a.tabs[tabList]; t.started {
			t.ctl.LoadInitial()
		}

	case HistoryRecorded:
		if msg.Err != nil {
			logging.Warn("ui: history not recorded", "err", msg.Err)
		}
	}
	return nil
}

func (a *App) authDone(msg AuthDone) tea.Cmd {
	if a.login != nil {
		a.login.busy = false
	}
	if msg.Err != nil {
		if a.login != nil {
			a.login.err = userMessage(msg.Err)
		} else {
			a.err = msg.Err
		}
		return nil
	}

	a.login = nil
	a.sess = a.deps.Auth.Snapshot()
	list := a.tabs[tabList]
	list.started = false
	list.cursor, list.offset = 0, 0

	switch {
	case msg.Action == "logout":
		a.status = "Signed out"
	case a.sess.User != nil:
		a.status = "Signed in as " + a.sess.User.Name
	default:
		a.status = "Signed in"
	}
	if a.active == tabList {
		a.activate(tabList)
	}
	return nil
}

// userMessage is the text shown for err in the login form.
func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// handleKey routes a key to the layer on top.
func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	// Clear any previous notice on key press
	a.err = nil
	a.status = ""

	switch {
	case a.showDebug:
		if key.Matches(msg, a.keys.Debug) || msg.String() == "esc" {
			a.showDebug = false
		}
		return nil
	case a.login != nil:
		return a.updateLogin(msg)
	case a.details != nil:
		return a.updateDetails(msg)
	case a.focus == focusSearch:
		return a.updateSearch(msg)
	}
	return a.updateList(msg)
}

func (a *App) updateLogin(msg tea.KeyMsg) tea.Cmd {
	cmd, submit, cancel := a.login.Update(msg)
	if cancel {
		a.login = nil
		return nil
	}
	if submit == nil {
		return cmd
	}
	a.login.busy = true
	a.login.err = ""

	auth, ctx, s := a.deps.Auth, a.ctx, *submit
	return tea.Batch(cmd, func() tea.Msg {
		if s.register {
			return AuthDone{Action: "register", Err: auth.Register(ctx, s.name, s.email, s.password)}
		}
		return AuthDone{Action: "login", Err: auth.Login(ctx, s.email, s.password)}
	})
}

func (a *App) updateDetails(msg tea.KeyMsg) tea.Cmd {
	d := a.details
	switch {
	case key.Matches(msg, a.keys.Back), msg.String() == "q":
		a.details = nil
	case key.Matches(msg, a.keys.Watched):
		return a.addToList(d.tmdbID, d.title, api.StatusWatched)
	case key.Matches(msg, a.keys.Watchlist):
		return a.addToList(d.tmdbID, d.title, api.StatusWatchlist)
	case key.Matches(msg, a.keys.Favorite):
		return a.addToList(d.tmdbID, d.title, api.StatusFavorite)
	}
	return nil
}

func (a *App) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		// First escape closes the panel, the second leaves the box.
		if a.results.Open {
			a.search.Dismiss()
		} else {
			a.blurSearch()
		}
		return nil
	case "down", "ctrl+n":
		a.search.MoveHighlight(search.Next)
		return nil
	case "up", "ctrl+p":
		a.search.MoveHighlight(search.Previous)
		return nil
	case "enter":
		if a.search.ConfirmHighlighted() {
			a.input.Reset()
		}
		return nil
	case "ctrl+u":
		a.search.Clear()
		a.input.Reset()
		return nil
	case "tab", "shift+tab":
		return a.updateList(msg)
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if v := a.input.Value(); v != before {
		a.search.SetQuery(v)
	}
	return cmd
}

func (a *App) focusSearchBox() tea.Cmd {
	a.focus = focusSearch
	a.search.Focus()
	return a.input.Focus()
}

func (a *App) blurSearch() {
	a.focus = focusList
	a.input.Blur()
}

func (a *App) updateList(msg tea.KeyMsg) tea.Cmd {
	t := a.tabs[a.active]

	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] < '1'+byte(numTabs) {
		a.switchTab(tabKind(s[0] - '1'))
		return nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.Debug):
		a.showDebug = true
	case key.Matches(msg, a.keys.Search):
		return a.focusSearchBox()
	case key.Matches(msg, a.keys.ClearSearch):
		a.search.Clear()
		a.input.Reset()
	case key.Matches(msg, a.keys.NextTab):
		a.switchTab((a.active + 1) % numTabs)
	case key.Matches(msg, a.keys.PrevTab):
		a.switchTab((a.active + numTabs - 1) % numTabs)
	case key.Matches(msg, a.keys.Up):
		a.moveCursor(t, -1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(t, 1)
	case key.Matches(msg, a.keys.Top):
		a.moveCursor(t, -len(t.state.Items))
	case key.Matches(msg, a.keys.Bottom):
		a.moveCursor(t, len(t.state.Items))
	case key.Matches(msg, a.keys.PageUp):
		a.moveCursor(t, -a.listHeight())
	case key.Matches(msg, a.keys.PageDown):
		a.moveCursor(t, a.listHeight())
	case key.Matches(msg, a.keys.Open):
		if row, ok := t.selected(); ok {
			return a.openDetails(row.TmdbID, row.Title, row.Year, a.active.String())
		}
	case key.Matches(msg, a.keys.NextVariant):
		if t.cycle(1) {
			a.reload(t, true)
		}
	case key.Matches(msg, a.keys.PrevVariant):
		if t.cycle(-1) {
			a.reload(t, true)
		}
	case key.Matches(msg, a.keys.Reload):
		a.reload(t, false)
	case key.Matches(msg, a.keys.Watched):
		return a.setStatus(t, api.StatusWatched)
	case key.Matches(msg, a.keys.Watchlist):
		return a.setStatus(t, api.StatusWatchlist)
	case key.Matches(msg, a.keys.Favorite):
		return a.setStatus(t, api.StatusFavorite)
	case key.Matches(msg, a.keys.RateUp):
		return a.rate(t, 1)
	case key.Matches(msg, a.keys.RateDown):
		return a.rate(t, -1)
	case key.Matches(msg, a.keys.Remove):
		return a.remove(t)
	case key.Matches(msg, a.keys.Login):
		switch {
		case a.deps.Auth == nil:
			a.err = errors.New("sign-in is not available")
		case a.signedIn():
			a.status = "Already signed in (O to sign out)"
		default:
			a.login = newLoginForm(false)
		}
	case key.Matches(msg, a.keys.Logout):
		return a.logout()
	}
	return nil
}

// switchTab moves focus to another tab. Focus leaving the search box is
// published so the result panel closes.
func (a *App) switchTab(k tabKind) {
	if a.focus == focusSearch {
		a.blurSearch()
	}
	a.ptr.Publish(pointer.Event{Kind: pointer.Focus, X: 0, Y: rowTabs})
	a.activate(k)
}

func (a *App) moveCursor(t *tab, delta int) {
	n := len(t.state.Items)
	if n == 0 {
		return
	}
	t.cursor = min(max(t.cursor+delta, 0), n-1)
	t.offset = scrollOffset(t.offset, t.cursor, a.listHeight(), n)
	a.maybeLoadNext(t)
}

// maybeLoadNext asks the active feed for its next page when the viewport
// nears the end.
func (a *App) maybeLoadNext(t *tab) {
	if !t.started || (t.kind == tabList && !a.signedIn()) {
		return
	}
	t.ctl.MaybeLoadNext(feed.ScrollMetrics{
		Offset:         t.offset,
		ContentHeight:  len(t.state.Items),
		ViewportHeight: a.listHeight(),
	})
}

// openDetails shows a movie and records the selection.
func (a *App) openDetails(id int64, title, year, source string) tea.Cmd {
	a.details = &detailsView{tmdbID: id, title: title, year: year, source: source, loading: true}

	c, ctx := a.deps.Catalog, a.ctx
	load := func() tea.Msg {
		d, err := c.Details(ctx, id)
		return DetailsLoaded{TmdbID: id, Details: d, Err: err}
	}
	if a.deps.History == nil {
		return load
	}
	h := a.deps.History
	sel := store.Selection{TmdbID: id, Title: title, Year: year, Source: source}
	return tea.Batch(load, func() tea.Msg {
		return HistoryRecorded{Err: h.RecordSelection(sel)}
	})
}

func (a *App) addToList(id int64, title string, status api.Status) tea.Cmd {
	if !a.signedIn() {
		a.err = errSignIn
		return nil
	}
	c, ctx := a.deps.Catalog, a.ctx
	return func() tea.Msg {
		_, err := c.AddUserMovie(ctx, api.AddRequest{TmdbID: id, Status: status})
		return ListUpdated{Note: fmt.Sprintf("Added %s to %s", title, status.Label()), Err: err}
	}
}

// setStatus adds the selected catalog row to the list, or moves a My List
// entry to another status.
func (a *App) setStatus(t *tab, status api.Status) tea.Cmd {
	row, ok := t.selected()
	if !ok {
		return nil
	}
	if row.Entry == nil {
		return a.addToList(row.TmdbID, row.Title, status)
	}
	if row.Entry.Status == status {
		return nil
	}
	st := status
	return a.updateEntry(row, api.UpdateRequest{Status: &st},
		fmt.Sprintf("Moved %s to %s", row.Title, status.Label()))
}

func (a *App) rate(t *tab, delta int) tea.Cmd {
	row, ok := t.selected()
	if !ok || row.Entry == nil {
		return nil
	}
	cur := 0
	if row.Entry.UserRating != nil {
		cur = *row.Entry.UserRating
	}
	next := min(max(cur+delta, 1), 10)
	if next == cur {
		return nil
	}
	return a.updateEntry(row, api.UpdateRequest{UserRating: &next},
		fmt.Sprintf("Rated %s %d/10", row.Title, next))
}

func (a *App) updateEntry(row Row, req api.UpdateRequest, note string) tea.Cmd {
	if !a.signedIn() {
		a.err = errSignIn
		return nil
	}
	c, ctx, id := a.deps.Catalog, a.ctx, row.Entry.ID
	return func() tea.Msg {
		_, err := c.UpdateUserMovie(ctx, id, req)
		return ListUpdated{Note: note, Err: err}
	}
}

func (a *App) remove(t *tab) tea.Cmd {
	row, ok := t.selected()
	if !ok || row.Entry == nil {
		return nil
	}
	if !a.signedIn() {
		a.err = errSignIn
		return nil
	}
	c, ctx, id := a.deps.Catalog, a.ctx, row.Entry.ID
	return func() tea.Msg {
		return ListUpdated{Note: "Removed " + row.Title, Err: c.RemoveUserMovie(ctx, id)}
	}
}

func (a *App) logout() tea.Cmd {
	if a.deps.Auth == nil || !a.signedIn() {
		return nil
	}
	auth := a.deps.Auth
	return func() tea.Msg {
		return AuthDone{Action: "logout", Err: auth.Logout()}
	}
}

// handleMouse publishes presses to the pointer notifier, then acts on the
// element under the pointer.
func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if a.login != nil || a.details != nil || a.showDebug {
		return nil
	}
	t := a.tabs[a.active]

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		a.moveCursor(t, -3)
	case msg.Button == tea.MouseButtonWheelDown:
		a.moveCursor(t, 3)
	case msg.Action == tea.MouseActionMotion:
		if i, ok := a.dropdownIndex(msg.Y); ok {
			a.search.SetHighlight(i)
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		a.ptr.Publish(pointer.Event{Kind: pointer.Press, X: msg.X, Y: msg.Y})
		return a.click(msg.X, msg.Y)
	}
	return nil
}

func (a *App) click(x, y int) tea.Cmd {
	if i, ok := a.dropdownIndex(y); ok {
		a.search.Select(a.results.Results[i])
		a.input.Reset()
		return nil
	}

	switch {
	case y == rowTabs:
		if k, ok := a.tabAt(x); ok {
			a.switchTab(k)
		}
	case y == rowSearch:
		return a.focusSearchBox()
	case y >= listTop && y < listTop+a.listHeight():
		if a.focus == focusSearch {
			a.blurSearch()
		}
		t := a.tabs[a.active]
		if row := t.offset + y - listTop; row < len(t.state.Items) {
			t.cursor = row
			a.maybeLoadNext(t)
		}
	}
	return nil
}
