package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding. It implements help.KeyMap for the footer.
type keyMap struct {
	Up, Down, Top, Bottom, PageUp, PageDown key.Binding
	Open, Back                             key.Binding
	NextTab, PrevTab                       key.Binding
	NextVariant, PrevVariant               key.Binding
	Search, ClearSearch                    key.Binding
	Reload                                 key.Binding
	Watched, Watchlist, Favorite           key.Binding
	RateUp, RateDown, Remove               key.Binding
	Login, Logout                          key.Binding
	Debug, Help, Quit                      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+f"), key.WithHelp("pgdn", "page down")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:        key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		NextTab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		NextVariant: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next genre/status")),
		PrevVariant: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev genre/status")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ClearSearch: key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear search")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Watched:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watched")),
		Watchlist:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "watchlist")),
		Favorite:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		RateUp:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "rate")),
		RateDown:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "rate down")),
		Remove:      key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Login:       key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign in")),
		Logout:      key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "sign out")),
		Debug:       key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Open, k.Search, k.NextTab, k.Watchlist, k.Login, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.Open, k.Back, k.NextTab, k.PrevTab, k.NextVariant, k.PrevVariant},
		{k.Search, k.ClearSearch, k.Reload, k.Debug},
		{k.Watched, k.Watchlist, k.Favorite, k.RateUp, k.Remove},
		{k.Login, k.Logout, k.Help, k.Quit},
	}
}
