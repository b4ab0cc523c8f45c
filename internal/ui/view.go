package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const brandText = "cinelog"

// View renders the current screen.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug {
		overlay := debugOverlay(a.deps.Ring, a.width, a.height-1)
		if overlay == "" {
			overlay = HelpStyle.Render("Event ring buffer is not enabled.")
		}
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.width))
	}

	lines := []string{a.renderTabs(), a.renderSearchBar(), a.renderSubHeader()}
	lines = append(lines, a.renderBody()...)
	lines = append(lines, a.renderStatusBar(), a.help.View(a.keys))
	return strings.Join(lines, "\n")
}

func (a *App) renderTabs() string {
	parts := []string{Brand.Render(brandText)}
	for k := tabKind(0); k < numTabs; k++ {
		label := fmt.Sprintf("%d %s", k+1, tabTitles[k])
		if k == a.active {
			parts = append(parts, TabActive.Render(label))
		} else {
			parts = append(parts, TabInactive.Render(label))
		}
	}
	return strings.Join(parts, "")
}

// tabAt maps a column of the tab bar to a tab, using the same widths as
// renderTabs.
func (a *App) tabAt(x int) (tabKind, bool) {
	pos := lipgloss.Width(Brand.Render(brandText))
	for k := tabKind(0); k < numTabs; k++ {
		label := fmt.Sprintf("%d %s", k+1, tabTitles[k])
		w := lipgloss.Width(TabInactive.Render(label))
		if k == a.active {
			w = lipgloss.Width(TabActive.Render(label))
		}
		if x >= pos && x < pos+w {
			return k, true
		}
		pos += w
	}
	return 0, false
}

func (a *App) renderSearchBar() string {
	line := a.input.View()
	if a.results.Loading {
		line += " " + a.spinner.View()
	}
	return SearchBar.Width(a.width).Render(line)
}

func (a *App) renderSubHeader() string {
	t := a.tabs[a.active]
	var left string
	switch a.active {
	case tabDiscover:
		left = "Popular movies"
	case tabTopRated:
		left = "Highest rated of all time"
	case tabTrending:
		left = "Trending this week"
	case tabGenre:
		left = "Genre: ‹ " + t.variantLabel() + " ›  [ ] to change"
	case tabList:
		var parts []string
		for i, s := range listStatuses {
			if int32(i) == t.variant.Load() {
				parts = append(parts, PanelTitle.Render(s.Label()))
			} else {
				parts = append(parts, s.Label())
			}
		}
		left = strings.Join(parts, " · ")
	case tabRecent:
		left = "Recently opened"
	}

	right := "not signed in · L to sign in"
	switch {
	case a.sess.User != nil:
		right = a.sess.User.Name + " <" + a.sess.User.Email + ">"
	case a.signedIn():
		right = "signed in"
	}

	pad := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	return SubHeader.Render(left + strings.Repeat(" ", pad) + right)
}

// renderBody returns exactly listHeight lines.
func (a *App) renderBody() []string {
	h := a.listHeight()

	switch {
	case a.login != nil:
		return fitLines(lipgloss.Place(a.width, h, lipgloss.Center, lipgloss.Center, a.login.View(a.width)), h)
	case a.details != nil:
		return fitLines(a.details.View(a.width, h), h)
	}

	t := a.tabs[a.active]
	var lines []string
	if msg := a.emptyMessage(t); msg != "" {
		lines = strings.Split(HelpStyle.Render(msg), "\n")
	} else {
		lines = listLines(t.state.Items, t.cursor, t.offset, a.width, h)
	}

	// The search panel is drawn over the top of the list.
	if n := a.dropdownRows(); n > 0 {
		for len(lines) < n {
			lines = append(lines, "")
		}
		w := min(a.width, 64)
		for i := 0; i < n; i++ {
			lines[i] = a.renderResult(i, w)
		}
	}
	return fitLines(strings.Join(lines, "\n"), h)
}

func (a *App) renderResult(i, width int) string {
	r := a.results.Results[i]
	text := r.Title
	if y := r.Year(); y != "" {
		text += " (" + y + ")"
	}
	if score, ok := r.Score(); ok {
		text += fmt.Sprintf("  ★ %.1f", score)
	}
	style := DropdownItem
	if i == a.results.Highlighted {
		style = DropdownHighlight
	}
	return style.Width(width).Render(truncateRunes(text, width-2))
}

func (a *App) emptyMessage(t *tab) string {
	switch {
	case t.kind == tabList && !a.signedIn():
		return "Sign in (L) to see your list."
	case t.kind == tabRecent && a.deps.History == nil:
		return "History is not available."
	case len(t.state.Items) > 0:
		return ""
	case !t.started, t.state.Loading:
		return a.spinner.View() + " Loading…"
	case !t.state.HasMore && t.kind == tabList:
		return "Nothing here yet. Add movies with w, l or f."
	case !t.state.HasMore:
		return "Nothing here yet."
	default:
		return "Could not load this list. Press r to retry."
	}
}

func (a *App) renderStatusBar() string {
	t := a.tabs[a.active]
	var left string
	switch {
	case a.err != nil:
		left = ErrorStyle.Padding(0).Render(a.err.Error())
	case a.status != "":
		left = SuccessStyle.Render(a.status)
	case len(t.state.Items) > 0:
		left = fmt.Sprintf("%d/%d", t.cursor+1, len(t.state.Items))
	}

	var right string
	switch {
	case t.state.Loading && len(t.state.Items) > 0:
		right = a.spinner.View() + " loading page " + fmt.Sprint(t.state.Page+1)
	case t.started && !t.state.HasMore && len(t.state.Items) > 0:
		right = "end of list"
	case len(t.state.Items) > 0:
		right = fmt.Sprintf("page %d", t.state.Page)
	}

	pad := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	return StatusBar.Width(a.width).Render(left + strings.Repeat(" ", pad) + right)
}

// fitLines splits s into exactly n lines, padding or cutting as needed.
func fitLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		return lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}
