package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
	numFields
)

// loginForm is the sign-in and registration form. Errors are shown inline
// and the form stays editable after a failure.
type loginForm struct {
	register bool
	inputs   [numFields]textinput.Model
	focus    int
	err      string
	busy     bool
}

// loginSubmit is what the form asks the app to do.
type loginSubmit struct {
	register              bool
	name, email, password string
}

func newLoginForm(register bool) *loginForm {
	f := &loginForm{register: register}
	for i := range f.inputs {
		in := textinput.New()
		in.CharLimit = 128
		in.Width = 32
		in.Prompt = ""
		f.inputs[i] = in
	}
	f.inputs[fieldName].Placeholder = "Your name"
	f.inputs[fieldEmail].Placeholder = "you@example.com"
	f.inputs[fieldPassword].Placeholder = "at least 6 characters"
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].EchoCharacter = '•'

	f.focus = fieldEmail
	if register {
		f.focus = fieldName
	}
	f.inputs[f.focus].Focus()
	return f
}

// fields lists the visible inputs in tab order.
func (f *loginForm) fields() []int {
	if f.register {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *loginForm) move(delta int) {
	fields := f.fields()
	pos := 0
	for i, id := range fields {
		if id == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(fields)) % len(fields)
	f.inputs[f.focus].Blur()
	f.focus = fields[pos]
	f.inputs[f.focus].Focus()
}

// toggle switches between sign-in and registration, keeping what was typed.
func (f *loginForm) toggle() {
	f.register = !f.register
	f.err = ""
	f.inputs[f.focus].Blur()
	f.focus = f.fields()[0]
	f.inputs[f.focus].Focus()
}

func (f *loginForm) submission() loginSubmit {
	return loginSubmit{
		register: f.register,
		name:     strings.TrimSpace(f.inputs[fieldName].Value()),
		email:    strings.TrimSpace(f.inputs[fieldEmail].Value()),
		password: f.inputs[fieldPassword].Value(),
	}
}

// Update handles a key. It returns a submission when the user pressed
// enter on the last field, or cancel when the form should close.
func (f *loginForm) Update(msg tea.KeyMsg) (cmd tea.Cmd, submit *loginSubmit, cancel bool) {
	switch msg.String() {
	case "esc":
		return nil, nil, true
	case "tab", "down":
		f.move(1)
		return nil, nil, false
	case "shift+tab", "up":
		f.move(-1)
		return nil, nil, false
	case "ctrl+r":
		f.toggle()
		return nil, nil, false
	case "enter":
		fields := f.fields()
		if f.focus != fields[len(fields)-1] {
			f.move(1)
			return nil, nil, false
		}
		if f.busy {
			return nil, nil, false
		}
		s := f.submission()
		return nil, &s, false
	}

	var c tea.Cmd
	f.inputs[f.focus], c = f.inputs[f.focus].Update(msg)
	return c, nil, false
}

// View renders the form.
func (f *loginForm) View(width int) string {
	title := "Sign in"
	toggle := "ctrl+r: create an account"
	if f.register {
		title = "Create account"
		toggle = "ctrl+r: sign in instead"
	}

	labels := [numFields]string{"Name", "Email", "Password"}
	lines := []string{PanelTitle.Render(title), ""}
	for _, id := range f.fields() {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			FieldLabel.Render(labels[id]), f.inputs[id].View()))
	}
	lines = append(lines, "")

	switch {
	case f.busy:
		lines = append(lines, MetaItem.Render("Working…"))
	case f.err != "":
		lines = append(lines, ErrorStyle.Padding(0).Render(f.err))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, MetaItem.Render("enter: submit · tab: next field · "+toggle+" · esc: cancel"))

	w := 56
	if w > width-4 {
		w = width - 4
	}
	if w < 20 {
		w = 20
	}
	return Panel.Width(w).Render(strings.Join(lines, "\n"))
}
