package views

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/ui/keys"
	"github.com/tgienger/taskmgr/internal/ui/styles"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

// LoginView is the login / register form shown while signed out
type LoginView struct {
	auth   *viewstate.Auth
	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int

	register bool
	name     textinput.Model
	email    textinput.Model
	password textinput.Model
	focusIdx int // fields in order, then the submit button

	busy    bool
	errText string
	info    string
}

func NewLoginView(auth *viewstate.Auth) *LoginView {
	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 200

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 200
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	v := &LoginView{
		auth:     auth,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		name:     name,
		email:    email,
		password: password,
	}
	v.updateFocus()
	return v
}

// SetInfo shows a message above the form, e.g. after the session expired
func (v *LoginView) SetInfo(text string) {
	v.info = text
}

type authResultMsg struct {
	user models.User
	err  error
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) inputs() []*textinput.Model {
	if v.register {
		return []*textinput.Model{&v.name, &v.email, &v.password}
	}
	return []*textinput.Model{&v.email, &v.password}
}

func (v *LoginView) updateFocus() {
	v.name.Blur()
	v.email.Blur()
	v.password.Blur()
	if in := v.inputs(); v.focusIdx < len(in) {
		in[v.focusIdx].Focus()
	}
}

func (v *LoginView) submit() tea.Cmd {
	if v.busy {
		return nil
	}
	v.busy = true
	v.errText = ""
	register := v.register
	name, email, password := v.name.Value(), v.email.Value(), v.password.Value()
	return func() tea.Msg {
		var (
			user models.User
			err  error
		)
		if register {
			user, err = v.auth.Register(context.Background(), name, email, password)
		} else {
			user, err = v.auth.Login(context.Background(), email, password)
		}
		return authResultMsg{user: user, err: err}
	}
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case authResultMsg:
		v.busy = false
		if msg.err != nil {
			v.errText = errorText(msg.err)
			return v, nil
		}
		v.password.Reset()
		user := msg.user
		return v, func() tea.Msg { return LoggedIn{User: user} }

	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		fields := len(v.inputs())
		switch {
		case key.Matches(msg, v.keys.Toggle):
			v.register = !v.register
			v.focusIdx = 0
			v.errText = ""
			v.updateFocus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Tab), msg.String() == "down":
			v.focusIdx = (v.focusIdx + 1) % (fields + 1)
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.ShiftTab), msg.String() == "up":
			v.focusIdx = (v.focusIdx + fields) % (fields + 1)
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx < fields-1 {
				v.focusIdx++
				v.updateFocus()
				return v, nil
			}
			return v, v.submit()
		}
	}

	var cmd tea.Cmd
	if in := v.inputs(); v.focusIdx < len(in) {
		*in[v.focusIdx], cmd = in[v.focusIdx].Update(msg)
	}
	return v, cmd
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	title := "Log In"
	button := " Log In "
	toggle := "Ctrl+R: create an account"
	if v.register {
		title = "Create Account"
		button = " Register "
		toggle = "Ctrl+R: back to log in"
	}

	field := func(label string, in *textinput.Model) []string {
		st := s.Input
		if in.Focused() {
			st = s.InputFocused
		}
		return []string{label, st.Width(inputWidth).Render(in.View()), ""}
	}

	rows := []string{s.Title.Render(title), ""}
	if v.info != "" {
		rows = append(rows, s.NoticeInfo.Render(v.info), "")
	}
	if v.register {
		rows = append(rows, field("Name:", &v.name)...)
	}
	rows = append(rows, field("Email:", &v.email)...)
	rows = append(rows, field("Password:", &v.password)...)

	btnStyle := s.Button
	if v.focusIdx == len(v.inputs()) {
		btnStyle = s.ButtonFocused
	}
	if v.busy {
		button = " Please wait... "
	}
	rows = append(rows, btnStyle.Render(button), "")
	if v.errText != "" {
		rows = append(rows, s.NoticeError.Render(v.errText), "")
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ↵: submit • "+toggle+" • Ctrl+C: quit"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
