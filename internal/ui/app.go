package ui

import (
	"log"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/taskmgr/internal/db"
	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/ui/views"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewProjects
	ViewDetail
)

// SessionExpiredMsg is sent when the server rejected the session token
type SessionExpiredMsg struct{}

// Session is the signed-in state the app routes on
type Session interface {
	viewstate.SessionWriter
	IsAuthenticated() bool
	User() (models.User, bool)
	Logout() error
}

// Settings stores small UI preferences
type Settings interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	DeleteSettings(keys ...string) error
}

// ProjectService is everything the project screens call
type ProjectService interface {
	viewstate.ProjectLister
	viewstate.ProjectAPI
}

type Deps struct {
	Session  Session
	Settings Settings
	Auth     viewstate.Authenticator
	Projects ProjectService
	Tasks    viewstate.TaskAPI
}

type App struct {
	deps        Deps
	currentView View
	login       *views.LoginView
	projectList *views.ProjectListView
	detail      *views.ProjectDetailView
	width       int
	height      int
}

// Creates a new application
func NewApp(d Deps) *App {
	return &App{deps: d}
}

func (a *App) Init() tea.Cmd {
	if !a.deps.Session.IsAuthenticated() {
		return a.showLogin("")
	}

	// Check for last opened project
	if raw, ok, err := a.deps.Settings.GetSetting(db.LastProjectKey); err == nil && ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return a.openProject(id)
		}
	}
	return a.showProjects(nil)
}

func (a *App) resize() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// closeViews stops controllers so late results are dropped
func (a *App) closeViews() {
	if a.projectList != nil {
		a.projectList.Controller().Close()
		a.projectList = nil
	}
	if a.detail != nil {
		a.detail.Controller().Close()
		a.detail = nil
	}
}

func (a *App) showLogin(info string) tea.Cmd {
	a.closeViews()
	a.currentView = ViewLogin
	a.login = views.NewLoginView(viewstate.NewAuth(a.deps.Auth, a.deps.Session))
	a.login.SetInfo(info)
	return tea.Batch(a.login.Init(), a.resize())
}

func (a *App) showProjects(notice *viewstate.Notice) tea.Cmd {
	a.closeViews()
	a.currentView = ViewProjects
	user, _ := a.deps.Session.User()
	a.projectList = views.NewProjectListView(viewstate.NewProjectList(a.deps.Projects), user)
	a.projectList.SetNotice(notice)
	return tea.Batch(a.projectList.Init(), a.resize())
}

func (a *App) openProject(id int64) tea.Cmd {
	a.closeViews()
	a.currentView = ViewDetail
	a.detail = views.NewProjectDetailView(viewstate.NewProjectDetail(id, a.deps.Projects, a.deps.Tasks))

	// Save as last opened project
	if err := a.deps.Settings.SetSetting(db.LastProjectKey, strconv.FormatInt(id, 10)); err != nil {
		log.Printf("save last project: %v", err)
	}

	return tea.Batch(a.detail.Init(), a.resize())
}

func (a *App) forgetLastProject() {
	if err := a.deps.Settings.DeleteSettings(db.LastProjectKey); err != nil {
		log.Printf("clear last project: %v", err)
	}
}

func (a *App) expire() tea.Cmd {
	log.Printf("session expired, returning to login")
	a.forgetLastProject()
	return a.showLogin("Your session has expired. Please log in again.")
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case SessionExpiredMsg:
		if a.currentView == ViewLogin {
			return a, nil
		}
		return a, a.expire()

	case views.LoggedIn:
		return a, a.showProjects(nil)

	case views.LogoutRequested:
		if err := a.deps.Session.Logout(); err != nil {
			log.Printf("logout: %v", err)
		}
		a.forgetLastProject()
		return a, a.showLogin("You have been logged out.")

	case views.SelectedProject:
		return a, a.openProject(msg.Project.ID)

	case views.BackToProjects:
		a.forgetLastProject()
		return a, a.showProjects(msg.Notice)

	case views.ProjectDeleted:
		if raw, ok, _ := a.deps.Settings.GetSetting(db.LastProjectKey); ok && raw == strconv.FormatInt(msg.ID, 10) {
			a.forgetLastProject()
		}
		if a.currentView == ViewDetail {
			return a, a.showProjects(nil)
		}
		return a, nil
	}

	// Route guard: nothing but the login view runs without a session. The
	// client clears the session before SessionExpiredMsg arrives, so a failed
	// call's result can get here first.
	if a.currentView != ViewLogin && !a.deps.Session.IsAuthenticated() {
		return a, a.expire()
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewProjects:
		_, cmd = a.projectList.Update(msg)
	case ViewDetail:
		_, cmd = a.detail.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewDetail:
		if a.detail != nil {
			return a.detail.View()
		}
	case ViewProjects:
		if a.projectList != nil {
			return a.projectList.View()
		}
	}
	if a.login != nil {
		return a.login.View()
	}
	return ""
}
