package views

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/ui/keys"
	"github.com/tgienger/taskmgr/internal/ui/styles"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

type projectItem struct {
	project models.Project
}

func (i projectItem) Title() string       { return i.project.Title }
func (i projectItem) Description() string { return i.project.Description }
func (i projectItem) FilterValue() string { return i.project.Title }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 3 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	desc := p.Description()
	if desc == "" {
		desc = "No description"
	}
	counts := fmt.Sprintf("  %d/%d tasks", p.project.CompletedTasks, p.project.TotalTasks)
	bar := d.styles.ProgressBar(clamp(width-24, 10, 30), p.project.ProgressPercentage)

	fmt.Fprintf(w, "%s\n%s\n%s",
		titleStyle.Render(p.Title()),
		descStyle.Render(desc),
		descStyle.Render(bar+counts),
	)
}

// ProjectListView shows the signed-in user's projects
type ProjectListView struct {
	ctrl     *viewstate.ProjectList
	user     models.User
	list     list.Model
	delegate *projectDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	notice   *viewstate.Notice

	creating bool
	newName  textinput.Model
	newDesc  textinput.Model
	focusIdx int // 0=name, 1=desc, 2=confirm
	formErr  string

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

func NewProjectListView(ctrl *viewstate.ProjectList, user models.User) *ProjectListView {
	s := styles.NewStyles()

	newName := textinput.New()
	newName.Placeholder = "Project name"
	newName.CharLimit = 100

	newDesc := textinput.New()
	newDesc.Placeholder = "Description (optional)"
	newDesc.CharLimit = 500

	delegate := &projectDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ProjectListView{
		ctrl:     ctrl,
		user:     user,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		newName:  newName,
		newDesc:  newDesc,
	}
}

// Controller returns the state controller behind the view
func (v *ProjectListView) Controller() *viewstate.ProjectList { return v.ctrl }

type projectsLoadedMsg struct {
	ctrl *viewstate.ProjectList
	err  error
}

type projectCreatedMsg struct {
	ctrl    *viewstate.ProjectList
	project models.Project
	err     error
}

type projectDeletedMsg struct {
	ctrl *viewstate.ProjectList
	id   int64
	err  error
}

func (v *ProjectListView) Init() tea.Cmd {
	ctrl := v.ctrl
	return func() tea.Msg {
		return projectsLoadedMsg{ctrl: ctrl, err: ctrl.Load(context.Background())}
	}
}

func (v *ProjectListView) syncItems() {
	projects := v.ctrl.Projects()
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = projectItem{project: p}
	}
	v.list.SetItems(items)
}

// SetNotice shows n in the status line until the next key press
func (v *ProjectListView) SetNotice(n *viewstate.Notice) { v.notice = n }

func (v *ProjectListView) takeNotice() {
	if n, ok := v.ctrl.TakeNotice(); ok {
		v.notice = &n
	}
}

func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Use content width (capped at MaxWidth) for internal layout
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-7)
		return v, nil

	case projectsLoadedMsg:
		if msg.ctrl != v.ctrl {
			return v, nil
		}
		v.loaded = true
		v.syncItems()
		v.takeNotice()
		return v, nil

	case projectCreatedMsg:
		if msg.ctrl != v.ctrl {
			return v, nil
		}
		v.takeNotice()
		if msg.err != nil {
			v.formErr = errorText(msg.err)
			return v, nil
		}
		v.creating = false
		v.syncItems()
		v.list.Select(len(v.list.Items()) - 1)
		return v, nil

	case projectDeletedMsg:
		if msg.ctrl != v.ctrl {
			return v, nil
		}
		v.takeNotice()
		v.syncItems()
		if msg.err != nil {
			return v, nil
		}
		id := msg.id
		return v, func() tea.Msg { return ProjectDeleted{ID: id} }

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.ctrl.Snapshot().PendingDelete != nil {
			return v.updateConfirmDelete(msg)
		}

		if v.creating {
			return v.updateCreating(msg)
		}

		// While the filter prompt is open every key belongs to the list
		if v.list.FilterState() == list.Filtering {
			break
		}

		v.notice = nil
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			// Don't quit on escape in project list - only q quits
			if v.list.FilterState() == list.FilterApplied {
				v.list.ResetFilter()
			}
			return v, nil
		case key.Matches(msg, v.keys.Logout):
			return v, func() tea.Msg { return LogoutRequested{} }
		case key.Matches(msg, v.keys.New):
			if !v.loaded || v.ctrl.Phase() == viewstate.PhaseError {
				return v, v.Init()
			}
			v.creating = true
			v.focusIdx = 0
			v.formErr = ""
			v.newName.Reset()
			v.newDesc.Reset()
			v.updateFocus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, func() tea.Msg {
					return SelectedProject{Project: item.project}
				}
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				if err := v.ctrl.RequestDelete(item.project.ID); err != nil {
					v.notice = &viewstate.Notice{Level: viewstate.NoticeError, Text: errorText(err)}
				}
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ProjectListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Yes):
		ctrl := v.ctrl
		id := ctrl.Snapshot().PendingDelete.ID
		return v, func() tea.Msg {
			return projectDeletedMsg{ctrl: ctrl, id: id, err: ctrl.ConfirmDelete(context.Background())}
		}
	case key.Matches(msg, v.keys.No):
		v.ctrl.CancelDelete()
		return v, nil
	}
	return v, nil
}

func (v *ProjectListView) create() tea.Cmd {
	ctrl := v.ctrl
	name, desc := v.newName.Value(), v.newDesc.Value()
	v.formErr = ""
	return func() tea.Msg {
		p, err := ctrl.Create(context.Background(), name, desc)
		return projectCreatedMsg{ctrl: ctrl, project: p, err: err}
	}
}

func (v *ProjectListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.create()

	case key.Matches(msg, v.keys.ShiftTab):
		v.focusIdx = (v.focusIdx + 2) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx == 0 || v.focusIdx == 1 {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v, v.create()
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.newName, cmd = v.newName.Update(msg)
	case 1:
		v.newDesc, cmd = v.newDesc.Update(msg)
	}
	return v, cmd
}

func (v *ProjectListView) updateFocus() {
	v.newName.Blur()
	v.newDesc.Blur()
	switch v.focusIdx {
	case 0:
		v.newName.Focus()
	case 1:
		v.newDesc.Focus()
	}
}

// View renders the view
func (v *ProjectListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	snap := v.ctrl.Snapshot()
	if snap.PendingDelete != nil {
		return v.renderDeleteConfirm(*snap.PendingDelete)
	}

	if v.creating {
		return v.renderCreateForm(snap.Phase == viewstate.PhaseMutating)
	}

	if !v.loaded || snap.Phase == viewstate.PhaseLoading {
		return v.styles.TitleMuted.Render("Loading...")
	}

	if snap.Phase == viewstate.PhaseError {
		return v.renderLoadError()
	}

	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n" + v.renderStatus() + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectListView) renderStatus() string {
	if v.notice != nil {
		return renderNotice(v.styles, v.notice) + "\n"
	}
	if v.ctrl.Phase() == viewstate.PhaseMutating {
		return v.styles.NoticeInfo.Render("Working...") + "\n"
	}
	return ""
}

func (v *ProjectListView) renderLoadError() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Could not load projects"),
		"",
		s.TitleMuted.Render(errorText(v.ctrl.Err())),
		"",
		s.TitleMuted.Render("Press 'n' to retry • 'L' to log out • 'q' to quit"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	greeting := "No Projects"
	if v.user.Name != "" {
		greeting = "No Projects yet, " + v.user.Name
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render(greeting),
		"",
		s.TitleMuted.Render("Press 'n' to create your first project"),
		"",
		s.ButtonPrimary.Render(" New Project "),
		"",
		v.renderStatus(),
	)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderCreateForm(busy bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	nameStyle := s.Input
	descStyle := s.Input
	btnStyle := s.Button

	switch v.focusIdx {
	case 0:
		nameStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	// Dynamic input width based on content width
	inputWidth := clamp(contentWidth-6, 20, 50)

	button := " Create "
	if busy {
		button = " Creating... "
	}

	rows := []string{
		s.Title.Render("New Project"),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.newName.View()),
		"",
		"Description:",
		descStyle.Width(inputWidth).Render(v.newDesc.View()),
		"",
		btnStyle.Render(button),
		"",
	}
	if v.formErr != "" {
		rows = append(rows, s.NoticeError.Render(v.formErr), "")
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"))

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s new • %s del • %s filter • %s logout • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("L"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *ProjectListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      open project",
		s.HelpKey.Render("n") + "      new project",
		s.HelpKey.Render("d") + "      delete project",
		s.HelpKey.Render("/") + "      filter",
		s.HelpKey.Render("L") + "      log out",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderDeleteConfirm(p models.Project) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Project?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("Are you sure you want to delete %q?", p.Title)),
		s.TitleMuted.Render("This will also delete all tasks in this project."),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
