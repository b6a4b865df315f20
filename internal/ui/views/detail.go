package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/ui/keys"
	"github.com/tgienger/taskmgr/internal/ui/styles"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

type formKind int

const (
	formNone formKind = iota
	formNewTask
	formEditTask
	formEditProject
)

// ProjectDetailView shows one project and its tasks
type ProjectDetailView struct {
	ctrl   *viewstate.ProjectDetail
	styles *styles.Styles
	keys   keys.KeyMap
	today  func() models.Date

	width  int
	height int

	cursor  int
	scrollY int
	notice  *viewstate.Notice

	// Task / project form
	form       formKind
	editTaskID int64
	editTitle  textinput.Model
	editDesc   textarea.Model
	editDue    textinput.Model
	focusIdx   int // 0=title, 1=desc, 2=due, 3=save (project form skips due)
	formErr    string

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

func NewProjectDetailView(ctrl *viewstate.ProjectDetail) *ProjectDetailView {
	editTitle := textinput.New()
	editTitle.Placeholder = "Title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 1000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editDue := textinput.New()
	editDue.Placeholder = "YYYY-MM-DD"
	editDue.CharLimit = 10

	return &ProjectDetailView{
		ctrl:      ctrl,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		today:     models.Today,
		editTitle: editTitle,
		editDesc:  editDesc,
		editDue:   editDue,
	}
}

// Controller returns the state controller behind the view
func (v *ProjectDetailView) Controller() *viewstate.ProjectDetail { return v.ctrl }

type detailLoadedMsg struct {
	ctrl *viewstate.ProjectDetail
	err  error
}

type detailActionMsg struct {
	ctrl *viewstate.ProjectDetail
	err  error
}

func (v *ProjectDetailView) Init() tea.Cmd {
	ctrl := v.ctrl
	return func() tea.Msg {
		return detailLoadedMsg{ctrl: ctrl, err: ctrl.Load(context.Background())}
	}
}

// run executes a controller action off the update loop
func (v *ProjectDetailView) run(fn func(ctx context.Context) error) tea.Cmd {
	ctrl := v.ctrl
	return func() tea.Msg {
		return detailActionMsg{ctrl: ctrl, err: fn(context.Background())}
	}
}

func (v *ProjectDetailView) takeNotice() {
	if n, ok := v.ctrl.TakeNotice(); ok {
		v.notice = &n
	}
}

func (v *ProjectDetailView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		return v, nil

	case detailLoadedMsg:
		if msg.ctrl != v.ctrl {
			return v, nil
		}
		v.takeNotice()
		v.cursor = 0
		v.scrollY = 0
		// A failed load goes back to the list. An expired session is left
		// to the app, which routes to login.
		if msg.err != nil && !errors.Is(msg.err, viewstate.ErrClosed) && !apiclient.IsAuthExpired(msg.err) {
			n := v.notice
			if n == nil {
				n = &viewstate.Notice{Level: viewstate.NoticeError, Text: errorText(msg.err)}
			}
			return v, func() tea.Msg { return BackToProjects{Notice: n} }
		}
		return v, nil

	case detailActionMsg:
		if msg.ctrl != v.ctrl {
			return v, nil
		}
		v.takeNotice()
		var verr *viewstate.ValidationError
		switch {
		case msg.err == nil:
			v.form = formNone
		case errors.As(msg.err, &verr):
			v.formErr = verr.Message
		case v.form != formNone:
			v.formErr = errorText(msg.err)
		}
		snap := v.ctrl.Snapshot()
		if snap.Deleted {
			id := v.ctrl.ProjectID()
			return v, func() tea.Msg { return ProjectDeleted{ID: id} }
		}
		if v.cursor >= len(snap.Tasks) {
			v.cursor = max(0, len(snap.Tasks)-1)
		}
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		snap := v.ctrl.Snapshot()
		if snap.PendingTask != nil || snap.PendingProject {
			return v.updateConfirmDelete(msg)
		}

		if v.form != formNone {
			return v.updateEditing(msg)
		}

		return v.updateNormal(msg, snap)
	}

	return v, nil
}

func (v *ProjectDetailView) updateNormal(msg tea.KeyMsg, snap viewstate.DetailSnapshot) (tea.Model, tea.Cmd) {
	v.notice = nil
	tasks := snap.Tasks

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToProjects{} }

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	}

	if snap.Phase != viewstate.PhaseReady && snap.Phase != viewstate.PhaseMutating {
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startForm(formNewTask, nil, snap.Project)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		if len(tasks) > 0 {
			v.startForm(formEditTask, &tasks[v.cursor], snap.Project)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.EditProject):
		v.startForm(formEditProject, nil, snap.Project)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Complete):
		if len(tasks) > 0 {
			id := tasks[v.cursor].ID
			return v, v.run(func(ctx context.Context) error { return v.ctrl.CompleteTask(ctx, id) })
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if len(tasks) > 0 {
			_ = v.ctrl.RequestDeleteTask(tasks[v.cursor].ID)
		}
		return v, nil

	case key.Matches(msg, v.keys.DeleteProject):
		_ = v.ctrl.RequestDeleteProject()
		return v, nil
	}

	return v, nil
}

func (v *ProjectDetailView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Yes):
		return v, v.run(v.ctrl.ConfirmDelete)
	case key.Matches(msg, v.keys.No):
		v.ctrl.CancelDelete()
		return v, nil
	}
	return v, nil
}

func (v *ProjectDetailView) fieldCount() int {
	if v.form == formEditProject {
		return 3 // title, desc, save
	}
	return 4
}

func (v *ProjectDetailView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := v.fieldCount()
	saveIdx := n - 1

	switch {
	case key.Matches(msg, v.keys.Back):
		v.form = formNone
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.save()

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % n
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.focusIdx = (v.focusIdx + n - 1) % n
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		// Enter on single-line fields moves to next field
		if v.focusIdx == 0 || (v.focusIdx == 2 && saveIdx == 3) {
			v.focusIdx++
			v.updateEditFocus()
			return v, nil
		}
		if v.focusIdx == saveIdx {
			return v, v.save()
		}
		// For the description textarea, let enter pass through for newlines
	}

	var cmd tea.Cmd
	switch {
	case v.focusIdx == 0:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case v.focusIdx == 1:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case v.focusIdx == 2 && saveIdx == 3:
		v.editDue, cmd = v.editDue.Update(msg)
	}
	return v, cmd
}

func (v *ProjectDetailView) startForm(kind formKind, task *models.Task, project models.Project) {
	v.form = kind
	v.focusIdx = 0
	v.formErr = ""
	v.editTaskID = 0
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editDue.Reset()

	switch kind {
	case formEditTask:
		v.editTaskID = task.ID
		v.editTitle.SetValue(task.Title)
		v.editDesc.SetValue(task.Description)
		if !task.DueDate.IsZero() {
			v.editDue.SetValue(task.DueDate.String())
		}
	case formEditProject:
		v.editTitle.SetValue(project.Title)
		v.editDesc.SetValue(project.Description)
	}
	v.updateEditFocus()
}

func (v *ProjectDetailView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editDue.Blur()

	switch {
	case v.focusIdx == 0:
		v.editTitle.Focus()
	case v.focusIdx == 1:
		v.editDesc.Focus()
	case v.focusIdx == 2 && v.form != formEditProject:
		v.editDue.Focus()
	}
}

func (v *ProjectDetailView) save() tea.Cmd {
	title := v.editTitle.Value()
	desc := v.editDesc.Value()
	v.formErr = ""

	if v.form == formEditProject {
		return v.run(func(ctx context.Context) error {
			_, err := v.ctrl.UpdateProject(ctx, title, desc)
			return err
		})
	}

	var due models.Date
	if raw := strings.TrimSpace(v.editDue.Value()); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			v.formErr = "Due date must be YYYY-MM-DD"
			return nil
		}
		due = d
	}

	if v.form == formNewTask {
		return v.run(func(ctx context.Context) error {
			_, err := v.ctrl.CreateTask(ctx, title, desc, due)
			return err
		})
	}
	id := v.editTaskID
	return v.run(func(ctx context.Context) error {
		_, err := v.ctrl.UpdateTask(ctx, id, title, desc, due)
		return err
	})
}

func (v *ProjectDetailView) visibleItems() int {
	// Each task item is 2 lines + 1 margin = 3 lines
	availableHeight := max(v.height-14, 3)
	return max(availableHeight/3, 1)
}

func (v *ProjectDetailView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

// View renders the view
func (v *ProjectDetailView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	snap := v.ctrl.Snapshot()

	if snap.PendingTask != nil || snap.PendingProject {
		return v.renderDeleteConfirm(snap)
	}

	if v.form != formNone {
		return v.renderEditForm(snap.Phase == viewstate.PhaseMutating)
	}

	switch snap.Phase {
	case viewstate.PhaseIdle, viewstate.PhaseLoading:
		return v.styles.TitleMuted.Render("Loading...")
	case viewstate.PhaseError:
		return v.renderLoadError(snap.Err)
	}

	var b strings.Builder
	b.WriteString(v.renderHeader(snap.Project))
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList(snap.Tasks))
	b.WriteString("\n")
	if v.notice != nil {
		b.WriteString("\n" + renderNotice(v.styles, v.notice))
	} else if snap.Phase == viewstate.PhaseMutating {
		b.WriteString("\n" + v.styles.NoticeInfo.Render("Working..."))
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *ProjectDetailView) renderHeader(p models.Project) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	desc := p.Description
	if desc == "" {
		desc = "No description"
	}
	counts := fmt.Sprintf("  %d of %d tasks completed", p.CompletedTasks, p.TotalTasks)

	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(p.Title),
		s.TitleMuted.Width(max(contentWidth-4, 20)).Render(desc),
		"",
		s.ProgressBar(clamp(contentWidth-36, 10, 40), p.ProgressPercentage)+s.TitleMuted.Render(counts),
	)
}

func (v *ProjectDetailView) renderLoadError(err error) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	text := "Unknown error"
	if err != nil {
		text = errorText(err)
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Could not load project"),
		"",
		s.TitleMuted.Render(text),
		"",
		s.TitleMuted.Render("Esc to go back"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectDetailView) renderTaskList(tasks []models.Task) string {
	s := v.styles

	if len(tasks) == 0 {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	visible := v.visibleItems()
	today := v.today()

	var items []string
	endIdx := min(v.scrollY+visible, len(tasks))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(tasks[i], i == v.cursor, today))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

// dueLabel describes a task's due date and picks its style
func (v *ProjectDetailView) dueLabel(task models.Task, today models.Date) (string, lipgloss.Style) {
	s := v.styles
	if task.DueDate.IsZero() {
		return "No due date", s.TitleMuted
	}
	label := "Due " + task.DueDate.Display()
	switch {
	case task.Completed:
		return label, s.TitleMuted
	case task.Overdue(today):
		return label + " (overdue)", s.TaskOverdue
	case task.DueSoon(today):
		return label + " (due soon)", s.TaskDueSoon
	}
	return label, s.TitleMuted
}

func (v *ProjectDetailView) renderTaskItem(task models.Task, selected bool, today models.Date) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	check := "[ ] "
	title := s.TaskTitle.Render(task.Title)
	if task.Completed {
		check = "[x] "
		title = s.TaskDone.Render(task.Title)
	}

	due, dueStyle := v.dueLabel(task, today)
	second := "    " + dueStyle.Render(due)
	if task.Description != "" {
		second += s.TitleMuted.Render(" • " + firstLine(task.Description))
	}

	lineStyle := s.ListItem
	if selected {
		lineStyle = s.ListSelected
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lineStyle.Width(width).Render(check+title),
		lineStyle.Width(width).Render(second),
	) + "\n"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + "…"
	}
	return s
}

func (v *ProjectDetailView) renderEditForm(busy bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	switch v.form {
	case formEditTask:
		formTitle = "Edit Task"
	case formEditProject:
		formTitle = "Edit Project"
	}

	titleStyle := s.Input
	descStyle := s.Input
	dueStyle := s.Input
	btnStyle := s.Button

	saveIdx := v.fieldCount() - 1
	switch {
	case v.focusIdx == 0:
		titleStyle = s.InputFocused
	case v.focusIdx == 1:
		descStyle = s.InputFocused
	case v.focusIdx == saveIdx:
		btnStyle = s.ButtonFocused
	case v.focusIdx == 2:
		dueStyle = s.InputFocused
	}

	// Dynamic input width based on content width
	inputWidth := clamp(contentWidth-6, 20, 50)

	rows := []string{
		s.Title.Render(formTitle),
		"",
		"Title:",
		titleStyle.Width(inputWidth).Render(v.editTitle.View()),
		"",
		"Description:",
		descStyle.Render(v.editDesc.View()),
		"",
	}
	if v.form != formEditProject {
		rows = append(rows,
			"Due date:",
			dueStyle.Width(14).Render(v.editDue.View()),
			"",
		)
	}
	button := " Save "
	if busy {
		button = " Saving... "
	}
	rows = append(rows, btnStyle.Render(button), "")
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

func (v *ProjectDetailView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s done • %s new • %s edit • %s del • %s edit project • %s del project • %s back • %s quit",
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("E"),
			v.styles.HelpKey.Render("D"),
			v.styles.HelpKey.Render("esc"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *ProjectDetailView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("space") + "  complete task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("E") + "      edit project",
		s.HelpKey.Render("D") + "      delete project",
		s.HelpKey.Render("esc") + "    back",
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

func (v *ProjectDetailView) renderDeleteConfirm(snap viewstate.DetailSnapshot) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	heading := "Delete Task?"
	detail := ""
	extra := ""
	if snap.PendingProject {
		heading = "Delete Project?"
		detail = fmt.Sprintf("Are you sure you want to delete %q?", snap.Project.Title)
		extra = "This will also delete all tasks in this project."
	} else {
		detail = fmt.Sprintf("Are you sure you want to delete %q?", snap.PendingTask.Title)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render(heading),
		"",
		s.TitleMuted.Render(detail),
		s.TitleMuted.Render(extra),
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
