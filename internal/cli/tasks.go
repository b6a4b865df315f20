package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskmgr/internal/models"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands (scoped to a project)",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksCompleteCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func projectFlag(cmd *cobra.Command, project *string) {
	cmd.Flags().StringVar(project, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
}

// parseDue accepts an empty string as "no date" so validation reports it
func parseDue(s string) (models.Date, error) {
	if s == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// taskResult pairs a changed task with the project counters after the change
type taskResult struct {
	Task    *models.Task   `json:"task,omitempty"`
	Project models.Project `json:"project"`
}

func newTasksListCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				detail, err := openDetail(cmd, d, project)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, detail.Snapshot().Tasks)
			})
		},
	}
	projectFlag(cmd, &project)
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var project, title, description, due string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				date, err := parseDue(due)
				if err != nil {
					return err
				}
				detail, err := openDetail(cmd, d, project)
				if err != nil {
					return err
				}
				t, err := detail.CreateTask(ctx(cmd), title, description, date)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, taskResult{Task: &t, Project: detail.Snapshot().Project})
			})
		},
	}
	projectFlag(cmd, &project)
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var project, title, description, due string

	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Edit a task's title, description or due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				taskID, err := parseID("task", args[0])
				if err != nil {
					return err
				}
				detail, err := openDetail(cmd, d, project)
				if err != nil {
					return err
				}
				var cur *models.Task
				for _, t := range detail.Snapshot().Tasks {
					if t.ID == taskID {
						cur = &t
						break
					}
				}
				if cur == nil {
					return fmt.Errorf("task %d not found", taskID)
				}
				if !cmd.Flags().Changed("title") {
					title = cur.Title
				}
				if !cmd.Flags().Changed("description") {
					description = cur.Description
				}
				date := cur.DueDate
				if cmd.Flags().Changed("due") {
					if date, err = parseDue(due); err != nil {
						return err
					}
				}
				t, err := detail.UpdateTask(ctx(cmd), taskID, title, description, date)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, t)
			})
		},
	}
	projectFlag(cmd, &project)
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newTasksCompleteCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				taskID, err := parseID("task", args[0])
				if err != nil {
					return err
				}
				detail, err := openDetail(cmd, d, project)
				if err != nil {
					return err
				}
				if err := detail.CompleteTask(ctx(cmd), taskID); err != nil {
					return fmt.Errorf("task %d: %w", taskID, err)
				}
				return writeOut(cmd, app, taskResult{Project: detail.Snapshot().Project})
			})
		},
	}
	projectFlag(cmd, &project)
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var (
		project string
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				taskID, err := parseID("task", args[0])
				if err != nil {
					return err
				}
				detail, err := openDetail(cmd, d, project)
				if err != nil {
					return err
				}
				if err := detail.RequestDeleteTask(taskID); err != nil {
					return fmt.Errorf("task %d: %w", taskID, err)
				}
				if !yes {
					detail.CancelDelete()
					return errNeedsYes
				}
				if err := detail.ConfirmDelete(ctx(cmd)); err != nil {
					return err
				}
				return writeOut(cmd, app, taskResult{Project: detail.Snapshot().Project})
			})
		},
	}
	projectFlag(cmd, &project)
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the delete")
	return cmd
}
