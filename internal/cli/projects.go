package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskmgr/internal/db"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

var errNeedsYes = errors.New("refusing to delete without --yes")

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return id, nil
}

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsProgressCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				if err := d.requireAuth(); err != nil {
					return err
				}
				list := viewstate.NewProjectList(d.projects)
				if err := list.Load(ctx(cmd)); err != nil {
					return err
				}
				return writeOut(cmd, app, list.Projects())
			})
		},
	}
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				detail, err := openDetail(cmd, d, args[0])
				if err != nil {
					return err
				}
				snap := detail.Snapshot()
				return writeOut(cmd, app, map[string]any{"project": snap.Project, "tasks": snap.Tasks})
			})
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				if err := d.requireAuth(); err != nil {
					return err
				}
				list := viewstate.NewProjectList(d.projects)
				if err := list.Load(ctx(cmd)); err != nil {
					return err
				}
				p, err := list.Create(ctx(cmd), title, description)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Project title")
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Change a project's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				detail, err := openDetail(cmd, d, args[0])
				if err != nil {
					return err
				}
				cur := detail.Snapshot().Project
				if !cmd.Flags().Changed("title") {
					title = cur.Title
				}
				if !cmd.Flags().Changed("description") {
					description = cur.Description
				}
				p, err := detail.UpdateProject(ctx(cmd), title, description)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newProjectsProgressCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <project-id>",
		Short: "Show the server's progress figures for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				if err := d.requireAuth(); err != nil {
					return err
				}
				id, err := parseID("project", args[0])
				if err != nil {
					return err
				}
				p, err := d.projects.Progress(ctx(cmd), id)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, p)
			})
		},
	}
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and all its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				if err := d.requireAuth(); err != nil {
					return err
				}
				id, err := parseID("project", args[0])
				if err != nil {
					return err
				}
				list := viewstate.NewProjectList(d.projects)
				if err := list.Load(ctx(cmd)); err != nil {
					return err
				}
				if err := list.RequestDelete(id); err != nil {
					return fmt.Errorf("project %d: %w", id, err)
				}
				if !yes {
					list.CancelDelete()
					return errNeedsYes
				}
				if err := list.ConfirmDelete(ctx(cmd)); err != nil {
					return err
				}
				if last, ok, _ := d.db.GetSetting(db.LastProjectKey); ok && last == args[0] {
					_ = d.db.DeleteSettings(db.LastProjectKey)
				}
				return writeOut(cmd, app, map[string]int64{"deleted": id})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the delete")
	return cmd
}

// openDetail loads a project and its tasks for the task commands
func openDetail(cmd *cobra.Command, d *deps, arg string) (*viewstate.ProjectDetail, error) {
	if err := d.requireAuth(); err != nil {
		return nil, err
	}
	id, err := parseID("project", arg)
	if err != nil {
		return nil, err
	}
	detail := viewstate.NewProjectDetail(id, d.projects, d.tasks)
	if err := detail.Load(ctx(cmd)); err != nil {
		return nil, err
	}
	return detail, nil
}
