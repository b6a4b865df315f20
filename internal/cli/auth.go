package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskmgr/internal/db"
	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				auth := viewstate.NewAuth(d.auth, d.sess)
				user, err := auth.Login(ctx(cmd), email, password)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, user)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("TASKMGR_PASSWORD", ""), "Account password (or TASKMGR_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				auth := viewstate.NewAuth(d.auth, d.sess)
				user, err := auth.Register(ctx(cmd), name, email, password)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, user)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("TASKMGR_PASSWORD", ""), "Account password (or TASKMGR_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				if err := d.sess.Logout(); err != nil {
					return err
				}
				if err := d.db.DeleteSettings(db.LastProjectKey); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]bool{"loggedOut": true})
			})
		},
	}
}

type statusView struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	APIURL        string       `json:"apiUrl"`
	DataDir       string       `json:"dataDir,omitempty"`
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session and API endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, app, func(d *deps) error {
				out := statusView{
					Authenticated: d.sess.IsAuthenticated(),
					APIURL:        d.api.BaseURL(),
					DataDir:       app.DataDir,
				}
				if u, ok := d.sess.User(); ok {
					out.User = &u
				}
				return writeOut(cmd, app, out)
			})
		},
	}
}

// ctx returns the command context, which cobra leaves nil outside Execute
func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
