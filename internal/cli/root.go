package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/config"
	"github.com/tgienger/taskmgr/internal/db"
	"github.com/tgienger/taskmgr/internal/format"
	"github.com/tgienger/taskmgr/internal/service"
	"github.com/tgienger/taskmgr/internal/session"
	"github.com/tgienger/taskmgr/internal/ui"
)

type App struct {
	APIURL     string
	DataDir    string
	LogFile    string
	Timeout    time.Duration
	PrettyJSON bool

	logFile *os.File
}

// BuildInfo is set by main from ldflags
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func NewRootCmd(build BuildInfo) *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskmgr",
		Short:        "Task manager client (TUI + scriptable commands)",
		SilenceUsage: true,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", build.Version, build.Commit, build.Date),
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskmgr

  # Sign in once, then script against the API
  taskmgr login --email ada@example.com --password secret
  taskmgr projects list
  taskmgr tasks add --project 3 --title "Draft" --due 2026-11-02
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("taskmgr {{.Version}}\n")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logFile != nil {
			return app.logFile.Close()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "API base URL (default from config or "+config.EnvAPIURL+")")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "Directory holding the local session database")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Write debug logs to this file")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 0, "Per-request timeout (0 = none)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newTasksCmd(app))

	return cmd
}

// resolve fills unset flags from the config files and environment
func (app *App) resolve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if app.APIURL == "" {
		app.APIURL = cfg.APIURL
	}
	if app.DataDir == "" {
		app.DataDir = cfg.DataDir
	}
	if app.LogFile == "" {
		app.LogFile = cfg.LogFile
	}
	if app.Timeout == 0 {
		app.Timeout = cfg.Timeout
	}
	return nil
}

// deps is everything a command needs to talk to the API
type deps struct {
	db       *db.DB
	sess     *session.Session
	api      *apiclient.Client
	auth     *service.AuthService
	projects *service.ProjectService
	tasks    *service.TaskService
}

func openDeps(app *App) (*deps, error) {
	database, err := db.New(app.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sess := session.New(database)
	if err := sess.Restore(); err != nil {
		database.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	var opts []apiclient.Option
	if app.Timeout > 0 {
		opts = append(opts, apiclient.WithTimeout(app.Timeout))
	}
	api := apiclient.New(app.APIURL, sess, opts...)
	return &deps{
		db:       database,
		sess:     sess,
		api:      api,
		auth:     service.NewAuthService(api),
		projects: service.NewProjectService(api),
		tasks:    service.NewTaskService(api),
	}, nil
}

func (d *deps) Close() error {
	return d.db.Close()
}

var errNotLoggedIn = errors.New("not logged in; run `taskmgr login`")

func (d *deps) requireAuth() error {
	if !d.sess.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

// setupCLILog sends log output to the configured file, or nowhere
func setupCLILog(app *App) {
	if app.LogFile == "" {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(app.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	app.logFile = f
	log.SetOutput(f)
}

// withDeps opens the local state for one command and closes it afterwards
func withDeps(cmd *cobra.Command, app *App, fn func(d *deps) error) error {
	setupCLILog(app)
	d, err := openDeps(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer d.Close()
	if err := fn(d); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func runTUI(app *App) error {
	if app.LogFile != "" {
		f, err := tea.LogToFile(app.LogFile, "taskmgr")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	d, err := openDeps(app)
	if err != nil {
		return err
	}
	defer d.Close()

	model := ui.NewApp(ui.Deps{
		Session:  d.sess,
		Settings: d.db,
		Auth:     d.auth,
		Projects: d.projects,
		Tasks:    d.tasks,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	d.api.SetAuthExpiredHandler(func() {
		go p.Send(ui.SessionExpiredMsg{})
	})

	_, err = p.Run()
	return err
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	msg := err.Error()
	var apiErr *apiclient.Error
	switch {
	case apiclient.IsAuthExpired(err):
		msg = "session expired; run `taskmgr login`"
	case errors.As(err, &apiErr):
		msg = apiErr.Notice()
	}
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	return err
}
