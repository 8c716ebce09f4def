// Package cli is the reportory command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/reportory/internal/backup"
	"github.com/sadopc/reportory/internal/config"
	"github.com/sadopc/reportory/internal/logging"
	"github.com/sadopc/reportory/internal/messages"
	"github.com/sadopc/reportory/internal/settings"
	"github.com/sadopc/reportory/internal/store"
)

const Version = "0.1.0"

// App carries the flags and the services built from them.
type App struct {
	ConfigDir string
	JSON      bool

	cfg        config.Config
	logger     *zap.Logger
	catalog    *messages.Catalog
	gw         *store.Gateway
	todos      *store.TodoRepo
	reports    *store.ReportRepo
	categories *store.CategoryRepo
	settings   *settings.Service
	backup     *backup.Service

	// Overridable in tests.
	newID   func() string
	now     func() time.Time
	confirm func(title string, in io.Reader, out io.Writer) backup.Confirmer
}

func newApp() *App {
	return &App{
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
		now:     time.Now,
		confirm: promptConfirmer,
	}
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reportory",
		Short:         "Local todo list and daily activity reports",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Open the interactive browser
  reportory

  # Scriptable commands
  reportory todo add "Write weekly report" --priority high
  reportory report add --start 09:00 --end 10:30 "Sprint planning"
  reportory export --out backup.json
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive browser.
			if len(args) == 0 {
				return runBrowse(cmd, app)
			}
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.logger != nil {
			_ = app.logger.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", "", "Directory holding config.yaml (default: user config dir)")
	cmd.PersistentFlags().String("data-dir", "", "Directory holding the database and settings")
	cmd.PersistentFlags().String("lang", "", "Message language (ko|en)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print machine-readable JSON")

	cmd.AddCommand(newTodoCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newCategoryCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newSettingsCmd(app))
	cmd.AddCommand(newDBCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newBrowseCmd(app))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	app := newApp()
	if err := newRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleBad.Render(iconError+" "+app.describe(err)))
		os.Exit(1)
	}
}

func (a *App) setup(cmd *cobra.Command) error {
	dir := a.ConfigDir
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return err
		}
		dir = d
		a.ConfigDir = d
	}

	cfg, err := config.Load(dir, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger.With(zap.String("cmd", cmd.CommandPath()))

	a.catalog, err = messages.New(a.logger)
	if err != nil {
		return err
	}

	a.gw = store.NewGateway(cfg.DatabasePath(), store.WithLogger(a.logger), store.WithClock(a.now))
	a.todos = store.NewTodoRepo(a.gw)
	a.reports = store.NewReportRepo(a.gw)
	a.categories = store.NewCategoryRepo(a.gw)
	a.settings = settings.NewService(settings.FileNamespace{Dir: cfg.SettingsDir()}, a.logger)
	a.backup = backup.New(a.gw, a.settings, backup.WithLogger(a.logger), backup.WithClock(a.now))
	return nil
}

func (a *App) lang() string {
	if a.cfg.Lang == "" {
		return messages.LanguageKo
	}
	return a.cfg.Lang
}

func (a *App) msg(id string) string {
	return a.catalog.Message(a.lang(), id)
}

// describe renders err for the terminal: the localized message, then the
// underlying cause.
func (a *App) describe(err error) string {
	if a.catalog == nil {
		return err.Error()
	}
	id := messages.ErrorID(err)
	var se *store.Error
	if id == "retryLater" && !errors.As(err, &se) {
		// Not a storage failure, e.g. bad flags or config.
		return err.Error()
	}
	return a.catalog.Message(a.lang(), id) + styleMuted.Render(" ("+err.Error()+")")
}

// --- Output ---

type outcomeJSON struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// sayOutcome prints the localized success line for out.
func (a *App) sayOutcome(cmd *cobra.Command, out store.Outcome, id string) error {
	text := a.catalog.Outcome(a.lang(), out)
	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), outcomeJSON{Outcome: string(out), Message: text, ID: id})
	}
	line := styleGood.Render(iconDone + " " + text)
	if id != "" {
		line += " " + styleMuted.Render(id)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}

func (a *App) sayMessage(cmd *cobra.Command, id string, extra string) error {
	text := a.msg(id)
	if a.JSON {
		return writeJSON(cmd.OutOrStdout(), outcomeJSON{Outcome: id, Message: text, ID: extra})
	}
	line := styleGood.Render(iconDone + " " + text)
	if extra != "" {
		line += " " + styleMuted.Render(extra)
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirmOrYes returns a confirmer that approves without asking when yes is
// set.
func (a *App) confirmOrYes(cmd *cobra.Command, yes bool) backup.Confirmer {
	if yes {
		return autoConfirm{}
	}
	return a.confirm(a.msg("resetConfirm"), cmd.InOrStdin(), cmd.ErrOrStderr())
}
