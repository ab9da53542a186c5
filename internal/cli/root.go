// Package cli builds the hundred command tree. With no subcommand it starts
// the TUI; the subcommands are scriptable versions of the same actions.
package cli

import (
	"fmt"
	"io"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/hundred/internal/buildinfo"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/config"
	"github.com/sadopc/hundred/internal/secrets"
	"github.com/sadopc/hundred/internal/store"
	"github.com/sadopc/hundred/internal/tui"
)

type App struct {
	DBPath string

	cfg      config.Config
	log      *log.Logger
	closeLog func() error
	store    *store.Store
	tracker  *challenge.Tracker
	keyring  *secrets.Keyring
}

func NewRootCmd() *cobra.Command {
	app := &App{keyring: secrets.NewKeyring()}

	cmd := &cobra.Command{
		Use:          "hundred",
		Short:        "The 100 Times Challenge: seven days, one hundred squares each",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  hundred

  # Count from a script or a hotkey
  hundred tap
  hundred tap 5 --day 3

  # Voice
  hundred transcribe clip.wav
  hundred listen --cmd "my-recognizer --lines"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if app.DBPath != "" {
			cfg.DBPath = app.DBPath
		}
		app.cfg = cfg
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Path to the SQLite database (default: $HUNDRED_DB_PATH or ~/.config/hundred/hundred.db)")

	cmd.AddCommand(newTapCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newListenCmd(app))
	cmd.AddCommand(newKeyCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

// open starts the log, the store and the tracker. Callers defer close.
func (app *App) open() error {
	logger, closeLog, err := config.OpenLog(app.cfg.LogPath)
	if err != nil {
		// No log file; carry on without one.
		logger, closeLog = log.New(io.Discard, "", 0), func() error { return nil }
	}
	app.log, app.closeLog = logger, closeLog

	s, err := store.New(app.cfg.DBPath)
	if err != nil {
		app.closeLog()
		return fmt.Errorf("open database: %w", err)
	}
	app.store = s
	app.tracker = challenge.NewTracker(s, challenge.WithLogger(logger))
	return nil
}

func (app *App) close() {
	if app.tracker != nil {
		app.tracker.Close()
	}
	if app.store != nil {
		app.store.Close()
	}
	if app.closeLog != nil {
		app.closeLog()
	}
}

func runTUI(app *App) error {
	if err := app.open(); err != nil {
		return err
	}
	defer app.close()

	var fetcher *buildinfo.Fetcher
	if app.cfg.CheckUpdates {
		fetcher = buildinfo.NewFetcher()
	}
	model := tui.NewApp(tui.Options{
		Tracker: app.tracker,
		Store:   app.store,
		Keyring: app.keyring,
		Config:  app.cfg,
		Logger:  app.log,
		Fetcher: fetcher,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
