package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui [date]",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for tracegas.

The TUI shows the overlay for the selected day together with its WMS
parameters, tile URL and colour legend. The token is refreshed in the
background while it runs.

Controls:
  ←/h, →/l - Previous / next day
  ↓/j, ↑/k - One week back / forward
  t        - Today
  r        - Reload the current day
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	day, err := dateArg(args)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	preset, err := domain.PresetFor(rt.settings.Gas)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The program needs the session and the session needs the shell, so
	// the shell is attached once the program exists.
	shell := tui.NewShell(nil)
	session := rt.newSession(shell)
	defer session.Close()

	stopWatching := watchConfig(ctx, rt, session)
	defer stopWatching()

	app, err := tui.NewApp(&tui.Ports{
		Session:    session,
		Builder:    rt.builder,
		Legend:     preset.Legend,
		Title:      fmt.Sprintf("%s · %s", strings.ToUpper(string(rt.settings.Gas)), rt.settings.Catalog.ProductType),
		InitialDay: day,
		Now:        now,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	shell.Attach(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
