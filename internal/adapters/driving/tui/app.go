package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/components/legend"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

const defaultLookback = 3

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles  *styles.Styles
	keymap  *keymap.KeyMap
	status  *status.Bar
	legend  *legend.View
	spinner spinner.Model
	help    help.Model
	now     func() time.Time

	// day is the selected day; pending counts selections still running.
	day     domain.DateKey
	pending int

	overlay      *domain.Overlay
	tokenExpires time.Time
	refreshes    int

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	now := ports.Now
	if now == nil {
		now = time.Now
	}

	day := ports.InitialDay
	if day.IsZero() {
		today, err := domain.NewDateKey(now())
		if err != nil {
			return nil, fmt.Errorf("creating app: %w", err)
		}
		day = today.AddDays(-defaultLookback)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Title

	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		status:  status.NewBar(s, km),
		legend:  legend.NewView(s, ports.Legend),
		spinner: sp,
		help:    help.New(),
		now:     now,
		day:     day,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It selects the initial day when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("tracegas - "+a.ports.Title),
		a.spinner.Tick,
		a.selectDay(a.day),
	)
}

// selectDay marks day as selected and returns the command resolving it.
func (a *App) selectDay(day domain.DateKey) tea.Cmd {
	a.day = day
	a.pending++
	a.status.Set(status.StateResolving, "")

	session := a.ports.Session
	ctx := a.ctx
	return func() tea.Msg {
		err := session.SelectDate(ctx, day.Start)
		return messages.SelectionDone{Day: day, Err: err}
	}
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.SelectionDone:
		if a.pending > 0 {
			a.pending--
		}
		// Failures were already reported through the shell.
		if a.pending == 0 && a.status.State() == status.StateResolving {
			a.status.Set(status.StateReady, "")
		}
		if msg.Err != nil && !errors.Is(msg.Err, domain.ErrSuperseded) && !errors.Is(msg.Err, context.Canceled) &&
			a.status.State() != status.StateError {
			a.status.Set(status.StateError, msg.Err.Error())
		}
		return a, nil

	case messages.ProductResolved:
		o := msg.Overlay
		a.overlay = &o
		a.tokenExpires = a.ports.Session.State().CurrentToken.ExpiresAt
		a.status.Set(status.StateReady, o.Product.Title())
		return a, nil

	case messages.NoProducts:
		a.status.Set(status.StateNoData, fmt.Sprintf("No products for %s, showing the previous overlay", msg.Day))
		return a, nil

	case messages.ResolutionFailed:
		a.status.Set(status.StateError, fmt.Sprintf("%s: %s", msg.Kind, msg.Message))
		return a, nil

	case messages.TokenRefreshed:
		if a.overlay != nil {
			a.overlay.Params.AccessToken = msg.Token.Value
		}
		a.tokenExpires = msg.Token.ExpiresAt
		a.refreshes++
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := a.keymap
	switch {
	case key.Matches(msg, k.Quit):
		return tea.Quit
	case key.Matches(msg, k.Help):
		a.help.ShowAll = !a.help.ShowAll
		return nil
	case key.Matches(msg, k.PrevDay):
		return a.selectDay(a.day.AddDays(-1))
	case key.Matches(msg, k.PrevWeek):
		return a.selectDay(a.day.AddDays(-7))
	case key.Matches(msg, k.NextDay):
		return a.selectForward(1)
	case key.Matches(msg, k.NextWeek):
		return a.selectForward(7)
	case key.Matches(msg, k.Today):
		today, _ := domain.NewDateKey(a.now())
		return a.selectDay(today)
	case key.Matches(msg, k.Reload):
		return a.selectDay(a.day)
	}
	return nil
}

// selectForward moves n days ahead, stopping at today.
func (a *App) selectForward(n int) tea.Cmd {
	now := a.now()
	next := a.day.AddDays(n)
	if next.After(now) {
		today, _ := domain.NewDateKey(now)
		if today.String() == a.day.String() {
			a.status.Set(status.StateNoData, "Future dates have no products")
			return nil
		}
		next = today
	}
	return a.selectDay(next)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var b strings.Builder

	header := a.styles.Title.Render("tracegas") + "  " + a.styles.Muted.Render(a.ports.Title)
	b.WriteString(header + "\n\n")

	date := a.styles.Date.Render(a.day.String())
	if a.pending > 0 {
		date += " " + a.spinner.View()
	}
	b.WriteString(date + "\n\n")

	b.WriteString(a.styles.Panel.Width(a.panelWidth()).Render(a.overlayPanel()) + "\n\n")

	if lg := a.legend.View(); lg != "" {
		b.WriteString(lg + "\n\n")
	}

	if a.help.ShowAll {
		b.WriteString(a.help.View(a.keymap) + "\n")
	}
	b.WriteString(a.status.View())
	return b.String()
}

func (a *App) overlayPanel() string {
	if a.overlay == nil {
		return a.styles.Muted.Render("No overlay yet.")
	}

	o := a.overlay
	p := o.Product
	rows := []string{
		a.row("Product", p.Title()),
		a.row("Acquired", fmt.Sprintf("%s (%s)", p.AcquisitionLabel(), p.Duration())),
		a.row("Day", o.Date.String()),
		a.row("TIME", o.Params.Time),
		a.row("Layer", fmt.Sprintf("%s  %s  %s", o.Params.Layer, o.Params.Style, o.Params.ColorRange)),
	}
	if !a.tokenExpires.IsZero() {
		left := a.tokenExpires.Sub(a.now()).Round(time.Second)
		rows = append(rows, a.row("Token", fmt.Sprintf("expires %s (in %s, %d refreshes)",
			a.tokenExpires.UTC().Format(domain.InstantLayout), left, a.refreshes)))
	}
	if n := len(o.Alternatives); n > 0 {
		rows = append(rows, a.row("Others", fmt.Sprintf("%d more products that day", n)))
	}
	rows = append(rows, "", a.styles.Muted.Render(a.ports.Builder.TileURL(o.Params)))
	return strings.Join(rows, "\n")
}

func (a *App) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, a.styles.Label.Render(label), a.styles.Normal.Render(value))
}

func (a *App) panelWidth() int {
	if a.width <= 4 {
		return 76
	}
	return a.width - 4
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.status.SetWidth(width)
	a.help.Width = width
}

// Day returns the selected day.
func (a *App) Day() domain.DateKey {
	return a.day
}

// Overlay returns the overlay being shown, if any.
func (a *App) Overlay() *domain.Overlay {
	return a.overlay
}

// Pending returns the number of selections still running.
func (a *App) Pending() int {
	return a.pending
}

// Status returns the status bar.
func (a *App) Status() *status.Bar {
	return a.status
}
