package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Shell forwards overlay updates from session goroutines into the program.
// Updates arriving before a sender is attached are dropped.
type Shell struct {
	mu     sync.RWMutex
	sender Sender
}

var _ driven.Shell = (*Shell)(nil)

// NewShell creates a shell that sends to s. s may be nil and attached later,
// since the program usually needs the session before it exists.
func NewShell(s Sender) *Shell {
	return &Shell{sender: s}
}

// Attach sets the sender for subsequent updates.
func (s *Shell) Attach(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

func (s *Shell) send(msg tea.Msg) {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()
	if sender != nil {
		sender.Send(msg)
	}
}

// OnProductResolved implements driven.Shell.
func (s *Shell) OnProductResolved(overlay domain.Overlay) {
	s.send(messages.ProductResolved{Overlay: overlay})
}

// OnNoProducts implements driven.Shell.
func (s *Shell) OnNoProducts(day domain.DateKey) {
	s.send(messages.NoProducts{Day: day})
}

// OnResolutionFailed implements driven.Shell.
func (s *Shell) OnResolutionFailed(kind domain.ErrorKind, message string) {
	s.send(messages.ResolutionFailed{Kind: kind, Message: message})
}

// OnTokenRefreshed implements driven.Shell.
func (s *Shell) OnTokenRefreshed(token domain.Token) {
	s.send(messages.TokenRefreshed{Token: token})
}
