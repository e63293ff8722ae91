// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
)

// SelectionDone is sent when a SelectDate call returns. The outcome itself
// arrives through the shell messages below.
type SelectionDone struct {
	Day domain.DateKey
	Err error
}

// ProductResolved carries a new or rebuilt overlay.
type ProductResolved struct {
	Overlay domain.Overlay
}

// NoProducts reports an empty day.
type NoProducts struct {
	Day domain.DateKey
}

// ResolutionFailed reports a failed selection.
type ResolutionFailed struct {
	Kind    domain.ErrorKind
	Message string
}

// TokenRefreshed carries the token now used by the overlay.
type TokenRefreshed struct {
	Token domain.Token
}
