package tui

import "errors"

// ErrMissingSession is returned when the overlay session is not provided.
var ErrMissingSession = errors.New("tui: overlay session is required")

// ErrMissingBuilder is returned when the layer builder is not provided.
var ErrMissingBuilder = errors.New("tui: layer builder is required")
