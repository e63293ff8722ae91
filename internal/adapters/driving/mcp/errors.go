// Package mcp provides an MCP (Model Context Protocol) server adapter for tracegas.
// It lets AI assistants look up Sentinel-5P products and drive the active overlay.
package mcp

import "errors"

var (
	// ErrMissingResolver is returned when the product resolver is not provided.
	ErrMissingResolver = errors.New("mcp: product resolver is required")

	// ErrMissingBuilder is returned when the layer builder is not provided.
	ErrMissingBuilder = errors.New("mcp: layer builder is required")

	// ErrNoSession is returned by overlay tools when no session is attached.
	ErrNoSession = errors.New("mcp: no overlay session")
)
