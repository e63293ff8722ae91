// Package domain defines the core types for tracegas.
//
// This package is the innermost layer of the hexagon. It has NO external
// dependencies and defines the fundamental types:
//
//   - Credentials: OAuth2 client-credentials identity
//   - Token: a bearer token and its server-authoritative expiry
//   - DateKey: a UTC calendar-day window
//   - Product: one satellite acquisition returned by the catalogue
//   - WMSParams: the parameters a map shell needs to draw an overlay
//   - ActiveLayerState: the overlay currently shown by a session
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
