// Package services implements the driving port interfaces.
// Services contain the core logic (token caching, product resolution,
// overlay orchestration) and call driven ports for I/O.
//
// Services hold no package-level state; everything they share is owned by
// the value the caller constructs.
package services
