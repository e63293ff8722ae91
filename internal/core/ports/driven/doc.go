// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TokenExchanger: OAuth2 client-credentials exchange
//   - Catalog: Product catalogue search
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ProductCache: Resolved products per day. Without it every selection queries the catalogue.
//   - Metrics: Operation counters. Without it nothing is recorded.
//   - SecretStore: OS keychain for the client secret.
//   - Shell: Receives overlay updates from a session.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
