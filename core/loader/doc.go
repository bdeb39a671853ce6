// Package loader provides the feature loading system for the HTTP API.
//
// Each HTTP module (conflict review, report browsing) implements the Feature
// interface and is registered on a Manager by the serve command.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Manager
//
// The Manager holds the registry of features. LoadAll mounts every enabled
// feature in registration order and rejects duplicate names.
package loader
