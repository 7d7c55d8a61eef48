// Package loader mounts HTTP features on the Fiber app.
//
// A feature bundles a handler with its routes and reports whether it should
// be mounted at all:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// cmd/start registers files and integrity on a Manager and calls LoadAll,
// which skips disabled features and stops at the first Load error, naming
// the feature that failed.
package loader
