package registry

import "errors"

var (

	// The registry did not become reachable before the readiness timeout.
	ErrUnavailable = errors.New("registry unavailable")

	// The manifest, tag, or repository does not exist on the registry.
	//
	// For deletes this is a distinct, non-fatal outcome (the content is
	// already absent); for resolves it is a hard failure.
	ErrNotFound = errors.New("not found in registry")
)

// Reports whether an error is the registry's not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
