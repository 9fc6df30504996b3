package overlay

import "errors"

// Sentinel errors for the overlay package.
var (
	// ErrSessionExists is returned when registering a namespace that
	// already has a live session.
	ErrSessionExists = errors.New("overlay: session already registered")

	// ErrSessionDisposed is returned by operations on a disposed session.
	ErrSessionDisposed = errors.New("overlay: session disposed")

	// ErrSceneNotReady is returned when a scene-dependent resource is
	// requested before the host's rendering scene is established.
	// Callers should retry after RunWhenUIPrepared fires.
	ErrSceneNotReady = errors.New("overlay: rendering scene not ready")

	// ErrResourceNotFound is returned when the host does not expose a
	// shared resource under the requested name.
	ErrResourceNotFound = errors.New("overlay: shared resource not found")

	// ErrEmptyNamespace is returned when registering with an empty
	// namespace identifier.
	ErrEmptyNamespace = errors.New("overlay: empty namespace")
)
