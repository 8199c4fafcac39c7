package orchestrator

import "errors"

// Every operation terminates with a success payload or exactly one of
// these error kinds. Raw gateway and negotiator errors never cross this
// package's boundary unwrapped.
var (
	// ErrQuotaExceeded reports that the owner already holds the maximum
	// number of live instances.
	ErrQuotaExceeded = errors.New("instance quota exceeded")

	// ErrUnknownImage reports that the requested image key is not in the
	// catalog.
	ErrUnknownImage = errors.New("unknown image")

	// ErrProvisionFailed reports a failure before or during container
	// creation; nothing was left behind.
	ErrProvisionFailed = errors.New("failed to provision instance")

	// ErrSessionFailed reports that session negotiation failed. During
	// deploy the just-created container has been cleaned up.
	ErrSessionFailed = errors.New("failed to negotiate session")

	// ErrPermissionDenied reports that the requester neither owns the
	// instance nor holds the administrative override.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound reports that no stored instance matches the reference.
	ErrNotFound = errors.New("instance not found")

	// ErrAlreadyGone reports that the runtime no longer knows the
	// container; the stale store record has been deleted.
	ErrAlreadyGone = errors.New("instance no longer exists")

	// ErrNotRunning reports that an operation requiring a running
	// container observed it stopped.
	ErrNotRunning = errors.New("instance is not running")

	// ErrRuntime wraps an opaque engine failure; the store record is
	// unchanged.
	ErrRuntime = errors.New("container runtime error")
)
