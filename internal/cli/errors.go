package cli

import "errors"

// CLI-specific sentinel errors.
// These are setup/usage errors that don't belong to domain packages.

var (
	// ErrUnsupportedProvider indicates the provider setting names no known client.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrProviderURLMissing indicates the http provider has no endpoint.
	ErrProviderURLMissing = errors.New("provider-url not set")

	// ErrPersistenceRequired indicates a command needs the redis backend.
	ErrPersistenceRequired = errors.New("redis-addr not set")

	// ErrBackendUnavailable indicates redis could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrInvalidArgument indicates a malformed positional argument.
	ErrInvalidArgument = errors.New("malformed argument")
)
