package tenant

import "errors"

// Error taxonomy shared by the directory, the registry and the HTTP edge.
// Infrastructure errors (ErrConfigMissing, ErrConnectFailed) propagate
// unmodified; the HTTP layer maps them to status classes.
var (
	// ErrNotFound: the code/id does not resolve to an active tenant row.
	// Authorization-adjacent, distinct from infrastructure failure.
	ErrNotFound = errors.New("tenant not found or inactive")

	// ErrConfigMissing: required connection configuration is absent.
	// Never retried automatically.
	ErrConfigMissing = errors.New("control store configuration missing")

	// ErrConnectFailed: opening a pool failed. No broken state is cached,
	// so a subsequent call retries from scratch.
	ErrConnectFailed = errors.New("connect failed")
)
