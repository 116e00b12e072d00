package vedictime

import (
	"context"
	"time"
)

// Renderer drives the single browser tab pointed at the upstream page.
type Renderer interface {
	// Ensure creates the session when missing. created reports whether this
	// call built it, in which case the page was navigated just now.
	Ensure(ctx context.Context) (created bool, err error)
	// Reload navigates the existing tab to the upstream URL again.
	Reload(ctx context.Context) error
	// ReadText evaluates the extraction script in the current DOM.
	ReadText(ctx context.Context) (PageText, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
