// Package usagelog records one audit entry per relayed message. Writes are
// best-effort: callers log a failure and carry on.
package usagelog

import (
	"context"

	"license-relay-proxy/internal/model"
)

// Writer appends a usage entry. CreatedAt is filled in by the writer when zero.
type Writer interface {
	Append(ctx context.Context, entry *model.UsageLog) error
	Backend() string
}
