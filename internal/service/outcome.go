package service

import (
	"context"
	"log/slog"
)

// Outcome is the result of a best-effort side effect. A failed outcome never
// changes the response of the request that produced it.
type Outcome struct {
	Name   string
	OK     bool
	Detail string
	Err    error
}

func succeeded(name, detail string) Outcome {
	return Outcome{Name: name, OK: true, Detail: detail}
}

func failed(name string, err error) Outcome {
	return Outcome{Name: name, Err: err}
}

// skipped marks a side effect that did not apply without being an error.
func skipped(name, detail string) Outcome {
	return Outcome{Name: name, Detail: detail}
}

// Log writes the outcome at Info, or Warn when it failed or did not apply.
func (o Outcome) Log(ctx context.Context, logger *slog.Logger, attrs ...any) {
	if o.Name == "" {
		return
	}
	attrs = append(attrs, "effect", o.Name)
	if o.Detail != "" {
		attrs = append(attrs, "detail", o.Detail)
	}
	switch {
	case o.Err != nil:
		logger.WarnContext(ctx, "side effect failed", append(attrs, "error", o.Err)...)
	case !o.OK:
		logger.WarnContext(ctx, "side effect not applied", attrs...)
	default:
		logger.InfoContext(ctx, "side effect applied", attrs...)
	}
}
