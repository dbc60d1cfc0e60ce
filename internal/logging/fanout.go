package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanoutHandler drives one record through the whole chain: stdout,
// journal and the ring buffer each receive every record their own
// level admits. Records are cloned per target because handlers may
// retain them.
type fanoutHandler struct {
	targets []slog.Handler
}

func newFanoutHandler(targets ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{targets: targets}
}

// Enabled reports whether any target wants the level.
func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range f.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every enabled target. One failing
// target does not starve the rest; the failures come back joined.
func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, target := range f.targets {
		if !target.Enabled(ctx, record.Level) {
			continue
		}
		if err := target.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, target := range f.targets {
		targets[i] = target.WithAttrs(attrs)
	}
	return &fanoutHandler{targets: targets}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, target := range f.targets {
		targets[i] = target.WithGroup(name)
	}
	return &fanoutHandler{targets: targets}
}
