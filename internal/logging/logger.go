// Package logging is the structured logger shared by the dome packages.
// Components accept a Logger and log with key/value pairs:
//
//	log.Warn(ctx, "card move rolled back", "card_id", id)
package logging

import "context"

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for failures the user is not told about, such as background
	// reloads and live channel drops.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
