// package sl contains small helpers for structured logging with slog.
package sl

import "log/slog"

// Err wraps an error into a slog attribute with the conventional "error" key.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
