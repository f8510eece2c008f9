package tools

import (
	"log/slog"
	"os"
)

// Logger is the package-level structured logger. The adapter logs compiled
// SQL at Debug; the model runtime logs stale-version and referential-
// integrity rejections at Warn.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))
