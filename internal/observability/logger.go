package observability

import "github.com/miviz/miviz/internal/logger"

// metricsLog is resolved per call so records reach the central logger the
// app installs after package init.
func metricsLog() logger.Logger {
	return logger.Global().Module("metrics")
}
