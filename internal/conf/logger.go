// Package conf provides configuration management for miviz.
package conf

import "github.com/miviz/miviz/internal/logger"

// GetLogger returns the "config" module logger. Load runs before the app
// installs its central logger, so early records go to the console default.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
