// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/miviz/miviz/internal/logger"
)

// EnvPrefix prefixes every environment variable, e.g. MIVIZ_PIPELINE_LENGTH
// for pipeline.length.
const EnvPrefix = "MIVIZ"

// envBinding holds metadata for environment variables that get an early
// sanity check
type envBinding struct {
	ConfigKey string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", validateEnvBool},
		{"pipeline.length", validateEnvPositiveInt},
		{"pipeline.removeeog", validateEnvBool},
		{"pipeline.extractmi", validateEnvBool},
		{"pipeline.legacy", validateEnvBool},
		{"catalog.trialspersubject", validateEnvPositiveInt},
		{"dataset.workers", validateEnvPositiveInt},
		{"telemetry.enabled", validateEnvBool},
	}
}

// envVar returns the environment variable name for a config key.
func envVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// configureEnvironmentVariables lets MIVIZ_* variables override any key and
// logs values that will not decode.
func configureEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, problem := range checkEnvVars() {
		GetLogger().Warn("invalid environment variable", logger.String("problem", problem))
	}
}

func checkEnvVars() []string {
	var problems []string
	for _, b := range getEnvBindings() {
		name := envVar(b.ConfigKey)
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if err := b.Validate(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s=%q: %v", name, value, err))
		}
	}
	return problems
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}
