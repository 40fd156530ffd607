package commands

import (
	"fmt"
	"os"

	"github.com/spherical/catalog-extractor/internal/config"
	"github.com/spherical/catalog-extractor/internal/domain"
	"github.com/spherical/catalog-extractor/internal/observability"
	"github.com/spherical/catalog-extractor/pkg/extractor"
)

const serviceName = "catalog-extractor"

// loadSettings loads .env, the config file and the persistent flag overrides,
// and builds the logger.
func loadSettings() (*config.Config, *observability.Logger, error) {
	if err := extractor.LoadEnv(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, domain.ConfigError("invalid flags", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      os.Stderr,
		ServiceName: serviceName,
	})

	return cfg, logger, nil
}

// logFailure records err with its kind and returns it unchanged.
func logFailure(logger *observability.Logger, err error) error {
	if logger != nil {
		logger.Error().
			Str("kind", string(domain.TypeOf(err))).
			Err(err).
			Msg("Command failed")
	}
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
