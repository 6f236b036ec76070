// Package reconciler hosts the services that connect the pure diff,
// settlement and comparison algorithms to a record store.
//
// Every service reads through store.RecordStore and performs its writes in a
// single store.RecordStore.Atomically unit, so a failing step leaves the
// store untouched.
package reconciler

import (
	"fmt"

	"fatura-reconciler/internal/fatura"
	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/internal/store"
	apperrors "fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"
)

// Config holds configuration shared by the services
type Config struct {
	Matching      *matcher.MatchingConfig
	Fatura        *fatura.Config
	Preprocessing *PreprocessingConfig

	// NewID generates posted record ids and replacement ids for re-imported
	// lines whose id is already taken; nil uses random UUIDs
	NewID func() string
}

// DefaultConfig returns a default configuration for the services
func DefaultConfig() *Config {
	return &Config{
		Matching:      matcher.DefaultMatchingConfig(),
		Fatura:        fatura.DefaultConfig(),
		Preprocessing: DefaultPreprocessingConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Matching == nil {
		return fmt.Errorf("matching configuration is required")
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("invalid matching configuration: %w", err)
	}

	if c.Fatura == nil {
		return fmt.Errorf("fatura configuration is required")
	}
	if err := c.Fatura.Validate(); err != nil {
		return fmt.Errorf("invalid fatura configuration: %w", err)
	}

	return nil
}

// prepare validates the shared constructor arguments
func prepare(records store.RecordStore, config *Config, component string) (*Config, logger.Logger, error) {
	if records == nil {
		return nil, nil, apperrors.ValidationError(apperrors.CodeMissingField, "record_store", nil, nil).
			WithSuggestion("provide a record store implementation")
	}

	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, nil, apperrors.ConfigurationError(apperrors.CodeInvalidConfig, component, nil, err)
	}

	return config, logger.GetGlobalLogger().WithComponent(component), nil
}

// persistenceFailure wraps store errors that are not already categorized
func persistenceFailure(err error, code apperrors.ErrorCode, operation string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsReconcilerError(err); ok {
		return err
	}
	return apperrors.PersistenceError(code, operation, err)
}
