package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fatura-reconciler/cmd/billdiff/config"
	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/parsers"
	"fatura-reconciler/internal/reporter"
	"fatura-reconciler/internal/store"
	"fatura-reconciler/pkg/errors"
	"fatura-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session bundles what one command invocation needs: resolved configuration,
// an in-memory record store seeded from the input files and the reporter
type session struct {
	cmd     *cobra.Command
	config  *config.AppConfig
	records *store.MemoryStore
	logger  logger.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
			WithSuggestion("Check the configuration file and BILLDIFF_ environment variables")
	}

	log, err := logger.NewLogger(appConfig.Log)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", appConfig.Log, err)
	}
	logger.SetGlobalLogger(log)

	return &session{
		cmd:     cmd,
		config:  appConfig,
		records: store.NewMemoryStore(),
		logger:  log.WithComponent("cli"),
	}, nil
}

func (s *session) context() context.Context {
	if ctx := s.cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// readSnapshot parses a statement CSV file with the configured layout
func (s *session) readSnapshot(path, statementID string) (models.StatementSnapshot, error) {
	parser, err := parsers.NewLineItemParser(s.config.LineItemParserConfig())
	if err != nil {
		return models.StatementSnapshot{}, err
	}

	snapshot, stats, err := parser.ParseFile(s.context(), path, statementID)
	if err != nil {
		return models.StatementSnapshot{}, err
	}
	s.reportParseStats(path, stats)

	return snapshot, nil
}

// readObligations parses an obligations CSV file and seeds the store with it
func (s *session) readObligations(path string) error {
	parser, err := parsers.NewObligationParser(nil)
	if err != nil {
		return err
	}

	obligations, stats, err := parser.ParseFile(s.context(), path)
	if err != nil {
		return err
	}
	s.reportParseStats(path, stats)

	s.records.SeedObligations(obligations...)
	return nil
}

func (s *session) reportParseStats(path string, stats *parsers.ParseStats) {
	if stats == nil || !stats.HasErrors() {
		return
	}

	fmt.Fprintf(s.cmd.ErrOrStderr(), "Warning: %s: %s\n", filepath.Base(path), stats.String())
	for _, sample := range stats.GetSampleErrors(5) {
		fmt.Fprintf(s.cmd.ErrOrStderr(), "  %s\n", sample)
	}
}

// loadOverrides reads a selection overrides file; an empty path means none
func (s *session) loadOverrides(path string) (*matcher.SelectionOverrides, error) {
	if path == "" {
		return nil, nil
	}
	return parsers.LoadSelectionOverrides(path)
}

// emitOverrides writes the default selections so that they can be edited
// and passed back with --overrides
func (s *session) emitOverrides(path, fingerprint string, defaults map[string]bool) error {
	if path == "" {
		return nil
	}

	overrides := matcher.NewSelectionOverrides(fingerprint)
	for key, selected := range defaults {
		overrides.Set(key, selected)
	}

	return s.writeFile(path, func(w io.Writer) error {
		return parsers.EncodeSelectionOverrides(w, overrides)
	})
}

func (s *session) writeFile(path string, write func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		return errors.FileError(errors.CodeFileNotFound, path, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return errors.WrapIfNeeded(err, errors.CategoryFile, errors.CodeUnexpectedError, fmt.Sprintf("failed to write %s", path))
	}

	s.logger.WithField("path", path).Info("Wrote file")
	return file.Close()
}

// render writes a report in the configured format to stdout or --output-file
func (s *session) render(report interface{}) error {
	reportConfig, err := config.CreateReportConfig(viper.GetString("output.format"), viper.GetBool("verbose"))
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", viper.GetString("output.format"), err)
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, s.logger)
	if err != nil {
		return err
	}

	if outputFile := viper.GetString("output.file"); outputFile != "" {
		return s.writeFile(outputFile, func(w io.Writer) error {
			return generator.GenerateReportSafely(report, w)
		})
	}

	return generator.GenerateReportSafely(report, s.cmd.OutOrStdout())
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

// validateOutputDir checks that the directory of an output path exists
func validateOutputDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}
	return nil
}
