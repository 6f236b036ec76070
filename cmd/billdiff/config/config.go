// Package config turns viper settings into the configurations of the
// matcher, comparator, parsers, reporter and logger.
//
// Recognized keys (file or BILLDIFF_ environment, dots become underscores):
//
//	matching.threshold                  exclusive lower bound for a match (0.7)
//	matching.amount_tolerance           exclusive amount tolerance (0.01)
//	matching.partial_description_ratio  share of the description weight for containment (0.5)
//	matching.weights.date|amount|description
//	fatura.aliases                      map of establishment name to canonical name
//	fatura.drift_tolerance              drift under which no warning is raised (0.01)
//	fatura.min_fuzzy_name_size          shortest name allowed in containment matching
//	input.layout                        statement CSV layout (standard, br-card)
//	input.timezone                      zone used to read statement dates
//	log.level, log.format, log.output, log.file
//	log.caller                          tag entries with the calling file:line
//	log.disable_timestamp               leave timestamps out of log entries
package config

import (
	"fmt"
	"strings"
	"time"

	"fatura-reconciler/internal/fatura"
	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/internal/parsers"
	"fatura-reconciler/internal/reconciler"
	"fatura-reconciler/internal/reporter"
	"fatura-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// AppConfig is the resolved configuration of one CLI invocation
type AppConfig struct {
	Matching *matcher.MatchingConfig
	Fatura   *fatura.Config
	Log      *logger.Config
	Layout   string
	Timezone *time.Location
}

// SetDefaults registers the default value of every recognized key
func SetDefaults(v *viper.Viper) {
	matching := matcher.DefaultMatchingConfig()
	v.SetDefault("matching.threshold", matching.MinConfidenceScore)
	v.SetDefault("matching.amount_tolerance", matching.AmountTolerance.String())
	v.SetDefault("matching.partial_description_ratio", matching.PartialDescriptionRatio)
	v.SetDefault("matching.weights.date", matching.Weights.DateWeight)
	v.SetDefault("matching.weights.amount", matching.Weights.AmountWeight)
	v.SetDefault("matching.weights.description", matching.Weights.DescriptionWeight)

	fc := fatura.DefaultConfig()
	v.SetDefault("fatura.drift_tolerance", fc.DriftTolerance.String())
	v.SetDefault("fatura.min_fuzzy_name_size", fc.MinFuzzyNameSize)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", string(lc.Level))
	v.SetDefault("log.format", string(lc.Format))
	v.SetDefault("log.output", string(lc.Output))
	v.SetDefault("log.caller", lc.Caller)
	v.SetDefault("log.disable_timestamp", lc.DisableTimestamp)

	v.SetDefault("input.layout", "standard")
	v.SetDefault("input.timezone", "UTC")
}

// Load resolves and validates the configuration held by v
func Load(v *viper.Viper) (*AppConfig, error) {
	SetDefaults(v)

	// Keys are read one by one so that environment overrides apply to
	// nested settings as well
	matching := &matcher.MatchingConfig{
		Weights: matcher.MatchingWeights{
			DateWeight:        v.GetFloat64("matching.weights.date"),
			AmountWeight:      v.GetFloat64("matching.weights.amount"),
			DescriptionWeight: v.GetFloat64("matching.weights.description"),
		},
		MinConfidenceScore:      v.GetFloat64("matching.threshold"),
		PartialDescriptionRatio: v.GetFloat64("matching.partial_description_ratio"),
	}

	tolerance, err := decimal.NewFromString(v.GetString("matching.amount_tolerance"))
	if err != nil {
		return nil, fmt.Errorf("invalid matching.amount_tolerance: %w", err)
	}
	matching.AmountTolerance = tolerance

	if err := matching.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}

	drift, err := decimal.NewFromString(v.GetString("fatura.drift_tolerance"))
	if err != nil {
		return nil, fmt.Errorf("invalid fatura.drift_tolerance: %w", err)
	}

	fc := &fatura.Config{
		Aliases:          v.GetStringMapString("fatura.aliases"),
		DriftTolerance:   drift,
		MinFuzzyNameSize: v.GetInt("fatura.min_fuzzy_name_size"),
	}
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fatura configuration: %w", err)
	}

	lc := &logger.Config{
		Level:  logger.Level(v.GetString("log.level")),
		Format: logger.Format(v.GetString("log.format")),
		Output: logger.Output(v.GetString("log.output")),
		File:   v.GetString("log.file"),

		Caller:           v.GetBool("log.caller"),
		DisableTimestamp: v.GetBool("log.disable_timestamp"),
	}
	if v.GetBool("verbose") {
		lc.Level = logger.DebugLevel
		lc.Caller = true
	}
	if err := lc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	layout := v.GetString("input.layout")
	if parsers.GetLayout(layout) == nil {
		return nil, fmt.Errorf("unknown input.layout %q, available: %s", layout, strings.Join(layoutNames(), ", "))
	}

	zone, err := time.LoadLocation(v.GetString("input.timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid input.timezone: %w", err)
	}

	return &AppConfig{
		Matching: matching,
		Fatura:   fc,
		Log:      lc,
		Layout:   layout,
		Timezone: zone,
	}, nil
}

// ReconcilerConfig returns the service configuration
func (c *AppConfig) ReconcilerConfig() *reconciler.Config {
	rc := reconciler.DefaultConfig()
	rc.Matching = c.Matching
	rc.Fatura = c.Fatura
	rc.Preprocessing.Timezone = c.Timezone
	return rc
}

// LineItemParserConfig returns the statement layout
func (c *AppConfig) LineItemParserConfig() *parsers.LineItemParserConfig {
	return parsers.GetLayout(c.Layout)
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, verbose bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.IncludeReasons = verbose

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	default:
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format)
	}

	return config, nil
}

func layoutNames() []string {
	var names []string
	for _, layout := range parsers.ListLayouts() {
		names = append(names, layout.Name)
	}
	return names
}
