package cmd

import (
	"fmt"
	"io"

	"fatura-reconciler/internal/models"
	"fatura-reconciler/internal/parsers"
	"fatura-reconciler/internal/reconciler"
	"fatura-reconciler/internal/reporter"
	"fatura-reconciler/pkg/errors"

	"github.com/spf13/cobra"
)

// importFlags are shared by the diff and classify commands
type importFlags struct {
	oldFile       string
	newFile       string
	statementID   string
	overridesFile string
	emitOverrides string
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.oldFile, "old", "", "stored statement CSV file (required)")
	cmd.Flags().StringVar(&f.newFile, "new", "", "re-imported statement CSV file (required)")
	cmd.Flags().StringVar(&f.statementID, "statement", "", "billing cycle id, e.g. CARDX_2508 (default: statement column)")
	cmd.Flags().StringVar(&f.overridesFile, "overrides", "", "YAML file with selection overrides")
	cmd.Flags().StringVar(&f.emitOverrides, "emit-overrides", "", "write the default selections as an editable YAML file")

	cmd.MarkFlagRequired("old")
	cmd.MarkFlagRequired("new")
}

func (f *importFlags) validate() error {
	if err := validateFileExists(f.oldFile, "stored statement file"); err != nil {
		return err
	}
	if err := validateFileExists(f.newFile, "re-imported statement file"); err != nil {
		return err
	}
	if f.overridesFile != "" {
		if err := validateFileExists(f.overridesFile, "overrides file"); err != nil {
			return err
		}
	}
	return validateOutputDir(f.emitOverrides)
}

var (
	diffFlags     importFlags
	classifyFlags importFlags

	applyImport   bool
	writeSnapshot string
)

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff a re-imported statement against the stored one",
	Long: `Diff pairs every line of the re-imported statement with at most one line
of the stored statement and prints the ChangeSet that the default selections,
adjusted by --overrides, would produce.

Selection keys are old:<id> (keep the stored line) and new:<id> (add the
re-imported line).

Examples:
  billdiff diff --old stored.csv --new reimport.csv
  billdiff diff --old stored.csv --new reimport.csv --emit-overrides sel.yaml
  billdiff diff --old stored.csv --new reimport.csv --overrides sel.yaml --format json`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return diffFlags.validate()
	},
	RunE: runDiff,
}

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify re-imported lines as NEW, EXACT, NEAR_EXACT or VANISHED",
	Long: `Classify tags every line of the two statements and prints the value the
selection would leave in the statement next to the expected value.

Selection keys are new:<id> (create a NEW line), pair:<old>/<new> (unselect
to keep the stored line and also add the re-imported one) and delete:<id>
(select to delete a VANISHED line).

Examples:
  billdiff classify --old stored.csv --new reimport.csv
  billdiff classify --old stored.csv --new reimport.csv --overrides sel.yaml --apply
  billdiff classify --old stored.csv --new reimport.csv --apply --write-snapshot merged.csv`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := classifyFlags.validate(); err != nil {
			return err
		}
		if writeSnapshot != "" && !applyImport {
			return fmt.Errorf("--write-snapshot requires --apply")
		}
		return validateOutputDir(writeSnapshot)
	},
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(classifyCmd)

	diffFlags.register(diffCmd)
	classifyFlags.register(classifyCmd)

	classifyCmd.Flags().BoolVar(&applyImport, "apply", false, "apply the selection to the stored statement")
	classifyCmd.Flags().StringVar(&writeSnapshot, "write-snapshot", "", "write the resulting statement as CSV (with --apply)")
}

// preview parses both files and previews the import of the new one
func (s *session) preview(flags *importFlags) (*reconciler.ImportService, models.StatementSnapshot, *reconciler.ImportPreview, error) {
	old, err := s.readSnapshot(flags.oldFile, flags.statementID)
	if err != nil {
		return nil, models.StatementSnapshot{}, nil, err
	}

	incoming, err := s.readSnapshot(flags.newFile, flags.statementID)
	if flags.statementID == "" && errors.HasCodeInChain(err, errors.CodeMissingField) {
		incoming, err = s.readSnapshot(flags.newFile, old.StatementID)
	}
	if err != nil {
		return nil, models.StatementSnapshot{}, nil, err
	}

	s.records.SeedSnapshot(old)

	service, err := reconciler.NewImportService(s.records, s.config.ReconcilerConfig())
	if err != nil {
		return nil, models.StatementSnapshot{}, nil, err
	}

	preview, err := service.Preview(s.context(), incoming)
	if err != nil {
		return nil, models.StatementSnapshot{}, nil, err
	}

	return service, incoming, preview, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	overrides, err := s.loadOverrides(diffFlags.overridesFile)
	if err != nil {
		return err
	}

	_, incoming, preview, err := s.preview(&diffFlags)
	if err != nil {
		return err
	}

	changes, err := preview.Diff.ChangeSet(overrides)
	if err != nil {
		return err
	}

	if err := s.emitOverrides(diffFlags.emitOverrides, preview.Diff.Fingerprint, preview.Diff.Defaults); err != nil {
		return err
	}

	return s.render(&reporter.DiffReport{
		StatementID: incoming.StatementID,
		Diff:        preview.Diff,
		Changes:     changes,
	})
}

func runClassify(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	overrides, err := s.loadOverrides(classifyFlags.overridesFile)
	if err != nil {
		return err
	}

	service, incoming, preview, err := s.preview(&classifyFlags)
	if err != nil {
		return err
	}

	total, err := preview.Classification.ComputeResultingTotal(overrides)
	if err != nil {
		return err
	}

	if err := s.emitOverrides(classifyFlags.emitOverrides, preview.Classification.Fingerprint, preview.Classification.Defaults()); err != nil {
		return err
	}

	if applyImport {
		outcome, err := service.Apply(s.context(), incoming, overrides)
		if err != nil {
			return err
		}
		total = outcome.Total

		if writeSnapshot != "" {
			merged, err := s.records.FetchSnapshot(s.context(), outcome.StatementID)
			if err != nil {
				return err
			}
			if err := s.writeFile(writeSnapshot, func(w io.Writer) error {
				return parsers.WriteLineItems(w, merged)
			}); err != nil {
				return err
			}
		}
	}

	return s.render(&reporter.ClassificationReport{
		StatementID:    incoming.StatementID,
		Classification: preview.Classification,
		Total:          total,
		Applied:        applyImport,
	})
}
