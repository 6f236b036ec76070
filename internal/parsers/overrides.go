package parsers

import (
	"bytes"
	"io"
	"os"

	"fatura-reconciler/internal/matcher"
	"fatura-reconciler/pkg/errors"

	"gopkg.in/yaml.v3"
)

// LoadSelectionOverrides reads selection overrides from a YAML file:
//
//	based_on: 3f2a9c1e0b7d4a55
//	selected:
//	  "delete:A3": true
//	  "pair:A2/B2": false
func LoadSelectionOverrides(path string) (*matcher.SelectionOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}

	overrides, err := DecodeSelectionOverrides(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "overrides", "", err).
			WithSuggestion("the file needs a 'selected' map of selection keys to true/false")
	}

	return overrides, nil
}

// DecodeSelectionOverrides reads selection overrides from YAML
func DecodeSelectionOverrides(r io.Reader) (*matcher.SelectionOverrides, error) {
	overrides := matcher.NewSelectionOverrides("")

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(overrides); err != nil && err != io.EOF {
		return nil, err
	}

	if overrides.Selected == nil {
		overrides.Selected = make(map[string]bool)
	}

	return overrides, nil
}

// EncodeSelectionOverrides writes overrides as YAML, suitable for editing
// and passing back with LoadSelectionOverrides
func EncodeSelectionOverrides(w io.Writer, overrides *matcher.SelectionOverrides) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(overrides); err != nil {
		return err
	}
	return encoder.Close()
}
