package matcher

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	apperrors "fatura-reconciler/pkg/errors"
)

// SelectionOverrides carries the caller's changes to the default selections.
// BasedOn is the fingerprint of the result the overrides were built for; an
// empty BasedOn skips the staleness check.
type SelectionOverrides struct {
	BasedOn  string          `json:"based_on,omitempty" yaml:"based_on,omitempty"`
	Selected map[string]bool `json:"selected" yaml:"selected"`
}

// NewSelectionOverrides creates empty overrides bound to a result fingerprint
func NewSelectionOverrides(basedOn string) *SelectionOverrides {
	return &SelectionOverrides{
		BasedOn:  basedOn,
		Selected: make(map[string]bool),
	}
}

// Set records an override for one selection key
func (so *SelectionOverrides) Set(key string, selected bool) *SelectionOverrides {
	if so.Selected == nil {
		so.Selected = make(map[string]bool)
	}
	so.Selected[key] = selected
	return so
}

// OldKey is the selection key of an old-snapshot item
func OldKey(id string) string {
	return "old:" + id
}

// DeleteKey is the selection key of an old item that vanished from the
// re-import; selecting it confirms the deletion
func DeleteKey(id string) string {
	return "delete:" + id
}

// NewKey is the selection key of a new-snapshot item
func NewKey(id string) string {
	return "new:" + id
}

// PairKey is the selection key of a matched old/new pair
func PairKey(oldID, newID string) string {
	return "pair:" + oldID + "/" + newID
}

// resolveSelection applies overrides on top of the defaults. Overrides built
// for another result, or naming unknown keys, are rejected.
func resolveSelection(defaults map[string]bool, fingerprint string, overrides *SelectionOverrides) (map[string]bool, error) {
	selection := make(map[string]bool, len(defaults))
	for k, v := range defaults {
		selection[k] = v
	}

	if overrides == nil {
		return selection, nil
	}

	if overrides.BasedOn != "" && overrides.BasedOn != fingerprint {
		return nil, apperrors.ValidationError(apperrors.CodeStaleSelection, "based_on", overrides.BasedOn, nil).
			WithContext("fingerprint", fingerprint)
	}

	var unknown []string
	for key, selected := range overrides.Selected {
		if _, ok := defaults[key]; !ok {
			unknown = append(unknown, key)
			continue
		}
		selection[key] = selected
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperrors.ValidationError(apperrors.CodeStaleSelection, "selected", strings.Join(unknown, ","), nil).
			WithContext("fingerprint", fingerprint)
	}

	return selection, nil
}

// fingerprint derives a stable identifier from ordered parts
func fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:8])
}
