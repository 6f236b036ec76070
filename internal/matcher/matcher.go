package matcher

import (
	"fmt"

	"fatura-reconciler/internal/models"
	apperrors "fatura-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// Engine compares statement snapshots. It holds no state besides its
// configuration, so repeated calls with the same input give the same output.
type Engine struct {
	Config *MatchingConfig
}

// DiffResult is the outcome of diffing an old and a new snapshot, before
// caller overrides are applied.
type DiffResult struct {
	Old         []models.LineItem       `json:"old"`
	New         []models.LineItem       `json:"new"`
	Matches     []models.MatchCandidate `json:"matches"`
	Defaults    map[string]bool         `json:"defaults"`
	Fingerprint string                  `json:"fingerprint"`
	Summary     DiffSummary             `json:"summary"`

	oldRefs []string
	newRefs []string
	matchOf []int
	pairOld []int
}

// DiffSummary provides aggregate statistics about a diff
type DiffSummary struct {
	TotalOld      int             `json:"total_old"`
	TotalNew      int             `json:"total_new"`
	Matched       int             `json:"matched"`
	UnmatchedOld  int             `json:"unmatched_old"`
	UnmatchedNew  int             `json:"unmatched_new"`
	MatchedAmount decimal.Decimal `json:"matched_amount"`
}

// pairing is an accepted match expressed as slice indexes
type pairing struct {
	oldIdx    int
	newIdx    int
	breakdown ScoreBreakdown
}

// NewEngine creates a new engine with the specified configuration
func NewEngine(config *MatchingConfig) *Engine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &Engine{
		Config: config.Clone(),
	}
}

// Diff returns the default ChangeSet for two snapshots under the default
// configuration.
func Diff(oldItems, newItems []models.LineItem) models.ChangeSet {
	result := NewEngine(nil).Diff(oldItems, newItems)
	changes, _ := result.ChangeSet(nil)
	return *changes
}

// DiffSnapshots validates that both snapshots are well formed and belong to
// the same billing cycle, then diffs their items.
func (e *Engine) DiffSnapshots(old, new models.StatementSnapshot) (*DiffResult, error) {
	if err := validateSnapshots(old, new); err != nil {
		return nil, err
	}
	return e.Diff(old.Items, new.Items), nil
}

// Diff partitions the two snapshots into matched and unmatched items and
// derives the default selections:
//   - every old item is kept
//   - every unmatched new item is added
//   - a confidently matched new item is not added
//
// Ids are expected to be unique within each snapshot; DiffSnapshots rejects
// duplicates. When an id does repeat here, each of its items is keyed as
// "<id>#<index>" so that no two items share a selection.
func (e *Engine) Diff(oldItems, newItems []models.LineItem) *DiffResult {
	pairs := e.match(oldItems, newItems)

	result := &DiffResult{
		Old:      oldItems,
		New:      newItems,
		Matches:  make([]models.MatchCandidate, 0, len(pairs)),
		Defaults: make(map[string]bool, len(oldItems)+len(newItems)),
		oldRefs:  itemRefs(oldItems),
		newRefs:  itemRefs(newItems),
		matchOf:  make([]int, len(newItems)),
		pairOld:  make([]int, len(newItems)),
	}

	for _, ref := range result.oldRefs {
		result.Defaults[OldKey(ref)] = true
	}
	for j, ref := range result.newRefs {
		result.Defaults[NewKey(ref)] = true
		result.matchOf[j] = -1
		result.pairOld[j] = -1
	}

	parts := make([]string, 0, len(oldItems)+len(newItems)+len(pairs))
	for _, ref := range result.oldRefs {
		parts = append(parts, OldKey(ref))
	}
	for _, ref := range result.newRefs {
		parts = append(parts, NewKey(ref))
	}

	matchedAmount := decimal.Zero
	for _, p := range pairs {
		oldItem := oldItems[p.oldIdx]
		newItem := newItems[p.newIdx]

		result.matchOf[p.newIdx] = len(result.Matches)
		result.pairOld[p.newIdx] = p.oldIdx
		result.Matches = append(result.Matches, models.MatchCandidate{
			OldID:   oldItem.ID,
			NewID:   newItem.ID,
			Score:   p.breakdown.Total,
			Reasons: generateMatchReasons(p.breakdown, e.Config.Weights),
		})
		result.Defaults[NewKey(result.newRefs[p.newIdx])] = false
		matchedAmount = matchedAmount.Add(newItem.Amount.Abs())

		parts = append(parts, PairKey(result.oldRefs[p.oldIdx], result.newRefs[p.newIdx]))
	}

	result.Fingerprint = fingerprint(parts...)
	result.Summary = DiffSummary{
		TotalOld:      len(oldItems),
		TotalNew:      len(newItems),
		Matched:       len(pairs),
		UnmatchedOld:  len(oldItems) - len(pairs),
		UnmatchedNew:  len(newItems) - len(pairs),
		MatchedAmount: matchedAmount,
	}

	return result
}

// itemRefs returns the id each item is referred to by in selection keys. A
// repeated id gets the item's position appended.
func itemRefs(items []models.LineItem) []string {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[item.ID]++
	}

	refs := make([]string, len(items))
	for i, item := range items {
		refs[i] = item.ID
		if counts[item.ID] > 1 {
			refs[i] = fmt.Sprintf("%s#%d", item.ID, i)
		}
	}
	return refs
}

// match pairs every new item, in input order, with the best-scoring old item
// still in the pool. A candidate is accepted only when its score exceeds the
// threshold; on ties the earliest old item wins. Accepted old items leave the
// pool, so no item takes part in more than one match.
func (e *Engine) match(oldItems, newItems []models.LineItem) []pairing {
	used := make([]bool, len(oldItems))
	var pairs []pairing

	for j, newItem := range newItems {
		bestIdx := -1
		var best ScoreBreakdown

		for i, oldItem := range oldItems {
			if used[i] {
				continue
			}

			sb := e.Config.Breakdown(oldItem, newItem)
			if bestIdx == -1 || sb.Total > best.Total {
				bestIdx = i
				best = sb
			}
		}

		if bestIdx >= 0 && best.Total > e.Config.MinConfidenceScore {
			used[bestIdx] = true
			pairs = append(pairs, pairing{oldIdx: bestIdx, newIdx: j, breakdown: best})
		}
	}

	return pairs
}

// refs returns the selection ref of every item together with, per new item,
// the index of its match in Matches and of its paired old item (-1 when
// unmatched). Results not produced by Engine.Diff are rebuilt from ids.
func (dr *DiffResult) refs() (oldRefs, newRefs []string, matchOf, pairOld []int) {
	if len(dr.oldRefs) == len(dr.Old) && len(dr.newRefs) == len(dr.New) &&
		len(dr.matchOf) == len(dr.New) && len(dr.pairOld) == len(dr.New) {
		return dr.oldRefs, dr.newRefs, dr.matchOf, dr.pairOld
	}

	oldRefs, newRefs = itemRefs(dr.Old), itemRefs(dr.New)
	oldIdx := make(map[string]int, len(dr.Old))
	for i := len(dr.Old) - 1; i >= 0; i-- {
		oldIdx[dr.Old[i].ID] = i
	}
	byNew := make(map[string]int, len(dr.Matches))
	for i, m := range dr.Matches {
		byNew[m.NewID] = i
	}

	matchOf = make([]int, len(dr.New))
	pairOld = make([]int, len(dr.New))
	for j, item := range dr.New {
		matchOf[j], pairOld[j] = -1, -1
		if i, ok := byNew[item.ID]; ok {
			if oi, found := oldIdx[dr.Matches[i].OldID]; found {
				matchOf[j], pairOld[j] = i, oi
			}
		}
	}
	return oldRefs, newRefs, matchOf, pairOld
}

// ChangeSet applies overrides to the default selections and returns the
// resulting ChangeSet: selected new items are added, selected old ids are
// kept and unselected old ids are removed.
func (dr *DiffResult) ChangeSet(overrides *SelectionOverrides) (*models.ChangeSet, error) {
	selection, err := resolveSelection(dr.Defaults, dr.Fingerprint, overrides)
	if err != nil {
		return nil, err
	}

	changes := &models.ChangeSet{
		ToAdd:    []models.LineItem{},
		ToKeep:   []string{},
		ToRemove: []string{},
	}

	oldRefs, newRefs, _, _ := dr.refs()

	for i, item := range dr.New {
		if selection[NewKey(newRefs[i])] {
			changes.ToAdd = append(changes.ToAdd, item)
		}
	}

	for i, item := range dr.Old {
		if selection[OldKey(oldRefs[i])] {
			changes.ToKeep = append(changes.ToKeep, item.ID)
		} else {
			changes.ToRemove = append(changes.ToRemove, item.ID)
		}
	}

	return changes, nil
}

// validateSnapshots checks fields and the shared billing-cycle identifier
func validateSnapshots(old, new models.StatementSnapshot) error {
	if old.StatementID != new.StatementID {
		return apperrors.ValidationError(apperrors.CodeStatementMismatch, "statement_id",
			fmt.Sprintf("%s != %s", old.StatementID, new.StatementID), nil)
	}

	for _, snapshot := range []struct {
		label string
		snap  models.StatementSnapshot
	}{{"old", old}, {"new", new}} {
		seen := make(map[string]bool, len(snapshot.snap.Items))
		for _, item := range snapshot.snap.Items {
			if seen[item.ID] {
				return apperrors.ValidationError(apperrors.CodeDuplicateID, snapshot.label+"_snapshot.id", item.ID, nil)
			}
			seen[item.ID] = true
		}

		if err := snapshot.snap.Validate(); err != nil {
			return apperrors.ValidationError(apperrors.CodeMissingField, snapshot.label+"_snapshot", snapshot.snap.StatementID, err)
		}
	}

	return nil
}
