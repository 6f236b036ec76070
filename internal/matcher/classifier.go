package matcher

import (
	"fatura-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// Status is the four-way classification of a line across two snapshots
type Status int

const (
	// StatusNew is a new item with no accepted match
	StatusNew Status = iota
	// StatusExact is a match where every criterion agrees
	StatusExact
	// StatusNearExact is a match above threshold with at least one differing field
	StatusNearExact
	// StatusVanished is an old item with no accepted match
	StatusVanished
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusExact:
		return "EXACT"
	case StatusNearExact:
		return "NEAR_EXACT"
	case StatusVanished:
		return "VANISHED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status by name in JSON and YAML output
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClassifiedPair is one row of a classification. Old is nil for NEW rows and
// New is nil for VANISHED rows.
type ClassifiedPair struct {
	Status          Status           `json:"status"`
	Old             *models.LineItem `json:"old,omitempty"`
	New             *models.LineItem `json:"new,omitempty"`
	Score           float64          `json:"score"`
	Reasons         []string         `json:"reasons,omitempty"`
	DifferingFields []string         `json:"differing_fields,omitempty"`
	DefaultSelected bool             `json:"default_selected"`

	oldRef string
	newRef string
}

// Key returns the selection key used to override this row
func (cp ClassifiedPair) Key() string {
	oldRef, newRef := cp.oldRef, cp.newRef
	if oldRef == "" && cp.Old != nil {
		oldRef = cp.Old.ID
	}
	if newRef == "" && cp.New != nil {
		newRef = cp.New.ID
	}

	switch cp.Status {
	case StatusNew:
		return NewKey(newRef)
	case StatusVanished:
		return DeleteKey(oldRef)
	default:
		return PairKey(oldRef, newRef)
	}
}

// IsMatched reports whether the row pairs an old and a new item
func (cp ClassifiedPair) IsMatched() bool {
	return cp.Status == StatusExact || cp.Status == StatusNearExact
}

// Classification is the tagged view of a diff
type Classification struct {
	Pairs       []ClassifiedPair `json:"pairs"`
	Fingerprint string           `json:"fingerprint"`

	defaults map[string]bool
}

// ResultingTotal describes what committing a selection would produce
type ResultingTotal struct {
	WillCreate    int             `json:"will_create"`
	WillKeep      int             `json:"will_keep"`
	WillDelete    int             `json:"will_delete"`
	FinalValue    decimal.Decimal `json:"final_value"`
	ExpectedValue decimal.Decimal `json:"expected_value"`
	IsBalanced    bool            `json:"is_balanced"`
}

// Difference returns FinalValue minus ExpectedValue
func (rt ResultingTotal) Difference() decimal.Decimal {
	return rt.FinalValue.Sub(rt.ExpectedValue)
}

// Classify tags every line of two snapshots under the default configuration
func Classify(oldItems, newItems []models.LineItem) *Classification {
	return NewEngine(nil).Classify(oldItems, newItems)
}

// ClassifySnapshots validates both snapshots before classifying them
func (e *Engine) ClassifySnapshots(old, new models.StatementSnapshot) (*Classification, error) {
	if err := validateSnapshots(old, new); err != nil {
		return nil, err
	}
	return e.Classify(old.Items, new.Items), nil
}

// Classify tags every line of the two snapshots. Rows follow the order of the
// new snapshot, followed by vanished old items in their original order.
func (e *Engine) Classify(oldItems, newItems []models.LineItem) *Classification {
	return e.classifyDiff(e.Diff(oldItems, newItems))
}

// ClassifyResult tags the lines of an existing diff
func (e *Engine) ClassifyResult(result *DiffResult) *Classification {
	return e.classifyDiff(result)
}

func (e *Engine) classifyDiff(result *DiffResult) *Classification {
	oldRefs, newRefs, matchOf, pairOld := result.refs()
	oldMatched := make([]bool, len(result.Old))

	c := &Classification{
		Pairs:    make([]ClassifiedPair, 0, len(result.Old)+len(result.New)-len(result.Matches)),
		defaults: make(map[string]bool, len(result.Old)+len(result.New)),
	}

	for i := range result.New {
		newItem := result.New[i]
		if matchOf[i] < 0 {
			c.Pairs = append(c.Pairs, ClassifiedPair{
				Status:          StatusNew,
				New:             &newItem,
				DefaultSelected: true,
				newRef:          newRefs[i],
			})
			continue
		}

		match := result.Matches[matchOf[i]]
		oi := pairOld[i]
		oldMatched[oi] = true
		oldItem := result.Old[oi]
		sb := e.Config.Breakdown(oldItem, newItem)

		status := StatusNearExact
		if sb.IsExact(e.Config.Weights) {
			status = StatusExact
		}

		c.Pairs = append(c.Pairs, ClassifiedPair{
			Status:          status,
			Old:             &oldItem,
			New:             &newItem,
			Score:           match.Score,
			Reasons:         match.Reasons,
			DifferingFields: differingFields(sb, e.Config.Weights),
			DefaultSelected: true,
			oldRef:          oldRefs[oi],
			newRef:          newRefs[i],
		})
	}

	for i := range result.Old {
		if oldMatched[i] {
			continue
		}
		oldItem := result.Old[i]
		c.Pairs = append(c.Pairs, ClassifiedPair{
			Status:          StatusVanished,
			Old:             &oldItem,
			DefaultSelected: false,
			oldRef:          oldRefs[i],
		})
	}

	parts := make([]string, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		key := p.Key()
		c.defaults[key] = p.DefaultSelected
		parts = append(parts, p.Status.String()+"="+key)
	}
	c.Fingerprint = fingerprint(parts...)

	return c
}

// Counts returns the number of rows per status
func (c *Classification) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, p := range c.Pairs {
		counts[p.Status]++
	}
	return counts
}

// Defaults returns a copy of the default selection per row key
func (c *Classification) Defaults() map[string]bool {
	defaults := make(map[string]bool, len(c.defaults))
	for k, v := range c.defaults {
		defaults[k] = v
	}
	return defaults
}

// ComputeResultingTotal evaluates the selection that results from applying
// overrides to the defaults. ExpectedValue is the sum of the new-side amounts
// of NEW, EXACT and NEAR_EXACT rows; FinalValue is the sum of every record the
// selection would keep or create.
func (c *Classification) ComputeResultingTotal(overrides *SelectionOverrides) (ResultingTotal, error) {
	selection, err := resolveSelection(c.defaults, c.Fingerprint, overrides)
	if err != nil {
		return ResultingTotal{}, err
	}

	total := ResultingTotal{
		FinalValue:    decimal.Zero,
		ExpectedValue: decimal.Zero,
	}

	keep := func(item *models.LineItem) {
		total.WillKeep++
		total.FinalValue = total.FinalValue.Add(item.Amount)
	}
	create := func(item *models.LineItem) {
		total.WillCreate++
		total.FinalValue = total.FinalValue.Add(item.Amount)
	}

	for _, p := range c.Pairs {
		selected := selection[p.Key()]

		switch p.Status {
		case StatusNew:
			total.ExpectedValue = total.ExpectedValue.Add(p.New.Amount)
			if selected {
				create(p.New)
			}
		case StatusExact, StatusNearExact:
			total.ExpectedValue = total.ExpectedValue.Add(p.New.Amount)
			keep(p.Old)
			if !selected {
				create(p.New)
			}
		case StatusVanished:
			if selected {
				total.WillDelete++
			} else {
				keep(p.Old)
			}
		}
	}

	total.IsBalanced = total.FinalValue.Sub(total.ExpectedValue).Abs().LessThan(decimal.New(1, -2))

	return total, nil
}

// ChangeSet derives the ChangeSet that the selection would commit. Every old
// item ends up in exactly one of ToKeep and ToRemove.
func (c *Classification) ChangeSet(overrides *SelectionOverrides) (*models.ChangeSet, error) {
	selection, err := resolveSelection(c.defaults, c.Fingerprint, overrides)
	if err != nil {
		return nil, err
	}

	changes := &models.ChangeSet{
		ToAdd:    []models.LineItem{},
		ToKeep:   []string{},
		ToRemove: []string{},
	}

	for _, p := range c.Pairs {
		selected := selection[p.Key()]

		switch p.Status {
		case StatusNew:
			if selected {
				changes.ToAdd = append(changes.ToAdd, *p.New)
			}
		case StatusExact, StatusNearExact:
			changes.ToKeep = append(changes.ToKeep, p.Old.ID)
			if !selected {
				changes.ToAdd = append(changes.ToAdd, *p.New)
			}
		case StatusVanished:
			if selected {
				changes.ToRemove = append(changes.ToRemove, p.Old.ID)
			} else {
				changes.ToKeep = append(changes.ToKeep, p.Old.ID)
			}
		}
	}

	return changes, nil
}
