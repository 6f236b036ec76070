// Package settlement groups projected obligations and validates the binding
// of one real payment to one group.
//
// Grouping never binds a payment by itself: the caller picks the group and
// the payment, Validate reports blocking errors and balance warnings, and
// ToPostedRecords converts the group into posted line items.
package settlement

import (
	"fatura-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// GroupKey returns the settlement group an obligation belongs to: its
// explicit GroupID, or ORIGIN_YYYY-MM of its due date.
func GroupKey(o models.ProjectedObligation) string {
	if o.GroupID != "" {
		return o.GroupID
	}
	return o.Origin + "_" + o.DueMonth()
}

// Group partitions obligations into settlement groups. Groups and their
// members keep the order in which they first appear in the input.
func Group(obligations []models.ProjectedObligation) []models.ObligationGroup {
	index := make(map[string]int)
	var groups []models.ObligationGroup
	seenEstablishment := make(map[string]map[string]bool)

	for _, o := range obligations {
		key := GroupKey(o)

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.ObligationGroup{
				GroupID:        key,
				TotalValue:     decimal.Zero,
				Period:         o.DueMonth(),
				Establishments: []string{},
			})
			seenEstablishment[key] = make(map[string]bool)
		}

		g := &groups[i]
		g.Items = append(g.Items, o)
		g.TotalValue = g.TotalValue.Add(o.Amount)

		if label := o.Label(); label != "" && !seenEstablishment[key][label] {
			seenEstablishment[key][label] = true
			g.Establishments = append(g.Establishments, label)
		}
	}

	return groups
}

// FindGroup returns the group with the given id
func FindGroup(groups []models.ObligationGroup, groupID string) (models.ObligationGroup, bool) {
	for _, g := range groups {
		if g.GroupID == groupID {
			return g, true
		}
	}
	return models.ObligationGroup{}, false
}

// Pending filters out obligations that are already reconciled
func Pending(obligations []models.ProjectedObligation) []models.ProjectedObligation {
	pending := make([]models.ProjectedObligation, 0, len(obligations))
	for _, o := range obligations {
		if !o.Reconciled {
			pending = append(pending, o)
		}
	}
	return pending
}
