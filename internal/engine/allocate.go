package engine

import (
	"sort"

	"github.com/tallysplit/tally/internal/models"
)

// Allocation is the computed outcome of a receipt state: who owes what,
// plus the value of items nobody has claimed.
type Allocation struct {
	// Summaries is sorted descending by TotalOwed; ties keep
	// first-appearance order.
	Summaries []models.PersonSummary

	// UnassignedTotal is the summed price of items with no assignees. It is
	// never folded into anyone's total; callers surface it so the user can
	// see money is unaccounted for.
	UnassignedTotal float64
}

// Allocate computes each participant's share of the bill. It is a pure
// function of the state and never fails: zero subtotals, over-committed
// fixed contributions and oversized discounts all clamp to safe values.
//
// The computation runs in four phases:
//  1. raw per-person subtotals from item assignments (price / assignees)
//  2. proportional tax and tip, weighted by raw subtotal
//  3. net bill after the bill-wide discount
//  4. fixed payers owe exactly their committed amount; the remaining pool
//     is split across everyone else by their phase-2 weight
func Allocate(state *models.ReceiptState) Allocation {
	summaries, weights, unassigned := rawShares(state)

	// Phase 2: distribute the tax gap and tip proportionally to raw
	// subtotals. The gap (total - subtotal - tip) captures tax and any
	// surcharge not broken out separately; a negative gap distributes
	// nothing. Substituting 1 for a zero subtotal keeps the ratios finite.
	denom := state.Subtotal
	if denom == 0 {
		denom = 1
	}
	taxGap := state.Total - state.Subtotal - state.Tip
	if taxGap < 0 {
		taxGap = 0
	}
	taxRatio := taxGap / denom
	tipRatio := state.Tip / denom

	for i := range summaries {
		summaries[i].TaxOwed = summaries[i].SubtotalOwed * taxRatio
		summaries[i].TipOwed = summaries[i].SubtotalOwed * tipRatio
		weights[i] = summaries[i].SubtotalOwed + summaries[i].TaxOwed + summaries[i].TipOwed
	}

	// Phase 3: the discount adjusts the whole bill, not individual items.
	netBill := state.Total
	if d := state.Discount; d != nil {
		switch d.Kind {
		case models.DiscountPercentage:
			netBill = state.Total * (1 - d.Value/100)
		case models.DiscountFixed:
			netBill = state.Total - d.Value
			if netBill < 0 {
				netBill = 0
			}
		}
	}

	// Phase 4: fixed payers are pinned to their committed amounts; the
	// discount and any rounding noise land entirely on the variable pool.
	var fixedTotal, variableWeightTotal float64
	for i := range summaries {
		if amount, ok := state.FixedContributionFor(summaries[i].Name); ok {
			summaries[i].IsFixed = true
			summaries[i].TotalOwed = amount
			fixedTotal += amount
		} else {
			variableWeightTotal += weights[i]
		}
	}

	remainingPool := netBill - fixedTotal
	if remainingPool < 0 {
		remainingPool = 0
	}

	for i := range summaries {
		if summaries[i].IsFixed {
			continue
		}
		if variableWeightTotal > 0 {
			summaries[i].TotalOwed = weights[i] / variableWeightTotal * remainingPool
		} else {
			summaries[i].TotalOwed = 0
		}
	}

	sort.SliceStable(summaries, func(a, b int) bool {
		return summaries[a].TotalOwed > summaries[b].TotalOwed
	})

	return Allocation{Summaries: summaries, UnassignedTotal: unassigned}
}

// rawShares runs phase 1: every assignee of an item accrues an equal share
// of its price. Participants appear in first-appearance order: item
// assignees first (by item order), then fixed contributors without items.
func rawShares(state *models.ReceiptState) (summaries []models.PersonSummary, weights []float64, unassigned float64) {
	index := make(map[string]int)

	person := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		index[name] = len(summaries)
		summaries = append(summaries, models.PersonSummary{Name: name})
		return len(summaries) - 1
	}

	for _, item := range state.Items {
		if len(item.AssignedTo) == 0 {
			unassigned += item.Price
			continue
		}
		share := item.Price / float64(len(item.AssignedTo))
		for _, name := range item.AssignedTo {
			i := person(name)
			summaries[i].SubtotalOwed += share
			summaries[i].Items = append(summaries[i].Items, item)
		}
	}

	// Fixed contributors take part even with no items assigned.
	for _, fc := range state.FixedContributions {
		person(fc.Name)
	}

	weights = make([]float64, len(summaries))
	return summaries, weights, unassigned
}
