package models

// PersonSummary is one person's computed share of a bill. It is the output
// of the allocation engine, derived from a ReceiptState and never stored.
type PersonSummary struct {
	// Name is the participant's name exactly as it appears in the state.
	Name string `json:"name"`

	// Items are the items this person is assigned to (full items, not
	// per-person portions).
	Items []Item `json:"items"`

	// SubtotalOwed is the sum of this person's per-item shares (price
	// divided by the number of assignees).
	SubtotalOwed float64 `json:"subtotal_owed"`

	// TaxOwed and TipOwed are proportional shares of the bill's tax gap
	// and tip, weighted by SubtotalOwed.
	TaxOwed float64 `json:"tax_owed"`
	TipOwed float64 `json:"tip_owed"`

	// TotalOwed is the final amount owed after discount and
	// fixed-contribution redistribution. For fixed payers this is exactly
	// their committed amount.
	TotalOwed float64 `json:"total_owed"`

	// IsFixed reports whether this person pays a fixed contribution rather
	// than a proportional share.
	IsFixed bool `json:"is_fixed"`
}
