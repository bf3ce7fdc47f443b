package models

// DiscountKind distinguishes the two supported discount shapes.
type DiscountKind string

const (
	// DiscountPercentage reduces the total by Value percent.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed reduces the total by a flat Value amount.
	DiscountFixed DiscountKind = "fixed"
)

// Discount is a bill-wide reduction applied to the entire total during
// allocation. It never touches individual items.
type Discount struct {
	Kind  DiscountKind `json:"kind"`
	Value float64      `json:"value"`
}

// Item represents a single line item on a receipt.
type Item struct {
	// ID is the unique identifier for the item (UUID format), stable for
	// the lifetime of a receipt session.
	ID string `json:"id"`

	// Name is the item description as extracted or entered (e.g. "Pizza").
	Name string `json:"name"`

	// Price is the item price. Negative prices are allowed and represent
	// credits or adjustments.
	Price float64 `json:"price"`

	// AssignedTo lists the participants splitting this item, in assignment
	// order, without duplicates. Empty means unassigned.
	AssignedTo []string `json:"assigned_to"`
}

// FixedContribution pins one participant's total owed to an exact amount,
// independent of proportional weighting.
type FixedContribution struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ReceiptState is the complete state of one receipt session.
//
// FixedContributions acts as a name-to-amount mapping but is stored as an
// ordered slice so that allocation output and persistence stay
// deterministic.
type ReceiptState struct {
	Items []Item `json:"items"`

	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`

	Discount *Discount `json:"discount,omitempty"`

	FixedContributions []FixedContribution `json:"fixed_contributions,omitempty"`

	// Display metadata from extraction; not used by any computation.
	MerchantName   string `json:"merchant_name,omitempty"`
	Date           string `json:"date,omitempty"`
	Location       string `json:"location,omitempty"`
	CurrencySymbol string `json:"currency_symbol,omitempty"`
}

// Clone returns a deep copy of the state. The engine clones before applying
// any command so the input state is never mutated.
func (s *ReceiptState) Clone() *ReceiptState {
	out := *s

	out.Items = make([]Item, len(s.Items))
	for i, item := range s.Items {
		out.Items[i] = item
		out.Items[i].AssignedTo = append([]string(nil), item.AssignedTo...)
	}

	out.FixedContributions = append([]FixedContribution(nil), s.FixedContributions...)

	if s.Discount != nil {
		d := *s.Discount
		out.Discount = &d
	}

	return &out
}

// FixedContributionFor returns the pinned amount for name and whether one
// exists. Names are compared case-sensitively.
func (s *ReceiptState) FixedContributionFor(name string) (float64, bool) {
	for _, fc := range s.FixedContributions {
		if fc.Name == name {
			return fc.Amount, true
		}
	}
	return 0, false
}
