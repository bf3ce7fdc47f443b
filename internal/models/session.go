package models

// Session is one receipt-splitting session: a receipt state plus the
// bookkeeping the storage layer needs. A session is created when a receipt
// is hydrated from extraction and replaced wholesale on reset.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// State is the current receipt state. The service layer swaps in a new
	// state after every applied command batch; it never edits in place.
	State *ReceiptState

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}
