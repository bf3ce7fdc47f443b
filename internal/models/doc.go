// Package models defines the core domain models for Tally.
//
// # Models
//
//   - ReceiptState: the full state of one receipt session (items, fees,
//     discount, fixed contributions)
//   - Item: a single line item, assignable to one or more participants
//   - Discount: a bill-wide percentage or fixed-amount reduction
//   - PersonSummary: one person's computed share of the bill
//
// Participants are identified by name strings; there is no participant
// registry. A participant exists by appearing in an item's assignment list
// or in the fixed-contribution list.
//
// # Design principles
//
//  1. ReceiptState is a value: the engine never mutates a state it was
//     given. Every command application deep-copies via Clone and returns a
//     new state, so callers can compare old and new states for change
//     detection.
//  2. Subtotal, Tax, Tip and Total are tracked independently. Extraction
//     noise, service charges and added items mean subtotal+tax+tip is not
//     required to equal total; the allocation engine handles the residual
//     explicitly.
//  3. PersonSummary is derived, recomputed from scratch on every change,
//     and never stored.
package models
