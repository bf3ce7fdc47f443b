// Package engine implements the receipt splitting engine: command
// application (the only mutator of receipt state) and allocation
// computation (a pure function of receipt state).
//
// Both halves follow the same error posture: bad input degrades, it never
// fails. Unresolvable names and malformed commands are skipped and
// reported; numeric degeneracies clamp to safe defaults.
package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tallysplit/tally/internal/models"
)

// Result is the outcome of applying a command batch.
type Result struct {
	// State is the new receipt state. The input state is never mutated.
	State *models.ReceiptState

	// ResetRequested reports that the batch contained reset_receipt. When
	// set, State is the caller's original state: the reset discards any
	// mutations earlier commands in the batch made, and the caller is
	// expected to discard the session wholesale.
	ResetRequested bool

	// Skipped describes commands or assignment pairs that could not be
	// applied, for the caller to surface as warnings.
	Skipped []string
}

// Apply runs a batch of commands against state in order and returns the
// resulting state. Each command either fully applies or fully no-ops; the
// batch never aborts.
func Apply(state *models.ReceiptState, cmds []Command) Result {
	next := state.Clone()
	var skipped []string

	for i, cmd := range cmds {
		switch c := cmd.(type) {
		case AssignItems:
			skipped = append(skipped, applyAssignItems(next, c)...)
		case SplitItem:
			if note := applySplitItem(next, c); note != "" {
				skipped = append(skipped, note)
			}
		case AddItem:
			applyAddItem(next, c)
		case ApplyDiscount:
			next.Discount = &models.Discount{
				Kind:  models.DiscountKind(c.DiscountKind),
				Value: c.Value,
			}
		case SetFixedContribution:
			applySetFixedContribution(next, c)
		case RemoveFixedContribution:
			applyRemoveFixedContribution(next, c)
		case UpdateTip:
			next.Total += c.Amount - next.Tip
			next.Tip = c.Amount
		case ResetReceipt:
			// Reset wins over everything already applied in this batch.
			return Result{State: state, ResetRequested: true, Skipped: skipped}
		default:
			skipped = append(skipped, fmt.Sprintf("command %d: unsupported kind %q", i, cmd.Kind()))
		}
	}

	return Result{State: next, Skipped: skipped}
}

func applyAssignItems(state *models.ReceiptState, c AssignItems) []string {
	var skipped []string
	for _, a := range c.Assignments {
		idx := resolveItem(state.Items, a.ItemName)
		if idx < 0 {
			skipped = append(skipped, fmt.Sprintf("assign_items: no item matching %q", a.ItemName))
			continue
		}
		state.Items[idx].AssignedTo = dedupe(a.People)
	}
	return skipped
}

func applySplitItem(state *models.ReceiptState, c SplitItem) string {
	idx := resolveItem(state.Items, c.ItemName)
	if idx < 0 {
		return fmt.Sprintf("split_item: no item matching %q", c.ItemName)
	}

	parts := make([]models.Item, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = models.Item{
			ID:         uuid.NewString(),
			Name:       p.Name,
			Price:      p.Price,
			AssignedTo: dedupe(p.People),
		}
	}

	items := make([]models.Item, 0, len(state.Items)-1+len(parts))
	items = append(items, state.Items[:idx]...)
	items = append(items, parts...)
	items = append(items, state.Items[idx+1:]...)
	state.Items = items
	return ""
}

func applyAddItem(state *models.ReceiptState, c AddItem) {
	state.Items = append(state.Items, models.Item{
		ID:         uuid.NewString(),
		Name:       c.Name,
		Price:      c.Price,
		AssignedTo: dedupe(c.People),
	})
	state.Subtotal += c.Price
	state.Total += c.Price
}

func applySetFixedContribution(state *models.ReceiptState, c SetFixedContribution) {
	for i, fc := range state.FixedContributions {
		if fc.Name == c.Name {
			state.FixedContributions[i].Amount = c.Amount
			return
		}
	}
	state.FixedContributions = append(state.FixedContributions, models.FixedContribution{
		Name:   c.Name,
		Amount: c.Amount,
	})
}

func applyRemoveFixedContribution(state *models.ReceiptState, c RemoveFixedContribution) {
	idx := -1
	for i, fc := range state.FixedContributions {
		if fc.Name == c.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Fall back to a case-insensitive match; the translation layer is
		// not consistent about casing.
		for i, fc := range state.FixedContributions {
			if strings.EqualFold(fc.Name, c.Name) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return
	}
	state.FixedContributions = append(
		state.FixedContributions[:idx],
		state.FixedContributions[idx+1:]...,
	)
}

// resolveItem finds the item a (possibly paraphrased) name refers to.
// Case-insensitive exact match wins; otherwise the first item, in order,
// whose name contains the query or is contained by it. Returns -1 when
// nothing matches.
func resolveItem(items []models.Item, query string) int {
	query = strings.TrimSpace(query)
	if query == "" {
		return -1
	}

	for i, item := range items {
		if strings.EqualFold(item.Name, query) {
			return i
		}
	}

	q := strings.ToLower(query)
	for i, item := range items {
		name := strings.ToLower(item.Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return i
		}
	}
	return -1
}

// dedupe copies names preserving first-occurrence order. Assignment lists
// must not contain duplicates.
func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
