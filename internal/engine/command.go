package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CommandKind identifies one of the structured edit operations the
// translation layer can emit.
type CommandKind string

const (
	KindAssignItems             CommandKind = "assign_items"
	KindSplitItem               CommandKind = "split_item"
	KindAddItem                 CommandKind = "add_item"
	KindApplyDiscount           CommandKind = "apply_discount"
	KindSetFixedContribution    CommandKind = "set_fixed_contribution"
	KindRemoveFixedContribution CommandKind = "remove_fixed_contribution"
	KindUpdateTip               CommandKind = "update_tip"
	KindResetReceipt            CommandKind = "reset_receipt"
)

// Command is the tagged union of receipt edit operations. Each variant
// carries only the fields its kind needs.
type Command interface {
	Kind() CommandKind
}

// ItemAssignment pairs an item name with the people who should split it.
// An empty People list clears the item's assignment.
type ItemAssignment struct {
	ItemName string   `json:"item_name"`
	People   []string `json:"people"`
}

// AssignItems replaces the assignment of each named item.
type AssignItems struct {
	Assignments []ItemAssignment `json:"assignments"`
}

func (AssignItems) Kind() CommandKind { return KindAssignItems }

// ItemPart is one piece of a split item. Part prices are recorded as given;
// they are not validated against the original item's price.
type ItemPart struct {
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	People []string `json:"people"`
}

// SplitItem replaces one item with several parts, splicing them into the
// original item's position.
type SplitItem struct {
	ItemName string     `json:"item_name"`
	Parts    []ItemPart `json:"parts"`
}

func (SplitItem) Kind() CommandKind { return KindSplitItem }

// AddItem appends a new item and bumps subtotal and total by its price.
type AddItem struct {
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	People []string `json:"people,omitempty"`
}

func (AddItem) Kind() CommandKind { return KindAddItem }

// ApplyDiscount replaces the bill-wide discount. Value is not range
// checked here; allocation clamps downstream.
type ApplyDiscount struct {
	DiscountKind string  `json:"kind"`
	Value        float64 `json:"value"`
}

func (ApplyDiscount) Kind() CommandKind { return KindApplyDiscount }

// SetFixedContribution pins a participant's total owed to an exact amount,
// overwriting any prior value for that name.
type SetFixedContribution struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

func (SetFixedContribution) Kind() CommandKind { return KindSetFixedContribution }

// RemoveFixedContribution removes a participant's pinned amount.
type RemoveFixedContribution struct {
	Name string `json:"name"`
}

func (RemoveFixedContribution) Kind() CommandKind { return KindRemoveFixedContribution }

// UpdateTip replaces the tip, adjusting the total by the delta.
type UpdateTip struct {
	Amount float64 `json:"amount"`
}

func (UpdateTip) Kind() CommandKind { return KindUpdateTip }

// ResetReceipt requests a full session reset. It short-circuits the rest
// of the batch and discards any mutations earlier commands made.
type ResetReceipt struct{}

func (ResetReceipt) Kind() CommandKind { return KindResetReceipt }

// envelope is the wire shape of a command: a type tag plus the variant's
// own fields at the same level.
type envelope struct {
	Type CommandKind `json:"type"`
}

// DecodeCommands turns a batch of raw JSON commands into typed Commands.
// Malformed entries (bad JSON, unknown type, unknown or missing fields)
// are dropped, never fatal; each drop is reported in skipped so the caller
// can decide whether to warn the user.
func DecodeCommands(raw []json.RawMessage) (cmds []Command, skipped []string) {
	for i, r := range raw {
		cmd, err := DecodeCommand(r)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("command %d dropped: %v", i, err))
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, skipped
}

// DecodeCommand decodes a single tagged command strictly: the payload must
// carry a known type tag and only that variant's fields.
func DecodeCommand(raw json.RawMessage) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid command payload: %w", err)
	}

	var (
		cmd Command
		err error
	)
	switch env.Type {
	case KindAssignItems:
		var c AssignItems
		err = strictUnmarshal(raw, &c)
		if err == nil && len(c.Assignments) == 0 {
			err = fmt.Errorf("assign_items requires assignments")
		}
		cmd = c
	case KindSplitItem:
		var c SplitItem
		err = strictUnmarshal(raw, &c)
		if err == nil && strings.TrimSpace(c.ItemName) == "" {
			err = fmt.Errorf("split_item requires item_name")
		}
		if err == nil && len(c.Parts) == 0 {
			err = fmt.Errorf("split_item requires parts")
		}
		cmd = c
	case KindAddItem:
		var c AddItem
		err = strictUnmarshal(raw, &c)
		if err == nil && strings.TrimSpace(c.Name) == "" {
			err = fmt.Errorf("add_item requires name")
		}
		cmd = c
	case KindApplyDiscount:
		var c ApplyDiscount
		err = strictUnmarshal(raw, &c)
		if err == nil && c.DiscountKind != "percentage" && c.DiscountKind != "fixed" {
			err = fmt.Errorf("apply_discount kind must be percentage or fixed, got %q", c.DiscountKind)
		}
		cmd = c
	case KindSetFixedContribution:
		var c SetFixedContribution
		err = strictUnmarshal(raw, &c)
		if err == nil && strings.TrimSpace(c.Name) == "" {
			err = fmt.Errorf("set_fixed_contribution requires name")
		}
		cmd = c
	case KindRemoveFixedContribution:
		var c RemoveFixedContribution
		err = strictUnmarshal(raw, &c)
		if err == nil && strings.TrimSpace(c.Name) == "" {
			err = fmt.Errorf("remove_fixed_contribution requires name")
		}
		cmd = c
	case KindUpdateTip:
		var c UpdateTip
		err = strictUnmarshal(raw, &c)
		cmd = c
	case KindResetReceipt:
		cmd = ResetReceipt{}
	default:
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}

	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// strictUnmarshal decodes into dst rejecting fields the variant does not
// declare, apart from the shared "type" tag.
func strictUnmarshal(raw json.RawMessage, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	delete(fields, "type")
	stripped, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
