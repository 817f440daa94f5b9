package vendorpage

import (
	"context"
	"errors"
)

var (
	// ErrNothingSelected is returned when a bulk delete is requested with an empty selection.
	ErrNothingSelected = errors.New("no vendors selected")
	// ErrNoPendingDeletion is returned by Confirm when no confirmation is open.
	ErrNoPendingDeletion = errors.New("no deletion awaiting confirmation")
)

// DeleteState is the state of the delete confirmation flow.
type DeleteState int

const (
	Idle DeleteState = iota
	Selecting
	ConfirmPending
)

func (s DeleteState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case ConfirmPending:
		return "confirm_pending"
	}
	return "unknown"
}

// Deleter is the part of the store that removes vendors.
type Deleter interface {
	Delete(ctx context.Context, ids []string) (int, error)
}

// Deletion tracks whether a delete confirmation is open. Every delete,
// single-row or bulk, targets the whole selection.
type Deletion struct {
	pending bool
}

func (d *Deletion) Pending() bool { return d.pending }

// State derives the flow state from the selection.
func (d *Deletion) State(sel *Selection) DeleteState {
	switch {
	case d.pending:
		return ConfirmPending
	case sel.Len() > 0:
		return Selecting
	}
	return Idle
}

// RequestRow replaces the selection with id and asks for confirmation.
func (d *Deletion) RequestRow(sel *Selection, id string) {
	sel.Set(id)
	d.pending = true
}

// RequestBulk asks for confirmation of deleting the current selection.
func (d *Deletion) RequestBulk(sel *Selection) error {
	if sel.Len() == 0 {
		return ErrNothingSelected
	}
	d.pending = true
	return nil
}

// Cancel closes the confirmation and keeps the selection.
func (d *Deletion) Cancel() { d.pending = false }

// take closes the confirmation and empties the selection, returning the ids to delete.
func (d *Deletion) take(sel *Selection) ([]string, error) {
	if !d.pending {
		return nil, ErrNoPendingDeletion
	}
	ids := sel.IDs()
	sel.Clear()
	d.pending = false
	return ids, nil
}

// Confirm deletes every selected id in one call, then clears the selection and closes
// the confirmation. With an empty selection the store is not called.
func (d *Deletion) Confirm(ctx context.Context, sel *Selection, del Deleter) (int, error) {
	ids, err := d.take(sel)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return del.Delete(ctx, ids)
}
