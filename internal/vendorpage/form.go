package vendorpage

import (
	"context"
	"errors"
	"strings"

	"era-vendors-api/internal/models"
)

var (
	// ErrNameRequired is returned by Submit when the name is empty after trimming.
	ErrNameRequired = errors.New("vendor name is required")
	// ErrUnknownField is returned when a field key is not one of models.EditableFields.
	ErrUnknownField = errors.New("unknown vendor field")
	// ErrFormClosed is returned when editing or submitting while no form is open.
	ErrFormClosed = errors.New("vendor form is not open")
)

const (
	titleAdd  = "Add New Vendor"
	titleEdit = "Edit Vendor"
)

// Writer is the part of the store a form submits to.
type Writer interface {
	Create(ctx context.Context, fields models.VendorFields, actor string) (models.Vendor, error)
	Update(ctx context.Context, v models.Vendor, actor string) (models.Vendor, error)
}

// Form holds the edit buffer of the add/edit dialog. The zero value is a closed form.
type Form struct {
	open     bool
	original *models.Vendor
	buffer   models.VendorFields
}

// Open starts editing v, or a new vendor with the default template when v is nil.
func (f *Form) Open(v *models.Vendor) {
	f.open = true
	if v == nil {
		f.original = nil
		f.buffer = models.NewVendorFields()
		return
	}
	c := v.Clone()
	f.original = &c
	f.buffer = c.VendorFields
}

func (f *Form) IsOpen() bool { return f.open }

// IsEdit reports whether the open form edits an existing vendor.
func (f *Form) IsEdit() bool { return f.open && f.original != nil }

func (f *Form) Title() string {
	if f.IsEdit() {
		return titleEdit
	}
	return titleAdd
}

// VendorID is the id of the vendor being edited, empty in add mode.
func (f *Form) VendorID() string {
	if !f.IsEdit() {
		return ""
	}
	return f.original.ID
}

func (f *Form) Buffer() models.VendorFields { return f.buffer }

// UpdateField changes exactly one field of the buffer.
func (f *Form) UpdateField(field, value string) error {
	if !f.open {
		return ErrFormClosed
	}
	if !f.buffer.Set(field, value) {
		return ErrUnknownField
	}
	return nil
}

// Close discards the buffer.
func (f *Form) Close() {
	f.open = false
	f.original = nil
	f.buffer = models.VendorFields{}
}

// History returns the change log of the edited vendor, newest first.
func (f *Form) History() []models.HistoryEntry {
	if !f.IsEdit() || len(f.original.History) == 0 {
		return nil
	}
	out := make([]models.HistoryEntry, len(f.original.History))
	copy(out, f.original.History)
	return out
}

// LastChange returns the newest history entry of the edited vendor.
func (f *Form) LastChange() (models.HistoryEntry, bool) {
	if !f.IsEdit() || len(f.original.History) == 0 {
		return models.HistoryEntry{}, false
	}
	return f.original.History[0], true
}

// refresh swaps in a newer copy of the edited vendor without touching the buffer.
func (f *Form) refresh(list []models.Vendor) {
	if !f.IsEdit() {
		return
	}
	for _, v := range list {
		if v.ID == f.original.ID {
			c := v.Clone()
			f.original = &c
			return
		}
	}
}

// submission is a validated buffer detached from the form.
type submission struct {
	id     string
	fields models.VendorFields
}

func (s submission) isUpdate() bool { return s.id != "" }

func (s submission) send(ctx context.Context, w Writer, actor string) (models.Vendor, error) {
	if s.isUpdate() {
		return w.Update(ctx, models.Vendor{ID: s.id, VendorFields: s.fields}, actor)
	}
	return w.Create(ctx, s.fields, actor)
}

// take validates the buffer and closes the form. A failed validation leaves the form open.
func (f *Form) take() (submission, error) {
	if !f.open {
		return submission{}, ErrFormClosed
	}
	if strings.TrimSpace(f.buffer.Name) == "" {
		return submission{}, ErrNameRequired
	}
	sub := submission{id: f.VendorID(), fields: f.buffer}
	f.Close()
	return sub, nil
}

// Submit validates the buffer and sends it to w as an update in edit mode or a
// create otherwise. The form is closed once the call is issued, even if it fails.
func (f *Form) Submit(ctx context.Context, w Writer, actor string) (models.Vendor, error) {
	sub, err := f.take()
	if err != nil {
		return models.Vendor{}, err
	}
	return sub.send(ctx, w, actor)
}
