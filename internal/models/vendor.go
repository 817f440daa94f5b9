package models

import "time"

const (
	// Placeholder is the value optional contact fields get on a new vendor.
	Placeholder = "N/A"
	// DefaultActor is recorded when no signed-in user can be resolved.
	DefaultActor = "System"
)

// Editable field keys, shared by the form buffer, the JSON payloads and the importer mapping.
const (
	FieldName          = "name"
	FieldContactPerson = "contact_person"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldAddress       = "address"
)

// EditableFields lists the field keys in display order.
var EditableFields = []string{FieldName, FieldContactPerson, FieldEmail, FieldPhone, FieldAddress}

// VendorFields holds the user-editable part of a vendor. It never carries an id.
type VendorFields struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// NewVendorFields returns the template used when adding a vendor.
func NewVendorFields() VendorFields {
	return VendorFields{
		Name:          "",
		ContactPerson: Placeholder,
		Email:         Placeholder,
		Phone:         Placeholder,
		Address:       "",
	}
}

// Get returns the value of the field with the given key.
func (f VendorFields) Get(field string) (string, bool) {
	switch field {
	case FieldName:
		return f.Name, true
	case FieldContactPerson:
		return f.ContactPerson, true
	case FieldEmail:
		return f.Email, true
	case FieldPhone:
		return f.Phone, true
	case FieldAddress:
		return f.Address, true
	}
	return "", false
}

// Set assigns one field. It reports false for unknown keys.
func (f *VendorFields) Set(field, value string) bool {
	switch field {
	case FieldName:
		f.Name = value
	case FieldContactPerson:
		f.ContactPerson = value
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	case FieldAddress:
		f.Address = value
	default:
		return false
	}
	return true
}

// Diff returns the keys whose values differ between f and other, in display order.
func (f VendorFields) Diff(other VendorFields) []string {
	var changed []string
	for _, key := range EditableFields {
		a, _ := f.Get(key)
		b, _ := other.Get(key)
		if a != b {
			changed = append(changed, key)
		}
	}
	return changed
}

// HistoryEntry is one change-log line of a vendor.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
}

// Vendor is a supplier record. History is ordered newest first and only the store appends to it.
type Vendor struct {
	ID string `json:"id"`
	VendorFields
	History   []HistoryEntry `json:"history,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so callers can't mutate a store's history slice.
func (v Vendor) Clone() Vendor {
	out := v
	if v.History != nil {
		out.History = make([]HistoryEntry, len(v.History))
		copy(out.History, v.History)
	}
	return out
}

// BulkDeleteRequest is the payload of POST /vendors/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResponse reports how many records were actually removed.
type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}
