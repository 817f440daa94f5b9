// Package vendorpage implements the vendor management screen independently of
// how it is rendered: the add/edit form, row selection and the delete
// confirmation flow, kept in sync with a store.VendorStore subscription.
package vendorpage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"

	"go.uber.org/zap"
)

// ErrVendorNotFound is returned by OpenEdit for an id missing from the current list.
var ErrVendorNotFound = errors.New("vendor not in list")

// Operation names passed to the error handler.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ErrorHandler receives storage failures of commit operations.
type ErrorHandler func(op string, err error)

type Option func(*Page)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithErrorHandler replaces the default handler, which logs the failure.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Page) { p.onError = h }
}

// WithTimeLayout sets the layout HistorySummary formats timestamps with.
func WithTimeLayout(layout string) Option {
	return func(p *Page) { p.timeLayout = layout }
}

// Page is the state of one vendor screen. It is safe for concurrent use.
type Page struct {
	mu      sync.Mutex
	vendors []models.Vendor
	form    Form
	sel     Selection
	del     Deletion

	store       store.VendorStore
	user        auth.CurrentUser
	logger      *zap.Logger
	onError     ErrorHandler
	timeLayout  string
	unsubscribe func()
}

// New loads the vendor list and subscribes to later changes. Call Close to unsubscribe.
func New(ctx context.Context, vendors store.VendorStore, user auth.CurrentUser, opts ...Option) (*Page, error) {
	p := &Page{
		store:      vendors,
		user:       user,
		logger:     zap.NewNop(),
		timeLayout: time.DateTime,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.onError == nil {
		p.onError = func(op string, err error) {
			p.logger.Error("vendor change failed", zap.String("op", op), zap.Error(err))
		}
	}

	p.unsubscribe = vendors.Subscribe(p.apply)
	list, err := vendors.List(ctx)
	if err != nil {
		p.unsubscribe()
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	p.apply(list)
	return p, nil
}

func (p *Page) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// apply takes a published list and drops selected ids that no longer exist.
func (p *Page) apply(list []models.Vendor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vendors = list
	if p.sel.Prune(list) {
		p.logger.Debug("selection pruned", zap.Int("selected", p.sel.Len()))
	}
	p.form.refresh(list)
}

// Refresh reloads the list from the store.
func (p *Page) Refresh(ctx context.Context) error {
	list, err := p.store.List(ctx)
	if err != nil {
		return err
	}
	p.apply(list)
	return nil
}

func (p *Page) actor() string {
	return auth.Actor(p.user, models.DefaultActor)
}

// Vendors returns the list as last published by the store.
func (p *Page) Vendors() []models.Vendor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Vendor, len(p.vendors))
	for i, v := range p.vendors {
		out[i] = v.Clone()
	}
	return out
}

func (p *Page) Vendor(id string) (models.Vendor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.findLocked(id)
	if !ok {
		return models.Vendor{}, false
	}
	return v.Clone(), true
}

func (p *Page) findLocked(id string) (models.Vendor, bool) {
	for _, v := range p.vendors {
		if v.ID == id {
			return v, true
		}
	}
	return models.Vendor{}, false
}

// OpenAdd opens the form with the new vendor template.
func (p *Page) OpenAdd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.form.Open(nil)
}

// OpenEdit opens the form on a copy of the listed vendor.
func (p *Page) OpenEdit(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.findLocked(id)
	if !ok {
		return ErrVendorNotFound
	}
	p.form.Open(&v)
	return nil
}

func (p *Page) FormOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form.IsOpen()
}

func (p *Page) FormTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form.Title()
}

func (p *Page) FormValues() models.VendorFields {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form.Buffer()
}

func (p *Page) UpdateField(field, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form.UpdateField(field, value)
}

func (p *Page) CancelForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.form.Close()
}

// History returns the change log of the vendor in the edit form.
func (p *Page) History() []models.HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form.History()
}

// HistorySummary describes the latest change of the vendor being edited.
// It is empty in add mode and for vendors without history.
func (p *Page) HistorySummary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.form.LastChange()
	if !ok {
		return ""
	}
	return fmt.Sprintf("Last updated on %s by %s", last.Timestamp.Local().Format(p.timeLayout), last.User)
}

// SubmitForm validates and saves the form. Only validation errors are returned;
// the form is closed before the store is called and storage failures go to the error handler.
func (p *Page) SubmitForm(ctx context.Context) error {
	p.mu.Lock()
	sub, err := p.form.take()
	p.mu.Unlock()
	if err != nil {
		return err
	}

	op := OpCreate
	if sub.isUpdate() {
		op = OpUpdate
	}
	if _, err := sub.send(ctx, p.store, p.actor()); err != nil {
		p.onError(op, err)
		return nil
	}
	if op == OpCreate {
		p.mu.Lock()
		p.sel.Clear()
		p.mu.Unlock()
	}
	return nil
}

// ToggleRow flips the selection of a listed vendor and reports whether it is now
// selected. Ids missing from the current list are ignored.
func (p *Page) ToggleRow(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.findLocked(id); !ok {
		return false
	}
	return p.sel.Toggle(id)
}

func (p *Page) ToggleAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sel.ToggleAll(p.vendors)
}

func (p *Page) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sel.IDs()
}

func (p *Page) IsSelected(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sel.Contains(id)
}

// AllSelected drives the header checkbox.
func (p *Page) AllSelected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sel.AllSelected(p.vendors)
}

// DeleteRow selects only id and opens the confirmation. An id missing from the
// current list returns ErrVendorNotFound and leaves the selection alone.
func (p *Page) DeleteRow(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.findLocked(id); !ok {
		return ErrVendorNotFound
	}
	p.del.RequestRow(&p.sel, id)
	return nil
}

// DeleteSelected opens the confirmation for the current selection.
func (p *Page) DeleteSelected() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.del.RequestBulk(&p.sel)
}

func (p *Page) CancelDelete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.del.Cancel()
}

// ConfirmDelete removes every selected vendor with a single store call and clears
// the selection. Storage failures go to the error handler.
func (p *Page) ConfirmDelete(ctx context.Context) error {
	p.mu.Lock()
	ids, err := p.del.take(&p.sel)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	n, err := p.store.Delete(ctx, ids)
	if err != nil {
		p.onError(OpDelete, err)
		return nil
	}
	p.logger.Debug("vendors deleted", zap.Int("requested", len(ids)), zap.Int("removed", n))
	return nil
}

func (p *Page) DeleteState() DeleteState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.del.State(&p.sel)
}

// BannerVisible reports whether the selection banner shows. It hides while a confirmation is open.
func (p *Page) BannerVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sel.Len() > 0 && !p.del.Pending()
}

func (p *Page) BannerText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%d vendor(s) selected", p.sel.Len())
}

func (p *Page) ConfirmPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("Are you sure you want to delete %d vendor(s)? This action cannot be undone.", p.sel.Len())
}
