package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"era-vendors-api/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore keeps vendors in process. It is used when no database is configured and in tests.
type MemoryStore struct {
	broadcaster

	mu      sync.RWMutex
	vendors map[string]*models.Vendor
	order   []string

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewMemoryStore returns an empty store. A nil logger disables logging.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		vendors: make(map[string]*models.Vendor),
		logger:  logger.Named("store.memory"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[id]
	if !ok {
		return models.Vendor{}, ErrNotFound
	}
	return v.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, fields models.VendorFields, actor string) (models.Vendor, error) {
	if err := ctx.Err(); err != nil {
		return models.Vendor{}, err
	}
	actor = normalizeActor(actor)

	s.mu.Lock()
	now := s.now()
	v := &models.Vendor{
		ID:           s.newID(),
		VendorFields: fields,
		History:      []models.HistoryEntry{{Timestamp: now, User: actor, Action: actionCreated}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.vendors[v.ID] = v
	s.order = append(s.order, v.ID)
	out := v.Clone()
	seq, snapshot := s.nextSeq(), s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("vendor created", zap.String("vendor_id", out.ID), zap.String("actor", actor))
	s.publish(seq, snapshot)
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, in models.Vendor, actor string) (models.Vendor, error) {
	if err := ctx.Err(); err != nil {
		return models.Vendor{}, err
	}
	actor = normalizeActor(actor)

	s.mu.Lock()
	v, ok := s.vendors[in.ID]
	if !ok {
		s.mu.Unlock()
		return models.Vendor{}, ErrNotFound
	}
	now := s.now()
	changed := v.VendorFields.Diff(in.VendorFields)
	v.VendorFields = in.VendorFields
	v.UpdatedAt = now
	entry := models.HistoryEntry{Timestamp: now, User: actor, Action: updateAction(changed)}
	v.History = append([]models.HistoryEntry{entry}, v.History...)
	out := v.Clone()
	seq, snapshot := s.nextSeq(), s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("vendor updated",
		zap.String("vendor_id", out.ID),
		zap.String("actor", actor),
		zap.Strings("changed", changed),
	)
	s.publish(seq, snapshot)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	removed := 0
	for _, id := range ids {
		if _, ok := s.vendors[id]; ok {
			delete(s.vendors, id)
			removed++
		}
	}
	if removed > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, ok := s.vendors[id]; ok {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	seq, snapshot := s.nextSeq(), s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("vendors deleted", zap.Int("requested", len(ids)), zap.Int("removed", removed))
	if removed > 0 {
		s.publish(seq, snapshot)
	}
	return removed, nil
}

func (s *MemoryStore) snapshotLocked() []models.Vendor {
	out := make([]models.Vendor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.vendors[id].Clone())
	}
	return out
}

// MemoryUserStore serves logins for accounts declared in the config file.
type MemoryUserStore struct {
	mu    sync.Mutex
	users []models.User
	now   func() time.Time
}

func NewMemoryUserStore(users []models.User) *MemoryUserStore {
	return &MemoryUserStore{users: users, now: time.Now}
}

func (s *MemoryUserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		u := s.users[i]
		if u.IsActive && strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) RecordLogin(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == userID {
			now := s.now()
			s.users[i].LastLoginAt = &now
			return nil
		}
	}
	return ErrUserNotFound
}
