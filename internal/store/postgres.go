package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"era-vendors-api/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const vendorColumns = `id, name, contact_person, email, phone, address, created_at, updated_at`

// PostgresStore persists vendors and their history in Postgres. Subscribers
// only see mutations made through this instance.
type PostgresStore struct {
	broadcaster

	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger.Named("store.postgres")}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (models.Vendor, error) {
	var v models.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.ContactPerson, &v.Email, &v.Phone, &v.Address, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachHistory(ctx, vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Vendor, error) {
	v, err := scanVendor(s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vendor{}, ErrNotFound
	}
	if err != nil {
		return models.Vendor{}, fmt.Errorf("get vendor %s: %w", id, err)
	}
	one := []models.Vendor{v}
	if err := s.attachHistory(ctx, one); err != nil {
		return models.Vendor{}, err
	}
	return one[0], nil
}

// attachHistory loads the history of all given vendors in one query, newest first.
func (s *PostgresStore) attachHistory(ctx context.Context, vendors []models.Vendor) error {
	if len(vendors) == 0 {
		return nil
	}
	ids := make([]string, len(vendors))
	index := make(map[string]int, len(vendors))
	for i, v := range vendors {
		ids[i] = v.ID
		index[v.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT vendor_id, changed_at, actor, action
		FROM vendor_history
		WHERE vendor_id = ANY($1)
		ORDER BY changed_at DESC, id DESC`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load vendor history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vendorID string
		var e models.HistoryEntry
		if err := rows.Scan(&vendorID, &e.Timestamp, &e.User, &e.Action); err != nil {
			return fmt.Errorf("scan vendor history: %w", err)
		}
		if i, ok := index[vendorID]; ok {
			vendors[i].History = append(vendors[i].History, e)
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, fields models.VendorFields, actor string) (models.Vendor, error) {
	actor = normalizeActor(actor)
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vendor{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vendors (id, name, contact_person, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, fields.Name, fields.ContactPerson, fields.Email, fields.Phone, fields.Address); err != nil {
		return models.Vendor{}, fmt.Errorf("insert vendor: %w", err)
	}
	if err := insertHistory(ctx, tx, id, actor, actionCreated); err != nil {
		return models.Vendor{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Vendor{}, err
	}

	s.logger.Info("vendor created", zap.String("vendor_id", id), zap.String("actor", actor))
	s.publishLatest(ctx)
	return s.Get(ctx, id)
}

func (s *PostgresStore) Update(ctx context.Context, in models.Vendor, actor string) (models.Vendor, error) {
	actor = normalizeActor(actor)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Vendor{}, err
	}
	defer tx.Rollback()

	current, err := scanVendor(tx.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1 FOR UPDATE`, in.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vendor{}, ErrNotFound
	}
	if err != nil {
		return models.Vendor{}, fmt.Errorf("lock vendor %s: %w", in.ID, err)
	}

	changed := current.VendorFields.Diff(in.VendorFields)
	if _, err := tx.ExecContext(ctx, `
		UPDATE vendors
		SET name = $1, contact_person = $2, email = $3, phone = $4, address = $5, updated_at = now()
		WHERE id = $6`,
		in.Name, in.ContactPerson, in.Email, in.Phone, in.Address, in.ID); err != nil {
		return models.Vendor{}, fmt.Errorf("update vendor %s: %w", in.ID, err)
	}
	if err := insertHistory(ctx, tx, in.ID, actor, updateAction(changed)); err != nil {
		return models.Vendor{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Vendor{}, err
	}

	s.logger.Info("vendor updated",
		zap.String("vendor_id", in.ID),
		zap.String("actor", actor),
		zap.Strings("changed", changed),
	)
	s.publishLatest(ctx)
	return s.Get(ctx, in.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete vendors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	s.logger.Info("vendors deleted", zap.Int("requested", len(ids)), zap.Int64("removed", n))
	if n > 0 {
		s.publishLatest(ctx)
	}
	return int(n), nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, vendorID, actor, action string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO vendor_history (vendor_id, actor, action) VALUES ($1, $2, $3)`,
		vendorID, actor, action)
	if err != nil {
		return fmt.Errorf("insert vendor history: %w", err)
	}
	return nil
}

func (s *PostgresStore) publishLatest(ctx context.Context) {
	if !s.hasListeners() {
		return
	}
	// numbered before reading, so a later number always reads a state at least as new
	seq := s.nextSeq()
	vendors, err := s.List(ctx)
	if err != nil {
		s.logger.Warn("reload vendors for subscribers", zap.Error(err))
		return
	}
	s.publish(seq, vendors)
}

// PostgresUserStore reads accounts from the users table.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	var firstName, lastName sql.NullString
	var lastLoginAt sql.NullTime
	var roles pq.StringArray

	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, roles, is_active,
		       created_at, updated_at, last_login_at
		FROM users
		WHERE lower(email) = lower($1) AND is_active = true`, strings.TrimSpace(email)).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &firstName, &lastName,
		&roles, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	user.Roles = roles
	return &user, nil
}

func (s *PostgresUserStore) RecordLogin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login_at = now() WHERE id = $1", userID)
	return err
}
