package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"era-vendors-api/internal/config"
	"era-vendors-api/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Stores bundles what Open returns. Close releases the database, if any.
type Stores struct {
	Vendors VendorStore
	Users   UserStore
	DB      *sql.DB
}

func (s *Stores) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// Open connects to Postgres and applies migrations when cfg.DatabaseURL is set.
// Otherwise it returns in-memory stores with the config file's users.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DatabaseURL == "" {
		logger.Warn("DB_DSN not set, vendors are kept in memory")
		return &Stores{
			Vendors: NewMemoryStore(logger),
			Users:   NewMemoryUserStore(SeedUsers(cfg.Users)),
		}, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	applied, err := Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("files", applied))
	}

	return &Stores{
		Vendors: NewPostgresStore(db, logger),
		Users:   NewPostgresUserStore(db),
		DB:      db,
	}, nil
}

// SeedUsers turns config file accounts into active users numbered from 1.
func SeedUsers(seeds []config.SeedUser) []models.User {
	users := make([]models.User, 0, len(seeds))
	now := time.Now()
	for i, s := range seeds {
		u := models.User{
			ID:           int64(i + 1),
			Email:        strings.TrimSpace(s.Email),
			PasswordHash: s.PasswordHash,
			Roles:        s.Roles,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if s.FirstName != "" {
			first := s.FirstName
			u.FirstName = &first
		}
		if s.LastName != "" {
			last := s.LastName
			u.LastName = &last
		}
		if len(u.Roles) == 0 {
			u.Roles = []string{models.RoleViewer}
		}
		users = append(users, u)
	}
	return users
}
