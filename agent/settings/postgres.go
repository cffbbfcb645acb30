package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN         string        `envconfig:"DSN" required:"true"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	AutoMigrate bool          `envconfig:"AUTO_MIGRATE" split_words:"true" default:"true"`
}

type settingsRow struct {
	bun.BaseModel `bun:"table:summarizer_settings,alias:ss"`

	Profile           string    `bun:"profile,pk"`
	APIKey            string    `bun:"api_key,notnull"`
	CustomInstruction string    `bun:"custom_instruction,notnull"`
	UpdatedAt         time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// PostgresStore keeps one settings row per profile.
type PostgresStore struct {
	db      *bun.DB
	profile string
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig, profile string) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithDialTimeout(dialTimeout),
	))
	store := NewPostgresStoreFromDB(bun.NewDB(sqldb, pgdialect.New()), profile)

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an existing bun handle.
func NewPostgresStoreFromDB(db *bun.DB, profile string) *PostgresStore {
	return &PostgresStore{db: db, profile: profileName(profile)}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*settingsRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Settings, error) {
	var row settingsRow
	err := s.db.NewSelect().
		Model(&row).
		Where("profile = ?", s.profile).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("select settings: %w", err)
	}
	return Settings{
		APIKey:            row.APIKey,
		CustomInstruction: row.CustomInstruction,
	}, nil
}

// Save upserts the row; on conflict only the patched columns change.
func (s *PostgresStore) Save(ctx context.Context, patch Patch) error {
	if patch.Empty() {
		return nil
	}

	row := &settingsRow{
		Profile:   s.profile,
		UpdatedAt: time.Now().UTC(),
	}
	row.APIKey = derefOr(patch.APIKey, "")
	row.CustomInstruction = derefOr(patch.CustomInstruction, "")

	q := s.db.NewInsert().
		Model(row).
		On("CONFLICT (profile) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at")
	if patch.APIKey != nil {
		q = q.Set("api_key = EXCLUDED.api_key")
	}
	if patch.CustomInstruction != nil {
		q = q.Set("custom_instruction = EXCLUDED.custom_instruction")
	}

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
