package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-auth-bearer"
)

// IdentityModel is the Bun model for identities.
type IdentityModel struct {
	bun.BaseModel `bun:"table:identities"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Name         string    `bun:"name,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	Hash         string    `bun:"hash"`
	PasswordHash string    `bun:"password_hash"`
	IsAdmin      bool      `bun:"is_admin,notnull"`
	Active       bool      `bun:"active,notnull"`
	Roles        []string  `bun:"roles,type:jsonb"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Record converts the model into the shape consumed by the authenticators.
func (m *IdentityModel) Record() *auth.IdentityRecord {
	roles := make([]string, len(m.Roles))
	copy(roles, m.Roles)
	return &auth.IdentityRecord{
		ID:      m.ID,
		Name:    m.Name,
		Email:   m.Email,
		Hash:    m.Hash,
		IsAdmin: m.IsAdmin,
		Active:  m.Active,
		Roles:   roles,
	}
}

// Open connects to a SQLite database through the bun sqlite shim.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open identity database")
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Identities implements auth.IdentitySource using Bun.
type Identities struct {
	db *bun.DB
}

var _ auth.IdentitySource = (*Identities)(nil)

// NewIdentities creates a new repository.
func NewIdentities(db *bun.DB) *Identities {
	return &Identities{db: db}
}

// CreateSchema creates the identities table when missing.
func (r *Identities) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*IdentityModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create identities table")
	}
	return nil
}

// FindByID implements auth.IdentitySource.
func (r *Identities) FindByID(ctx context.Context, userID int64) (*auth.IdentityRecord, error) {
	model := new(IdentityModel)
	err := r.db.NewSelect().
		Model(model).
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, map[string]any{"id": userID})
	}
	return model.Record(), nil
}

// FindByEmail implements auth.IdentitySource. Emails match case insensitively.
func (r *Identities) FindByEmail(ctx context.Context, email string) (*auth.IdentityRecord, error) {
	model := new(IdentityModel)
	err := r.db.NewSelect().
		Model(model).
		Where("email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapError(err, map[string]any{"email": email})
	}
	return model.Record(), nil
}

// Create inserts a new identity and returns it with its generated id.
func (r *Identities) Create(ctx context.Context, model *IdentityModel) (*IdentityModel, error) {
	if model == nil {
		return nil, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}
	model.Email = normalizeEmail(model.Email)
	if model.Email == "" {
		return nil, goerrors.New("identity email is required", goerrors.CategoryValidation)
	}

	_, err := r.db.NewInsert().
		Model(model).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create identity")
	}
	return model, nil
}

// Upsert creates the identity or updates the one registered under the same
// email.
func (r *Identities) Upsert(ctx context.Context, model *IdentityModel) (*IdentityModel, error) {
	if model == nil {
		return nil, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}
	model.Email = normalizeEmail(model.Email)
	if model.Email == "" {
		return nil, goerrors.New("identity email is required", goerrors.CategoryValidation)
	}
	model.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (email) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("hash = EXCLUDED.hash").
		Set("password_hash = EXCLUDED.password_hash").
		Set("is_admin = EXCLUDED.is_admin").
		Set("active = EXCLUDED.active").
		Set("roles = EXCLUDED.roles").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to upsert identity")
	}
	return model, nil
}

// SetActive toggles the active flag of an identity.
func (r *Identities) SetActive(ctx context.Context, userID int64, active bool) error {
	res, err := r.db.NewUpdate().
		Model((*IdentityModel)(nil)).
		Set("active = ?", active).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update identity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapError(sql.ErrNoRows, map[string]any{"id": userID})
	}
	return nil
}

func mapError(err error, meta map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "identity not found").
			WithTextCode("IDENTITY_NOT_FOUND").
			WithCode(goerrors.CodeNotFound).
			WithMetadata(meta)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load identity").
		WithMetadata(meta)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
