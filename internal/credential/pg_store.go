package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialconnect/internal/platform"
	"github.com/dropDatabas3/socialconnect/internal/security/secretbox"
)

// PGStore persists credentials in the oauth_credential table. When a box is
// set, access and refresh tokens are sealed before they reach the database.
type PGStore struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

// NewPGStore builds a PGStore. box may be nil (tokens stored in clear).
func NewPGStore(pool *pgxpool.Pool, box *secretbox.Box) *PGStore {
	return &PGStore{pool: pool, box: box}
}

func (s *PGStore) seal(v string) (string, error) {
	if s.box == nil {
		return v, nil
	}
	return s.box.Seal(v)
}

func (s *PGStore) open(v string) (string, error) {
	if s.box == nil {
		return v, nil
	}
	return s.box.Open(v)
}

func (s *PGStore) Get(ctx context.Context, userID string, p platform.Platform) (*Credential, error) {
	const query = `
		SELECT user_id, platform, access_token, refresh_token, token_type, expires_at, scope,
		       revoked_at, invalidated_at, created_at, updated_at, version
		FROM oauth_credential
		WHERE user_id = $1 AND platform = $2
	`
	var c Credential
	var pl string
	var refresh *string
	err := s.pool.QueryRow(ctx, query, userID, string(p)).Scan(
		&c.UserID, &pl, &c.AccessToken, &refresh, &c.TokenType, &c.ExpiresAt, &c.Scope,
		&c.RevokedAt, &c.InvalidatedAt, &c.CreatedAt, &c.UpdatedAt, &c.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential: get: %w", err)
	}
	c.Platform = platform.Platform(pl)

	if c.AccessToken, err = s.open(c.AccessToken); err != nil {
		return nil, fmt.Errorf("credential: open access token: %w", err)
	}
	if refresh != nil {
		if c.RefreshToken, err = s.open(*refresh); err != nil {
			return nil, fmt.Errorf("credential: open refresh token: %w", err)
		}
	}
	return &c, nil
}

func (s *PGStore) sealTokens(c *Credential) (access string, refresh *string, err error) {
	if access, err = s.seal(c.AccessToken); err != nil {
		return "", nil, fmt.Errorf("credential: seal access token: %w", err)
	}
	if c.RefreshToken != "" {
		sealed, err := s.seal(c.RefreshToken)
		if err != nil {
			return "", nil, fmt.Errorf("credential: seal refresh token: %w", err)
		}
		refresh = &sealed
	}
	return access, refresh, nil
}

func (s *PGStore) Upsert(ctx context.Context, c *Credential) error {
	access, refresh, err := s.sealTokens(c)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO oauth_credential (
			user_id, platform, access_token, refresh_token, token_type, expires_at, scope,
			revoked_at, invalidated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token   = EXCLUDED.access_token,
			refresh_token  = EXCLUDED.refresh_token,
			token_type     = EXCLUDED.token_type,
			expires_at     = EXCLUDED.expires_at,
			scope          = EXCLUDED.scope,
			revoked_at     = EXCLUDED.revoked_at,
			invalidated_at = EXCLUDED.invalidated_at,
			updated_at     = EXCLUDED.updated_at,
			version        = oauth_credential.version + 1
		RETURNING version
	`
	err = s.pool.QueryRow(ctx, query,
		c.UserID, string(c.Platform), access, refresh, c.TokenType, c.ExpiresAt, c.Scope,
		c.RevokedAt, c.InvalidatedAt, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.Version)
	if err != nil {
		return fmt.Errorf("credential: upsert: %w", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, c *Credential) error {
	access, refresh, err := s.sealTokens(c)
	if err != nil {
		return err
	}

	const query = `
		UPDATE oauth_credential SET
			access_token   = $3,
			refresh_token  = $4,
			token_type     = $5,
			expires_at     = $6,
			scope          = $7,
			revoked_at     = $8,
			invalidated_at = $9,
			updated_at     = $10,
			version        = version + 1
		WHERE user_id = $1 AND platform = $2 AND version = $11
		RETURNING version
	`
	var next int64
	err = s.pool.QueryRow(ctx, query,
		c.UserID, string(c.Platform), access, refresh, c.TokenType, c.ExpiresAt, c.Scope,
		c.RevokedAt, c.InvalidatedAt, c.UpdatedAt, c.Version,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		const existsQuery = `SELECT EXISTS (SELECT 1 FROM oauth_credential WHERE user_id = $1 AND platform = $2)`
		if err := s.pool.QueryRow(ctx, existsQuery, c.UserID, string(c.Platform)).Scan(&exists); err != nil {
			return fmt.Errorf("credential: update: %w", err)
		}
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("credential: update: %w", err)
	}
	c.Version = next
	return nil
}

func (s *PGStore) Delete(ctx context.Context, userID string, p platform.Platform) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM oauth_credential WHERE user_id = $1 AND platform = $2`, userID, string(p))
	if err != nil {
		return fmt.Errorf("credential: delete: %w", err)
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
