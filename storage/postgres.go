package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"listflow/models"
)

// PostgresCreator creates listings directly against the database, for
// deployments that bypass the REST layer. The insert of the listing row
// and its media/document associations happens in one transaction so the
// caller sees all-or-nothing, same as the RPC path.
type PostgresCreator struct {
	pool *pgxpool.Pool
}

func NewPostgresCreator(ctx context.Context, connString string) (*PostgresCreator, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresCreator{pool: pool}, nil
}

func (p *PostgresCreator) Close() {
	p.pool.Close()
}

func (p *PostgresCreator) CreateListing(ctx context.Context, payload *models.ListingPayload) (string, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	query := `
		INSERT INTO listings (id, owner_id, slug, reference, property, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`

	if err := tx.QueryRow(ctx, query,
		id, payload.OwnerID, payload.Slug, payload.Reference, payload.Property,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("insert listing: %w", err)
	}

	for _, m := range payload.Media {
		_, err := tx.Exec(ctx, `
			INSERT INTO listing_media (listing_id, url, media_type, position, is_cover)
			VALUES ($1, $2, $3, $4, $5)`,
			id, m.URL, string(m.Type), m.Order, m.IsCover)
		if err != nil {
			return "", fmt.Errorf("insert media: %w", err)
		}
	}

	for _, d := range payload.Documents {
		_, err := tx.Exec(ctx, `
			INSERT INTO listing_documents (listing_id, url, name, size_bytes)
			VALUES ($1, $2, $3, $4)`,
			id, d.URL, d.Name, d.Size)
		if err != nil {
			return "", fmt.Errorf("insert document: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id.String(), nil
}
