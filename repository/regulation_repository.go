package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmassist-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegulationRepository handles database operations for regulation documents
type RegulationRepository struct {
	db *pgxpool.Pool
}

// NewRegulationRepository creates a new regulation repository
func NewRegulationRepository(db *pgxpool.Pool) *RegulationRepository {
	return &RegulationRepository{db: db}
}

// Search performs a ranked full-text search over title and content.
// Any query term may match; ties in rank keep insertion order.
func (r *RegulationRepository) Search(ctx context.Context, query string, limit int) ([]models.RegulationDocument, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	// plainto_tsquery ANDs the terms; swapping the operators gives OR matching
	sql := `
		WITH q AS (
			SELECT NULLIF(replace(plainto_tsquery('english', $1)::text, '&', '|'), '') AS expr
		)
		SELECT
			r.id,
			r.title,
			r.content,
			r.category,
			r.source,
			r.last_updated,
			ts_rank(r.search_vector, to_tsquery('english', q.expr)) AS score
		FROM regulations r, q
		WHERE
			q.expr IS NOT NULL
			AND r.search_vector @@ to_tsquery('english', q.expr)
		ORDER BY
			score DESC,
			r.created_at ASC,
			r.id ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search regulations: %w", err)
	}
	defer rows.Close()

	return scanRegulations(rows, true)
}

// Upsert inserts doc, or replaces the content of the regulation with the same title
func (r *RegulationRepository) Upsert(ctx context.Context, doc *models.RegulationDocument) error {
	if doc.Category == "" {
		doc.Category = models.CategoryGeneral
	}
	if doc.LastUpdated.IsZero() {
		doc.LastUpdated = time.Now().UTC()
	}

	query := `
		INSERT INTO regulations (title, content, category, source, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE SET
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			source = EXCLUDED.source,
			last_updated = EXCLUDED.last_updated
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		strings.TrimSpace(doc.Title),
		doc.Content,
		doc.Category,
		doc.Source,
		doc.LastUpdated,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert regulation %q: %w", doc.Title, err)
	}
	return nil
}

// List returns every regulation in insertion order
func (r *RegulationRepository) List(ctx context.Context) ([]models.RegulationDocument, error) {
	query := `
		SELECT id, title, content, category, source, last_updated
		FROM regulations
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list regulations: %w", err)
	}
	defer rows.Close()

	return scanRegulations(rows, false)
}

func scanRegulations(rows pgx.Rows, withScore bool) ([]models.RegulationDocument, error) {
	var docs []models.RegulationDocument
	for rows.Next() {
		var doc models.RegulationDocument
		var score float32
		dest := []any{
			&doc.ID,
			&doc.Title,
			&doc.Content,
			&doc.Category,
			&doc.Source,
			&doc.LastUpdated,
		}
		if withScore {
			dest = append(dest, &score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan regulation: %w", err)
		}
		doc.Score = float64(score)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating regulations: %w", err)
	}
	return docs, nil
}
