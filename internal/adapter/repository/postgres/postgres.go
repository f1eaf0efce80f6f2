// Package postgres implements the link store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/linkly/url-shortener/internal/adapter/repository"
	"github.com/linkly/url-shortener/internal/entity"
	"github.com/linkly/url-shortener/pkg/postgres"
)

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, link *entity.Link) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.Save"
	const query = `INSERT INTO links (id, code, target_url, clicks, created_at, updated_at, last_clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + repository.Columns

	var rec repository.LinkRecord

	err := r.db.GetContext(ctx, &rec, query,
		link.ID, link.Code, link.TargetURL, link.Clicks, link.CreatedAt, link.UpdatedAt, link.LastClickedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return rec.ToEntity(), nil
}

func (r *LinkRepository) List(ctx context.Context, search string) ([]entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.List"
	const listQuery = `SELECT ` + repository.Columns + ` FROM links
		ORDER BY created_at DESC, id DESC`
	const searchQuery = `SELECT ` + repository.Columns + ` FROM links
		WHERE code ILIKE '%' || $1 || '%' ESCAPE '\'
			OR target_url ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at DESC, id DESC`

	var (
		recs []repository.LinkRecord
		err  error
	)

	if search == "" {
		err = r.db.SelectContext(ctx, &recs, listQuery)
	} else {
		err = r.db.SelectContext(ctx, &recs, searchQuery, repository.EscapeLike(search))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	return repository.ToEntities(recs), nil
}

func (r *LinkRepository) RetrieveByCode(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.RetrieveByCode"
	const query = `SELECT ` + repository.Columns + ` FROM links WHERE code = $1`

	var rec repository.LinkRecord

	if err := r.db.GetContext(ctx, &rec, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return rec.ToEntity(), nil
}

// IncrementClicks counts one click in a single statement, so concurrent
// redirects of the same code never lose updates.
func (r *LinkRepository) IncrementClicks(ctx context.Context, code string, at time.Time) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.IncrementClicks"
	const query = `UPDATE links
		SET clicks = clicks + 1, last_clicked_at = $1, updated_at = $1
		WHERE code = $2
		RETURNING ` + repository.Columns

	var rec repository.LinkRecord

	if err := r.db.GetContext(ctx, &rec, query, at, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return rec.ToEntity(), nil
}

func (r *LinkRepository) Remove(ctx context.Context, code string) error {
	const op = "adapter.repository.postgres.LinkRepository.Remove"
	const query = `DELETE FROM links WHERE code = $1`

	res, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("%s: failed to delete from links table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return nil
}
