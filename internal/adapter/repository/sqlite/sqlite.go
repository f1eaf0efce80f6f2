// Package sqlite implements the link store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/linkly/url-shortener/internal/adapter/repository"
	"github.com/linkly/url-shortener/internal/entity"
	"github.com/linkly/url-shortener/pkg/sqlite"
)

// linkRow mirrors repository.LinkRecord. SQLite can hand timestamps back as
// text when the declared column type is not visible to the driver, as with
// RETURNING, so they are scanned through timestamp.
type linkRow struct {
	ID            uuid.UUID `db:"id"`
	Code          string    `db:"code"`
	TargetURL     string    `db:"target_url"`
	Clicks        int64     `db:"clicks"`
	CreatedAt     timestamp `db:"created_at"`
	UpdatedAt     timestamp `db:"updated_at"`
	LastClickedAt timestamp `db:"last_clicked_at"`
}

func (r *linkRow) toEntity() *entity.Link {
	rec := repository.LinkRecord{
		ID:        r.ID,
		Code:      r.Code,
		TargetURL: r.TargetURL,
		Clicks:    r.Clicks,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if r.LastClickedAt.Valid {
		rec.LastClickedAt = &r.LastClickedAt.Time
	}
	return rec.ToEntity()
}

func nullable(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, link *entity.Link) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Save"
	const query = `INSERT INTO links (id, code, target_url, clicks, created_at, updated_at, last_clicked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + repository.Columns

	var row linkRow

	err := r.db.GetContext(ctx, &row, query,
		link.ID.String(), link.Code, link.TargetURL, link.Clicks, link.CreatedAt, link.UpdatedAt, nullable(link.LastClickedAt))
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return row.toEntity(), nil
}

// List matches case-insensitively by comparing Unicode case foldings.
func (r *LinkRepository) List(ctx context.Context, search string) ([]entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.List"
	const listQuery = `SELECT ` + repository.Columns + ` FROM links
		ORDER BY created_at DESC, id DESC`
	const searchQuery = `SELECT ` + repository.Columns + ` FROM links
		WHERE ` + sqlite.CaseFold + `(code) LIKE '%' || ` + sqlite.CaseFold + `(?) || '%' ESCAPE '\'
			OR ` + sqlite.CaseFold + `(target_url) LIKE '%' || ` + sqlite.CaseFold + `(?) || '%' ESCAPE '\'
		ORDER BY created_at DESC, id DESC`

	var (
		rows []linkRow
		err  error
	)

	if search == "" {
		err = r.db.SelectContext(ctx, &rows, listQuery)
	} else {
		pattern := repository.EscapeLike(search)
		err = r.db.SelectContext(ctx, &rows, searchQuery, pattern, pattern)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	return lo.Map(rows, func(row linkRow, _ int) entity.Link {
		return *row.toEntity()
	}), nil
}

func (r *LinkRepository) RetrieveByCode(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.RetrieveByCode"
	const query = `SELECT ` + repository.Columns + ` FROM links WHERE code = ?`

	var row linkRow

	if err := r.db.GetContext(ctx, &row, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *LinkRepository) IncrementClicks(ctx context.Context, code string, at time.Time) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.IncrementClicks"
	const query = `UPDATE links
		SET clicks = clicks + 1, last_clicked_at = ?, updated_at = ?
		WHERE code = ?
		RETURNING ` + repository.Columns

	var row linkRow

	if err := r.db.GetContext(ctx, &row, query, at, at, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *LinkRepository) Remove(ctx context.Context, code string) error {
	const op = "adapter.repository.sqlite.LinkRepository.Remove"
	const query = `DELETE FROM links WHERE code = ?`

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
