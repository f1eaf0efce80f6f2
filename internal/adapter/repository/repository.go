// Package repository holds what the SQL link stores have in common: the row
// layout of the links table and LIKE pattern escaping.
package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/linkly/url-shortener/internal/entity"
)

// LinkRecord is a row of the links table.
type LinkRecord struct {
	ID            uuid.UUID  `db:"id"`
	Code          string     `db:"code"`
	TargetURL     string     `db:"target_url"`
	Clicks        int64      `db:"clicks"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	LastClickedAt *time.Time `db:"last_clicked_at"`
}

// Columns lists the links table columns in the order scanned into LinkRecord.
const Columns = "id, code, target_url, clicks, created_at, updated_at, last_clicked_at"

func (r *LinkRecord) ToEntity() *entity.Link {
	return &entity.Link{
		ID:            r.ID,
		Code:          r.Code,
		TargetURL:     r.TargetURL,
		Clicks:        r.Clicks,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		LastClickedAt: utcPtr(r.LastClickedAt),
	}
}

// ToEntities converts rows preserving their order.
func ToEntities(records []LinkRecord) []entity.Link {
	return lo.Map(records, func(r LinkRecord, _ int) entity.Link {
		return *r.ToEntity()
	})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards in s so it matches literally when used
// with ESCAPE '\'.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}
