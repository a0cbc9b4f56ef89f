/*
Package title provides the PostgreSQL implementation for the catalogue's
parent aggregate.

The counter adjustments lean on PostgreSQL's atomic UPDATE semantics:
GREATEST(chaptercount + delta, 0) evaluated inside the row update is what
keeps concurrent create/delete of sibling chapters race-free.
*/
package title

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/platform/database/schema"
	"github.com/taibuivan/mangetsu/internal/platform/dberr"
)

// # PostgreSQL Repository

// titleRepository implements the [Repository] interface using pgx.
type titleRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed title store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &titleRepository{pool: pool}
}

/*
Create inserts a new title record.

Parameters:
  - ctx: context.Context
  - title: *Title (ID, OwnerID, Name, Slug, RawCount populated)

Returns:
  - error: CONFLICT on duplicate slug, otherwise wrapped storage errors
*/
func (repository *titleRepository) Create(ctx context.Context, title *Title) error {

	// Parameterized insert over the schema definitions
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		schema.CoreTitle.Table,
		schema.CoreTitle.ID,
		schema.CoreTitle.OwnerID,
		schema.CoreTitle.Name,
		schema.CoreTitle.Slug,
		schema.CoreTitle.ChapterCount,
		schema.CoreTitle.RawCount,
		schema.CoreTitle.Progress,
	)

	_, err := repository.pool.Exec(ctx, query,
		title.ID,
		title.OwnerID,
		title.Name,
		title.Slug,
		title.ChapterCount,
		title.RawCount,
		title.Progress,
	)
	if err != nil {
		return dberr.Wrap(err, "create title")
	}

	return nil
}

/*
FindByID returns the live title identified by id.

Returns:
  - *Title: The hydrated aggregate
  - error: apperr.NotFound on absent or soft-deleted rows
*/
func (repository *titleRepository) FindByID(ctx context.Context, id string) (*Title, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL
	`,
		schema.CoreTitle.ID, schema.CoreTitle.OwnerID, schema.CoreTitle.Name, schema.CoreTitle.Slug,
		schema.CoreTitle.ChapterCount, schema.CoreTitle.RawCount, schema.CoreTitle.Progress,
		schema.CoreTitle.CreatedAt, schema.CoreTitle.UpdatedAt,
		schema.CoreTitle.Table,
		schema.CoreTitle.ID, schema.CoreTitle.DeletedAt,
	)

	var title Title
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&title.ID,
		&title.OwnerID,
		&title.Name,
		&title.Slug,
		&title.ChapterCount,
		&title.RawCount,
		&title.Progress,
		&title.CreatedAt,
		&title.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Title")
		}
		return nil, dberr.Wrap(err, "find title")
	}

	return &title, nil
}

/*
List returns a page of live titles ordered by creation time (newest first),
plus the total count via a window function to avoid a second round-trip.
*/
func (repository *titleRepository) List(ctx context.Context, limit, offset int) ([]*Title, int, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s,
			COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s IS NULL
		ORDER BY %s DESC
		LIMIT $1 OFFSET $2
	`,
		schema.CoreTitle.ID, schema.CoreTitle.OwnerID, schema.CoreTitle.Name, schema.CoreTitle.Slug,
		schema.CoreTitle.ChapterCount, schema.CoreTitle.RawCount, schema.CoreTitle.Progress,
		schema.CoreTitle.CreatedAt, schema.CoreTitle.UpdatedAt,
		schema.CoreTitle.Table,
		schema.CoreTitle.DeletedAt,
		schema.CoreTitle.CreatedAt,
	)

	rows, err := repository.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list titles")
	}
	defer rows.Close()

	var titles []*Title
	var totalCount int

	for rows.Next() {
		var title Title
		err := rows.Scan(
			&title.ID,
			&title.OwnerID,
			&title.Name,
			&title.Slug,
			&title.ChapterCount,
			&title.RawCount,
			&title.Progress,
			&title.CreatedAt,
			&title.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan title")
		}
		titles = append(titles, &title)
	}

	return titles, totalCount, nil
}

// # Aggregate Maintenance

/*
AdjustChapterCount atomically applies delta to the chapter counter.

Description: The GREATEST(..., 0) floor is evaluated inside the UPDATE, so
two concurrent decrements on a one-chapter title both land on zero and the
counter can never go negative. RETURNING hands back the post-adjustment pair
needed to derive progress without a second read.

Returns:
  - int: chapterCount after the adjustment
  - int: rawCount (unchanged, returned for progress derivation)
  - error: apperr.NotFound when the title row is missing
*/
func (repository *titleRepository) AdjustChapterCount(ctx context.Context, id string, delta int) (int, int, error) {

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = GREATEST(%s + $1, 0), %s = NOW()
		WHERE %s = $2 AND %s IS NULL
		RETURNING %s, %s
	`,
		schema.CoreTitle.Table,
		schema.CoreTitle.ChapterCount, schema.CoreTitle.ChapterCount, schema.CoreTitle.UpdatedAt,
		schema.CoreTitle.ID, schema.CoreTitle.DeletedAt,
		schema.CoreTitle.ChapterCount, schema.CoreTitle.RawCount,
	)

	var chapterCount, rawCount int
	err := repository.pool.QueryRow(ctx, query, delta, id).Scan(&chapterCount, &rawCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, apperr.NotFound("Title")
		}
		return 0, 0, dberr.Wrap(err, "adjust chapter count")
	}

	return chapterCount, rawCount, nil
}

/*
SetProgress writes the derived progress percentage in its own update.

Description: Deliberately separate from AdjustChapterCount — progress is
always re-derivable from (chaptercount, rawcount), so a crash between the
two writes degrades to a recomputable inconsistency, never a wrong counter.
*/
func (repository *titleRepository) SetProgress(ctx context.Context, id string, progress float64) error {

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = NOW()
		WHERE %s = $2 AND %s IS NULL
	`,
		schema.CoreTitle.Table,
		schema.CoreTitle.Progress, schema.CoreTitle.UpdatedAt,
		schema.CoreTitle.ID, schema.CoreTitle.DeletedAt,
	)

	result, err := repository.pool.Exec(ctx, query, progress, id)
	if err != nil {
		return dberr.Wrap(err, "set progress")
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Title")
	}

	return nil
}
