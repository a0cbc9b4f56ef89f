/*
Package chapter provides the PostgreSQL implementation for chapter storage.

Chapters and their page lists are written together inside ACID transactions:
a chapter row is never visible without its pages. Page replacement uses a
clear-and-insert strategy batched through the native pgx.Batch pipeline to
bound network round-trips.
*/
package chapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mangetsu/internal/platform/apperr"
	"github.com/taibuivan/mangetsu/internal/platform/database/schema"
	"github.com/taibuivan/mangetsu/internal/platform/dberr"
	"github.com/taibuivan/mangetsu/pkg/uuid"
)

// # PostgreSQL Repository

// chapterRepository implements the [Repository] interface using pgx.
type chapterRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed chapter store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &chapterRepository{pool: pool}
}

/*
Create persists a chapter and its page list in one transaction.

Description: The chapter row and every page row commit together. A unique
constraint violation on (titleid, chapternumber) surfaces as CONFLICT; this
is the authoritative guard against concurrent creates racing the fast-path
uniqueness check.

Parameters:
  - ctx: context.Context
  - chapter: *Chapter (ID, TitleID, Number, Name, Thumbnail, Pages populated)

Returns:
  - error: CONFLICT on duplicate chapter number, otherwise wrapped storage errors
*/
func (repository *chapterRepository) Create(ctx context.Context, chapter *Chapter) error {

	// Transaction boundary: chapter row plus pages commit atomically
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.ID,
		schema.CoreChapter.TitleID,
		schema.CoreChapter.Number,
		schema.CoreChapter.Name,
		schema.CoreChapter.Thumbnail,
	)

	_, err = transaction.Exec(ctx, query,
		chapter.ID,
		chapter.TitleID,
		chapter.Number,
		chapter.Name,
		chapter.Thumbnail,
	)
	if err != nil {
		return dberr.Wrap(err, "create chapter")
	}

	if err := insertPages(ctx, transaction, chapter.ID, chapter.Pages); err != nil {
		return err
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: failed to commit create transaction: %w", err)
	}

	return nil
}

/*
FindByID returns a chapter with its pages ordered by page number.

Returns:
  - *Chapter: The hydrated chapter
  - error: apperr.NotFound when absent
*/
func (repository *chapterRepository) FindByID(ctx context.Context, id string) (*Chapter, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.CoreChapter.ID, schema.CoreChapter.TitleID, schema.CoreChapter.Number,
		schema.CoreChapter.Name, schema.CoreChapter.Thumbnail,
		schema.CoreChapter.CreatedAt, schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.Table,
		schema.CoreChapter.ID,
	)

	var chapter Chapter
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&chapter.ID,
		&chapter.TitleID,
		&chapter.Number,
		&chapter.Name,
		&chapter.Thumbnail,
		&chapter.CreatedAt,
		&chapter.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Chapter")
		}
		return nil, dberr.Wrap(err, "find chapter")
	}

	pages, err := repository.findPages(ctx, id)
	if err != nil {
		return nil, err
	}
	chapter.Pages = pages

	return &chapter, nil
}

/*
ListByTitle returns a page of chapters ordered by chapter number ascending.

Description: Page lists are deliberately omitted; listing is a navigation
surface, and hydrating every page row would turn a roster query into a
full-catalogue scan.
*/
func (repository *chapterRepository) ListByTitle(ctx context.Context, titleID string, limit, offset int) ([]*Chapter, int, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s,
			COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
		LIMIT $2 OFFSET $3
	`,
		schema.CoreChapter.ID, schema.CoreChapter.TitleID, schema.CoreChapter.Number,
		schema.CoreChapter.Name, schema.CoreChapter.Thumbnail,
		schema.CoreChapter.CreatedAt, schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.Table,
		schema.CoreChapter.TitleID,
		schema.CoreChapter.Number,
	)

	rows, err := repository.pool.Query(ctx, query, titleID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list chapters")
	}
	defer rows.Close()

	var chapters []*Chapter
	var totalCount int

	for rows.Next() {
		var chapter Chapter
		err := rows.Scan(
			&chapter.ID,
			&chapter.TitleID,
			&chapter.Number,
			&chapter.Name,
			&chapter.Thumbnail,
			&chapter.CreatedAt,
			&chapter.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan chapter")
		}
		chapters = append(chapters, &chapter)
	}

	return chapters, totalCount, nil
}

/*
ExistsByNumber reports whether a sibling chapter already uses the number.

Parameters:
  - ctx: context.Context
  - titleID: string
  - number: float64
  - excludeID: string (skip this chapter when editing; "" on create)

Returns:
  - bool: true when the number is taken
  - error: Storage errors
*/
func (repository *chapterRepository) ExistsByNumber(ctx context.Context, titleID string, number float64, excludeID string) (bool, error) {

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE %s = $1 AND %s = $2 AND %s <> $3
		)
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.TitleID, schema.CoreChapter.Number, schema.CoreChapter.ID,
	)

	var exists bool
	if err := repository.pool.QueryRow(ctx, query, titleID, number, excludeID).Scan(&exists); err != nil {
		return false, dberr.Wrap(err, "check chapter number")
	}

	return exists, nil
}

/*
Update rewrites the chapter row and replaces its page list.

Description: Pages use clear-and-insert inside the same transaction as the
row update, so readers never observe a half-renumbered page list.

Returns:
  - error: apperr.NotFound when the chapter is gone, CONFLICT on a
    renumbering race, otherwise wrapped storage errors
*/
func (repository *chapterRepository) Update(ctx context.Context, chapter *Chapter) error {

	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer transaction.Rollback(ctx)

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = NOW()
		WHERE %s = $4
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.Number, schema.CoreChapter.Name, schema.CoreChapter.Thumbnail,
		schema.CoreChapter.UpdatedAt,
		schema.CoreChapter.ID,
	)

	result, err := transaction.Exec(ctx, query,
		chapter.Number,
		chapter.Name,
		chapter.Thumbnail,
		chapter.ID,
	)
	if err != nil {
		return dberr.Wrap(err, "update chapter")
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Chapter")
	}

	// Clear and insert the page list
	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		schema.CorePage.Table, schema.CorePage.ChapterID,
	)
	if _, err := transaction.Exec(ctx, deleteQuery, chapter.ID); err != nil {
		return dberr.Wrap(err, "clear pages")
	}

	if err := insertPages(ctx, transaction, chapter.ID, chapter.Pages); err != nil {
		return err
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: failed to commit update transaction: %w", err)
	}

	return nil
}

/*
Delete removes the chapter record.

Description: Page rows are removed by the ON DELETE CASCADE on
core.page.chapterid; object cleanup in the content store is the caller's
responsibility.

Returns:
  - error: apperr.NotFound when already gone
*/
func (repository *chapterRepository) Delete(ctx context.Context, id string) error {

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		schema.CoreChapter.Table, schema.CoreChapter.ID,
	)

	result, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete chapter")
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Chapter")
	}

	return nil
}

// # Internal Helpers

// findPages loads a chapter's pages ordered by page number.
func (repository *chapterRepository) findPages(ctx context.Context, chapterID string) ([]Page, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.CorePage.PageNumber, schema.CorePage.ImageURL,
		schema.CorePage.Table,
		schema.CorePage.ChapterID,
		schema.CorePage.PageNumber,
	)

	rows, err := repository.pool.Query(ctx, query, chapterID)
	if err != nil {
		return nil, dberr.Wrap(err, "find pages")
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var page Page
		if err := rows.Scan(&page.PageNumber, &page.Image); err != nil {
			return nil, dberr.Wrap(err, "scan page")
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// insertPages queues every page row through the pgx.Batch pipeline.
func insertPages(ctx context.Context, transaction pgx.Tx, chapterID string, pages []Page) error {
	if len(pages) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
	`,
		schema.CorePage.Table,
		schema.CorePage.ID, schema.CorePage.ChapterID,
		schema.CorePage.PageNumber, schema.CorePage.ImageURL,
	)

	batch := &pgx.Batch{}
	for _, page := range pages {
		batch.Queue(query, uuid.New(), chapterID, page.PageNumber, page.Image)
	}

	response := transaction.SendBatch(ctx, batch)
	if err := response.Close(); err != nil {
		return dberr.Wrap(err, "insert pages")
	}

	return nil
}
