package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookmark-manager-backend/pkg/models"

	"github.com/lib/pq"
)

const bookmarkColumns = `b.id, b.user_id, b.url, b.title, COALESCE(b.description, ''), COALESCE(b.notes, ''),
	COALESCE(b.favicon_url, ''), b.is_favorite, b.is_pinned, b.created_at, b.updated_at`

func scanBookmark(scanner interface{ Scan(...any) error }) (*models.Bookmark, error) {
	var b models.Bookmark
	err := scanner.Scan(&b.ID, &b.UserID, &b.URL, &b.Title, &b.Description, &b.Notes,
		&b.FaviconURL, &b.IsFavorite, &b.IsPinned, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	b.Tags = []models.Tag{}
	return &b, nil
}

// CreateBookmark persists a bookmark and, when tagIDs is non-empty, attaches
// the given tags in the same transaction. Every tag id must belong to the
// bookmark's owner.
func (s *PostgresStore) CreateBookmark(ctx context.Context, b *models.Bookmark, tagIDs []string) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO bookmarks (user_id, url, title, description, notes, favicon_url, is_favorite, is_pinned, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			b.UserID, b.URL, b.Title, nullIfEmpty(b.Description), nullIfEmpty(b.Notes),
			nullIfEmpty(b.FaviconURL), b.IsFavorite, b.IsPinned).
			Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return err
		}
		return replaceBookmarkTags(ctx, tx, b.UserID, b.ID, tagIDs)
	})
	if err != nil {
		return fmt.Errorf("create bookmark: %w", err)
	}
	return s.attachTags(ctx, b)
}

// replaceBookmarkTags swaps a bookmark's tag set inside tx. A nil slice
// leaves the set alone; an empty slice clears it.
func replaceBookmarkTags(ctx context.Context, tx *sql.Tx, userID, bookmarkID string, tagIDs []string) error {
	if tagIDs == nil {
		return nil
	}
	if err := verifyTagOwnership(ctx, tx, userID, tagIDs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookmark_tags WHERE bookmark_id = $1`, bookmarkID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (bookmark_id, tag_id) DO NOTHING
		`, bookmarkID, tagID)
		if err != nil {
			return err
		}
	}
	return nil
}

// verifyTagOwnership fails with ErrNotFound unless every id in tagIDs is a
// tag owned by userID.
func verifyTagOwnership(ctx context.Context, tx *sql.Tx, userID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	distinct := make(map[string]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		distinct[id] = struct{}{}
	}
	ids := make([]string, 0, len(distinct))
	for id := range distinct {
		ids = append(ids, id)
	}
	var owned int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE user_id = $1 AND id = ANY($2)`,
		userID, pq.Array(ids)).Scan(&owned)
	if err != nil {
		return err
	}
	if owned != len(ids) {
		return fmt.Errorf("%w: %d of %d tags", ErrNotFound, len(ids)-owned, len(ids))
	}
	return nil
}

func (s *PostgresStore) GetBookmark(ctx context.Context, userID, id string) (*models.Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks b WHERE b.id = $1 AND b.user_id = $2`,
		id, userID)
	b, err := scanBookmark(row)
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookmarks runs the composed filter and returns one page plus the total
// match count. The filter's predicates never produce duplicate rows, so no
// DISTINCT is needed here.
func (s *PostgresStore) ListBookmarks(ctx context.Context, userID string, f BookmarkFilter, p Page) ([]models.Bookmark, int, error) {
	where, args := f.Compile(userID)

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmarks b WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookmarks: %w", mapError(err))
	}

	limit, offset := p.LimitOffset()
	query := fmt.Sprintf(`SELECT %s FROM bookmarks b WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		bookmarkColumns, where, f.OrderClause(), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookmarks: %w", mapError(err))
	}
	defer rows.Close()

	bookmarks := []models.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, 0, err
		}
		bookmarks = append(bookmarks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	if err := s.attachTagsAll(ctx, bookmarks); err != nil {
		return nil, 0, err
	}
	return bookmarks, total, nil
}

// UpdateBookmark applies a partial update. created_at is immutable;
// updated_at is always refreshed. A non-nil TagIDs replaces the whole tag
// set in the same transaction.
func (s *PostgresStore) UpdateBookmark(ctx context.Context, userID, id string, req models.UpdateBookmarkRequest) (*models.Bookmark, error) {
	if req.URL != nil {
		if err := models.ValidateURL(*req.URL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if req.FaviconURL != nil && strings.TrimSpace(*req.FaviconURL) != "" {
		if err := models.ValidateURL(*req.FaviconURL); err != nil {
			return nil, fmt.Errorf("%w: favicon: %v", ErrInvalid, err)
		}
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	setClauses := make([]string, 0, 8)
	args := make([]any, 0, 10)
	add := func(col string, val any) {
		args = append(args, val)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.URL != nil {
		add("url", *req.URL)
	}
	if req.Title != nil {
		add("title", *req.Title)
	}
	if req.Description != nil {
		add("description", nullIfEmpty(*req.Description))
	}
	if req.Notes != nil {
		add("notes", nullIfEmpty(*req.Notes))
	}
	if req.FaviconURL != nil {
		add("favicon_url", nullIfEmpty(*req.FaviconURL))
	}
	if req.IsFavorite != nil {
		add("is_favorite", *req.IsFavorite)
	}
	if req.IsPinned != nil {
		add("is_pinned", *req.IsPinned)
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	var b *models.Bookmark
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`UPDATE bookmarks b SET %s WHERE b.id = $%d AND b.user_id = $%d RETURNING %s`,
			strings.Join(setClauses, ", "), len(args)+1, len(args)+2, bookmarkColumns)
		row := tx.QueryRowContext(ctx, query, append(args, id, userID)...)
		var err error
		if b, err = scanBookmark(row); err != nil {
			return err
		}
		return replaceBookmarkTags(ctx, tx, userID, id, req.TagIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	if err := s.attachTags(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBookmark removes the bookmark and its associations. Tags themselves
// are left alone.
func (s *PostgresStore) DeleteBookmark(ctx context.Context, userID, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bookmark_tags bt USING bookmarks b
			 WHERE bt.bookmark_id = b.id AND b.id = $1 AND b.user_id = $2`, id, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SearchSuggestions returns up to limit distinct titles matching the query.
func (s *PostgresStore) SearchSuggestions(ctx context.Context, userID, query string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT title FROM bookmarks
		WHERE user_id = $1 AND title ILIKE $2
		ORDER BY title ASC
		LIMIT $3
	`, userID, containsPattern(query), limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, mapError(err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// GetStats aggregates counts plus the five most recently used tags.
func (s *PostgresStore) GetStats(ctx context.Context, userID string) (*models.Stats, error) {
	stats := &models.Stats{RecentTags: []models.TagWithCount{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_favorite),
			COUNT(*) FILTER (WHERE is_pinned),
			(SELECT COUNT(*) FROM tags WHERE user_id = $1)
		FROM bookmarks WHERE user_id = $1
	`, userID).Scan(&stats.TotalBookmarks, &stats.FavoriteBookmarks, &stats.PinnedBookmarks, &stats.TotalTags)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", mapError(err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.is_ai_generated, t.created_at, COUNT(bt.id)
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE t.user_id = $1
		GROUP BY t.id, t.user_id, t.name, t.is_ai_generated, t.created_at
		ORDER BY MAX(bt.created_at) DESC
		LIMIT 5
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("stats recent tags: %w", mapError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var tc models.TagWithCount
		if err := rows.Scan(&tc.ID, &tc.UserID, &tc.Name, &tc.IsAIGenerated, &tc.CreatedAt, &tc.BookmarkCount); err != nil {
			return nil, mapError(err)
		}
		stats.RecentTags = append(stats.RecentTags, tc)
	}
	return stats, rows.Err()
}

// ================= Associations =================

// AddBookmarkTag creates one association. A duplicate surfaces as
// ErrDuplicate from the (bookmark_id, tag_id) unique constraint.
func (s *PostgresStore) AddBookmarkTag(ctx context.Context, bookmarkID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmark_tags (bookmark_id, tag_id, created_at)
		VALUES ($1, $2, NOW())
	`, bookmarkID, tagID)
	if err != nil {
		return fmt.Errorf("add bookmark tag: %w", mapError(err))
	}
	return nil
}

func (s *PostgresStore) RemoveBookmarkTagByID(ctx context.Context, bookmarkID, tagID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmark_tags WHERE bookmark_id = $1 AND tag_id = $2`, bookmarkID, tagID)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveBookmarkTagByName(ctx context.Context, userID, bookmarkID, name string) error {
	normalized, err := models.NormalizeTagName(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bookmark_tags bt USING tags t
		WHERE bt.tag_id = t.id AND bt.bookmark_id = $1 AND t.user_id = $2 AND t.name = $3
	`, bookmarkID, userID, normalized)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// attachTags loads the tag list for a single bookmark.
func (s *PostgresStore) attachTags(ctx context.Context, b *models.Bookmark) error {
	bookmarks := []models.Bookmark{*b}
	if err := s.attachTagsAll(ctx, bookmarks); err != nil {
		return err
	}
	b.Tags = bookmarks[0].Tags
	return nil
}

// attachTagsAll batch-loads tags for a page of bookmarks with one query.
func (s *PostgresStore) attachTagsAll(ctx context.Context, bookmarks []models.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	ids := make([]string, len(bookmarks))
	index := make(map[string]int, len(bookmarks))
	for i := range bookmarks {
		ids[i] = bookmarks[i].ID
		index[bookmarks[i].ID] = i
		bookmarks[i].Tags = []models.Tag{}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bt.bookmark_id, t.id, t.user_id, t.name, t.is_ai_generated, t.created_at
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ANY($1)
		ORDER BY t.name ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load tags: %w", mapError(err))
	}
	defer rows.Close()

	for rows.Next() {
		var bookmarkID string
		var t models.Tag
		if err := rows.Scan(&bookmarkID, &t.ID, &t.UserID, &t.Name, &t.IsAIGenerated, &t.CreatedAt); err != nil {
			return mapError(err)
		}
		if i, ok := index[bookmarkID]; ok {
			bookmarks[i].Tags = append(bookmarks[i].Tags, t)
		}
	}
	return rows.Err()
}
