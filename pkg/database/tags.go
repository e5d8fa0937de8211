package database

import (
	"context"
	"database/sql"
	"fmt"

	"bookmark-manager-backend/pkg/models"

	"github.com/lib/pq"
)

const (
	tagColumns     = `t.id, t.user_id, t.name, t.is_ai_generated, t.created_at`
	tagColumnsBare = `id, user_id, name, is_ai_generated, created_at`
)

func scanTag(scanner interface{ Scan(...any) error }) (*models.Tag, error) {
	var t models.Tag
	err := scanner.Scan(&t.ID, &t.UserID, &t.Name, &t.IsAIGenerated, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// CreateTag inserts a tag under its normalized name. A name the user already
// has surfaces as ErrDuplicate.
func (s *PostgresStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	normalized, err := models.NormalizeTagName(tag.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	tag.Name = normalized

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO tags (user_id, name, is_ai_generated, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, tag.UserID, tag.Name, tag.IsAIGenerated).Scan(&tag.ID, &tag.CreatedAt)
	if err != nil {
		return fmt.Errorf("create tag: %w", mapError(err))
	}
	return nil
}

func (s *PostgresStore) GetTag(ctx context.Context, userID, id string) (*models.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.id = $1 AND t.user_id = $2`, id, userID)
	return scanTag(row)
}

// GetOrCreateTag resolves a name to the user's existing tag or creates one.
// created reports whether a new row was inserted. The existing tag's
// is_ai_generated flag is never altered.
func (s *PostgresStore) GetOrCreateTag(ctx context.Context, userID, name string, aiGenerated bool) (*models.Tag, bool, error) {
	normalized, err := models.NormalizeTagName(name)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	// ON CONFLICT DO NOTHING returns no row on conflict, so fall back to a
	// plain select for the existing tag.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (user_id, name, is_ai_generated, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, name) DO NOTHING
		RETURNING `+tagColumnsBare+`
	`, userID, normalized, aiGenerated)
	tag, err := scanTag(row)
	if err == nil {
		return tag, true, nil
	}
	if !IsNotFound(err) {
		return nil, false, fmt.Errorf("get or create tag: %w", err)
	}

	row = s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.user_id = $1 AND t.name = $2`, userID, normalized)
	tag, err = scanTag(row)
	if err != nil {
		return nil, false, fmt.Errorf("get or create tag: %w", err)
	}
	return tag, false, nil
}

// ListTags returns every tag the user owns together with its bookmark count,
// ordered by name.
func (s *PostgresStore) ListTags(ctx context.Context, userID string) ([]models.TagWithCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.is_ai_generated, t.created_at, COUNT(bt.id)
		FROM tags t
		LEFT JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE t.user_id = $1
		GROUP BY t.id, t.user_id, t.name, t.is_ai_generated, t.created_at
		ORDER BY t.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", mapError(err))
	}
	defer rows.Close()
	return collectTagCounts(rows)
}

func collectTagCounts(rows *sql.Rows) ([]models.TagWithCount, error) {
	tags := []models.TagWithCount{}
	for rows.Next() {
		var tc models.TagWithCount
		if err := rows.Scan(&tc.ID, &tc.UserID, &tc.Name, &tc.IsAIGenerated, &tc.CreatedAt, &tc.BookmarkCount); err != nil {
			return nil, mapError(err)
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

// UpdateTag renames a tag. The new name is normalized first; a collision with
// another of the user's tags surfaces as ErrDuplicate.
func (s *PostgresStore) UpdateTag(ctx context.Context, userID, id, name string) (*models.Tag, error) {
	normalized, err := models.NormalizeTagName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE tags SET name = $1 WHERE id = $2 AND user_id = $3
		RETURNING `+tagColumnsBare+`
	`, normalized, id, userID)
	tag, err := scanTag(row)
	if err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}
	return tag, nil
}

// DeleteTag removes one tag and reports how many associations went with it.
func (s *PostgresStore) DeleteTag(ctx context.Context, userID, id string) (int, error) {
	var removed int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM tags WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bookmark_tags WHERE tag_id = $1`, id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		removed = int(n)
		_, err = tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete tag: %w", err)
	}
	return removed, nil
}

// BulkDeleteTags deletes a set of the user's tags atomically. If any id is
// missing or belongs to another user, nothing is deleted and ErrNotFound is
// returned.
func (s *PostgresStore) BulkDeleteTags(ctx context.Context, userID string, tagIDs []string) (*models.DeleteReport, error) {
	report := &models.DeleteReport{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := verifyTagOwnership(ctx, tx, userID, tagIDs); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM bookmark_tags WHERE tag_id = ANY($1)`, pq.Array(tagIDs))
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		report.AssociationsRemoved = int(n)

		res, err = tx.ExecContext(ctx,
			`DELETE FROM tags WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(tagIDs))
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		report.TagsDeleted = int(n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk delete tags: %w", err)
	}
	return report, nil
}

// MergeTags moves every association from the source tags onto the target,
// skipping bookmarks already carrying the target, then deletes the sources.
// The whole merge is atomic; target and all sources must belong to the user.
func (s *PostgresStore) MergeTags(ctx context.Context, userID string, sourceTagIDs []string, targetTagID string) (*models.MergeReport, error) {
	sources := make([]string, 0, len(sourceTagIDs))
	for _, id := range sourceTagIDs {
		if id != targetTagID {
			sources = append(sources, id)
		}
	}

	report := &models.MergeReport{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := verifyTagOwnership(ctx, tx, userID, append([]string{targetTagID}, sources...)); err != nil {
			return err
		}
		if len(sources) == 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id, created_at)
			SELECT DISTINCT bt.bookmark_id, $1, NOW()
			FROM bookmark_tags bt
			WHERE bt.tag_id = ANY($2)
			ON CONFLICT (bookmark_id, tag_id) DO NOTHING
		`, targetTagID, pq.Array(sources))
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		report.AssociationsCreated = int(n)

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bookmark_tags WHERE tag_id = ANY($1)`, pq.Array(sources)); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx,
			`DELETE FROM tags WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(sources))
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		report.TagsRemoved = int(n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge tags: %w", err)
	}
	return report, nil
}

// PopularTags returns the user's most used tags, highest bookmark count
// first. Unused tags never appear.
func (s *PostgresStore) PopularTags(ctx context.Context, userID string, limit int) ([]models.TagWithCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.is_ai_generated, t.created_at, COUNT(bt.id) AS bookmark_count
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE t.user_id = $1
		GROUP BY t.id, t.user_id, t.name, t.is_ai_generated, t.created_at
		ORDER BY bookmark_count DESC, t.name ASC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("popular tags: %w", mapError(err))
	}
	defer rows.Close()
	return collectTagCounts(rows)
}

// UnusedTags returns tags with no bookmark associations.
func (s *PostgresStore) UnusedTags(ctx context.Context, userID string) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags t
		WHERE t.user_id = $1
		  AND NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.tag_id = t.id)
		ORDER BY t.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("unused tags: %w", mapError(err))
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// TagDetails returns a tag with its usage count and the ten most recently
// created bookmarks carrying it.
func (s *PostgresStore) TagDetails(ctx context.Context, userID, id string) (*models.TagDetails, error) {
	tag, err := s.GetTag(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	details := &models.TagDetails{Tag: *tag, RecentBookmarks: []models.Bookmark{}}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookmark_tags WHERE tag_id = $1`, id).Scan(&details.TotalBookmarks)
	if err != nil {
		return nil, fmt.Errorf("tag details: %w", mapError(err))
	}

	recent, _, err := s.ListBookmarksByTag(ctx, userID, id, Page{Number: 1, Size: 10})
	if err != nil {
		return nil, err
	}
	details.RecentBookmarks = recent
	return details, nil
}

// ListBookmarksByTag returns one page of the bookmarks carrying the tag,
// newest first. The tag must exist and belong to the user.
func (s *PostgresStore) ListBookmarksByTag(ctx context.Context, userID, tagID string, p Page) ([]models.Bookmark, int, error) {
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookmarks b
		WHERE b.user_id = $1
		  AND EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id = $2)
	`, userID, tagID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookmarks by tag: %w", mapError(err))
	}

	limit, offset := p.LimitOffset()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks b
		WHERE b.user_id = $1
		  AND EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id = $2)
		ORDER BY b.created_at DESC, b.id ASC
		LIMIT $3 OFFSET $4
	`, userID, tagID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookmarks by tag: %w", mapError(err))
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
