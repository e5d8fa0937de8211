package database

import (
	"fmt"
	"strings"
	"time"
)

// BookmarkFilter is the composable predicate over a user's bookmarks. Zero
// values mean "no constraint". All substring matches are case-insensitive.
//
// Tag-related predicates compile to EXISTS subqueries rather than joins, so
// a bookmark with several matching associations still appears exactly once
// in the result set.
type BookmarkFilter struct {
	CreatedAfter  *time.Time // created_at >= (inclusive)
	CreatedBefore *time.Time // created_at <= (inclusive)
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time

	TitleContains       string
	URLContains         string
	DescriptionContains string
	NotesContains       string

	// Search is split on whitespace; every term must match at least one of
	// {title, description, url, notes, tag names}, different terms may match
	// different fields.
	Search string

	TagID   string
	TagName string // matched against the normalized name, case-insensitive

	HasTags    *bool
	IsFavorite *bool
	IsPinned   *bool

	// Ordering is one of the whitelisted fields, with an optional leading
	// '-' for descending. Empty means "-created_at".
	Ordering string
}

// orderColumns is the ordering whitelist. Anything else falls back to the
// default ordering.
var orderColumns = map[string]string{
	"created_at": "b.created_at",
	"updated_at": "b.updated_at",
	"title":      "b.title",
}

// OrderClause returns the ORDER BY expression for the filter. Applied after
// predicate composition; id is the stable tiebreak.
func (f BookmarkFilter) OrderClause() string {
	field := f.Ordering
	dir := "ASC"
	if strings.HasPrefix(field, "-") {
		field = field[1:]
		dir = "DESC"
	}
	col, ok := orderColumns[field]
	if !ok {
		return "b.created_at DESC, b.id ASC"
	}
	return fmt.Sprintf("%s %s, b.id ASC", col, dir)
}

// whereBuilder accumulates conditions with positional placeholders. Each
// format string receives the $n placeholders of its args via %s verbs;
// %[1]s-style indexing lets one argument back several comparisons.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(format string, args ...any) {
	placeholders := make([]any, len(args))
	for i, a := range args {
		w.args = append(w.args, a)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.conds = append(w.conds, fmt.Sprintf(format, placeholders...))
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// tagNameMatch is the EXISTS subquery shared by the unified search and the
// tag_name scope. The %s verb receives the comparison against t.name.
const tagNameMatch = `EXISTS (
	SELECT 1 FROM bookmark_tags bt
	JOIN tags t ON t.id = bt.tag_id
	WHERE bt.bookmark_id = b.id AND %s)`

// Compile renders the filter into a WHERE clause (without the leading
// "WHERE") and its arguments. The owner scope is always the first condition.
func (f BookmarkFilter) Compile(userID string) (string, []any) {
	w := &whereBuilder{}
	w.add("b.user_id = %s", userID)

	if f.CreatedAfter != nil {
		w.add("b.created_at >= %s", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		w.add("b.created_at <= %s", *f.CreatedBefore)
	}
	if f.UpdatedAfter != nil {
		w.add("b.updated_at >= %s", *f.UpdatedAfter)
	}
	if f.UpdatedBefore != nil {
		w.add("b.updated_at <= %s", *f.UpdatedBefore)
	}

	if f.TitleContains != "" {
		w.add("b.title ILIKE %s", containsPattern(f.TitleContains))
	}
	if f.URLContains != "" {
		w.add("b.url ILIKE %s", containsPattern(f.URLContains))
	}
	if f.DescriptionContains != "" {
		w.add("COALESCE(b.description, '') ILIKE %s", containsPattern(f.DescriptionContains))
	}
	if f.NotesContains != "" {
		w.add("COALESCE(b.notes, '') ILIKE %s", containsPattern(f.NotesContains))
	}

	// Unified search: one condition per term, AND-combined; within a term
	// the fields are OR-combined and share a single argument.
	for _, term := range strings.Fields(f.Search) {
		w.add(`(b.title ILIKE %[1]s OR b.url ILIKE %[1]s OR COALESCE(b.description, '') ILIKE %[1]s OR COALESCE(b.notes, '') ILIKE %[1]s OR `+
			fmt.Sprintf(tagNameMatch, "t.name ILIKE %[1]s")+`)`,
			containsPattern(term))
	}

	if f.TagID != "" {
		w.add("EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id = %s)", f.TagID)
	}
	if f.TagName != "" {
		w.add(fmt.Sprintf(tagNameMatch, "lower(t.name) = lower(%s)"), strings.TrimSpace(f.TagName))
	}

	if f.HasTags != nil {
		if *f.HasTags {
			w.conds = append(w.conds, "EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id)")
		} else {
			w.conds = append(w.conds, "NOT EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id)")
		}
	}
	if f.IsFavorite != nil {
		w.add("b.is_favorite = %s", *f.IsFavorite)
	}
	if f.IsPinned != nil {
		w.add("b.is_pinned = %s", *f.IsPinned)
	}

	return strings.Join(w.conds, " AND "), w.args
}
