// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"autoblogger/internal/markdown"
	"autoblogger/internal/models"
	"autoblogger/internal/slug"
)

// Listing page sizes.
const (
	DefaultPerPage = 15
	MaxPerPage     = 50
)

// DefaultSlugAttempts is how many inserts are tried when concurrent writers
// keep claiming the same slug.
const DefaultSlugAttempts = 5

// slugConstraint is the unique constraint name on content.slug.
const slugConstraint = "content_slug_key"

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const contentColumns = `id, owner_id, title, slug, topic, body, meta_description,
	keywords, status, content_type, tone, target_audience, word_count,
	tokens_used, generation_cost::float8, ai_model, generation_options,
	quality_analysis, published_at, created_at, updated_at`

// ErrSlugExhausted is returned when every slug attempt lost a race.
var ErrSlugExhausted = errors.New("slug: retry budget exhausted")

// ContentStore handles all content-related database operations.
type ContentStore struct {
	db           *sql.DB
	slugAttempts int
	now          func() time.Time
}

// NewContentStore creates a new ContentStore. slugAttempts bounds the
// insert retries on slug conflicts; values below one use DefaultSlugAttempts.
func NewContentStore(db *sql.DB, slugAttempts int) *ContentStore {
	if slugAttempts < 1 {
		slugAttempts = DefaultSlugAttempts
	}
	return &ContentStore{db: db, slugAttempts: slugAttempts, now: time.Now}
}

// Create assigns a unique slug to c and inserts it. ID, Slug and the
// timestamps are filled in from the stored row.
func (s *ContentStore) Create(ctx context.Context, c *models.Content) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, c)
	})
}

// CreateBatch inserts all items in one transaction. Either every item is
// stored or none is.
func (s *ContentStore) CreateBatch(ctx context.Context, items []*models.Content) error {
	if len(items) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i, c := range items {
			if err := s.insert(ctx, tx, c); err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *ContentStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insert picks the first free slug and inserts c inside a savepoint. A
// unique violation on the slug rolls back to the savepoint and tries the
// next free candidate, up to slugAttempts times.
func (s *ContentStore) insert(ctx context.Context, tx *sql.Tx, c *models.Content) error {
	if c.Status == "" {
		c.Status = models.ContentStatusDraft
	}
	if c.Status == models.ContentStatusPublished && c.PublishedAt == nil {
		now := s.now()
		c.PublishedAt = &now
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}

	keywords, err := json.Marshal(c.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	options, err := json.Marshal(c.GenerationOptions)
	if err != nil {
		return fmt.Errorf("encode generation options: %w", err)
	}
	quality, err := encodeQuality(c.QualityAnalysis)
	if err != nil {
		return err
	}

	base := slug.Base(c.Title)
	backoff := retry.WithMaxRetries(uint64(s.slugAttempts-1), retry.NewConstant(5*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate, err := slug.FirstFree(base, func(candidate string) (bool, error) {
			var taken bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM content WHERE slug = $1)`, candidate,
			).Scan(&taken)
			return taken, err
		})
		if err != nil {
			return fmt.Errorf("check slug: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `SAVEPOINT content_insert`); err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO content (owner_id, title, slug, topic, body, meta_description,
			                     keywords, status, content_type, tone, target_audience,
			                     word_count, tokens_used, generation_cost, ai_model,
			                     generation_options, quality_analysis, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING `+contentColumns,
			c.OwnerID, c.Title, candidate, c.Topic, c.Body, c.MetaDescription,
			string(keywords), c.Status, c.ContentType, c.Tone, c.TargetAudience,
			c.WordCount, c.TokensUsed, c.GenerationCost, c.AIModel,
			string(options), quality, c.PublishedAt,
		)
		stored, err := scanContent(row)
		if err != nil {
			if isSlugConflict(err) {
				if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT content_insert`); rbErr != nil {
					return fmt.Errorf("rollback to savepoint: %w", rbErr)
				}
				return retry.RetryableError(fmt.Errorf("%w: %q taken", ErrSlugExhausted, candidate))
			}
			return fmt.Errorf("insert content: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT content_insert`); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}

		*c = *stored
		return nil
	})
	if err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

func isSlugConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == slugConstraint
}

// FindForOwner retrieves a content item by id. An item owned by someone
// else is reported as ErrNotFound.
func (s *ContentStore) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Content, error) {
	c, err := scanContent(s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find content: %w", err)
	}
	return c, nil
}

// Page is one page of a content listing.
type Page struct {
	Items   []models.Content
	Total   int
	Page    int
	PerPage int
}

// LastPage returns the number of the final page, at least one.
func (p Page) LastPage() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns the owner's items matching f, newest first.
func (s *ContentStore) List(ctx context.Context, ownerID uuid.UUID, f models.ContentFilter) (*Page, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)

	where := []string{"owner_id = $1"}
	args := []any{ownerID}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.ContentType != "" {
		where = append(where, "content_type = "+arg(f.ContentType))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg("%" + likeEscaper.Replace(q) + "%")
		where = append(where, "(title ILIKE "+p+" OR topic ILIKE "+p+" OR body ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}

	limit := arg(perPage)
	offset := arg((page - 1) * perPage)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contentColumns+` FROM content
		WHERE `+cond+`
		ORDER BY created_at DESC, id
		LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	items := []models.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// Update applies a partial owner edit and returns the stored item. A new
// body recomputes word_count. published_at is stamped only the first time
// the item enters published.
func (s *ContentStore) Update(ctx context.Context, ownerID, id uuid.UUID, p models.ContentPatch) (*models.Content, error) {
	var out *models.Content
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := scanContent(tx.QueryRowContext(ctx,
			`SELECT `+contentColumns+` FROM content WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, ownerID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load content: %w", err)
		}

		if p.Title != nil {
			c.Title = *p.Title
		}
		if p.Body != nil {
			c.Body = *p.Body
			c.WordCount = markdown.WordCount(c.Body)
		}
		if p.MetaDescription != nil {
			c.MetaDescription = p.MetaDescription
		}
		if p.KeywordsSet {
			c.Keywords = p.Keywords
			if c.Keywords == nil {
				c.Keywords = []string{}
			}
		}
		if p.Status != nil {
			c.Status = *p.Status
			if c.Status == models.ContentStatusPublished && c.PublishedAt == nil {
				now := s.now()
				c.PublishedAt = &now
			}
		}

		keywords, err := json.Marshal(c.Keywords)
		if err != nil {
			return fmt.Errorf("encode keywords: %w", err)
		}

		out, err = scanContent(tx.QueryRowContext(ctx, `
			UPDATE content SET
				title = $1, body = $2, word_count = $3, meta_description = $4,
				keywords = $5, status = $6, published_at = $7, updated_at = NOW()
			WHERE id = $8
			RETURNING `+contentColumns,
			c.Title, c.Body, c.WordCount, c.MetaDescription,
			string(keywords), c.Status, c.PublishedAt, c.ID,
		))
		if err != nil {
			return fmt.Errorf("update content: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete permanently removes the owner's item.
func (s *ContentStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return requireRow(res)
}

// SetQualityAnalysis stores the latest quality analysis on the owner's item.
func (s *ContentStore) SetQualityAnalysis(ctx context.Context, ownerID, id uuid.UUID, qa *models.QualityAnalysis) error {
	quality, err := encodeQuality(qa)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE content SET quality_analysis = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
	`, quality, id, ownerID)
	if err != nil {
		return fmt.Errorf("set quality analysis: %w", err)
	}
	return requireRow(res)
}

// Stats aggregates the owner's items.
func (s *ContentStore) Stats(ctx context.Context, ownerID uuid.UUID) (*models.ContentStats, error) {
	st := &models.ContentStats{
		ContentByType:  map[string]int{},
		ContentByMonth: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'published'),
		       COUNT(*) FILTER (WHERE status = 'draft'),
		       COUNT(*) FILTER (WHERE status = 'archived'),
		       COALESCE(SUM(word_count), 0),
		       COALESCE(SUM(tokens_used), 0),
		       COALESCE(SUM(generation_cost), 0)::float8
		FROM content WHERE owner_id = $1
	`, ownerID).Scan(
		&st.TotalContent, &st.PublishedContent, &st.DraftContent, &st.ArchivedContent,
		&st.TotalWords, &st.TotalTokensUsed, &st.TotalCost,
	)
	if err != nil {
		return nil, fmt.Errorf("content totals: %w", err)
	}

	if err := s.groupCounts(ctx, st.ContentByType, `
		SELECT content_type, COUNT(*) FROM content
		WHERE owner_id = $1 GROUP BY content_type
	`, ownerID); err != nil {
		return nil, fmt.Errorf("content by type: %w", err)
	}
	if err := s.groupCounts(ctx, st.ContentByMonth, `
		SELECT to_char(created_at, 'YYYY-MM'), COUNT(*) FROM content
		WHERE owner_id = $1 GROUP BY 1
	`, ownerID); err != nil {
		return nil, fmt.Errorf("content by month: %w", err)
	}

	return st, nil
}

func (s *ContentStore) groupCounts(ctx context.Context, into map[string]int, query string, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeQuality(qa *models.QualityAnalysis) (any, error) {
	if qa == nil {
		return nil, nil
	}
	b, err := json.Marshal(qa)
	if err != nil {
		return nil, fmt.Errorf("encode quality analysis: %w", err)
	}
	return string(b), nil
}

func scanContent(row interface{ Scan(...any) error }) (*models.Content, error) {
	c := &models.Content{}
	var keywords, options, quality []byte
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Slug, &c.Topic, &c.Body, &c.MetaDescription,
		&keywords, &c.Status, &c.ContentType, &c.Tone, &c.TargetAudience, &c.WordCount,
		&c.TokensUsed, &c.GenerationCost, &c.AIModel, &options,
		&quality, &c.PublishedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Keywords = []string{}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &c.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &c.GenerationOptions); err != nil {
			return nil, fmt.Errorf("decode generation options: %w", err)
		}
	}
	if len(quality) > 0 {
		c.QualityAnalysis = &models.QualityAnalysis{}
		if err := json.Unmarshal(quality, c.QualityAnalysis); err != nil {
			return nil, fmt.Errorf("decode quality analysis: %w", err)
		}
	}
	return c, nil
}
