package articles

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Custom errors for article operations
var (
	ErrArticleNotFound   = errors.New("article not found")
	ErrDuplicateURL      = errors.New("article with this URL already exists")
	ErrUnsupportedDriver = errors.New("storage driver must be sqlite3 or postgres")
	ErrIncompleteArticle = errors.New("article is missing a title, URL or publication date")
)

var supportedStoreDrivers = []string{"sqlite3", "postgres"}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists articles in a SQL database. SQLite is the default; the
// same schema runs on Postgres.
type Store struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

// StoreResult counts what StoreArticles did with each article it was given.
type StoreResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Count returns the number of articles that were added or updated.
func (r StoreResult) Count() int {
	return r.Inserted + r.Updated
}

// articleRow mirrors the articles table.
type articleRow struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	URL             string         `db:"url"`
	PublicationDate string         `db:"publication_date"`
	Summary         sql.NullString `db:"summary"`
	Source          string         `db:"source"`
	AddedAt         string         `db:"added_at"`
	AIRelated       sql.NullInt64  `db:"ai_related"`
	CheckedAt       sql.NullString `db:"ai_checked_at"`
}

const articleColumns = `id, title, url, publication_date, summary, source,
	added_at, ai_related, ai_checked_at`

// NewStore opens the database behind driver/dsn and makes sure the schema
// exists.
func NewStore(driver, dsn string, logger logrus.FieldLogger) (*Store, error) {
	if !isSupportedDriver(driver) {
		return nil, ErrUnsupportedDriver
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, log: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func isSupportedDriver(driver string) bool {
	for _, d := range supportedStoreDrivers {
		if d == driver {
			return true
		}
	}
	return false
}

// initSchema creates the articles table if it doesn't exist.
func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			publication_date TEXT NOT NULL,
			summary TEXT,
			source TEXT NOT NULL,
			added_at TEXT NOT NULL,
			ai_related INTEGER,
			ai_checked_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_publication_date
			ON articles (publication_date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreArticles writes items to the database, keyed on URL. An article whose
// URL is already stored is updated when updateExisting is set and skipped
// otherwise. A failure on one article is logged and counted as skipped; it
// never aborts the batch.
func (s *Store) StoreArticles(items []Article, updateExisting bool) StoreResult {
	var result StoreResult
	if len(items) == 0 {
		s.log.Info("No articles provided to store")
		return result
	}

	for _, item := range items {
		entry := s.log.WithFields(logrus.Fields{"title": item.Title, "url": item.URL})

		outcome, err := s.storeArticle(item, updateExisting)
		if err != nil {
			if errors.Is(err, ErrDuplicateURL) {
				entry.Warn("Article already stored, skipping")
			} else {
				entry.WithError(err).Error("Failed to store article")
			}
			result.Skipped++
			continue
		}

		switch outcome {
		case outcomeInserted:
			entry.Debug("Inserted new article")
			result.Inserted++
		case outcomeUpdated:
			entry.Debug("Updated existing article")
			result.Updated++
		default:
			entry.Debug("Skipped existing article")
			result.Skipped++
		}
	}

	s.log.WithFields(logrus.Fields{
		"total":    len(items),
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	}).Info("Articles processed")

	return result
}

type storeOutcome int

const (
	outcomeSkipped storeOutcome = iota
	outcomeInserted
	outcomeUpdated
)

func (s *Store) storeArticle(item Article, updateExisting bool) (storeOutcome, error) {
	if item.Title == "" || item.URL == "" || !StorableDate(item.PublicationDate) {
		return outcomeSkipped, ErrIncompleteArticle
	}

	var existingID string
	err := s.db.Get(&existingID, s.db.Rebind("SELECT id FROM articles WHERE url = ?"), item.URL)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return outcomeInserted, s.insertArticle(item)
	case err != nil:
		return outcomeSkipped, fmt.Errorf("failed to look up article: %w", err)
	case !updateExisting:
		return outcomeSkipped, nil
	}

	query := s.db.Rebind(`
		UPDATE articles
		SET title = ?, publication_date = ?, summary = ?, source = ?
		WHERE url = ?
	`)
	res, err := s.db.Exec(query,
		item.Title,
		item.PublicationDate.String(),
		nullString(item.Summary),
		item.Source,
		item.URL,
	)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to update article: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return outcomeSkipped, nil
	}
	return outcomeUpdated, nil
}

func (s *Store) insertArticle(item Article) error {
	query := s.db.Rebind(`
		INSERT INTO articles (id, title, url, publication_date, summary, source, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	now := time.Now()
	_, err := s.db.Exec(query,
		uuid.New().String(),
		item.Title,
		item.URL,
		item.PublicationDate.String(),
		nullString(item.Summary),
		item.Source,
		formatTime(&now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// GetArticle retrieves an article by ID.
func (s *Store) GetArticle(id uuid.UUID) (*Article, error) {
	var row articleRow
	query := s.db.Rebind("SELECT " + articleColumns + " FROM articles WHERE id = ?")
	err := s.db.Get(&row, query, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}

	return row.toArticle()
}

// GetArticles retrieves the articles with the given IDs, newest first.
// Unknown IDs are ignored.
func (s *Store) GetArticles(ids []uuid.UUID) ([]Article, error) {
	if len(ids) == 0 {
		return []Article{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query, args, err := sqlx.In(
		"SELECT "+articleColumns+" FROM articles WHERE id IN (?) ORDER BY publication_date DESC, added_at DESC",
		keys,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	return s.selectArticles(s.db.Rebind(query), args...)
}

// ListUnclassified returns the articles the classifier has not checked yet,
// oldest first.
func (s *Store) ListUnclassified() ([]Article, error) {
	return s.selectArticles(
		"SELECT " + articleColumns + " FROM articles WHERE ai_related IS NULL ORDER BY added_at ASC",
	)
}

// SetClassification records the classifier's verdict for an article. It only
// writes to articles that are still unclassified and reports whether a row
// was changed.
func (s *Store) SetClassification(id uuid.UUID, related bool) (bool, error) {
	flag := 0
	if related {
		flag = 1
	}

	now := time.Now()
	query := s.db.Rebind(`
		UPDATE articles
		SET ai_related = ?, ai_checked_at = ?
		WHERE id = ? AND ai_related IS NULL
	`)

	result, err := s.db.Exec(query, flag, formatTime(&now), id.String())
	if err != nil {
		return false, fmt.Errorf("failed to update classification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ListClassified returns the articles classified as AI-related, newest
// first. When date is non-nil only articles published on that day are
// returned.
func (s *Store) ListClassified(date *civil.Date) ([]Article, error) {
	query := "SELECT " + articleColumns + " FROM articles WHERE ai_related = 1"

	var args []any
	if date != nil {
		query += " AND publication_date = ?"
		args = append(args, date.String())
	}
	query += " ORDER BY publication_date DESC, added_at DESC"

	return s.selectArticles(s.db.Rebind(query), args...)
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	Date   *civil.Date
	Source *string
	Limit  int
	Offset int
}

// ListArticles lists stored articles regardless of classification.
func (s *Store) ListArticles(filter ArticleFilter) ([]Article, error) {
	query := "SELECT " + articleColumns + " FROM articles"

	var whereClauses []string
	var args []any

	if filter.Date != nil {
		whereClauses = append(whereClauses, "publication_date = ?")
		args = append(args, filter.Date.String())
	}
	if filter.Source != nil {
		whereClauses = append(whereClauses, "source = ?")
		args = append(args, *filter.Source)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY publication_date DESC, added_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return s.selectArticles(s.db.Rebind(query), args...)
}

func (s *Store) selectArticles(query string, args ...any) ([]Article, error) {
	var rows []articleRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	items := make([]Article, 0, len(rows))
	for _, row := range rows {
		item, err := row.toArticle()
		if err != nil {
			s.log.WithFields(logrus.Fields{"id": row.ID, "url": row.URL}).
				WithError(err).Warn("Skipping unreadable article row")
			continue
		}
		items = append(items, *item)
	}

	return items, nil
}

func (r articleRow) toArticle() (*Article, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article ID: %w", err)
	}

	date, err := civil.ParseDate(r.PublicationDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse publication date %q: %w", r.PublicationDate, err)
	}

	item := &Article{
		ID:              id,
		Title:           r.Title,
		URL:             r.URL,
		PublicationDate: date,
		Source:          r.Source,
		AddedAt:         parseTime(r.AddedAt),
	}

	if r.Summary.Valid {
		summary := r.Summary.String
		item.Summary = &summary
	}
	if r.AIRelated.Valid {
		related := r.AIRelated.Int64 == 1
		item.AIRelated = &related
	}
	if r.CheckedAt.Valid {
		t := parseTime(r.CheckedAt.String)
		item.CheckedAt = &t
	}

	return item, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.Truncate(0)
}
