package articles

import (
	"io"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test article store
func createTestStore(t *testing.T) *Store {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewStore("sqlite3", dbPath, logger)
	require.NoError(t, err, "should create article store")
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: create a sample article
func sampleArticle(url string, date civil.Date, summary *string) Article {
	return Article{
		Title:           "Robots learn to fold laundry",
		URL:             url,
		PublicationDate: date,
		Summary:         summary,
		Source:          "BBC Innovation",
	}
}

func strPtr(s string) *string { return &s }

var testDate = civil.Date{Year: 2025, Month: 4, Day: 15}

// TestNewStore_UnsupportedDriver verifies driver validation
func TestNewStore_UnsupportedDriver(t *testing.T) {
	store, err := NewStore("mysql", "whatever", nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
	assert.Nil(t, store)
}

// TestNewStore_ExistingDatabase verifies data persists across connections
func TestNewStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store1, err := NewStore("sqlite3", dbPath, nil)
	require.NoError(t, err)
	result := store1.StoreArticles([]Article{sampleArticle("https://www.bbc.com/a", testDate, nil)}, false)
	assert.Equal(t, 1, result.Inserted)
	store1.Close()

	store2, err := NewStore("sqlite3", dbPath, nil)
	require.NoError(t, err)
	defer store2.Close()

	items, err := store2.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1, "data should persist across connections")
}

// TestStoreArticles_Empty verifies an empty batch is a no-op
func TestStoreArticles_Empty(t *testing.T) {
	store := createTestStore(t)

	result := store.StoreArticles(nil, false)
	assert.Equal(t, StoreResult{}, result)
	assert.Equal(t, 0, result.Count())
}

// TestStoreArticles_SkipsExisting verifies duplicates are skipped by default
func TestStoreArticles_SkipsExisting(t *testing.T) {
	store := createTestStore(t)
	item := sampleArticle("https://www.bbc.com/a", testDate, nil)

	first := store.StoreArticles([]Article{item}, false)
	assert.Equal(t, 1, first.Count())

	item.Title = "Changed title"
	second := store.StoreArticles([]Article{item}, false)
	assert.Equal(t, 0, second.Count())
	assert.Equal(t, 1, second.Skipped)

	items, err := store.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Robots learn to fold laundry", items[0].Title, "title should not change")
}

// TestStoreArticles_UpdatesExisting verifies update-existing semantics
func TestStoreArticles_UpdatesExisting(t *testing.T) {
	store := createTestStore(t)
	item := sampleArticle("https://www.bbc.com/a", testDate, nil)
	store.StoreArticles([]Article{item}, false)

	item.Title = "Changed title"
	item.Summary = strPtr("Now with a summary")
	result := store.StoreArticles([]Article{item}, true)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Count())

	items, err := store.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Changed title", items[0].Title)
	require.NotNil(t, items[0].Summary)
	assert.Equal(t, "Now with a summary", *items[0].Summary)
}

// TestStoreArticles_DuplicateWithinBatch verifies the URL key inside one batch
func TestStoreArticles_DuplicateWithinBatch(t *testing.T) {
	store := createTestStore(t)
	item := sampleArticle("https://www.bbc.com/a", testDate, nil)

	result := store.StoreArticles([]Article{item, item}, false)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
}

// TestStoreArticles_IncompleteSkipped verifies incomplete records never land
func TestStoreArticles_IncompleteSkipped(t *testing.T) {
	store := createTestStore(t)

	noTitle := sampleArticle("https://www.bbc.com/a", testDate, nil)
	noTitle.Title = ""
	noDate := sampleArticle("https://www.bbc.com/b", civil.Date{}, nil)

	result := store.StoreArticles([]Article{noTitle, noDate}, false)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Count())
}

// TestStoreArticles_OutOfRangeDateSkipped verifies dates outside years
// 1 to 9999 are never written
func TestStoreArticles_OutOfRangeDateSkipped(t *testing.T) {
	store := createTestStore(t)

	good := sampleArticle("https://www.bbc.com/good", testDate, nil)
	ancient := sampleArticle("https://www.bbc.com/ancient", civil.Date{Year: -6189, Month: 7, Day: 28}, nil)
	future := sampleArticle("https://www.bbc.com/future", civil.Date{Year: 10000, Month: 1, Day: 1}, nil)

	result := store.StoreArticles([]Article{good, ancient, future}, false)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, result.Skipped)

	items, err := store.ListUnclassified()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://www.bbc.com/good", items[0].URL)
}

// TestListUnclassified_SkipsUnreadableRows verifies one bad row doesn't hide
// the rest
func TestListUnclassified_SkipsUnreadableRows(t *testing.T) {
	store := createTestStore(t)

	result := store.StoreArticles([]Article{sampleArticle("https://www.bbc.com/good", testDate, nil)}, false)
	require.Equal(t, 1, result.Inserted)

	_, err := store.db.Exec(
		`INSERT INTO articles (id, title, url, publication_date, source, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), "Corrupt", "https://www.bbc.com/corrupt", "-6189-07-28", "BBC Innovation",
		"2025-04-15T10:00:00.000000000Z",
	)
	require.NoError(t, err)

	items, err := store.ListUnclassified()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://www.bbc.com/good", items[0].URL)

	all, err := store.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// TestStoreArticles_SummaryNilPreserved verifies nil summary stays nil
func TestStoreArticles_SummaryNilPreserved(t *testing.T) {
	store := createTestStore(t)
	store.StoreArticles([]Article{
		sampleArticle("https://www.bbc.com/a", testDate, nil),
		sampleArticle("https://www.bbc.com/b", testDate, strPtr("")),
	}, false)

	items, err := store.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	byURL := map[string]Article{}
	for _, item := range items {
		byURL[item.URL] = item
	}
	assert.Nil(t, byURL["https://www.bbc.com/a"].Summary)
	require.NotNil(t, byURL["https://www.bbc.com/b"].Summary)
	assert.Equal(t, "", *byURL["https://www.bbc.com/b"].Summary)
}

// TestListUnclassified verifies unclassified lookup and assigned identity
func TestListUnclassified(t *testing.T) {
	store := createTestStore(t)
	store.StoreArticles([]Article{
		sampleArticle("https://www.bbc.com/a", testDate, nil),
		sampleArticle("https://www.bbc.com/b", testDate, nil),
	}, false)

	items, err := store.ListUnclassified()
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.NotEqual(t, uuid.Nil, item.ID, "store should assign an ID")
		assert.False(t, item.IsClassified())
		assert.False(t, item.AddedAt.IsZero())
	}
}

// TestSetClassification verifies verdicts are written once
func TestSetClassification(t *testing.T) {
	store := createTestStore(t)
	store.StoreArticles([]Article{sampleArticle("https://www.bbc.com/a", testDate, nil)}, false)

	items, err := store.ListUnclassified()
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	updated, err := store.SetClassification(id, true)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = store.SetClassification(id, false)
	require.NoError(t, err)
	assert.False(t, updated, "classified articles should not be overwritten")

	item, err := store.GetArticle(id)
	require.NoError(t, err)
	require.NotNil(t, item.AIRelated)
	assert.True(t, *item.AIRelated)
	assert.NotNil(t, item.CheckedAt)

	remaining, err := store.ListUnclassified()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// TestSetClassification_UnknownID verifies no rows change for unknown IDs
func TestSetClassification_UnknownID(t *testing.T) {
	store := createTestStore(t)

	updated, err := store.SetClassification(uuid.New(), true)
	require.NoError(t, err)
	assert.False(t, updated)
}

// TestGetArticle_NotFound verifies not found error
func TestGetArticle_NotFound(t *testing.T) {
	store := createTestStore(t)

	item, err := store.GetArticle(uuid.New())
	assert.ErrorIs(t, err, ErrArticleNotFound)
	assert.Nil(t, item)
}

// TestListClassified_RoundTrip verifies stored data comes back unchanged
func TestListClassified_RoundTrip(t *testing.T) {
	store := createTestStore(t)
	original := sampleArticle("https://www.bbc.com/news/articles/c1", testDate, strPtr("A summary"))
	other := sampleArticle("https://www.bbc.com/news/articles/c2", testDate.AddDays(-1), nil)
	store.StoreArticles([]Article{original, other}, false)

	unclassified, err := store.ListUnclassified()
	require.NoError(t, err)
	for _, item := range unclassified {
		_, err := store.SetClassification(item.ID, true)
		require.NoError(t, err)
	}

	items, err := store.ListClassified(&testDate)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, original.Title, got.Title)
	assert.Equal(t, original.URL, got.URL)
	assert.Equal(t, original.PublicationDate, got.PublicationDate)
	assert.Equal(t, original.Summary, got.Summary)
	assert.Equal(t, original.Source, got.Source)
}

// TestListClassified_OnlyRelated verifies unrelated articles are excluded
func TestListClassified_OnlyRelated(t *testing.T) {
	store := createTestStore(t)
	store.StoreArticles([]Article{
		sampleArticle("https://www.bbc.com/a", testDate, nil),
		sampleArticle("https://www.bbc.com/b", testDate.AddDays(-1), nil),
		sampleArticle("https://www.bbc.com/c", testDate, nil),
	}, false)

	items, err := store.ListUnclassified()
	require.NoError(t, err)
	for _, item := range items {
		_, err := store.SetClassification(item.ID, item.URL != "https://www.bbc.com/c")
		require.NoError(t, err)
	}

	all, err := store.ListClassified(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "https://www.bbc.com/a", all[0].URL, "newest publication date first")
	assert.Equal(t, "https://www.bbc.com/b", all[1].URL)
}

// TestGetArticles verifies selection by ID
func TestGetArticles(t *testing.T) {
	store := createTestStore(t)
	store.StoreArticles([]Article{
		sampleArticle("https://www.bbc.com/a", testDate, nil),
		sampleArticle("https://www.bbc.com/b", testDate, nil),
		sampleArticle("https://www.bbc.com/c", testDate, nil),
	}, false)

	all, err := store.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	selected, err := store.GetArticles([]uuid.UUID{all[0].ID, all[2].ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	none, err := store.GetArticles(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestListArticles_Filters verifies date, source and pagination filters
func TestListArticles_Filters(t *testing.T) {
	store := createTestStore(t)
	tech := sampleArticle("https://www.bbc.com/t", testDate, nil)
	tech.Source = "BBC Technology"
	store.StoreArticles([]Article{
		sampleArticle("https://www.bbc.com/a", testDate, nil),
		sampleArticle("https://www.bbc.com/b", testDate.AddDays(-2), nil),
		tech,
	}, false)

	onDate, err := store.ListArticles(ArticleFilter{Date: &testDate})
	require.NoError(t, err)
	assert.Len(t, onDate, 2)

	source := "BBC Technology"
	bySource, err := store.ListArticles(ArticleFilter{Source: &source})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "https://www.bbc.com/t", bySource[0].URL)

	page, err := store.ListArticles(ArticleFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
