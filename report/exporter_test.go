package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleArticles() []articles.Article {
	summary := "Researchers say the model — trained on “curated” data — beats earlier systems. 日本語"
	return []articles.Article{
		{
			Title:           "AI model writes its own tests",
			URL:             "https://www.bbc.com/news/articles/c1",
			PublicationDate: civil.Date{Year: 2025, Month: 4, Day: 15},
			Summary:         &summary,
			Source:          "BBC Technology",
		},
		{
			Title:           "Café robots serve crème brûlée",
			URL:             "https://www.bbc.com/news/articles/c2",
			PublicationDate: civil.Date{Year: 2025, Month: 4, Day: 14},
			Source:          "BBC Innovation",
		},
	}
}

// TestNewExporter_Fallback verifies missing fonts fall back to core fonts
func TestNewExporter_Fallback(t *testing.T) {
	e := NewExporter(Config{FontDir: t.TempDir()}, discardLogger())
	assert.False(t, e.Unicode())

	e = NewExporter(Config{}, discardLogger())
	assert.False(t, e.Unicode())
	assert.Equal(t, DefaultTitle, e.title)
}

// TestNewExporter_BadFontFiles verifies unusable font files fall back
func TestNewExporter_BadFontFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range fontFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("not a font"), 0644))
	}

	e := NewExporter(Config{FontDir: dir}, discardLogger())
	assert.False(t, e.Unicode())
}

// TestExport_Fallback verifies a PDF is produced with non-Latin text
func TestExport_Fallback(t *testing.T) {
	e := NewExporter(Config{Title: "Daily AI digest"}, discardLogger())

	data, err := e.Export(sampleArticles())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output should be a PDF")
	assert.Greater(t, len(data), 500)
}

// TestExport_Empty verifies an empty selection is rejected
func TestExport_Empty(t *testing.T) {
	e := NewExporter(Config{}, discardLogger())

	data, err := e.Export(nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Nil(t, data)
}

// TestTransliterate verifies Windows-1252 substitution
func TestTransliterate(t *testing.T) {
	assert.Equal(t, "plain ascii", Transliterate("plain ascii"))
	assert.Equal(t, "caf\xe9", Transliterate("café"))
	assert.Equal(t, "\x93quoted\x94 \x97 dash", Transliterate("“quoted” — dash"))
	assert.Equal(t, "??? text", Transliterate("日本語 text"))
	assert.Equal(t, "", Transliterate(""))
}

// TestFileName verifies the dated report name
func TestFileName(t *testing.T) {
	assert.Equal(t, "ai_news_2025-04-15.pdf", FileName(civil.Date{Year: 2025, Month: 4, Day: 15}))
}

// TestFileSink verifies reports are written to disk
func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := FileSink{Dir: dir}

	path, err := sink.Save(context.Background(), "ai_news_2025-04-15.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ai_news_2025-04-15.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

// TestFileSink_StaysInDir verifies names can't escape the directory
func TestFileSink_StaysInDir(t *testing.T) {
	dir := t.TempDir()
	sink := FileSink{Dir: dir}

	path, err := sink.Save(context.Background(), "../escape.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.pdf"), path)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

// TestS3Sink verifies uploads use the bucket, prefix and content type
func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink := newS3Sink(client, S3Config{Bucket: "reports", Prefix: "ainews"})

	location, err := sink.Save(context.Background(), "ai_news_2025-04-15.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/ainews/ai_news_2025-04-15.pdf", location)

	require.NotNil(t, client.input)
	assert.Equal(t, "reports", *client.input.Bucket)
	assert.Equal(t, "ainews/ai_news_2025-04-15.pdf", *client.input.Key)
	assert.Equal(t, "application/pdf", *client.input.ContentType)
	assert.Equal(t, []byte("%PDF"), client.body)
}

// TestS3Sink_Error verifies upload failures are returned
func TestS3Sink_Error(t *testing.T) {
	sink := newS3Sink(&fakeS3{err: errors.New("access denied")}, S3Config{Bucket: "reports"})

	_, err := sink.Save(context.Background(), "r.pdf", []byte("%PDF"))
	assert.ErrorContains(t, err, "access denied")
}

// TestNewS3Sink_RequiresBucket verifies bucket validation
func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)
}
