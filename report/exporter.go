package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pevans/ainews/articles"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// DefaultTitle heads every page of a report.
const DefaultTitle = "AI News Article Extractor (BBC News)"

const (
	unicodeFamily  = "DejaVu"
	fallbackFamily = "Helvetica"
)

// Font files looked up in Config.FontDir, by style.
var fontFiles = map[string]string{
	"":  "DejaVuSans.ttf",
	"B": "DejaVuSans-Bold.ttf",
	"I": "DejaVuSans-Italic.ttf",
}

var ErrNothingToExport = errors.New("no articles to export")

// Config controls report rendering.
type Config struct {
	Title   string `yaml:"title"`
	FontDir string `yaml:"font_dir"`
}

// Exporter renders articles into a PDF report.
type Exporter struct {
	title string
	fonts map[string][]byte // nil when falling back to core fonts
	log   logrus.FieldLogger
}

// NewExporter loads the Unicode fonts from cfg.FontDir. If any of them is
// missing or unusable the exporter falls back to the built-in fonts, and
// text outside Windows-1252 is replaced with '?'.
func NewExporter(cfg Config, logger logrus.FieldLogger) *Exporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}

	e := &Exporter{title: cfg.Title, log: logger}

	fonts, err := loadFonts(cfg.FontDir)
	if err != nil {
		logger.WithError(err).Warn("unicode font unavailable; falling back to built-in fonts")
		return e
	}

	e.fonts = fonts
	logger.WithField("font_dir", cfg.FontDir).Info("unicode font loaded")
	return e
}

// Unicode reports whether reports are rendered with the Unicode font.
func (e *Exporter) Unicode() bool {
	return e.fonts != nil
}

// Export renders items, in order, into a PDF document.
func (e *Exporter) Export(items []articles.Article) ([]byte, error) {
	if len(items) == 0 {
		return nil, ErrNothingToExport
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	family := fallbackFamily
	if e.Unicode() {
		family = unicodeFamily
		for style, data := range e.fonts {
			pdf.AddUTF8FontFromBytes(unicodeFamily, style, data)
		}
	}

	text := e.prepare
	pdf.SetTitle(e.title, true)
	pdf.SetAutoPageBreak(true, 15)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(family, "B", 12)
		pdf.CellFormat(0, 10, text(e.title), "", 1, "C", false, 0, "")
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(family, "I", 8)
		pdf.CellFormat(0, 10, text(fmt.Sprintf("Page %d", pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	for _, item := range items {
		pdf.SetFont(family, "B", 12)
		pdf.MultiCell(0, 6, text(item.Title), "", "", false)
		pdf.Ln(5)

		pdf.SetFont(family, "I", 9)
		pdf.CellFormat(0, 5, text("URL: "+item.URL), "", 1, "", false, 0, item.URL)
		pdf.CellFormat(0, 5, text("Date: "+item.PublicationDate.String()), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 5, text("Source: "+item.Source), "", 1, "", false, 0, "")
		pdf.Ln(3)

		pdf.SetFont(family, "", 10)
		pdf.MultiCell(0, 5, text("Summary:"), "", "", false)
		pdf.Ln(2)
		pdf.MultiCell(0, 5, text(item.SummaryText(articles.NoSummary)), "", "", false)
		pdf.Ln(2)
		pdf.Ln(10)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	e.log.WithField("articles", len(items)).Info("report rendered")
	return buf.Bytes(), nil
}

func (e *Exporter) prepare(s string) string {
	if e.Unicode() {
		return s
	}
	return Transliterate(s)
}

// Transliterate re-encodes s as Windows-1252 for the built-in PDF fonts.
// Characters the code page lacks become '?'.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

// loadFonts reads every font file and checks that fpdf accepts it. The font
// parser panics on some truncated files; that counts as unusable.
func loadFonts(dir string) (fonts map[string][]byte, err error) {
	if dir == "" {
		return nil, errors.New("no font directory configured")
	}

	defer func() {
		if r := recover(); r != nil {
			fonts, err = nil, fmt.Errorf("failed to parse font: %v", r)
		}
	}()

	fonts = make(map[string][]byte, len(fontFiles))
	probe := fpdf.New("P", "mm", "A4", "")

	for style, name := range fontFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		probe.AddUTF8FontFromBytes(unicodeFamily, style, data)
		if probe.Err() {
			return nil, fmt.Errorf("failed to load %s: %w", name, probe.Error())
		}
		fonts[style] = data
	}

	return fonts, nil
}
