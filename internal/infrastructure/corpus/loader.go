package corpus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// Regulation scans are full of decorative stamps and seals; anything
// smaller than this is dropped, matching the ingestion cutoff of the
// upstream corpus tooling.
const minImageDimension = 50

// Loader reads the corpus directory. One file is one document; files the
// loader cannot extract are reported and skipped, never fatal for the
// whole run.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) LoadAll(ctx context.Context) ([]domain.Document, []domain.FailedDocument, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read corpus directory %s: %w", l.dir, err)
	}

	// Directory order is platform-dependent; a stable document order keeps
	// chunk insertion order, and with it ranking tie-breaks, reproducible.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		docs   []domain.Document
		failed []domain.FailedDocument
	)
	now := time.Now().UTC()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !supportedExt(ext) {
			continue
		}

		text, images, err := l.extract(filepath.Join(l.dir, name), ext)
		if err != nil {
			failed = append(failed, domain.FailedDocument{Filename: name, Reason: err.Error()})
			continue
		}
		if strings.TrimSpace(text) == "" {
			failed = append(failed, domain.FailedDocument{Filename: name, Reason: "no extractable text"})
			continue
		}

		for i := range images {
			images[i].DocumentID = name
			images[i].Position = i
		}

		docs = append(docs, domain.Document{
			ID:         name,
			Filename:   name,
			Text:       text,
			Images:     images,
			IngestedAt: now,
		})
	}

	return docs, failed, nil
}

func supportedExt(ext string) bool {
	switch ext {
	case ".txt", ".md", ".pdf", ".xlsx":
		return true
	default:
		return false
	}
}

func (l *Loader) extract(path, ext string) (string, []domain.DocumentImage, error) {
	switch ext {
	case ".txt", ".md":
		text, err := extractPlainText(path)
		return text, nil, err
	case ".pdf":
		return extractPDF(path)
	case ".xlsx":
		return extractSpreadsheet(path)
	default:
		return "", nil, fmt.Errorf("unsupported extension %s", ext)
	}
}

func extractPlainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid utf-8")
	}
	return strings.TrimSpace(string(raw)), nil
}

func extractPDF(path string) (string, []domain.DocumentImage, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", nil, fmt.Errorf("read pdf text: %w", err)
	}

	// Images are supplementary: a page we cannot decode loses its images,
	// never the document.
	return strings.TrimSpace(buf.String()), extractPDFImages(reader), nil
}

// extractPDFImages walks every page's XObject resources and collects the
// embedded image streams in page order.
func extractPDFImages(reader *pdf.Reader) []domain.DocumentImage {
	var images []domain.DocumentImage

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		xobjects := page.Resources().Key("XObject")
		if xobjects.Kind() != pdf.Dict {
			continue
		}

		for _, name := range xobjects.Keys() {
			obj := xobjects.Key(name)
			if obj.Kind() != pdf.Stream || obj.Key("Subtype").Name() != "Image" {
				continue
			}
			if obj.Key("Width").Int64() < minImageDimension || obj.Key("Height").Int64() < minImageDimension {
				continue
			}

			data, err := pdfImageData(obj)
			if err != nil || len(data) == 0 {
				continue
			}
			images = append(images, domain.DocumentImage{
				Page:   pageNum,
				Format: pdfImageFormat(obj.Key("Filter").Name()),
				Data:   data,
			})
		}
	}
	return images
}

// pdfImageData reads one image stream. The pdf library panics on stream
// filters it cannot decode; that must cost us the one image, not the run.
func pdfImageData(obj pdf.Value) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("decode image stream: %v", r)
		}
	}()

	rc := obj.Reader()
	defer rc.Close()
	return io.ReadAll(rc)
}

func pdfImageFormat(filter string) string {
	switch filter {
	case "DCTDecode":
		return "jpeg"
	case "JPXDecode":
		return "jp2"
	case "CCITTFaxDecode":
		return "tiff"
	default:
		return "raw"
	}
}

// extractSpreadsheet flattens every sheet into tab-separated rows. Tariff
// schedules arrive as spreadsheets; cell order is preserved so rate
// columns stay next to their headings. Anchored pictures (chart exports,
// stamped seals) come along as document images.
func extractSpreadsheet(path string) (string, []domain.DocumentImage, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer wb.Close()

	var (
		b      strings.Builder
		images []domain.DocumentImage
	)
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}

		images = append(images, spreadsheetImages(wb, sheet)...)
	}
	return strings.TrimSpace(b.String()), images, nil
}

func spreadsheetImages(wb *excelize.File, sheet string) []domain.DocumentImage {
	cells, err := wb.GetPictureCells(sheet)
	if err != nil {
		return nil
	}
	sort.Strings(cells)

	var images []domain.DocumentImage
	for _, cell := range cells {
		pictures, err := wb.GetPictures(sheet, cell)
		if err != nil {
			continue
		}
		for _, picture := range pictures {
			if len(picture.File) == 0 {
				continue
			}
			images = append(images, domain.DocumentImage{
				Format: strings.TrimPrefix(strings.ToLower(picture.Extension), "."),
				Data:   picture.File,
			})
		}
	}
	return images
}
