package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadAllReadsPlainTextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "duties.txt", "Import duties are assessed on the customs value.")
	writeFile(t, dir, "origin.md", "# Rules of Origin\n\nPreferential origin requires substantial transformation.")
	writeFile(t, dir, "notes.docx", "ignored format")

	loader := NewLoader(dir)
	docs, failed, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	// Alphabetical, so insertion order is stable across runs.
	if docs[0].Filename != "duties.txt" || docs[1].Filename != "origin.md" {
		t.Fatalf("unexpected document order: %s, %s", docs[0].Filename, docs[1].Filename)
	}
	if docs[0].ID != "duties.txt" {
		t.Fatalf("document id should be the filename, got %q", docs[0].ID)
	}
}

func TestLoadAllReportsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "Export licensing overview.")
	writeFile(t, dir, "binary.txt", string([]byte{0xff, 0xfe, 0x00, 0x80}))
	writeFile(t, dir, "empty.txt", "   \n  ")
	writeFile(t, dir, "broken.pdf", "not a real pdf")

	loader := NewLoader(dir)
	docs, failed, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "good.txt" {
		t.Fatalf("expected only the readable document, got %+v", docs)
	}
	if len(failed) != 3 {
		t.Fatalf("expected 3 failures, got %+v", failed)
	}
	for _, f := range failed {
		if f.Reason == "" {
			t.Fatalf("failure for %s has no reason", f.Filename)
		}
	}
}

func TestLoadAllPlainTextCarriesNoImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "duties.txt", "Import duties are assessed on the customs value.")

	loader := NewLoader(dir)
	docs, _, err := loader.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(docs) != 1 || len(docs[0].Images) != 0 {
		t.Fatalf("plain text must not produce images: %+v", docs)
	}
}

func TestPDFImageFormat(t *testing.T) {
	cases := map[string]string{
		"DCTDecode":      "jpeg",
		"JPXDecode":      "jp2",
		"CCITTFaxDecode": "tiff",
		"FlateDecode":    "raw",
		"":               "raw",
	}
	for filter, want := range cases {
		if got := pdfImageFormat(filter); got != want {
			t.Fatalf("pdfImageFormat(%q) = %q, want %q", filter, got, want)
		}
	}
}

func TestLoadAllMissingDirectoryFails(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope"))
	if _, _, err := loader.LoadAll(context.Background()); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
