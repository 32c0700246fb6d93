// Package testgen generates minimal document files for tests, with
// configurable page counts, so tests never depend on binary fixtures
// checked into the repository.
package testgen

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

// PDFBytes returns a minimal, structurally valid PDF with the given number
// of pages. Pages carry only a media box; there is no content, which is
// enough for page counting.
func PDFBytes(pages int) []byte {
	if pages < 1 {
		pages = 1
	}

	var buf bytes.Buffer
	var offsets []int

	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))

	for i := 0; i < pages; i++ {
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n", i+3))
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefPos)

	return buf.Bytes()
}

// WritePDF writes a generated PDF with the given page count to path.
func WritePDF(t *testing.T, path string, pages int) {
	t.Helper()
	if err := os.WriteFile(path, PDFBytes(pages), 0644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
}

// WriteFile writes arbitrary content to path, for non-PDF fixtures.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}
