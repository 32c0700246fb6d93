package pdf

import (
	"log"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the number of pages in a PDF file.
//
// It never fails loudly: missing files, encrypted documents that cannot be
// opened with an empty password, and structurally unreadable files all yield
// 0 pages. Callers treat 0 as "unknown" and must not derive progress from it.
func PageCount(filePath string) int {
	if _, err := os.Stat(filePath); err != nil {
		return 0
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Printf("pdf: open %s: %v", filePath, err)
		return 0
	}
	defer f.Close()

	// The default configuration attempts decryption with an empty password;
	// anything stronger is out of reach here and counts as unreadable.
	info, err := api.PDFInfo(f, filePath, nil, false, model.NewDefaultConfiguration())
	if err != nil {
		log.Printf("pdf: reading %s for page count: %v", filePath, err)
		return 0
	}

	if info.PageCount < 0 {
		return 0
	}
	return info.PageCount
}
