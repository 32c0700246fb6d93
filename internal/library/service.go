// Package library is the surface the front end talks to. It wraps the store
// with a deliberate policy: persistence failures are logged and converted to
// neutral results instead of propagating, so a broken disk degrades the
// catalog view rather than crashing the application.
package library

import (
	"log"
	"os"

	"github.com/Nikigner/Personal-Book-Library/internal/models"
	"github.com/Nikigner/Personal-Book-Library/internal/progress"
	"github.com/Nikigner/Personal-Book-Library/internal/storage"
)

const maxStarRating = 5

// Service exposes catalog reads and single-record mutations.
type Service struct {
	db    *storage.Database
	files *storage.FileStorage
}

// NewService creates a library service over the given store and managed
// storage.
func NewService(db *storage.Database, files *storage.FileStorage) *Service {
	return &Service{db: db, files: files}
}

// List returns every catalogued book, or nothing when the store is
// unavailable. Ordering is up to the caller.
func (s *Service) List() []models.Book {
	books, err := s.db.ListBooks()
	if err != nil {
		log.Printf("library: listing books: %v", err)
		return nil
	}
	return books
}

// Get returns a book by id, or nil when it does not exist or the store is
// unavailable.
func (s *Service) Get(id int64) *models.Book {
	book, err := s.db.GetBook(id)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Printf("library: loading book %d: %v", id, err)
		}
		return nil
	}
	return book
}

// Exists reports whether a book with the given name is catalogued.
func (s *Service) Exists(name string) bool {
	exists, err := s.db.BookExists(name)
	if err != nil {
		log.Printf("library: checking name %q: %v", name, err)
		return false
	}
	return exists
}

// SetRating stores a star rating, clamped to [0, 5]. The clamp lives here
// rather than trusting callers, so a rating can never be persisted out of
// range no matter how it was produced.
func (s *Service) SetRating(id int64, stars int) {
	if stars < 0 {
		stars = 0
	}
	if stars > maxStarRating {
		stars = maxStarRating
	}
	if err := s.db.UpdateBook(id, storage.BookUpdate{StarRating: &stars}); err != nil {
		log.Printf("library: updating rating for book %d: %v", id, err)
	}
}

// SetPageRead stores reading progress. When the book's total page count is
// known, the page is clamped into [0, total_pages]; an unknown total only
// clamps negatives.
func (s *Service) SetPageRead(id int64, page int) {
	if page < 0 {
		page = 0
	}
	if book, err := s.db.GetBook(id); err == nil && book.TotalPages > 0 && page > book.TotalPages {
		page = book.TotalPages
	}
	if err := s.db.UpdateBook(id, storage.BookUpdate{PageRead: &page}); err != nil {
		log.Printf("library: updating page read for book %d: %v", id, err)
	}
}

// SetReadStatus stores the legacy read_status flag. Nothing in the current
// front end sets it, but the field is kept persisted and writable.
func (s *Service) SetReadStatus(id int64, status int) {
	if err := s.db.UpdateBook(id, storage.BookUpdate{ReadStatus: &status}); err != nil {
		log.Printf("library: updating read status for book %d: %v", id, err)
	}
}

// Delete removes a book's row and then makes a best-effort attempt to remove
// its managed file. File removal failure never rolls back the row deletion;
// the two operations are independent.
func (s *Service) Delete(id int64) {
	book, err := s.db.GetBook(id)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Printf("library: loading book %d before delete: %v", id, err)
		}
		return
	}

	if err := s.db.DeleteBook(id); err != nil {
		log.Printf("library: deleting book %d: %v", id, err)
		return
	}

	if book.StoragePath == "" {
		return
	}
	if _, err := os.Stat(book.StoragePath); err != nil {
		return
	}
	if err := s.files.Remove(book.StoragePath); err != nil {
		log.Printf("library: removing file %s: %v", book.StoragePath, err)
	}
}

// Progress returns the completion percentage for a book, derived on demand.
func (s *Service) Progress(book *models.Book) int {
	return progress.Percentage(book.PageRead, book.TotalPages)
}
