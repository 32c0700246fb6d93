// Package importer turns batches of user-selected files into catalog
// entries without blocking the caller. A batch runs on its own goroutine,
// one file at a time, and reports per-file outcomes over a channel.
package importer

import (
	"errors"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/Nikigner/Personal-Book-Library/internal/models"
	"github.com/Nikigner/Personal-Book-Library/internal/pdf"
	"github.com/Nikigner/Personal-Book-Library/internal/storage"
)

// ErrBusy is returned when a batch is started while another is running.
// The pipeline has no internal queue; at most one batch runs at a time.
var ErrBusy = errors.New("an import batch is already running")

// EventType tags an import outcome.
type EventType string

const (
	EventAdded     EventType = "added"
	EventDuplicate EventType = "duplicate"
	EventError     EventType = "error"
	EventFinished  EventType = "finished"
)

// Event is one import outcome. Exactly one event is emitted per input path,
// in input order, followed by a single finished event.
type Event struct {
	Type EventType

	// Book is the full new record for added events.
	Book *models.Book

	// Name is the duplicate book name for duplicate events.
	Name string

	// Filename and Err describe the failure for error events.
	Filename string
	Err      error

	// Summary accompanies the finished event.
	Summary *Summary
}

// Summary describes a completed batch.
type Summary struct {
	BatchID     string `json:"batch_id"`
	Added       int    `json:"added"`
	Duplicates  int    `json:"duplicates"`
	Errors      int    `json:"errors"`
	BytesCopied int64  `json:"bytes_copied"`
}

// Importer copies files into managed storage and registers them in the
// catalog. Duplicate detection relies on the store's uniqueness constraint;
// the pre-insert existence check only short-circuits the file copy.
type Importer struct {
	db    *storage.Database
	files *storage.FileStorage

	mu      sync.Mutex
	running bool
}

// New creates an import pipeline over the given store and managed storage.
func New(db *storage.Database, files *storage.FileStorage) *Importer {
	return &Importer{db: db, files: files}
}

// Running reports whether a batch is currently in flight.
func (im *Importer) Running() bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.running
}

// Start begins importing the given paths in the background and returns the
// event channel for the batch. The channel is buffered for the whole batch,
// delivers events in input order, and is closed after the finished event.
// Returns ErrBusy while a previous batch is still running.
func (im *Importer) Start(paths []string) (<-chan Event, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if im.running {
		return nil, ErrBusy
	}
	im.running = true

	// One event per path plus the finished event, so the worker never
	// blocks on a slow consumer.
	events := make(chan Event, len(paths)+1)
	go im.run(uuid.New().String(), paths, events)

	return events, nil
}

func (im *Importer) run(batchID string, paths []string, events chan<- Event) {
	defer func() {
		im.mu.Lock()
		im.running = false
		im.mu.Unlock()
		close(events)
	}()

	summary := &Summary{BatchID: batchID}

	for _, path := range paths {
		filename := filepath.Base(path)
		name := strings.TrimSuffix(filename, filepath.Ext(filename))
		if name == "" {
			// Dotfiles like ".pdf" are all extension; keep the full
			// filename rather than registering an empty name.
			name = filename
		}

		exists, err := im.db.BookExists(name)
		if err != nil {
			// The insert's uniqueness constraint still protects us, so a
			// failed pre-check just costs a file copy.
			log.Printf("importer: duplicate pre-check for %q: %v", name, err)
		}
		if exists {
			summary.Duplicates++
			events <- Event{Type: EventDuplicate, Name: name}
			continue
		}

		dest, size, err := im.files.ImportFile(path)
		if err != nil {
			summary.Errors++
			events <- Event{Type: EventError, Filename: filename, Err: err}
			continue
		}

		totalPages := 0
		if strings.EqualFold(filepath.Ext(filename), ".pdf") {
			totalPages = pdf.PageCount(dest)
		}

		id, err := im.db.AddBook(name, dest, size, totalPages)
		if errors.Is(err, storage.ErrDuplicateName) {
			// Lost the race against a concurrent insert. The copied file
			// stays in place; the registered record already points at a
			// copy with the same name.
			summary.Duplicates++
			events <- Event{Type: EventDuplicate, Name: name}
			continue
		}
		if err != nil {
			summary.Errors++
			events <- Event{Type: EventError, Filename: filename, Err: err}
			continue
		}

		book, err := im.db.GetBook(id)
		if err != nil {
			log.Printf("importer: reloading new book %d: %v", id, err)
			book = &models.Book{
				ID:          id,
				Name:        name,
				StoragePath: dest,
				FileSize:    size,
				TotalPages:  totalPages,
			}
		}

		summary.Added++
		summary.BytesCopied += size
		events <- Event{Type: EventAdded, Book: book}
	}

	log.Printf("importer: batch %s finished: %d added (%s), %d duplicates, %d errors",
		batchID, summary.Added, humanize.Bytes(uint64(summary.BytesCopied)),
		summary.Duplicates, summary.Errors)

	events <- Event{Type: EventFinished, Summary: summary}
}
