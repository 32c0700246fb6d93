package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nikigner/Personal-Book-Library/internal/storage"
	"github.com/Nikigner/Personal-Book-Library/internal/testgen"
)

func setupImporter(t *testing.T) (*Importer, *storage.Database, *storage.FileStorage) {
	t.Helper()

	dir := t.TempDir()
	db, err := storage.NewDatabase(filepath.Join(dir, "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := storage.NewFileStorage(filepath.Join(dir, "books_library"))
	require.NoError(t, err)

	return New(db, files), db, files
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestImportPDF(t *testing.T) {
	im, _, files := setupImporter(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "Alpha.pdf")
	testgen.WritePDF(t, src, 10)

	events, err := im.Start([]string{src})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)

	added := got[0]
	assert.Equal(t, EventAdded, added.Type)
	require.NotNil(t, added.Book)
	assert.Equal(t, "Alpha", added.Book.Name)
	assert.Equal(t, 10, added.Book.TotalPages)
	assert.Equal(t, int64(len(testgen.PDFBytes(10))), added.Book.FileSize)
	assert.Equal(t, 0, added.Book.PageRead)
	assert.Equal(t, 0, added.Book.StarRating)
	assert.Equal(t, filepath.Join(files.Dir(), "Alpha.pdf"), added.Book.StoragePath)

	// The managed copy exists; the source is untouched.
	_, err = os.Stat(added.Book.StoragePath)
	assert.NoError(t, err)
	_, err = os.Stat(src)
	assert.NoError(t, err)

	finished := got[1]
	assert.Equal(t, EventFinished, finished.Type)
	require.NotNil(t, finished.Summary)
	assert.Equal(t, 1, finished.Summary.Added)
	assert.Equal(t, 0, finished.Summary.Duplicates)
	assert.Equal(t, 0, finished.Summary.Errors)
	assert.NotEmpty(t, finished.Summary.BatchID)
}

func TestImportDotfileKeepsFullName(t *testing.T) {
	im, db, _ := setupImporter(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, ".pdf")
	testgen.WritePDF(t, src, 3)

	events, err := im.Start([]string{src})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	require.Equal(t, EventAdded, got[0].Type)
	// A filename that is all extension must not collapse to an empty name.
	assert.Equal(t, ".pdf", got[0].Book.Name)
	assert.Equal(t, 3, got[0].Book.TotalPages)

	exists, err := db.BookExists(".pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestImportEPUBHasNoPages(t *testing.T) {
	im, _, _ := setupImporter(t)

	src := filepath.Join(t.TempDir(), "Novel.epub")
	testgen.WriteFile(t, src, "epub bytes")

	events, err := im.Start([]string{src})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	require.Equal(t, EventAdded, got[0].Type)

	// No page model is defined for EPUBs; the total stays unknown.
	assert.Equal(t, 0, got[0].Book.TotalPages)
	assert.Equal(t, int64(len("epub bytes")), got[0].Book.FileSize)
}

func TestImportDuplicateName(t *testing.T) {
	im, db, files := setupImporter(t)

	srcDir := t.TempDir()
	first := filepath.Join(srcDir, "Alpha.pdf")
	testgen.WritePDF(t, first, 3)

	otherDir := t.TempDir()
	second := filepath.Join(otherDir, "Alpha.epub")
	testgen.WriteFile(t, second, "different file, same name")

	// Two sources normalizing to the same name yield exactly one added
	// record and one duplicate event, in input order.
	events, err := im.Start([]string{first, second})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, EventAdded, got[0].Type)
	assert.Equal(t, EventDuplicate, got[1].Type)
	assert.Equal(t, "Alpha", got[1].Name)
	assert.Equal(t, EventFinished, got[2].Type)

	books, err := db.ListBooks()
	require.NoError(t, err)
	assert.Len(t, books, 1)

	// The duplicate source was never copied.
	entries, err := os.ReadDir(files.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImportMissingSourceContinuesBatch(t *testing.T) {
	im, db, _ := setupImporter(t)

	srcDir := t.TempDir()
	good := filepath.Join(srcDir, "Good.pdf")
	testgen.WritePDF(t, good, 2)
	bad := filepath.Join(srcDir, "Bad.pdf") // never created

	events, err := im.Start([]string{bad, good})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)

	assert.Equal(t, EventError, got[0].Type)
	assert.Equal(t, "Bad.pdf", got[0].Filename)
	assert.Error(t, got[0].Err)

	// One bad file never aborts the batch.
	assert.Equal(t, EventAdded, got[1].Type)
	assert.Equal(t, "Good", got[1].Book.Name)

	assert.Equal(t, EventFinished, got[2].Type)
	assert.Equal(t, 1, got[2].Summary.Errors)
	assert.Equal(t, 1, got[2].Summary.Added)

	books, err := db.ListBooks()
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestImportEventOrderMatchesInput(t *testing.T) {
	im, _, _ := setupImporter(t)

	srcDir := t.TempDir()
	names := []string{"One.pdf", "Two.pdf", "Three.pdf"}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(srcDir, n)
		testgen.WritePDF(t, paths[i], i+1)
	}

	events, err := im.Start(paths)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 4)
	assert.Equal(t, "One", got[0].Book.Name)
	assert.Equal(t, "Two", got[1].Book.Name)
	assert.Equal(t, "Three", got[2].Book.Name)
	assert.Equal(t, EventFinished, got[3].Type)
}

func TestImportRejectsConcurrentBatch(t *testing.T) {
	im, _, _ := setupImporter(t)

	im.mu.Lock()
	im.running = true
	im.mu.Unlock()

	_, err := im.Start([]string{"whatever.pdf"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, im.Running())

	im.mu.Lock()
	im.running = false
	im.mu.Unlock()

	// Once the previous batch is done, a new one is admitted.
	src := filepath.Join(t.TempDir(), "Alpha.pdf")
	testgen.WritePDF(t, src, 1)
	events, err := im.Start([]string{src})
	require.NoError(t, err)
	collect(t, events)
	assert.False(t, im.Running())
}

func TestImportPreExistingNameSkipsCopy(t *testing.T) {
	im, db, files := setupImporter(t)

	_, err := db.AddBook("Alpha", "/somewhere/Alpha.pdf", 10, 1)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "Alpha.pdf")
	testgen.WritePDF(t, src, 5)

	events, err := im.Start([]string{src})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventDuplicate, got[0].Type)
	assert.Equal(t, "Alpha", got[0].Name)

	entries, err := os.ReadDir(files.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
