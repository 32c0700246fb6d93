package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/Nikigner/Personal-Book-Library/internal/models"
	"github.com/Nikigner/Personal-Book-Library/internal/pdf"
)

var (
	// ErrDuplicateName is returned when an insert collides with an existing
	// book name. Name uniqueness is enforced by the schema, not by a
	// check-then-insert, so a concurrent importer cannot slip past it.
	ErrDuplicateName = errors.New("a book with this name already exists")

	// ErrNotFound is returned when a book id does not exist.
	ErrNotFound = errors.New("book not found")
)

// Database handles all catalog persistence. It is the only component that
// touches the schema; everything else goes through its methods.
type Database struct {
	db *sql.DB
}

// NewDatabase creates and initializes the SQLite catalog at dbPath.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// migrate creates the books table and additively upgrades older schemas in
// place. Existing rows are never dropped; a single failed column add is
// logged and skipped rather than failing initialization.
func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		storage_path TEXT NOT NULL,
		read_status INTEGER DEFAULT 0,
		star_rating INTEGER DEFAULT 0,
		page_read INTEGER DEFAULT 0,
		file_size INTEGER,
		total_pages INTEGER DEFAULT 0
	);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return err
	}

	existing, err := d.columnNames()
	if err != nil {
		return err
	}

	migrations := []struct {
		column     string
		definition string
	}{
		{"read_status", "INTEGER DEFAULT 0"},
		{"star_rating", "INTEGER DEFAULT 0"},
		{"page_read", "INTEGER DEFAULT 0"},
		{"file_size", "INTEGER"},
		{"total_pages", "INTEGER DEFAULT 0"},
	}
	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		if _, err := d.db.Exec(fmt.Sprintf("ALTER TABLE books ADD COLUMN %s %s", m.column, m.definition)); err != nil {
			log.Printf("storage: adding column %s: %v", m.column, err)
		}
	}

	d.backfillFileSizes()
	d.backfillPageCounts()

	return nil
}

func (d *Database) columnNames() (map[string]bool, error) {
	rows, err := d.db.Query("PRAGMA table_info(books)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryKey); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

// backfillFileSizes fills file_size for legacy rows that predate the column.
// Rows whose backing file is gone get 0, never NULL.
func (d *Database) backfillFileSizes() {
	rows, err := d.db.Query("SELECT id, storage_path FROM books WHERE file_size IS NULL")
	if err != nil {
		log.Printf("storage: scanning for missing file sizes: %v", err)
		return
	}

	type entry struct {
		id   int64
		path string
	}
	var pending []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.path); err != nil {
			log.Printf("storage: scanning file size row: %v", err)
			continue
		}
		pending = append(pending, e)
	}
	rows.Close()

	for _, e := range pending {
		var size int64
		if info, err := os.Stat(e.path); err == nil {
			size = info.Size()
		} else {
			log.Printf("storage: sizing %s: %v", e.path, err)
		}
		if _, err := d.db.Exec("UPDATE books SET file_size = ? WHERE id = ?", size, e.id); err != nil {
			log.Printf("storage: backfilling file size for book %d: %v", e.id, err)
		}
	}
}

// backfillPageCounts fills total_pages for legacy rows that predate the
// column, re-deriving from the file when it still exists on disk. Rows
// added by ALTER TABLE carry the column default of 0 rather than NULL, so
// both are treated as "lacking".
func (d *Database) backfillPageCounts() {
	rows, err := d.db.Query("SELECT id, storage_path FROM books WHERE total_pages IS NULL OR total_pages = 0")
	if err != nil {
		log.Printf("storage: scanning for missing page counts: %v", err)
		return
	}

	type entry struct {
		id   int64
		path string
	}
	var pending []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.path); err != nil {
			log.Printf("storage: scanning page count row: %v", err)
			continue
		}
		pending = append(pending, e)
	}
	rows.Close()

	for _, e := range pending {
		pages := 0
		if _, err := os.Stat(e.path); err == nil && strings.EqualFold(filepath.Ext(e.path), ".pdf") {
			pages = pdf.PageCount(e.path)
		}
		if _, err := d.db.Exec("UPDATE books SET total_pages = ? WHERE id = ?", pages, e.id); err != nil {
			log.Printf("storage: backfilling page count for book %d: %v", e.id, err)
		}
	}
}

// AddBook inserts a new book and returns its assigned id. Rating, read
// status, and reading progress all start at zero.
func (d *Database) AddBook(name, storagePath string, fileSize int64, totalPages int) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO books (name, storage_path, read_status, star_rating, page_read, file_size, total_pages)
		VALUES (?, ?, 0, 0, 0, ?, ?)`,
		name, storagePath, fileSize, totalPages,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, ErrDuplicateName
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetBook retrieves a book by id.
func (d *Database) GetBook(id int64) (*models.Book, error) {
	book := &models.Book{}
	err := d.db.QueryRow(`
		SELECT id, name, storage_path, read_status, star_rating, page_read, file_size, total_pages
		FROM books WHERE id = ?`, id,
	).Scan(&book.ID, &book.Name, &book.StoragePath, &book.ReadStatus, &book.StarRating,
		&book.PageRead, &book.FileSize, &book.TotalPages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// ListBooks returns every catalogued book. No ordering is guaranteed;
// display sorting is the caller's job.
func (d *Database) ListBooks() ([]models.Book, error) {
	rows, err := d.db.Query(`
		SELECT id, name, storage_path, read_status, star_rating, page_read, file_size, total_pages
		FROM books`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var book models.Book
		err := rows.Scan(&book.ID, &book.Name, &book.StoragePath, &book.ReadStatus,
			&book.StarRating, &book.PageRead, &book.FileSize, &book.TotalPages)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// BookUpdate describes a partial update. Nil fields are left untouched.
type BookUpdate struct {
	ReadStatus *int
	StarRating *int
	PageRead   *int
}

// UpdateBook applies a partial update to a book. Supplying no fields is a
// no-op, not an error, as is updating an id that does not exist.
func (d *Database) UpdateBook(id int64, update BookUpdate) error {
	var sets []string
	var params []interface{}

	if update.ReadStatus != nil {
		sets = append(sets, "read_status = ?")
		params = append(params, *update.ReadStatus)
	}
	if update.StarRating != nil {
		sets = append(sets, "star_rating = ?")
		params = append(params, *update.StarRating)
	}
	if update.PageRead != nil {
		sets = append(sets, "page_read = ?")
		params = append(params, *update.PageRead)
	}

	if len(sets) == 0 {
		return nil
	}

	params = append(params, id)
	query := "UPDATE books SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	_, err := d.db.Exec(query, params...)
	return err
}

// DeleteBook removes a book's row. It never touches the filesystem; the
// caller owns the backing file's lifecycle. Deleting an absent id is a no-op.
func (d *Database) DeleteBook(id int64) error {
	_, err := d.db.Exec("DELETE FROM books WHERE id = ?", id)
	return err
}

// BookExists reports whether a book with the given name is catalogued.
// The comparison is case-sensitive, matching the schema's constraint.
func (d *Database) BookExists(name string) (bool, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM books WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
