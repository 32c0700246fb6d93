package models

// Book represents a catalogued book in the library
type Book struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	StoragePath string `json:"-"`
	ReadStatus  int    `json:"read_status"`
	StarRating  int    `json:"star_rating"`
	PageRead    int    `json:"page_read"`
	FileSize    int64  `json:"file_size"`
	TotalPages  int    `json:"total_pages"`
}
