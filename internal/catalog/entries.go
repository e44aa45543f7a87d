package catalog

import (
	"database/sql"
	"fmt"
)

// Entry types recognized by the catalog
const (
	EntryMovie      = "movie"
	EntrySeries     = "series"
	EntryCollection = "collection"
)

// CatalogEntry is a provider-resolved metadata record. Identity is
// (MetadataID, MetadataType).
type CatalogEntry struct {
	MetadataID   int64
	MetadataType string
	Title        string
	Year         string
	Rating       string
	Plot         string
	PosterPath   string
	TrailerURL   string
	ExternalID   string
}

// UpsertEntry inserts or updates a catalog entry. The same identity is
// never duplicated.
func (s *Store) UpsertEntry(e *CatalogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO entries (metadata_id, metadata_type, title, year, rating,
		                     plot, poster_path, trailer_url, external_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(metadata_id, metadata_type) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			rating = excluded.rating,
			plot = excluded.plot,
			poster_path = excluded.poster_path,
			trailer_url = excluded.trailer_url,
			external_id = excluded.external_id,
			updated_at = CURRENT_TIMESTAMP
		`, e.MetadataID, e.MetadataType, e.Title, e.Year, e.Rating,
		e.Plot, e.PosterPath, e.TrailerURL, e.ExternalID)

	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// EntryExists reports whether an entry with the given identity is present.
func (s *Store) EntryExists(metadataID int64, metadataType string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM entries WHERE metadata_id = ? AND metadata_type = ?",
		metadataID, metadataType,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	return n > 0, nil
}

const entryColumns = `
	metadata_id, metadata_type, COALESCE(title, ''), COALESCE(year, ''),
	COALESCE(rating, ''), COALESCE(plot, ''), COALESCE(poster_path, ''),
	COALESCE(trailer_url, ''), COALESCE(external_id, '')`

func scanEntry(row interface{ Scan(...any) error }) (*CatalogEntry, error) {
	e := &CatalogEntry{}
	err := row.Scan(
		&e.MetadataID, &e.MetadataType, &e.Title, &e.Year, &e.Rating,
		&e.Plot, &e.PosterPath, &e.TrailerURL, &e.ExternalID,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry retrieves an entry by identity. Returns (nil, nil) when absent.
func (s *Store) GetEntry(metadataID int64, metadataType string) (*CatalogEntry, error) {
	e, err := scanEntry(s.db.QueryRow(
		`SELECT `+entryColumns+` FROM entries WHERE metadata_id = ? AND metadata_type = ?`,
		metadataID, metadataType,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// Entry list sort orders
const (
	SortByYear   = "year"
	SortByRating = "rating"
	SortByRecent = "recent"
)

// ListEntries retrieves entries paged, optionally filtered by type.
// Returns the page and the total count of matching entries.
func (s *Store) ListEntries(entryType, sortBy string, skip, limit int) ([]*CatalogEntry, int, error) {
	where := ""
	args := []any{}
	if entryType != "" {
		where = "WHERE metadata_type = ?"
		args = append(args, entryType)
	}

	var order string
	switch sortBy {
	case SortByRating:
		order = "ORDER BY rating DESC"
	case SortByRecent:
		order = "ORDER BY updated_at DESC"
	default:
		order = "ORDER BY year DESC"
	}

	queryArgs := append(append([]any{}, args...), limit, skip)
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM entries `+where+` `+order+` LIMIT ? OFFSET ?`,
		queryArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count entries: %w", err)
	}

	return entries, total, nil
}
