package catalog

import (
	"database/sql"
	"fmt"
)

// Source is an external channel whose announcements are ingested.
type Source struct {
	SourceID int64
	Name     string
}

// AddSource registers a source, updating its name if already present.
func (s *Store) AddSource(sourceID int64, name string) error {
	_, err := s.db.Exec(`
		INSERT INTO sources (source_id, name) VALUES (?, ?)
		ON CONFLICT(source_id) DO UPDATE SET name = excluded.name`,
		sourceID, name)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}
	return nil
}

// RemoveSource unregisters a source.
func (s *Store) RemoveSource(sourceID int64) error {
	_, err := s.db.Exec("DELETE FROM sources WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	return nil
}

// GetSource retrieves one source. Returns (nil, nil) when absent.
func (s *Store) GetSource(sourceID int64) (*Source, error) {
	src := &Source{}
	err := s.db.QueryRow(
		"SELECT source_id, COALESCE(name, '') FROM sources WHERE source_id = ?",
		sourceID,
	).Scan(&src.SourceID, &src.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return src, nil
}

// ListSources returns all registered sources.
func (s *Store) ListSources() ([]*Source, error) {
	rows, err := s.db.Query("SELECT source_id, COALESCE(name, '') FROM sources ORDER BY source_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src := &Source{}
		if err := rows.Scan(&src.SourceID, &src.Name); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
