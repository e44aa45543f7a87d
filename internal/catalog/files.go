package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// FileRecord is one announced item from a source. Identity is
// (SourceID, ItemID); the display name is normalized before it gets here
// (extension stripped, special characters scrubbed).
type FileRecord struct {
	ID           int64
	SourceID     int64
	ItemID       int64
	Name         string
	Size         int64
	Format       string
	MetadataID   int64  // 0 when unresolved
	MetadataType string // "" when unresolved
	PosterRef    string
	FirstSeenAt  time.Time
	LastUpdateAt time.Time
}

const fileColumns = `
	id, source_id, item_id, file_name, COALESCE(file_size, 0),
	COALESCE(file_format, ''), COALESCE(metadata_id, 0),
	COALESCE(metadata_type, ''), COALESCE(poster_ref, ''),
	first_seen_at, last_update_at`

func scanFile(row interface{ Scan(...any) error }) (*FileRecord, error) {
	f := &FileRecord{}
	err := row.Scan(
		&f.ID, &f.SourceID, &f.ItemID, &f.Name, &f.Size,
		&f.Format, &f.MetadataID, &f.MetadataType, &f.PosterRef,
		&f.FirstSeenAt, &f.LastUpdateAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// UpsertFile inserts or updates a file record keyed by (source_id, item_id).
// Upserting the same identity twice leaves exactly one row with the latest
// attributes.
func (s *Store) UpsertFile(f *FileRecord) error {
	result, err := s.db.Exec(`
		INSERT INTO files (source_id, item_id, file_name, file_size, file_format,
		                   metadata_id, metadata_type, poster_ref)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, 0), NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(source_id, item_id) DO UPDATE SET
			file_name = excluded.file_name,
			file_size = excluded.file_size,
			file_format = excluded.file_format,
			metadata_id = COALESCE(excluded.metadata_id, files.metadata_id),
			metadata_type = COALESCE(excluded.metadata_type, files.metadata_type),
			poster_ref = COALESCE(excluded.poster_ref, files.poster_ref),
			last_update_at = CURRENT_TIMESTAMP
		`, f.SourceID, f.ItemID, f.Name, f.Size, f.Format,
		f.MetadataID, f.MetadataType, f.PosterRef)

	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	if f.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil && id != 0 {
			f.ID = id
		} else {
			err = s.db.QueryRow(
				"SELECT id FROM files WHERE source_id = ? AND item_id = ?",
				f.SourceID, f.ItemID,
			).Scan(&f.ID)
			if err != nil {
				return fmt.Errorf("failed to get file ID: %w", err)
			}
		}
	}

	return nil
}

// GetFile retrieves a file by identity. Returns (nil, nil) when absent.
func (s *Store) GetFile(sourceID, itemID int64) (*FileRecord, error) {
	f, err := scanFile(s.db.QueryRow(
		`SELECT `+fileColumns+` FROM files WHERE source_id = ? AND item_id = ?`,
		sourceID, itemID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// FindFileByName retrieves any file whose normalized display name exactly
// equals name, scanning the whole catalog. This is the deduplication lookup;
// it is intentionally not scoped to a source. Returns (nil, nil) when absent.
func (s *Store) FindFileByName(name string) (*FileRecord, error) {
	f, err := scanFile(s.db.QueryRow(
		`SELECT `+fileColumns+` FROM files WHERE file_name = ? LIMIT 1`, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file by name: %w", err)
	}
	return f, nil
}

// ListFilesByEntry retrieves files linked to a metadata entry, paged.
func (s *Store) ListFilesByEntry(metadataID int64, metadataType string, skip, limit int) ([]*FileRecord, int, error) {
	rows, err := s.db.Query(
		`SELECT `+fileColumns+` FROM files
		 WHERE metadata_id = ? AND metadata_type = ?
		 ORDER BY file_name LIMIT ? OFFSET ?`,
		metadataID, metadataType, limit, skip,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM files WHERE metadata_id = ? AND metadata_type = ?`,
		metadataID, metadataType,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	return files, total, nil
}

// ListAllFiles streams every file record, ordered by id. Used by the bulk
// reindex path.
func (s *Store) ListAllFiles(fn func(*FileRecord) error) error {
	rows, err := s.db.Query(`SELECT ` + fileColumns + ` FROM files ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return fmt.Errorf("failed to scan file: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountFiles returns the number of file records in the catalog.
func (s *Store) CountFiles() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&n)
	return n, err
}

// SetFileMetadata reassigns the metadata link of a file record.
// Used by admin correction operations.
func (s *Store) SetFileMetadata(sourceID, itemID, metadataID int64, metadataType string) error {
	_, err := s.db.Exec(`
		UPDATE files SET metadata_id = ?, metadata_type = ?, last_update_at = CURRENT_TIMESTAMP
		WHERE source_id = ? AND item_id = ?`,
		metadataID, metadataType, sourceID, itemID)
	if err != nil {
		return fmt.Errorf("failed to set file metadata: %w", err)
	}
	return nil
}

// SetFilePoster reassigns the poster reference of a file record.
func (s *Store) SetFilePoster(sourceID, itemID int64, posterRef string) error {
	_, err := s.db.Exec(`
		UPDATE files SET poster_ref = ?, last_update_at = CURRENT_TIMESTAMP
		WHERE source_id = ? AND item_id = ?`,
		posterRef, sourceID, itemID)
	if err != nil {
		return fmt.Errorf("failed to set file poster: %w", err)
	}
	return nil
}

// DeleteFile removes a single file record. Returns the number removed.
func (s *Store) DeleteFile(sourceID, itemID int64) (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM files WHERE source_id = ? AND item_id = ?", sourceID, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete file: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeleteFileRange removes all records of a source with item ids in
// [fromItem, toItem]. Returns the number removed.
func (s *Store) DeleteFileRange(sourceID, fromItem, toItem int64) (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM files WHERE source_id = ? AND item_id BETWEEN ? AND ?",
		sourceID, fromItem, toItem)
	if err != nil {
		return 0, fmt.Errorf("failed to delete file range: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
