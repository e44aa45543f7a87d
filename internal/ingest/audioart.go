package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhowden/tag"
)

// ExtractCoverArt pulls the embedded cover image out of an audio file and
// writes it next to the source as <name>.cover.jpg, returning the written
// path. Works for any container dhowden/tag understands (ID3, FLAC, MP4).
func ExtractCoverArt(audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", fmt.Errorf("failed to read tags: %w", err)
	}

	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return "", fmt.Errorf("no embedded picture")
	}

	base := audioPath[:len(audioPath)-len(filepath.Ext(audioPath))]
	outPath := base + ".cover.jpg"
	if err := os.WriteFile(outPath, pic.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write cover art: %w", err)
	}

	return outPath, nil
}
