package protocol

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// SaveJSON writes r to path as an indented analysis.DTO document. The file is
// written next to path and renamed into place.
func SaveJSON(path string, r *analysis.Result) error {
	data, err := json.MarshalIndent(r.ToDTO(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Debug("Result saved as JSON", "path", path)
	return nil
}

// LoadJSON reads a DTO document from path into r.
func LoadJSON(path string, r *analysis.Result) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read result file: %w", err)
	}

	var dto analysis.DTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return analysis.Wrap(analysis.ParseFailure, "LoadJSON", err)
	}
	if err := dto.CopyTo(r); err != nil {
		return fmt.Errorf("failed to load result %s: %w", path, err)
	}

	slog.Debug("Result loaded from JSON", "path", path)
	return nil
}
