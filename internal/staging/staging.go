// Package staging owns the filesystem handoff between pipeline stages: every
// stage reads its input from and writes its output to one of these JSON
// documents. Paths are deterministic per species so a re-run overwrites the
// previous artifacts.
package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Slug turns a species name into its staging-file form ("Cervus elaphus" ->
// "Cervus_elaphus").
func Slug(species string) string {
	return strings.ReplaceAll(strings.TrimSpace(species), " ", "_")
}

// RawFile is the per-species raw GBIF payload.
func RawFile(rawDir, species string) string {
	return filepath.Join(rawDir, fmt.Sprintf("gbif_%s.json", Slug(species)))
}

// BatchFile is the bulk-fetch output, keyed by taxonomic class.
func BatchFile(rawDir string) string {
	return filepath.Join(rawDir, "gbif_full_batch.json")
}

// TransformedFile is the per-species canonical-record array.
func TransformedFile(processedDir, species string) string {
	return filepath.Join(processedDir, fmt.Sprintf("%s_transformed.json", Slug(species)))
}

// ValidatedFile holds the records that passed validation.
func ValidatedFile(processedDir string) string {
	return filepath.Join(processedDir, "animals_validated.json")
}

// RejectedFile holds validation rejections with their reasons.
func RejectedFile(processedDir string) string {
	return filepath.Join(processedDir, "animals_validation_errors.json")
}

// SendErrorsFile holds the per-record delivery failure report.
func SendErrorsFile(processedDir string) string {
	return filepath.Join(processedDir, "send_errors.json")
}

// WriteJSON writes v as indented JSON to path, creating parent directories
// as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads the JSON document at path into v.
func ReadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
