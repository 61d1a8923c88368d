// Package transform maps raw GBIF payloads into the canonical Animal record.
// The mapping is intentionally lossy: anything the canonical schema has no
// field for is dropped here.
package transform

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"animalia/internal/staging"
	"animalia/pkg/models"
)

// Error is a malformed-input failure, the only way transformation can fail.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Source field names in GBIF payloads. Declared once so the renaming logic
// has no string literals scattered through it; the output side is fixed by
// the models.Animal struct itself.
const (
	srcScientificName = "scientificName"
	srcVernacularName = "vernacularName"
	srcCommonName     = "commonName"
	srcRank           = "rank"
	srcIUCNStatus     = "iucnStatus"
	srcOrder          = "order"
	srcFamily         = "family"
	srcGenus          = "genus"
	srcDescription    = "description"
	srcImageURL       = "imageUrl"
)

// Species turns raw GBIF records into canonical animals.
//
// Records without a scientific name are dropped with a log line; duplicates
// (same nom) keep the first occurrence. Output order follows input order, so
// the same input always yields byte-identical output.
func Species(raw []map[string]any, log *zap.Logger) []models.Animal {
	records := make([]models.Animal, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		nom := str(item, srcScientificName)
		if nom == "" {
			log.Warn("record skipped: no scientific name")
			continue
		}
		if _, dup := seen[nom]; dup {
			log.Debug("duplicate skipped", zap.String("nom", nom))
			continue
		}
		seen[nom] = struct{}{}

		nomCommun := str(item, srcVernacularName)
		if nomCommun == "" {
			nomCommun = str(item, srcCommonName)
		}

		records = append(records, models.Animal{
			Nom:          nom,
			NomCommun:    nomCommun,
			Rang:         str(item, srcRank),
			StatutUICN:   str(item, srcIUCNStatus),
			Ordre:        str(item, srcOrder),
			Famille:      str(item, srcFamily),
			Genre:        str(item, srcGenus),
			Descriptions: str(item, srcDescription),
			ImageURL:     str(item, srcImageURL),
		})
	}

	log.Info("transform done",
		zap.Int("in", len(raw)),
		zap.Int("out", len(records)),
		zap.Int("dropped", len(raw)-len(records)))
	return records
}

// LoadRawDir loads every per-species raw payload (gbif_*.json) from the
// staging directory. The bulk batch file has a different shape and is read
// through its own path, so it is excluded here. A file that fails to decode
// yields an Error but does not prevent the others from loading.
func LoadRawDir(rawDir string, log *zap.Logger) ([]map[string]any, []error) {
	pattern := filepath.Join(rawDir, "gbif_*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, []error{&Error{Source: rawDir, Err: err}}
	}

	var (
		payloads []map[string]any
		errs     []error
	)
	for _, f := range files {
		if filepath.Base(f) == filepath.Base(staging.BatchFile(rawDir)) {
			continue
		}
		var payload map[string]any
		if err := staging.ReadJSON(f, &payload); err != nil {
			errs = append(errs, &Error{Source: f, Err: err})
			log.Error("raw file unreadable", zap.String("file", f), zap.Error(err))
			continue
		}
		payloads = append(payloads, payload)
	}

	log.Info("raw payloads loaded", zap.String("dir", rawDir), zap.Int("files", len(payloads)))
	return payloads, errs
}

// LoadBatch flattens the bulk-fetch batch file into one raw-record slice,
// iterating classes in a stable order.
func LoadBatch(rawDir string) ([]map[string]any, error) {
	var byClass map[string][]map[string]any
	if err := staging.ReadJSON(staging.BatchFile(rawDir), &byClass); err != nil {
		return nil, &Error{Source: staging.BatchFile(rawDir), Err: err}
	}

	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var all []map[string]any
	for _, class := range classes {
		all = append(all, byClass[class]...)
	}
	return all, nil
}

func str(item map[string]any, key string) string {
	v, _ := item[key].(string)
	return v
}
