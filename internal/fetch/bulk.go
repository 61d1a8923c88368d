package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"animalia/internal/staging"
)

// DefaultClasses are the taxonomic classes covered by a plain `fetch-all`.
var DefaultClasses = []string{"Mammalia", "Aves", "Reptilia", "Actinopterygii", "Amphibia"}

// gbifPageSize is GBIF's pagination block size for /species/search.
const gbifPageSize = 100

// BulkOptions bounds a bulk fetch.
type BulkOptions struct {
	PerClass   int           // species kept per class
	MaxRecords int           // records scanned per class before giving up
	Delay      time.Duration // pause between paginated requests
}

// AllForClasses pages through GBIF species search for each taxonomic class,
// filters out non-animal entries, and writes everything to the batch staging
// file keyed by class. A network error mid-class stops that class only; the
// remaining classes are still fetched.
func (c *Client) AllForClasses(ctx context.Context, classes []string, opts BulkOptions) (string, error) {
	byClass := make(map[string][]map[string]any, len(classes))

	for _, class := range classes {
		c.Log.Info("bulk fetch class",
			zap.String("class", class),
			zap.Int("perClass", opts.PerClass))

		species := c.fetchClass(ctx, class, opts)
		byClass[class] = species

		c.Log.Info("class done", zap.String("class", class), zap.Int("kept", len(species)))
	}

	path := staging.BatchFile(c.RawDir)
	if err := staging.WriteJSON(path, byClass); err != nil {
		return "", fmt.Errorf("write batch: %w", err)
	}

	total := 0
	for _, sp := range byClass {
		total += len(sp)
	}
	c.Log.Info("bulk fetch complete", zap.String("path", path), zap.Int("total", total))
	return path, nil
}

func (c *Client) fetchClass(ctx context.Context, class string, opts BulkOptions) []map[string]any {
	var collected []map[string]any
	offset := 0
	scanned := 0

	for len(collected) < opts.PerClass && scanned < opts.MaxRecords {
		u, err := url.Parse(c.BaseURL + "/species/search")
		if err != nil {
			c.Log.Error("bad GBIF base url", zap.Error(err))
			break
		}
		q := u.Query()
		q.Set("rank", "species")
		q.Set("class", class)
		q.Set("limit", strconv.Itoa(min(gbifPageSize, opts.PerClass-len(collected))))
		q.Set("offset", strconv.Itoa(offset))
		u.RawQuery = q.Encode()

		body, err := c.getJSON(ctx, u.String())
		if err != nil {
			c.Log.Error("page failed",
				zap.String("class", class),
				zap.Int("offset", offset),
				zap.Error(err))
			break
		}

		var page struct {
			Results []map[string]any `json:"results"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			c.Log.Error("page decode failed", zap.String("class", class), zap.Error(err))
			break
		}

		batch := make([]map[string]any, 0, len(page.Results))
		for _, entry := range page.Results {
			if legitSpecies(entry) {
				batch = append(batch, entry)
			}
		}

		c.Log.Debug("page fetched",
			zap.String("class", class),
			zap.Int("offset", offset),
			zap.Int("results", len(page.Results)),
			zap.Int("kept", len(batch)))

		collected = append(collected, batch...)
		scanned += len(batch)
		offset += gbifPageSize

		if len(batch) == 0 {
			// end of paginated results
			break
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return collected[:min(len(collected), opts.PerClass)]
			case <-time.After(opts.Delay):
			}
		}
	}

	if len(collected) > opts.PerClass {
		collected = collected[:opts.PerClass]
	}
	return collected
}

// excludedTerms marks GBIF entries that are not legitimate animal species:
// bacteria, viruses, fungi, unresolved taxonomy, hybrids and undetermined
// species ("Panthera sp.").
var excludedTerms = []string{
	"bacter",
	"virus",
	"fung",
	"incertae",
	"unclassified",
	"unidentified",
	"sp.",
	"hybr.",
}

func legitSpecies(entry map[string]any) bool {
	name, _ := entry["scientificName"].(string)
	name = strings.ToLower(name)
	if name == "" {
		return false
	}
	for _, term := range excludedTerms {
		if strings.Contains(name, term) {
			return false
		}
	}
	return true
}
