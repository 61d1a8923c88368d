// Package validate checks canonical records against the animal schema and
// partitions them into accepted and rejected sets. Validation is pure: no
// I/O, no mutation of the input records.
package validate

import (
	"fmt"
	"net/url"
	"strings"

	"animalia/pkg/models"
)

// Rejection is a record that failed validation, kept with enough context to
// diagnose it from the rejected-output file alone. Rejections are terminal;
// the pipeline never retries them.
type Rejection struct {
	Index  int           `json:"index"`
	Record models.Animal `json:"record"`
	Reason string        `json:"reason"`
}

// Animals applies the schema rules to each record and returns the disjoint
// validated / rejected partitions. Input order is preserved in both.
func Animals(records []models.Animal) ([]models.Animal, []Rejection) {
	validated := make([]models.Animal, 0, len(records))
	var rejected []Rejection

	for i, a := range records {
		if reason := Check(a); reason != "" {
			rejected = append(rejected, Rejection{Index: i, Record: a, Reason: reason})
			continue
		}
		validated = append(validated, a)
	}
	return validated, rejected
}

// Check runs the rule table against one record and returns the first failing
// rule's reason, or "" when the record conforms.
//
// Rule order is fixed (required fields, then enum membership, then format
// checks) so the reported reason is deterministic when several rules fail
// at once.
func Check(a models.Animal) string {
	if strings.TrimSpace(a.Nom) == "" {
		return "missing required field: nom"
	}

	if a.StatutUICN != "" && !models.IsValidUICNStatus(a.StatutUICN) {
		return fmt.Sprintf("invalid statutUICN %q: must be one of %s",
			a.StatutUICN, strings.Join(models.UICNStatuses, ", "))
	}

	if a.ImageURL != "" && !wellFormedURL(a.ImageURL) {
		return fmt.Sprintf("invalid imageUrl %q: not a well-formed URL", a.ImageURL)
	}

	return ""
}

func wellFormedURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
