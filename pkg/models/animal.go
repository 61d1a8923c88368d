package models

// Animal is the normalized, internal form of a species entry used by the
// pipeline and the target API.
//
// GBIF payloads are mapped into this structure first, then everything
// downstream (validation, sending, storage) works from this representation.
// The struct is the single authoritative list of canonical field names; the
// transformer never builds records from loose string keys.
type Animal struct {
	Nom          string `json:"nom"`                    // scientific name, required
	NomCommun    string `json:"nom_commun,omitempty"`   // vernacular name
	Rang         string `json:"rang,omitempty"`         // taxonomic rank ("species", "genus", ...)
	StatutUICN   string `json:"statutUICN,omitempty"`   // IUCN conservation status code
	Ordre        string `json:"ordre,omitempty"`        // taxonomic order
	Famille      string `json:"famille,omitempty"`      // taxonomic family
	Genre        string `json:"genre,omitempty"`        // taxonomic genus
	Descriptions string `json:"descriptions,omitempty"` // free-text description
	ImageURL     string `json:"imageUrl,omitempty"`     // image URL (if any)
}

// UICNStatuses is the closed set of IUCN conservation status codes accepted
// by the validator: Extinct, Extinct in the Wild, Critically Endangered,
// Endangered, Vulnerable, Near Threatened, Least Concern, Data Deficient.
var UICNStatuses = []string{"EX", "EW", "CR", "EN", "VU", "NT", "LC", "DD"}

// IsValidUICNStatus reports whether s is one of the official IUCN codes.
// The empty string is not a valid code; callers decide how to treat absence.
func IsValidUICNStatus(s string) bool {
	for _, code := range UICNStatuses {
		if s == code {
			return true
		}
	}
	return false
}
