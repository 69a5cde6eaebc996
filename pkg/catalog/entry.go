package catalog

import "strings"

// OriginalRecord is an original fragrance as delivered by a Source.
// Absent brand or name arrive as the empty string.
type OriginalRecord struct {
	ID    string
	Brand string
	Name  string
}

// CloneRecord is a clone (dupe) as delivered by a Source. OriginalID is a
// non-owning reference that may not resolve.
type CloneRecord struct {
	Brand      string
	Name       string
	OriginalID string
}

// Original is an indexed original with its derived comparison keys.
type Original struct {
	ID          string `json:"id"`
	Brand       string `json:"brand"`
	Name        string `json:"name"`
	BrandNorm   string `json:"-"`
	NameNorm    string `json:"-"`
	DisplayNorm string `json:"-"`
}

// Clone is an indexed clone with its derived comparison key.
type Clone struct {
	Brand       string `json:"brand"`
	Name        string `json:"name"`
	OriginalID  string `json:"original_id"`
	DisplayNorm string `json:"-"`
}

// NewOriginal derives the normalized keys of an original record.
func NewOriginal(r OriginalRecord) Original {
	brand := strings.TrimSpace(r.Brand)
	name := strings.TrimSpace(r.Name)
	return Original{
		ID:          r.ID,
		Brand:       brand,
		Name:        name,
		BrandNorm:   Normalize(brand),
		NameNorm:    Normalize(name),
		DisplayNorm: Normalize(brand + " " + name),
	}
}

// NewClone derives the normalized key of a clone record.
func NewClone(r CloneRecord) Clone {
	brand := strings.TrimSpace(r.Brand)
	name := strings.TrimSpace(r.Name)
	return Clone{
		Brand:       brand,
		Name:        name,
		OriginalID:  r.OriginalID,
		DisplayNorm: Normalize(brand + " " + name),
	}
}

// Display returns "Brand Name" with empty parts omitted.
func (o Original) Display() string {
	return strings.TrimSpace(o.Brand + " " + o.Name)
}
