package domain

import "fmt"

// EntityType names a searchable record kind.
type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntityCategory EntityType = "category"
	EntityUser     EntityType = "user"
)

// Entities lists every searchable kind in bootstrap order.
func Entities() []EntityType {
	return []EntityType{EntityProduct, EntityCategory, EntityUser}
}

// ParseEntity accepts singular or plural names ("product", "products").
func ParseEntity(s string) (EntityType, error) {
	switch s {
	case "product", "products":
		return EntityProduct, nil
	case "category", "categories":
		return EntityCategory, nil
	case "user", "users":
		return EntityUser, nil
	}
	return "", fmt.Errorf("unknown entity %q", s)
}

// SearchDocument is the indexed representation of a record. ID equals the
// string form of the record's relational id.
type SearchDocument struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Hit is one ranked match.
type Hit struct {
	ID     string            `json:"id"`
	Score  float64           `json:"score"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SearchPage is one page of ranked ids plus the total across all pages.
type SearchPage struct {
	Hits     []Hit `json:"hits"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	TookMs   int64 `json:"took_ms"`
	Relaxed  bool  `json:"relaxed"`
}

// IDs returns hit ids in rank order.
func (p *SearchPage) IDs() []string {
	ids := make([]string, len(p.Hits))
	for i, h := range p.Hits {
		ids[i] = h.ID
	}
	return ids
}

// HydratedPage pairs a SearchPage with the records it resolved to. Results
// keep rank order and omit ids that no longer exist.
type HydratedPage struct {
	SearchPage
	Results  []any `json:"results"`
	Orphaned int   `json:"-"`
}

// BootstrapReport counts documents written per entity.
type BootstrapReport struct {
	Indexed map[EntityType]int `json:"indexed"`
}
