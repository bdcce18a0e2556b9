package elasticsearch

import "encoding/json"

// indexMapping returns the create-index body: one shard, standard-analyzed
// text for every searchable field, with a keyword subfield for exact lookups.
func indexMapping(fields []string) ([]byte, error) {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{
			"type":     "text",
			"analyzer": "standard",
			"fields": map[string]any{
				"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
			},
		}
	}
	return json.Marshal(map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"dynamic":    false,
			"properties": props,
		},
	})
}
