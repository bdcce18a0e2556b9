package elasticsearch

import "github.com/NurulloMahmud/tafakkur/internal/search/query"

// renderRequest converts a typed request into the search body DSL.
func renderRequest(req *query.Request) map[string]any {
	should := make([]any, 0, len(req.Query.Should))
	for _, c := range req.Query.Should {
		should = append(should, renderClause(c))
	}

	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": req.Query.MinimumShouldMatch,
			},
		},
		"from":             req.From,
		"size":             req.Size,
		"track_total_hits": true,
	}
	if len(req.Source) > 0 {
		body["_source"] = req.Source
	}
	return body
}

func renderClause(c query.Clause) map[string]any {
	mm := map[string]any{
		"query":  c.Text,
		"fields": c.Fields,
	}
	switch c.Kind {
	case query.KindPhrase:
		mm["type"] = "phrase"
	default:
		mm["type"] = "best_fields"
		if c.Operator != "" {
			mm["operator"] = string(c.Operator)
		}
		if c.Fuzziness != "" {
			mm["fuzziness"] = c.Fuzziness
		}
	}
	return map[string]any{"multi_match": mm}
}
