// Package memory is an in-process search engine that evaluates query.Requests
// with the same phrase, strict and fuzzy semantics the Elasticsearch engine
// renders. It backs tests and the SEARCH_ENGINE=memory mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NurulloMahmud/tafakkur/internal/domain"
	"github.com/NurulloMahmud/tafakkur/internal/engine"
	"github.com/NurulloMahmud/tafakkur/internal/search/query"
)

type document struct {
	doc    domain.SearchDocument
	tokens map[string][]string
	seq    int
}

type index struct {
	fields    []string
	docs      map[string]*document
	seq       int
	refreshes int
}

// Engine is a thread-safe in-memory SearchEngine.
type Engine struct {
	mu      sync.RWMutex
	indexes map[string]*index

	// Err, when set, is returned by every call. Tests use it to simulate an
	// unreachable backend.
	Err error
}

var _ engine.SearchEngine = (*Engine)(nil)

// New creates an empty engine.
func New() *Engine {
	return &Engine{indexes: make(map[string]*index)}
}

// EnsureIndex creates index if it does not exist.
func (e *Engine) EnsureIndex(_ context.Context, name string, fields []string) error {
	if e.Err != nil {
		return e.Err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.indexes[name]; !ok {
		e.indexes[name] = &index{fields: fields, docs: make(map[string]*document)}
	}
	return nil
}

// Upsert stores doc, creating the index on first write.
func (e *Engine) Upsert(_ context.Context, name string, doc domain.SearchDocument) error {
	if e.Err != nil {
		return e.Err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.put(name, doc)
	return nil
}

// BulkUpsert stores every doc under one lock.
func (e *Engine) BulkUpsert(_ context.Context, name string, docs []domain.SearchDocument) error {
	if e.Err != nil {
		return e.Err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, d := range docs {
		e.put(name, d)
	}
	return nil
}

// put keeps the original insertion position when a document is overwritten.
func (e *Engine) put(name string, doc domain.SearchDocument) {
	idx, ok := e.indexes[name]
	if !ok {
		idx = &index{docs: make(map[string]*document)}
		e.indexes[name] = idx
	}

	tokens := make(map[string][]string, len(doc.Fields))
	for f, v := range doc.Fields {
		tokens[f] = tokenize(v)
	}

	if existing, ok := idx.docs[doc.ID]; ok {
		existing.doc, existing.tokens = doc, tokens
		return
	}
	idx.seq++
	idx.docs[doc.ID] = &document{doc: doc, tokens: tokens, seq: idx.seq}
}

// Refresh is a no-op apart from being counted; writes are visible at once.
func (e *Engine) Refresh(_ context.Context, name string) error {
	if e.Err != nil {
		return e.Err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, ok := e.indexes[name]
	if !ok {
		return fmt.Errorf("refresh %s: %w", name, engine.ErrIndexNotFound)
	}
	idx.refreshes++
	return nil
}

// Search scores every document against req and returns the requested window.
// Equal scores keep insertion order.
func (e *Engine) Search(_ context.Context, name string, req *query.Request) (*engine.Result, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	idx, ok := e.indexes[name]
	if !ok {
		return nil, fmt.Errorf("search %s: %w", name, engine.ErrIndexNotFound)
	}

	type scored struct {
		d     *document
		score float64
	}
	var matched []scored
	for _, d := range idx.docs {
		score, hits := evaluate(d, req.Query)
		if hits < max(req.Query.MinimumShouldMatch, 1) {
			continue
		}
		matched = append(matched, scored{d: d, score: score})
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].d.seq < matched[j].d.seq
	})

	total := len(matched)
	from := min(max(req.From, 0), total)
	end := min(from+req.Size, total)

	hits := make([]domain.Hit, 0, end-from)
	for _, m := range matched[from:end] {
		hits = append(hits, domain.Hit{
			ID:     m.d.doc.ID,
			Score:  m.score,
			Fields: project(m.d.doc.Fields, req.Source),
		})
	}

	return &engine.Result{
		Hits:   hits,
		Total:  total,
		TookMs: time.Since(start).Milliseconds(),
	}, nil
}

// Ping returns Err.
func (e *Engine) Ping(context.Context) error {
	return e.Err
}

// Count returns the number of documents in index.
func (e *Engine) Count(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx, ok := e.indexes[name]; ok {
		return len(idx.docs)
	}
	return 0
}

// Document returns the stored document with id.
func (e *Engine) Document(name, id string) (domain.SearchDocument, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx, ok := e.indexes[name]; ok {
		if d, ok := idx.docs[id]; ok {
			return d.doc, true
		}
	}
	return domain.SearchDocument{}, false
}

// Refreshes returns how many times index was refreshed.
func (e *Engine) Refreshes(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx, ok := e.indexes[name]; ok {
		return idx.refreshes
	}
	return 0
}

// clause weights put phrase matches above bag-of-terms matches.
var weights = map[query.Kind]float64{
	query.KindPhrase: 2,
	query.KindStrict: 1,
	query.KindFuzzy:  0.5,
}

// evaluate sums the best per-field score of every matching clause and
// reports how many clauses matched.
func evaluate(d *document, b query.Bool) (float64, int) {
	var (
		total   float64
		matched int
	)
	for _, c := range b.Should {
		terms := tokenize(c.Text)
		if len(terms) == 0 {
			continue
		}
		best := 0.0
		for _, f := range c.Fields {
			tokens := d.tokens[f]
			if len(tokens) == 0 || !matches(tokens, terms, c) {
				continue
			}
			// Shorter fields score higher, as with length normalization.
			best = max(best, weights[c.Kind]*(1+float64(len(terms))/float64(len(tokens))))
		}
		if best > 0 {
			total += best
			matched++
		}
	}
	return total, matched
}

func matches(tokens, terms []string, c query.Clause) bool {
	switch c.Kind {
	case query.KindPhrase:
		return containsRun(tokens, terms)
	case query.KindStrict, query.KindFuzzy:
		fuzzy := c.Kind == query.KindFuzzy && c.Fuzziness != ""
		anyTerm := c.Operator == query.OperatorOr
		for _, t := range terms {
			dist := 0
			if fuzzy {
				dist = autoFuzziness(t)
			}
			found := hasTerm(tokens, t, dist)
			if anyTerm && found {
				return true
			}
			if !anyTerm && !found {
				return false
			}
		}
		return !anyTerm
	}
	return false
}

func project(fields map[string]string, source []string) map[string]string {
	out := make(map[string]string, len(source))
	for _, f := range source {
		if v, ok := fields[f]; ok {
			out[f] = v
		}
	}
	return out
}
