// Package query builds backend-neutral text queries. Engines render a
// Request into their own dialect or evaluate it directly.
package query

import (
	"fmt"
	"strings"

	apperrors "github.com/NurulloMahmud/tafakkur/pkg/errors"
)

// MaxResultWindow is the deepest from+size any engine will page to.
const MaxResultWindow = 10000

// Kind selects how a clause matches a field.
type Kind string

const (
	// KindPhrase requires the terms as a contiguous run in one field.
	KindPhrase Kind = "phrase"
	// KindStrict requires every term in one field, with no typo tolerance.
	KindStrict Kind = "strict"
	// KindFuzzy tolerates edits per term and needs any term to match.
	KindFuzzy Kind = "fuzzy"
)

// Operator combines the terms of a clause.
type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// FuzzinessAuto scales edit distance with term length.
const FuzzinessAuto = "AUTO"

// Clause is one multi-field match.
type Clause struct {
	Kind      Kind
	Fields    []string
	Operator  Operator
	Text      string
	Fuzziness string
}

// Bool is a disjunction of clauses.
type Bool struct {
	Should             []Clause
	MinimumShouldMatch int
}

// Request is a complete, paginated search.
type Request struct {
	Query  Bool
	From   int
	Size   int
	Source []string
}

// Options tunes Build.
type Options struct {
	// Fuzzy adds a typo-tolerant clause after the phrase and strict ones.
	Fuzzy bool
}

// Build translates text into a phrase-or-strict match over fields. page is
// 1-indexed; values below 1 are treated as 1.
func Build(text string, fields []string, page, size int, opts Options) (*Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidInput("query text is empty")
	}
	if len(fields) == 0 {
		return nil, apperrors.InvalidInput("no fields to search")
	}
	if size < 1 {
		return nil, apperrors.InvalidInput("page size must be positive")
	}
	if page < 1 {
		page = 1
	}

	from := (page - 1) * size
	if from+size > MaxResultWindow {
		return nil, apperrors.InvalidInput(fmt.Sprintf("result window is too large, from + size must be at most %d", MaxResultWindow))
	}

	should := []Clause{
		{Kind: KindPhrase, Fields: fields, Text: text},
		{Kind: KindStrict, Fields: fields, Operator: OperatorAnd, Text: text},
	}
	if opts.Fuzzy {
		should = append(should, Clause{
			Kind:      KindFuzzy,
			Fields:    fields,
			Operator:  OperatorOr,
			Text:      text,
			Fuzziness: FuzzinessAuto,
		})
	}

	return &Request{
		Query:  Bool{Should: should, MinimumShouldMatch: 1},
		From:   from,
		Size:   size,
		Source: fields,
	}, nil
}

// Relaxed returns a copy of r that also carries the fuzzy clause. It is a
// no-op when r already has one.
func (r *Request) Relaxed() *Request {
	out := *r
	out.Query.Should = append([]Clause(nil), r.Query.Should...)
	for _, c := range out.Query.Should {
		if c.Kind == KindFuzzy {
			return &out
		}
	}
	out.Query.Should = append(out.Query.Should, Clause{
		Kind:      KindFuzzy,
		Fields:    r.Source,
		Operator:  OperatorOr,
		Text:      r.Text(),
		Fuzziness: FuzzinessAuto,
	})
	return &out
}

// Text returns the query text of the first clause.
func (r *Request) Text() string {
	if len(r.Query.Should) == 0 {
		return ""
	}
	return r.Query.Should[0].Text
}

// HasFuzzy reports whether the request includes a typo-tolerant clause.
func (r *Request) HasFuzzy() bool {
	for _, c := range r.Query.Should {
		if c.Kind == KindFuzzy {
			return true
		}
	}
	return false
}
