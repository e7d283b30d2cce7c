// Package numbering assigns dense integer ids to documents and
// (author, model) pairs after the merge has finished. A single writer
// numbers rows in input order, so ids depend only on that order.
package numbering

import "github.com/okian/evalharvest/internal/domain/model"

// Column names added to numbered rows.
const (
	DocumentColumn    = "document_id"
	AuthorModelColumn = "author_model_id"
)

// Numberer hands out ids starting at 1 in first-seen order. It is not safe
// for concurrent use.
type Numberer struct {
	documents map[string]int
	pairs     map[model.AuthorModel]int
}

// New creates an empty Numberer.
func New() *Numberer {
	return &Numberer{
		documents: make(map[string]int),
		pairs:     make(map[model.AuthorModel]int),
	}
}

// Document returns the id of a prompt digest.
func (n *Numberer) Document(prompt string) int {
	return assign(n.documents, prompt)
}

// AuthorModel returns the id of an author/model pair.
func (n *Numberer) AuthorModel(author, mdl string) int {
	return assign(n.pairs, model.AuthorModel{Author: author, Model: mdl})
}

// Number returns both ids for rec.
func (n *Numberer) Number(rec *model.EvaluationRecord) (document, authorModel int) {
	return n.Document(rec.Prompt), n.AuthorModel(rec.Author, rec.Model)
}

// Documents returns how many documents have been numbered.
func (n *Numberer) Documents() int { return len(n.documents) }

// Pairs returns how many author/model pairs have been numbered.
func (n *Numberer) Pairs() int { return len(n.pairs) }

func assign[K comparable](ids map[K]int, key K) int {
	if id, ok := ids[key]; ok {
		return id
	}
	id := len(ids) + 1
	ids[key] = id
	return id
}
