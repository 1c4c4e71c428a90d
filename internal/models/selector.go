package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/tusk/internal/apperr"
)

type selectorKind int

const (
	byIndex selectorKind = iota + 1
	byID
)

// Selector identifies one task either by its transient view index or by its
// durable id. Construct with ByIndex or ByID.
type Selector struct {
	kind  selectorKind
	index int
	id    string
}

// ByIndex selects the task currently displayed at position n.
func ByIndex(n int) Selector {
	return Selector{kind: byIndex, index: n}
}

// ByID selects the task with the given id.
func ByID(id string) Selector {
	return Selector{kind: byID, id: id}
}

// ParseIndex turns a positional argument into an index selector.
func ParseIndex(s string) (Selector, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return Selector{}, fmt.Errorf("%w: %q is not a task index", apperr.ErrInvalidArgument, s)
	}
	return ByIndex(n), nil
}

// Index returns the index and true for index selectors.
func (s Selector) Index() (int, bool) {
	return s.index, s.kind == byIndex
}

// ID returns the id and true for id selectors.
func (s Selector) ID() (string, bool) {
	return s.id, s.kind == byID
}

// IsZero reports whether s was never set.
func (s Selector) IsZero() bool {
	return s.kind == 0
}

func (s Selector) String() string {
	switch s.kind {
	case byIndex:
		return "index " + strconv.Itoa(s.index)
	case byID:
		return "id " + s.id
	default:
		return "<none>"
	}
}
