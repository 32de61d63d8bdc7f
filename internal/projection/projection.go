// Package projection derives the rows a view displays from a fetched snapshot:
// scope by role, filter by search term, then sort. Every function here is pure;
// inputs are never modified.
package projection

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Kind selects the comparison used for a sort field.
type Kind int

const (
	// KindText compares with locale-aware collation. Missing values are "".
	KindText Kind = iota
	// KindNumber compares numerically. Missing values are 0.
	KindNumber
	// KindTime compares instants.
	KindTime
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Toggle flips the order.
func (o Order) Toggle() Order {
	if o == Desc {
		return Asc
	}
	return Desc
}

// ParseOrder accepts asc or desc in any case.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(s)); o {
	case Asc, Desc:
		return o, nil
	}
	return "", fmt.Errorf("invalid sort order %q: want asc or desc", s)
}

// Field is a sortable attribute of T. Only the accessor matching Kind is used.
type Field[T any] struct {
	Name   string
	Kind   Kind
	Text   func(T) string
	Number func(T) float64
	Time   func(T) time.Time
}

// Column is one CSV/table column of T.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Query is the user controlled part of a projection.
type Query struct {
	Search string
	Sort   string
	Order  Order
}

// Descriptor describes how to search, sort and export an entity type.
type Descriptor[T any] struct {
	// Searchable fields are matched against the search term.
	Searchable []func(T) string
	Fields     []Field[T]
	Columns    []Column[T]

	DefaultSort  string
	DefaultOrder Order
}

// DefaultQuery has no search term and the descriptor's default sort.
func (d *Descriptor[T]) DefaultQuery() Query {
	return Query{Sort: d.DefaultSort, Order: d.DefaultOrder}
}

// Field looks up a sort field by name.
func (d *Descriptor[T]) Field(name string) (Field[T], bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

// SortFields lists the sortable field names in declaration order.
func (d *Descriptor[T]) SortFields() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Headers returns the column headers.
func (d *Descriptor[T]) Headers() []string {
	hs := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		hs[i] = c.Header
	}
	return hs
}

// Row renders item as one value per column.
func (d *Descriptor[T]) Row(item T) []string {
	row := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		row[i] = c.Value(item)
	}
	return row
}

// ValidateQuery rejects unknown sort fields and orders.
func (d *Descriptor[T]) ValidateQuery(q Query) error {
	if _, ok := d.Field(q.Sort); !ok {
		return fmt.Errorf("unknown sort field %q, valid fields: %s", q.Sort, strings.Join(d.SortFields(), ", "))
	}
	if _, err := ParseOrder(string(q.Order)); err != nil {
		return err
	}
	return nil
}

// Project applies scope predicates, the search filter and the sort, in that
// order. An unknown sort field leaves the filtered order unchanged.
func Project[T any](d *Descriptor[T], items []T, q Query, scope ...func(T) bool) []T {
	out := Scope(items, scope...)
	out = Filter(d, out, q.Search)
	return Sort(d, out, q.Sort, q.Order)
}

// Scope keeps the items accepted by every predicate. Nil predicates are
// ignored.
func Scope[T any](items []T, preds ...func(T) bool) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range preds {
			if p != nil && !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Filter keeps items where any searchable field contains term, ignoring case.
// An empty term keeps everything.
func Filter[T any](d *Descriptor[T], items []T, term string) []T {
	if term == "" {
		return slices.Clone(items)
	}

	needle := strings.ToLower(term)
	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, field := range d.Searchable {
			if strings.Contains(strings.ToLower(field(it)), needle) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Sort returns a stably sorted copy of items.
func Sort[T any](d *Descriptor[T], items []T, field string, order Order) []T {
	out := slices.Clone(items)
	f, ok := d.Field(field)
	if !ok {
		return out
	}

	cmp := comparator(f)
	if order == Desc {
		slices.SortStableFunc(out, func(a, b T) int { return cmp(b, a) })
	} else {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

func comparator[T any](f Field[T]) func(a, b T) int {
	switch f.Kind {
	case KindNumber:
		return func(a, b T) int {
			x, y := f.Number(a), f.Number(b)
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case KindTime:
		return func(a, b T) int { return f.Time(a).Compare(f.Time(b)) }
	default:
		// A Collator keeps internal buffers, so each sort gets its own.
		c := collate.New(language.Und)
		return func(a, b T) int { return c.CompareString(f.Text(a), f.Text(b)) }
	}
}
