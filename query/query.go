// Package query turns request parameters into store criteria.
//
// Builders never validate and never touch the database. A Criteria value is
// checked only when a store executes it, so a bad sort direction or an unknown
// column surfaces as a store error at query time.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// Track columns addressed by the HTTP routes.
const (
	FieldID          = "id"
	FieldArtist      = "artist"
	FieldReleaseYear = "release_year"
)

// Sort directions understood by the store (case-insensitive).
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// ErrInvalidDirection is returned by stores for a direction other than ASC or DESC.
var ErrInvalidDirection = errors.New("invalid sort direction")

// Filter matches records whose Field equals Value.
type Filter struct {
	Field string
	Value interface{}
}

// Order sorts by Field. An empty Direction leaves the choice to the store.
type Order struct {
	Field     string
	Direction string
}

// Criteria holds the filters and sort order of one store query.
type Criteria struct {
	Filters []Filter
	Orders  []Order
}

// Eq builds an equality filter on field.
func Eq(field string, value interface{}) Criteria {
	return Criteria{Filters: []Filter{{Field: field, Value: value}}}
}

// Sort builds an ordering on field. direction is passed through untouched.
func Sort(field, direction string) Criteria {
	return Criteria{Orders: []Order{{Field: field, Direction: direction}}}
}

// And returns the union of c and other; filters are ANDed, orders appended.
func (c Criteria) And(other Criteria) Criteria {
	out := Criteria{
		Filters: make([]Filter, 0, len(c.Filters)+len(other.Filters)),
		Orders:  make([]Order, 0, len(c.Orders)+len(other.Orders)),
	}
	out.Filters = append(append(out.Filters, c.Filters...), other.Filters...)
	out.Orders = append(append(out.Orders, c.Orders...), other.Orders...)
	return out
}

// IsZero reports whether c matches everything in store order.
func (c Criteria) IsZero() bool {
	return len(c.Filters) == 0 && len(c.Orders) == 0
}

// NormalizeDirection upper-cases a valid direction. The empty direction is
// valid and stays empty.
func NormalizeDirection(direction string) (string, error) {
	switch d := strings.ToUpper(direction); d {
	case "", Asc, Desc:
		return d, nil
	default:
		return "", fmt.Errorf("%w: order must be 'ASC' or 'DESC', '%s' given", ErrInvalidDirection, direction)
	}
}

// ParseID reads a leading base-10 integer the way loosely typed clients send
// it: surrounding whitespace and trailing garbage are ignored, so "12abc" is
// 12. ok is false when no digits lead the string or the value overflows.
func ParseID(raw string) (id int64, ok bool) {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		d := int64(s[digits] - '0')
		if id > (1<<63-1-d)/10 {
			return 0, false
		}
		id = id*10 + d
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		id = -id
	}
	return id, true
}
