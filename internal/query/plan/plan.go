// Package plan implements the index-aware WHERE planner: it walks an
// ast.BoolExpr top-down and tries to resolve it to a sorted set of
// candidate row offsets using secondary indexes, falling back to "not
// resolvable" (full scan) the moment any subexpression can't be
// answered from an index. Grounded on the prototype's
// utils/extra.py set-operation generators (intersect_offsets,
// union_offsets, difference_offsets), adapted from lazy generators to
// plain sorted []int64 slices since every index lookup here already
// returns a fully materialized, sortable result.
package plan

import (
	"pengobase/internal/dsutil"
	"pengobase/internal/query/ast"
	"pengobase/internal/schema"
)

// Searchable is the subset of a table index's behavior the planner
// needs: point and range lookup by key.
type Searchable interface {
	Search(key schema.Value) ([]int64, error)
	RangeSearch(lo, hi *schema.Value) ([]int64, error)
}

// IndexLookup resolves a column name to its index, if one exists.
type IndexLookup func(column string) (Searchable, bool)

// Resolve attempts to plan expr entirely from indexes. ok is false if any
// part of expr (including any NOT, per spec.md's explicit Open
// Question) cannot be answered from an index, in which case the caller
// must fall back to a full scan.
func Resolve(expr ast.BoolExpr, lookup IndexLookup) (offsets []int64, ok bool, err error) {
	switch e := expr.(type) {
	case ast.And:
		left, leftOK, err := Resolve(e.Left, lookup)
		if err != nil {
			return nil, false, err
		}
		if !leftOK {
			return nil, false, nil
		}
		right, rightOK, err := Resolve(e.Right, lookup)
		if err != nil {
			return nil, false, err
		}
		if !rightOK {
			return nil, false, nil
		}
		return intersect(left, right), true, nil

	case ast.Or:
		left, leftOK, err := Resolve(e.Left, lookup)
		if err != nil {
			return nil, false, err
		}
		if !leftOK {
			return nil, false, nil
		}
		right, rightOK, err := Resolve(e.Right, lookup)
		if err != nil {
			return nil, false, err
		}
		if !rightOK {
			return nil, false, nil
		}
		return union(left, right), true, nil

	case ast.Not:
		// spec.md's Open Question: the index planner never descends
		// through NOT.
		return nil, false, nil

	case ast.Comparison:
		return resolveComparison(e, lookup)

	default:
		return nil, false, nil
	}
}

func resolveComparison(c ast.Comparison, lookup IndexLookup) ([]int64, bool, error) {
	col, lit, op, matched := columnAndLiteral(c)
	if !matched {
		return nil, false, nil
	}
	idx, found := lookup(col)
	if !found {
		return nil, false, nil
	}

	switch op {
	case "=":
		offs, err := idx.Search(lit)
		if err != nil {
			return nil, false, err
		}
		return sortCopy(offs), true, nil
	case "!=":
		all, err := idx.RangeSearch(nil, nil)
		if err != nil {
			return nil, false, err
		}
		eq, err := idx.Search(lit)
		if err != nil {
			return nil, false, err
		}
		return difference(sortCopy(all), sortCopy(eq)), true, nil
	case "<", "<=":
		offs, err := idx.RangeSearch(nil, &lit)
		if err != nil {
			return nil, false, err
		}
		return sortCopy(offs), true, nil
	case ">", ">=":
		offs, err := idx.RangeSearch(&lit, nil)
		if err != nil {
			return nil, false, err
		}
		return sortCopy(offs), true, nil
	default:
		return nil, false, nil
	}
}

// columnAndLiteral recognizes `col op literal` or `literal op col`,
// flipping the operator in the latter case so callers always see
// `column <op> literal`.
func columnAndLiteral(c ast.Comparison) (column string, literal schema.Value, op string, ok bool) {
	if colRef, isCol := c.Left.(ast.ColumnRef); isCol {
		if lit, isLit := c.Right.(ast.Literal); isLit {
			return colRef.Name, lit.Value, c.Op, true
		}
	}
	if colRef, isCol := c.Right.(ast.ColumnRef); isCol {
		if lit, isLit := c.Left.(ast.Literal); isLit {
			return colRef.Name, lit.Value, flip(c.Op), true
		}
	}
	return "", schema.Value{}, "", false
}

func flip(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op // "=" and "!=" are symmetric
	}
}

func sortCopy(offsets []int64) []int64 {
	out := append([]int64(nil), offsets...)
	dsutil.BinaryInsertionSortInt64(out, dsutil.Ascending)
	return out
}

// intersect returns offsets present in both ascending, deduplicated
// slices.
func intersect(a, b []int64) []int64 {
	var out []int64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// union returns the deduplicated merge of two ascending slices.
func union(a, b []int64) []int64 {
	var out []int64
	i, j := 0, 0
	var lastSet bool
	var last int64
	emit := func(v int64) {
		if !lastSet || last != v {
			out = append(out, v)
			last, lastSet = v, true
		}
	}
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			emit(a[i])
			i++
		case b[j] < a[i]:
			emit(b[j])
			j++
		default:
			emit(a[i])
			i++
			j++
		}
	}
	for ; i < len(a); i++ {
		emit(a[i])
	}
	for ; j < len(b); j++ {
		emit(b[j])
	}
	return out
}

// difference returns the elements of all not present in sub; both must
// be ascending.
func difference(all, sub []int64) []int64 {
	var out []int64
	i, j := 0, 0
	for i < len(all) {
		switch {
		case j >= len(sub):
			out = append(out, all[i])
			i++
		case all[i] == sub[j]:
			i++
			j++
		case all[i] < sub[j]:
			out = append(out, all[i])
			i++
		default:
			j++
		}
	}
	return out
}
