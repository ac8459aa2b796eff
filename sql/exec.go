/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package sql

import (
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/shrijacked/Pieskieo/collections"
	"github.com/shrijacked/Pieskieo/engine"
	"github.com/shrijacked/Pieskieo/errs"
)

// Row is one result row of a SELECT, keyed by projection alias.
type Row map[string]interface{}

// Result is the outcome of executing one statement: Rows for SELECT,
// Affected for INSERT/UPDATE/DELETE, and IDs holding the UUID an
// INSERT wrote.
type Result struct {
	Rows     []Row
	Affected int
	IDs      []uuid.UUID
}

func familyOf(f string) collections.Family {
	if f == "row" {
		return collections.FamilyRow
	}
	return collections.FamilyDoc
}

// Exec parses and executes one statement against e.
func Exec(e *engine.Engine, stmt string) (Result, error) {
	parsed, err := Parse(stmt)
	if err != nil {
		return Result{}, err
	}
	return ExecStatement(e, parsed)
}

// ExecStatement executes an already-parsed Statement.
func ExecStatement(e *engine.Engine, stmt Statement) (Result, error) {
	switch s := stmt.(type) {
	case SelectStmt:
		return execSelect(e, s)
	case InsertStmt:
		return execInsert(e, s)
	case UpdateStmt:
		return execUpdate(e, s)
	case DeleteStmt:
		return execDelete(e, s)
	default:
		return Result{}, errs.Internal{Message: "unknown statement type"}
	}
}

// candidateRows resolves the base row set for a target, choosing
// between an index probe and a full scan: an equality predicate whose
// estimated hit count is at most max(total/2, 10) uses the secondary
// index, otherwise the plan falls back to a full scan. Only the first
// equality predicate that qualifies is probed; the id lists of several
// indexed equality fields are not intersected, and the remaining
// predicates are applied afterwards by matchesWhere.
func candidateRows(e *engine.Engine, t Target, where []Condition) map[uuid.UUID]map[string]interface{} {
	fam := familyOf(t.Family)
	total := e.CounterFamilyNs(fam, t.Namespace, t.Collection)

	for _, c := range where {
		if c.Op != Eq {
			continue
		}
		s, ok := scalarString(c.Value)
		if !ok {
			continue
		}
		ids, found := e.LookupFamilyNs(fam, t.Namespace, t.Collection, c.Field, s)
		if !found {
			continue
		}
		threshold := total / 2
		if threshold < 10 {
			threshold = 10
		}
		if len(ids) <= threshold {
			out := make(map[uuid.UUID]map[string]interface{}, len(ids))
			for _, id := range ids {
				if v, ok := e.GetFamilyNs(fam, t.Namespace, t.Collection, id); ok {
					out[id] = v
				}
			}
			return out
		}
	}
	return e.AllFamilyNs(fam, t.Namespace, t.Collection)
}

func scalarString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	default:
		return "", false
	}
}

func matchesWhere(value map[string]interface{}, where []Condition) bool {
	for _, c := range where {
		if !matchesCondition(value, c) {
			return false
		}
	}
	return true
}

func matchesCondition(value map[string]interface{}, c Condition) bool {
	v, ok := value[c.Field]
	switch c.Op {
	case In:
		if !ok {
			return false
		}
		for _, want := range c.List {
			if compareEqual(v, want) {
				return true
			}
		}
		return false
	case Nin:
		if !ok {
			return true
		}
		for _, want := range c.List {
			if compareEqual(v, want) {
				return false
			}
		}
		return true
	}
	if !ok {
		return false
	}
	switch c.Op {
	case Eq:
		return compareEqual(v, c.Value)
	case Ne:
		return !compareEqual(v, c.Value)
	case Gt, Gte, Lt, Lte:
		fv, fok := toFloat(v)
		wv, wok := toFloat(c.Value)
		if !fok || !wok {
			return false
		}
		switch c.Op {
		case Gt:
			return fv > wv
		case Gte:
			return fv >= wv
		case Lt:
			return fv < wv
		case Lte:
			return fv <= wv
		}
	}
	return false
}

func compareEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	as, aok := scalarString(a)
	bs, bok := scalarString(b)
	return aok && bok && as == bs
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

// joinedRow is one candidate result row carrying its source id
// alongside the (possibly join-merged) field values.
type joinedRow struct {
	id   uuid.UUID
	base map[string]interface{}
}

func execSelect(e *engine.Engine, s SelectStmt) (Result, error) {
	rows := candidateRows(e, s.From, s.Where)

	var joinedRows []joinedRow
	for id, v := range rows {
		if matchesWhere(v, s.Where) {
			joinedRows = append(joinedRows, joinedRow{id: id, base: v})
		}
	}

	if s.Join != nil {
		fam := familyOf(s.Join.Target.Family)
		right := e.AllFamilyNs(fam, s.Join.Target.Namespace, s.Join.Target.Collection)
		var out []joinedRow
		for _, jr := range joinedRows {
			leftVal, ok := jr.base[s.Join.LeftKey]
			if !ok {
				continue
			}
			for _, rv := range right {
				rightVal, ok := rv[s.Join.RightKey]
				if !ok || !compareEqual(leftVal, rightVal) {
					continue
				}
				merged := make(map[string]interface{}, len(jr.base)+len(rv))
				for k, v := range jr.base {
					merged[k] = v
				}
				for k, v := range rv {
					if _, collide := merged[k]; collide {
						merged["right_"+k] = v
					} else {
						merged[k] = v
					}
				}
				out = append(out, joinedRow{id: jr.id, base: merged})
			}
		}
		joinedRows = out
	}

	if len(s.OrderBy) > 0 {
		sort.SliceStable(joinedRows, func(i, j int) bool {
			for _, term := range s.OrderBy {
				vi, oki := joinedRows[i].base[term.Field]
				vj, okj := joinedRows[j].base[term.Field]
				cmp := compareValues(vi, oki, vj, okj)
				if cmp == 0 {
					continue
				}
				if term.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	hasAgg := false
	for _, p := range s.Projections {
		if p.Agg != "" {
			hasAgg = true
		}
	}
	if hasAgg {
		return Result{Rows: []Row{aggregateRow(joinedRows, s.Projections)}}, nil
	}

	start := s.Offset
	if start > len(joinedRows) {
		start = len(joinedRows)
	}
	end := len(joinedRows)
	if s.HasLimit && start+s.Limit < end {
		end = start + s.Limit
	} else if !s.HasLimit && start+100 < end {
		end = start + 100
	}
	page := joinedRows[start:end]

	out := make([]Row, 0, len(page))
	for _, jr := range page {
		out = append(out, projectRow(jr.id, jr.base, s.Projections))
	}
	return Result{Rows: out}, nil
}

func compareValues(a interface{}, aok bool, b interface{}, bok bool) int {
	if !aok && !bok {
		return 0
	}
	if !aok {
		return -1
	}
	if !bok {
		return 1
	}
	if af, ok1 := toFloat(a); ok1 {
		if bf, ok2 := toFloat(b); ok2 {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, _ := scalarString(a)
	bs, _ := scalarString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func projectRow(id uuid.UUID, value map[string]interface{}, projections []Projection) Row {
	out := Row{}
	for _, p := range projections {
		if p.Wildcard {
			for k, v := range value {
				out[k] = v
			}
			out["_id"] = id.String()
			continue
		}
		if p.Field == "_id" || p.Field == "id" {
			out[p.Alias] = id.String()
			continue
		}
		out[p.Alias] = value[p.Field]
	}
	return out
}

func aggregateRow(rows []joinedRow, projections []Projection) Row {
	out := Row{}
	for _, p := range projections {
		switch p.Agg {
		case "COUNT":
			out[p.Alias] = float64(len(rows))
		case "SUM", "AVG", "MIN", "MAX":
			var sum float64
			var count int
			var min, max float64
			first := true
			for _, r := range rows {
				v, ok := r.base[p.AggField]
				if !ok {
					continue
				}
				fv, ok := toFloat(v)
				if !ok {
					continue
				}
				sum += fv
				count++
				if first || fv < min {
					min = fv
				}
				if first || fv > max {
					max = fv
				}
				first = false
			}
			switch p.Agg {
			case "SUM":
				if count > 0 {
					out[p.Alias] = sum
				} else {
					out[p.Alias] = nil
				}
			case "AVG":
				if count > 0 {
					out[p.Alias] = sum / float64(count)
				} else {
					out[p.Alias] = nil
				}
			case "MIN":
				if count > 0 {
					out[p.Alias] = min
				} else {
					out[p.Alias] = nil
				}
			case "MAX":
				if count > 0 {
					out[p.Alias] = max
				} else {
					out[p.Alias] = nil
				}
			}
		}
	}
	return out
}

func execInsert(e *engine.Engine, s InsertStmt) (Result, error) {
	value := make(map[string]interface{}, len(s.Values))
	id := uuid.New()
	for i, v := range s.Values {
		col := "col" + strconv.Itoa(i)
		if i < len(s.Columns) {
			col = s.Columns[i]
		}
		if col == "_id" || col == "id" {
			if str, ok := v.(string); ok {
				parsed, err := uuid.Parse(str)
				if err != nil {
					return Result{}, errs.Validation{Message: "invalid id literal: " + str}
				}
				id = parsed
			}
			continue
		}
		value[col] = v
	}
	fam := familyOf(s.Into.Family)
	if err := e.PutFamilyNs(fam, s.Into.Namespace, s.Into.Collection, id, value); err != nil {
		return Result{}, err
	}
	return Result{Affected: 1, IDs: []uuid.UUID{id}}, nil
}

func execUpdate(e *engine.Engine, s UpdateStmt) (Result, error) {
	fam := familyOf(s.Target.Family)
	rows := candidateRows(e, s.Target, s.Where)
	affected := 0
	for id, v := range rows {
		if !matchesWhere(v, s.Where) {
			continue
		}
		merged := make(map[string]interface{}, len(v)+len(s.Set))
		for k, val := range v {
			merged[k] = val
		}
		for k, val := range s.Set {
			merged[k] = val
		}
		if err := e.PutFamilyNs(fam, s.Target.Namespace, s.Target.Collection, id, merged); err != nil {
			return Result{}, err
		}
		affected++
	}
	return Result{Affected: affected}, nil
}

func execDelete(e *engine.Engine, s DeleteStmt) (Result, error) {
	fam := familyOf(s.Target.Family)
	rows := candidateRows(e, s.Target, s.Where)
	affected := 0
	for id, v := range rows {
		if !matchesWhere(v, s.Where) {
			continue
		}
		if err := e.DeleteFamilyNs(fam, s.Target.Namespace, s.Target.Collection, id); err != nil {
			return Result{}, err
		}
		affected++
	}
	return Result{Affected: affected}, nil
}
