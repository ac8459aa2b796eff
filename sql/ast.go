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

// Op is a comparison operator accepted in a WHERE clause.
type Op int

const (
	Eq Op = iota
	Ne
	Gt
	Gte
	Lt
	Lte
	In
	Nin
)

// Condition is one leaf of a flat conjunctive (AND-only) WHERE clause.
type Condition struct {
	Field string
	Op    Op
	Value interface{}   // scalar for Eq/Ne/Gt/Gte/Lt/Lte
	List  []interface{} // for In/Nin
}

// Target names a (family, namespace, collection) address resolved
// from up to three dotted identifier parts.
type Target struct {
	Family     string // "doc" or "row"
	Namespace  string
	Collection string
}

// Projection is one SELECT output column.
type Projection struct {
	Wildcard bool
	Field    string
	Alias    string
	Agg      string // "", COUNT, SUM, AVG, MIN, MAX
	AggField string // field aggregated over; "*" for COUNT(*)
}

// OrderTerm is one ORDER BY clause entry.
type OrderTerm struct {
	Field string
	Desc  bool
}

// Join is the single optional INNER JOIN clause.
type Join struct {
	Target   Target
	LeftKey  string
	RightKey string
}

// SelectStmt is a parsed SELECT.
type SelectStmt struct {
	Projections []Projection
	From        Target
	Join        *Join
	Where       []Condition
	OrderBy     []OrderTerm
	Limit       int
	Offset      int
	HasLimit    bool
}

// InsertStmt is a parsed single-row INSERT.
type InsertStmt struct {
	Into    Target
	Columns []string
	Values  []interface{}
}

// UpdateStmt is a parsed UPDATE.
type UpdateStmt struct {
	Target Target
	Set    map[string]interface{}
	Where  []Condition
}

// DeleteStmt is a parsed DELETE.
type DeleteStmt struct {
	Target Target
	Where  []Condition
}

// Statement is any one of SelectStmt/InsertStmt/UpdateStmt/DeleteStmt.
type Statement interface {
	isStatement()
}

func (SelectStmt) isStatement() {}
func (InsertStmt) isStatement() {}
func (UpdateStmt) isStatement() {}
func (DeleteStmt) isStatement() {}
