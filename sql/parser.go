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
	"strconv"
	"strings"

	"github.com/shrijacked/Pieskieo/errs"
)

type parser struct {
	toks []token
	pos  int
}

// Parse parses one statement from s.
func Parse(s string) (Statement, error) {
	p := &parser{toks: tokenize(s)}
	kw := strings.ToUpper(p.peek().text)
	switch kw {
	case "SELECT":
		return p.parseSelect()
	case "INSERT":
		return p.parseInsert()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	default:
		return nil, errs.Validation{Message: "unrecognized statement keyword: " + p.peek().text}
	}
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return errs.Validation{Message: "expected " + kw + ", got " + p.peek().text}
	}
	p.next()
	return nil
}

func (p *parser) expectPunct(text string) error {
	t := p.peek()
	if t.kind != tokPunct || t.text != text {
		return errs.Validation{Message: "expected '" + text + "', got '" + t.text + "'"}
	}
	p.next()
	return nil
}

func (p *parser) parseSelect() (Statement, error) {
	p.next() // SELECT
	stmt := SelectStmt{Limit: 100, HasLimit: false}

	projs, err := p.parseProjections()
	if err != nil {
		return nil, err
	}
	stmt.Projections = projs

	if p.isKeyword("FROM") {
		p.next()
		identTok := p.next()
		if identTok.kind != tokIdent {
			return nil, errs.Validation{Message: "expected table name after FROM"}
		}
		stmt.From = resolveTarget(identTok.text)
	}

	if p.isKeyword("INNER") || p.isKeyword("JOIN") {
		if p.isKeyword("INNER") {
			p.next()
		}
		if err := p.expectKeyword("JOIN"); err != nil {
			return nil, err
		}
		identTok := p.next()
		if identTok.kind != tokIdent {
			return nil, errs.Validation{Message: "expected table name after JOIN"}
		}
		join := &Join{Target: resolveTarget(identTok.text)}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		left := p.next()
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		right := p.next()
		join.LeftKey = lastDotted(left.text)
		join.RightKey = lastDotted(right.text)
		stmt.Join = join
	}

	if p.isKeyword("WHERE") {
		p.next()
		conds, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		stmt.Where = conds
	}

	if p.isKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			identTok := p.next()
			if identTok.kind != tokIdent {
				return nil, errs.Validation{Message: "expected identifier in ORDER BY"}
			}
			term := OrderTerm{Field: identTok.text}
			if p.isKeyword("DESC") {
				p.next()
				term.Desc = true
			} else if p.isKeyword("ASC") {
				p.next()
			}
			stmt.OrderBy = append(stmt.OrderBy, term)
			if p.peek().kind == tokPunct && p.peek().text == "," {
				p.next()
				continue
			}
			break
		}
	}

	if p.isKeyword("LIMIT") {
		p.next()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = n
		stmt.HasLimit = true
	}

	if p.isKeyword("OFFSET") {
		p.next()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Offset = n
	}

	return stmt, nil
}

func lastDotted(ident string) string {
	parts := strings.Split(ident, ".")
	return parts[len(parts)-1]
}

func (p *parser) parseIntLiteral() (int, error) {
	t := p.next()
	if t.kind != tokNumber {
		return 0, errs.Validation{Message: "expected integer literal"}
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, errs.Validation{Message: "invalid integer literal: " + t.text}
	}
	return n, nil
}

var aggFuncs = map[string]bool{"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true}

func (p *parser) parseProjections() ([]Projection, error) {
	var out []Projection
	for {
		t := p.peek()
		if t.kind == tokPunct && t.text == "*" {
			p.next()
			out = append(out, Projection{Wildcard: true})
		} else if t.kind == tokIdent && aggFuncs[strings.ToUpper(t.text)] {
			fn := strings.ToUpper(t.text)
			p.next()
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			argTok := p.next()
			aggField := argTok.text
			if argTok.kind == tokPunct && argTok.text == "*" {
				aggField = "*"
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			proj := Projection{Agg: fn, AggField: aggField, Alias: strings.ToLower(fn)}
			if p.isKeyword("AS") {
				p.next()
				proj.Alias = p.next().text
			}
			out = append(out, proj)
		} else if t.kind == tokIdent {
			p.next()
			proj := Projection{Field: t.text, Alias: t.text}
			if p.isKeyword("AS") {
				p.next()
				proj.Alias = p.next().text
			}
			out = append(out, proj)
		} else {
			return nil, errs.Validation{Message: "expected projection, got " + t.text}
		}
		if p.peek().kind == tokPunct && p.peek().text == "," {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseConditions() ([]Condition, error) {
	var out []Condition
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
		if p.isKeyword("AND") {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseCondition() (Condition, error) {
	fieldTok := p.next()
	if fieldTok.kind != tokIdent {
		return Condition{}, errs.Validation{Message: "expected field name in condition"}
	}
	cond := Condition{Field: fieldTok.text}

	if p.isKeyword("NOT") {
		p.next()
		if err := p.expectKeyword("IN"); err != nil {
			return Condition{}, err
		}
		list, err := p.parseLiteralList()
		if err != nil {
			return Condition{}, err
		}
		cond.Op = Nin
		cond.List = list
		return cond, nil
	}
	if p.isKeyword("IN") {
		p.next()
		list, err := p.parseLiteralList()
		if err != nil {
			return Condition{}, err
		}
		cond.Op = In
		cond.List = list
		return cond, nil
	}

	opTok := p.next()
	switch opTok.text {
	case "=":
		cond.Op = Eq
	case "<>", "!=":
		cond.Op = Ne
	case ">":
		cond.Op = Gt
	case ">=":
		cond.Op = Gte
	case "<":
		cond.Op = Lt
	case "<=":
		cond.Op = Lte
	default:
		return Condition{}, errs.Validation{Message: "unsupported operator: " + opTok.text}
	}
	val, err := p.parseLiteral()
	if err != nil {
		return Condition{}, err
	}
	cond.Value = val
	return cond, nil
}

func (p *parser) parseLiteralList() ([]interface{}, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var out []interface{}
	for {
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, val)
		if p.peek().kind == tokPunct && p.peek().text == "," {
			p.next()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) parseLiteral() (interface{}, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, errs.Validation{Message: "invalid numeric literal: " + t.text}
		}
		return f, nil
	case tokString:
		return t.text, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		return nil, errs.Validation{Message: "expected literal, got identifier " + t.text}
	default:
		return nil, errs.Validation{Message: "expected literal, got " + t.text}
	}
}

func (p *parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	identTok := p.next()
	if identTok.kind != tokIdent {
		return nil, errs.Validation{Message: "expected table name after INTO"}
	}
	stmt := InsertStmt{Into: resolveTarget(identTok.text)}

	if p.peek().kind == tokPunct && p.peek().text == "(" {
		p.next()
		for {
			colTok := p.next()
			if colTok.kind != tokIdent {
				return nil, errs.Validation{Message: "expected column name"}
			}
			stmt.Columns = append(stmt.Columns, colTok.text)
			if p.peek().kind == tokPunct && p.peek().text == "," {
				p.next()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	values, err := p.parseLiteralList()
	if err != nil {
		return nil, err
	}
	stmt.Values = values
	if len(stmt.Columns) != 0 && len(stmt.Columns) != len(stmt.Values) {
		return nil, errs.Validation{Message: "column count does not match value count"}
	}
	return stmt, nil
}

func (p *parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	identTok := p.next()
	if identTok.kind != tokIdent {
		return nil, errs.Validation{Message: "expected table name after UPDATE"}
	}
	stmt := UpdateStmt{Target: resolveTarget(identTok.text), Set: make(map[string]interface{})}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	for {
		fieldTok := p.next()
		if fieldTok.kind != tokIdent {
			return nil, errs.Validation{Message: "expected field name in SET"}
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Set[fieldTok.text] = val
		if p.peek().kind == tokPunct && p.peek().text == "," {
			p.next()
			continue
		}
		break
	}
	if p.isKeyword("WHERE") {
		p.next()
		conds, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		stmt.Where = conds
	}
	return stmt, nil
}

func (p *parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	identTok := p.next()
	if identTok.kind != tokIdent {
		return nil, errs.Validation{Message: "expected table name after FROM"}
	}
	stmt := DeleteStmt{Target: resolveTarget(identTok.text)}
	if p.isKeyword("WHERE") {
		p.next()
		conds, err := p.parseConditions()
		if err != nil {
			return nil, err
		}
		stmt.Where = conds
	}
	return stmt, nil
}
