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

// Package migrate bulk-imports rows from an external relational
// database into an engine.Engine row collection, one Engine.PutRowNs
// call per source row so schema enforcement, the WAL, and secondary
// indexes all apply exactly as they would for a row written by hand.
package migrate

import (
	"fmt"
	"time"
)

// toValue converts a database/sql scan target's dynamic type into the
// plain JSON-ish value map[string]interface{} expects.
func toValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		return x
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}

// rowToValue zips column names with a scanned row's raw values into
// the map PutRowNs expects.
func rowToValue(columns []string, raw []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		out[col] = toValue(raw[i])
	}
	return out
}
