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

import "strings"

// resolveTarget turns a dotted identifier (up to 3 parts) into a
// Target: family.namespace.name, namespace.name, or name. A missing
// namespace defaults to "default". A missing family is inferred from
// the collection name's prefix.
func resolveTarget(ident string) Target {
	parts := strings.Split(ident, ".")
	var family, namespace, name string
	switch len(parts) {
	case 3:
		family, namespace, name = parts[0], parts[1], parts[2]
	case 2:
		namespace, name = parts[0], parts[1]
	default:
		name = parts[0]
	}
	if namespace == "" {
		namespace = "default"
	}
	return Target{Family: resolveFamily(family, name), Namespace: namespace, Collection: name}
}

func resolveFamily(family, collection string) string {
	switch strings.ToLower(family) {
	case "docs", "doc", "collections", "collection":
		return "doc"
	case "rows", "row", "tables", "table":
		return "row"
	}
	lower := strings.ToLower(collection)
	if strings.HasPrefix(lower, "rows_") || strings.HasPrefix(lower, "table_") || strings.HasPrefix(lower, "tbl_") {
		return "row"
	}
	return "doc"
}
