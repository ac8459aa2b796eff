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

package migrate

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shrijacked/Pieskieo/engine"
)

// ImportPostgresTable is ImportMySQLTable against a lib/pq
// data source name, double-quoting the table identifier the way
// Postgres expects instead of MySQL's backticks.
func ImportPostgresTable(ctx context.Context, e *engine.Engine, dsn, sourceTable, namespace, targetCollection string) (int, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(8)
	if err := db.PingContext(ctx); err != nil {
		return 0, err
	}

	query := `SELECT * FROM "` + escapeDoubleQuote(sourceTable) + `"`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	raw := make([]interface{}, len(columns))
	rawPtrs := make([]interface{}, len(columns))
	for i := range raw {
		rawPtrs[i] = &raw[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(rawPtrs...); err != nil {
			return count, err
		}
		value := rowToValue(columns, raw)
		id := uuid.New()
		if err := e.PutRowNs(namespace, targetCollection, id, value); err != nil {
			return count, err
		}
		count++
	}
	return count, rows.Err()
}

func escapeDoubleQuote(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
