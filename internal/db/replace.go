package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Scope selects the rows a replace owns, as column = value pairs.
type Scope struct {
	Columns []string
	Values  []any
}

func (s Scope) where() (string, error) {
	if len(s.Columns) == 0 || len(s.Columns) != len(s.Values) {
		return "", eris.New("db: replace: scope needs matching columns and values")
	}
	conds := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		conds[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
	}
	return strings.Join(conds, " AND "), nil
}

// ReplaceScope deletes every row of table inside scope and COPYs rows in,
// in one transaction. Readers never see a partial scope.
func ReplaceScope(ctx context.Context, pool Pool, table string, scope Scope, columns []string, rows [][]any) (deleted, inserted int64, err error) {
	where, err := scope.where()
	if err != nil {
		return 0, 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", identifier(table).Sanitize(), where), scope.Values...)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "db: replace: delete scope of %s", table)
	}
	if inserted, err = CopyFrom(ctx, tx, table, columns, rows); err != nil {
		return 0, 0, eris.Wrap(err, "db: replace")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, eris.Wrap(err, "db: replace: commit tx")
	}
	return tag.RowsAffected(), inserted, nil
}
