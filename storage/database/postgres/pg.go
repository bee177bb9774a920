// Package pgdb implements the domain repositories on PostgreSQL
// using sqlx and squirrel.
package pgdb

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func orderBy(b sq.SelectBuilder, ordering []core.DBOrdering) sq.SelectBuilder {
	for _, o := range ordering {
		b = b.OrderBy(o.String())
	}
	return b
}

func deleteByID(ctx context.Context, db *sqlx.DB, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", table)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
