package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/storage/database"
)

// psql builds postgres statements with numbered placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// paginate applies the page window to b. A zero limit means no limit.
func paginate(b sq.SelectBuilder, page core.Page) sq.SelectBuilder {
	if page.Limit > 0 {
		b = b.Limit(uint64(page.Limit))
	}
	if page.Skip > 0 {
		b = b.Offset(uint64(page.Skip))
	}
	return b
}

func selectAll(ctx context.Context, db *sqlx.DB, dest interface{}, b sq.SelectBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, database.Executor(ctx, db), dest, q, args...)
}

func selectOne(ctx context.Context, db *sqlx.DB, dest interface{}, b sq.SelectBuilder) error {
	q, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, database.Executor(ctx, db), dest, q, args...)
}
