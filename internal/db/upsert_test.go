package db

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var snapCfg = UpsertConfig{
	Table:        "market_data",
	Columns:      []string{"corp_code", "year", "corp_role", "stock_price"},
	ConflictKeys: []string{"corp_code", "year", "corp_role"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, snapCfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_Validation(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "t", Columns: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE "_tmp_upsert_market_data" (LIKE "market_data" INCLUDING DEFAULTS) ON COMMIT DROP`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_market_data"}, snapCfg.Columns).WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("corp_code", "year", "corp_role") DO UPDATE SET "stock_price" = EXCLUDED."stock_price"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, snapCfg, [][]any{
		{"00126380", 2024, "target", 53200.0},
		{"00164779", 2024, "benchmark", 173900.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_market_data"}, snapCfg.Columns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, snapCfg, [][]any{{"1", 2024, "target", 1.0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL_DoNothing(t *testing.T) {
	cfg := UpsertConfig{Table: "note_links", Columns: []string{"link_id"}, ConflictKeys: []string{"link_id"}}
	assert.Equal(t,
		`INSERT INTO "note_links" ("link_id") SELECT "link_id" FROM "_tmp_upsert_note_links" ON CONFLICT ("link_id") DO NOTHING`,
		upsertSQL(cfg))
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, `"simple"`, identifier("simple").Sanitize())
	assert.Equal(t, `"dart"."fs_facts"`, identifier("dart.fs_facts").Sanitize())
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}

func TestReplaceScope(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"corp_code", "bsns_year", "metric_key"}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "fact_metrics" WHERE "corp_code" = $1 AND "bsns_year" = $2`)).
		WithArgs("00126380", 2024).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectCopyFrom(pgx.Identifier{"fact_metrics"}, cols).WillReturnResult(2)
	mock.ExpectCommit()

	del, ins, err := ReplaceScope(context.Background(), mock, "fact_metrics",
		Scope{Columns: []string{"corp_code", "bsns_year"}, Values: []any{"00126380", 2024}},
		cols, [][]any{{"00126380", 2024, "REVENUE"}, {"00126380", 2024, "roe"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), del)
	assert.Equal(t, int64(2), ins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceScope_DeleteErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM").WillReturnError(fmt.Errorf("lock timeout"))
	mock.ExpectRollback()

	_, _, err = ReplaceScope(context.Background(), mock, "fact_metrics",
		Scope{Columns: []string{"corp_code"}, Values: []any{"1"}}, []string{"corp_code"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete scope")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceScope_BadScope(t *testing.T) {
	_, _, err := ReplaceScope(context.Background(), nil, "t", Scope{Columns: []string{"a"}}, nil, nil)
	assert.Error(t, err)
}
