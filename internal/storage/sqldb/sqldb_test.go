package sqldb

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
)

func TestQuery_ConvertsTextProtocolBytes(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("dispatching_base_num").OfType("VARCHAR", ""),
		sqlmock.NewColumn("pickup_datetime").OfType("DATETIME", ts),
		sqlmock.NewColumn("pulocation_id").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("payload").OfType("BLOB", []byte{}),
	).
		AddRow([]byte("B00013"), ts, []byte("12"), []byte{0x01}).
		AddRow(nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `raw`")).WillReturnRows(rows)

	f, err := Query(context.Background(), db, "SELECT * FROM `raw`")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"dispatching_base_num", "pickup_datetime", "pulocation_id", "payload"}, f.Names())
	assert.Equal(t, []frame.Kind{frame.String, frame.Timestamp, frame.Int, frame.Bytes},
		[]frame.Kind{f.Columns[0].Kind, f.Columns[1].Kind, f.Columns[2].Kind, f.Columns[3].Kind})
	require.Equal(t, 2, f.Len())
	assert.Equal(t, "B00013", f.Rows[0][0])
	assert.Equal(t, int64(12), f.Rows[0][2])
	assert.Equal(t, []byte{0x01}, f.Rows[0][3])
	assert.Equal(t, []any{nil, nil, nil, nil}, f.Rows[1])
}

func TestInserter_ChunksByParameterLimit(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	in := Inserter{Dialect: sqlplan.Backticks, Placeholder: Question, MaxParams: 4}
	rows := [][]any{{1, "a"}, {2, "b"}, {3, "c"}}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `t` (`id`, `v`) VALUES (?, ?), (?, ?)")).
		WithArgs(1, "a", 2, "b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `t` (`id`, `v`) VALUES (?, ?)")).
		WithArgs(3, "c").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := in.Insert(context.Background(), db, "t", []string{"id", "v"}, rows)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInserter_Errors(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	in := Inserter{Dialect: sqlplan.ANSI, Placeholder: Question, MaxParams: 1}
	_, err = in.Insert(context.Background(), db, "t", []string{"a", "b"}, [][]any{{1, 2}})
	assert.ErrorContains(t, err, "exceed")

	in.MaxParams = 0
	_, err = in.Insert(context.Background(), db, "t", nil, [][]any{{1}})
	assert.ErrorContains(t, err, "no columns")

	_, err = in.Insert(context.Background(), db, "t", []string{"a", "b"}, [][]any{{1}})
	assert.ErrorContains(t, err, "row length")

	n, err := in.Insert(context.Background(), db, "t", []string{"a"}, nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "?", Question(3))
	assert.Equal(t, "@p1", AtP(0))
	assert.Equal(t, "@p12", AtP(11))
}

func TestCount(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "main"."silver"`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(driver.Value(int64(42))))

	n, err := Count(context.Background(), db, sqlplan.ANSI, "main.silver")
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}
