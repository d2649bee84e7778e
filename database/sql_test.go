package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/sqlmap/template"
)

func newMock(t *testing.T) (*SQLExecutor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLExecutor(db), mock
}

func TestSQLExecutor_Query(t *testing.T) {
	exec, mock := newMock(t)
	mock.ExpectQuery("SELECT id, name FROM users WHERE id > ?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "ann").AddRow(3, "bob"))

	rows, err := exec.Query(context.Background(), "SELECT id, name FROM users WHERE id > ?", []any{1})
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)

	var names []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ann", "bob"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      int64
		expectErr error
	}{
		{
			name: "affected rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM t WHERE id = ?").WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: 1,
		},
		{
			name: "driver error passes through",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM t WHERE id = ?").WithArgs(7).WillReturnError(assert.AnError)
			},
			expectErr: assert.AnError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, mock := newMock(t)
			tt.setupMock(mock)

			n, err := exec.Exec(context.Background(), "DELETE FROM t WHERE id = ?", []any{7})
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLExecutor_ExecBatch(t *testing.T) {
	exec, mock := newMock(t)
	mock.ExpectBegin()
	del := mock.ExpectPrepare("DELETE FROM t WHERE id = ?")
	del.ExpectExec().WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	del.ExpectExec().WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 0))
	del.ExpectExec().WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stmts := []*template.Statement{
		{SQL: "DELETE FROM t WHERE id = ?", Args: []any{1}},
		{SQL: "DELETE FROM t WHERE id = ?", Args: []any{2}},
		{SQL: "DELETE FROM t WHERE id = ?", Args: []any{3}},
	}
	counts, err := exec.ExecBatch(context.Background(), stmts)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0, 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_ExecBatchFailureRollsBack(t *testing.T) {
	exec, mock := newMock(t)
	mock.ExpectBegin()
	ins := mock.ExpectPrepare("INSERT INTO t (id) VALUES (?)")
	ins.ExpectExec().WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
	ins.ExpectExec().WithArgs(1).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	stmts := []*template.Statement{
		{SQL: "INSERT INTO t (id) VALUES (?)", Args: []any{1}},
		{SQL: "INSERT INTO t (id) VALUES (?)", Args: []any{1}},
		{SQL: "INSERT INTO t (id) VALUES (?)", Args: []any{2}},
	}
	_, err := exec.ExecBatch(context.Background(), stmts)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, 3, batchErr.Size)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "statement 2 of 3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLExecutor_PingClose(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	exec := NewSQLExecutor(db)

	mock.ExpectPing()
	mock.ExpectClose()
	assert.NoError(t, exec.Ping(context.Background()))
	assert.NoError(t, exec.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchErrorMessages(t *testing.T) {
	err := &BatchError{Index: -1, Size: 4, Err: assert.AnError}
	assert.Contains(t, err.Error(), "batch of 4 statements failed")
	assert.ErrorIs(t, err, assert.AnError)
}
