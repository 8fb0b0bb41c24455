package model

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
	dsql "github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/querygen"
	"github.com/syssam/orma/dialect/sql/querygen/mysql"
	"github.com/syssam/orma/dialect/sql/querygen/postgres"
)

func names(models []Model) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.Name()
	}
	return out
}

func TestNewTable(t *testing.T) {
	tests := []struct {
		model *Table
		want  querygen.TableRef
	}{
		{NewTable("User"), querygen.Table("users")},
		{NewTable("UserProfile"), querygen.Table("user_profiles")},
		{NewTable("Category"), querygen.Table("categories")},
		{NewTable("Person", WithSchema("app")), querygen.SchemaTable("app", "people")},
		{NewTable("Log", WithTableName("audit_log")), querygen.Table("audit_log")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.model.TableRef(), tt.model.Name())
	}
	tbl := NewTable("Post", WithDependsOn("User"))
	deps := tbl.DependsOn()
	deps[0] = "x"
	assert.Equal(t, []string{"User"}, tbl.DependsOn())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewTable("User"))
	require.NoError(t, r.Register(NewTable("Post")))
	require.Error(t, r.Register(NewTable("User")))
	require.Error(t, r.Register(NewTable("")))
	assert.Equal(t, 2, r.Len())
	m, ok := r.Get("Post")
	require.True(t, ok)
	assert.Equal(t, "posts", m.TableRef().Name)
	_, ok = r.Get("Comment")
	assert.False(t, ok)
	assert.Equal(t, []string{"User", "Post"}, names(r.Models()))
	assert.Panics(t, func() { NewRegistry(NewTable("A"), NewTable("A")) })
}

func TestTopoSortedByForeignKey(t *testing.T) {
	tests := []struct {
		name   string
		models []Model
		want   []string
		cyclic []string
	}{
		{
			name: "linear",
			models: []Model{
				NewTable("Comment", WithDependsOn("Post", "User")),
				NewTable("Post", WithDependsOn("User")),
				NewTable("User"),
			},
			want: []string{"User", "Post", "Comment"},
		},
		{
			name: "independent keep registration order",
			models: []Model{
				NewTable("B"),
				NewTable("A"),
				NewTable("C"),
			},
			want: []string{"B", "A", "C"},
		},
		{
			name: "self reference and unknown model",
			models: []Model{
				NewTable("Node", WithDependsOn("Node", "Missing")),
				NewTable("Edge", WithDependsOn("Node", "Node")),
			},
			want: []string{"Node", "Edge"},
		},
		{
			name: "cycle",
			models: []Model{
				NewTable("User", WithDependsOn("Team")),
				NewTable("Team", WithDependsOn("User")),
				NewTable("Tag"),
				NewTable("Member", WithDependsOn("Team")),
			},
			cyclic: []string{"User", "Team", "Member"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(tt.models...)
			sorted, ok := r.TopoSortedByForeignKey()
			if tt.cyclic != nil {
				require.False(t, ok)
				assert.Nil(t, sorted)
				assert.Equal(t, tt.cyclic, r.Cyclic())
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, names(sorted))
			assert.Empty(t, r.Cyclic())
		})
	}
}

func TestTableStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := dsql.OpenDB(dialect.MySQL, db)
	ctx := context.Background()
	tbl := NewTable("Log")

	mock.ExpectExec("^TRUNCATE `logs`;$").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, tbl.Truncate(ctx, drv, mysql.New(), querygen.TruncateTableOptions{}))

	mock.ExpectExec("^DELETE FROM `logs` WHERE level = 'debug' LIMIT 10;$").WillReturnResult(sqlmock.NewResult(0, 10))
	require.NoError(t, tbl.Destroy(ctx, drv, mysql.New(), DestroyOptions{Where: "level = 'debug'", Limit: 10}))

	err = tbl.Destroy(ctx, drv, postgres.New(), DestroyOptions{Limit: 10})
	require.True(t, orma.IsDialectNotSupported(err))

	mock.ExpectExec("^TRUNCATE").WillReturnError(assert.AnError)
	err = tbl.Truncate(ctx, drv, mysql.New(), querygen.TruncateTableOptions{})
	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "model: truncate Log")
	require.NoError(t, mock.ExpectationsWereMet())
}
