package querygen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma/dialect/sql/querygen"
)

type tabler struct{}

func (tabler) TableRef() querygen.TableRef { return querygen.SchemaTable("app", "users") }

func TestResolveTable(t *testing.T) {
	tests := []struct {
		in      any
		want    querygen.TableRef
		wantErr bool
	}{
		{in: "users", want: querygen.Table("users")},
		{in: " app.users ", want: querygen.SchemaTable("app", "users")},
		{in: querygen.SchemaTable("s", "t"), want: querygen.SchemaTable("s", "t")},
		{in: &querygen.TableRef{Name: "t"}, want: querygen.Table("t")},
		{in: tabler{}, want: querygen.SchemaTable("app", "users")},
		{in: "", wantErr: true},
		{in: "app.", wantErr: true},
		{in: (*querygen.TableRef)(nil), wantErr: true},
		{in: 42, wantErr: true},
	}
	for _, tt := range tests {
		got, err := querygen.ResolveTable(tt.in)
		if tt.wantErr {
			require.Error(t, err, "%#v", tt.in)
			continue
		}
		require.NoError(t, err, "%#v", tt.in)
		assert.True(t, tt.want.Equal(got), "%#v: got %v", tt.in, got)
	}
}

func TestTableRef(t *testing.T) {
	ref := querygen.Table("users")
	assert.Equal(t, "users", ref.String())
	assert.Equal(t, "public.users", ref.WithDefaultSchema("public").String())
	assert.Equal(t, "app.users", querygen.SchemaTable("app", "users").WithDefaultSchema("public").String())
	assert.False(t, ref.Equal(querygen.SchemaTable("app", "users")))
}
