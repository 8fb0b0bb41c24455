package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"postgres", Postgres},
		{"pgx", Postgres},
		{"mysql", MySQL},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
		{"snowflake", Snowflake},
	}
	for _, tt := range tests {
		d, err := Lookup(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, d.Name)
	}
	_, err := Lookup("oracle")
	require.Error(t, err)
}

func TestDescriptors(t *testing.T) {
	for _, name := range Names() {
		d, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name)
		again, _ := Lookup(name)
		assert.Same(t, d, again)
	}
	sf, _ := Lookup(Snowflake)
	assert.False(t, sf.Supports.ForeignKeyChecksDisableable)
	assert.False(t, sf.Supports.Savepoints)
	my, _ := Lookup(MySQL)
	assert.True(t, my.Supports.ForeignKeyChecksDisableable)
	pg, _ := Lookup(Postgres)
	assert.True(t, pg.Supports.TruncateCascade)
	assert.Equal(t, "public", pg.DefaultSchema)
}
