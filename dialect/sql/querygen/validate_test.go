package querygen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql/querygen"
)

func TestValidateOptions(t *testing.T) {
	supportable := querygen.NewOptionSet(querygen.OptCascade, querygen.OptRestartIdentity)
	supported := querygen.NewOptionSet(querygen.OptCascade)
	tests := []struct {
		name     string
		supplied map[querygen.Option]any
		check    func(*testing.T, error)
	}{
		{
			name:     "nothing supplied",
			supplied: nil,
			check:    func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name:     "supported",
			supplied: map[querygen.Option]any{querygen.OptCascade: true},
			check:    func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name:     "recognized but unsupported",
			supplied: map[querygen.Option]any{querygen.OptRestartIdentity: true},
			check: func(t *testing.T, err error) {
				require.True(t, orma.IsDialectNotSupported(err))
				var e *orma.DialectNotSupportedError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "truncateTable", e.Operation)
				assert.Equal(t, "mysql", e.Dialect)
				assert.Equal(t, "restartIdentity", e.Option)
			},
		},
		{
			name:     "unknown",
			supplied: map[querygen.Option]any{"cascadee": true},
			check: func(t *testing.T, err error) {
				require.True(t, orma.IsUnknownOption(err))
				assert.False(t, orma.IsDialectNotSupported(err))
			},
		},
		{
			name: "first key in order wins",
			supplied: map[querygen.Option]any{
				querygen.OptRestartIdentity: true,
				"bogus":                     1,
			},
			check: func(t *testing.T, err error) {
				require.True(t, orma.IsUnknownOption(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, querygen.ValidateOptions(querygen.TruncateTable, "mysql", supportable, supported, tt.supplied))
		})
	}
}

// Every supplied subset of the supported set passes, whatever the values.
func TestValidateOptionsSubsets(t *testing.T) {
	all := []querygen.Option{querygen.OptColumnName, querygen.OptConstraintName, querygen.OptConstraintType}
	supportable := querygen.NewOptionSet(all...)
	supported := querygen.NewOptionSet(all[:2]...)
	for mask := 0; mask < 1<<len(all); mask++ {
		supplied := map[querygen.Option]any{}
		for i, o := range all {
			if mask&(1<<i) != 0 {
				supplied[o] = "x"
			}
		}
		err := querygen.ValidateOptions(querygen.ShowConstraints, "sqlite", supportable, supported, supplied)
		if _, ok := supplied[querygen.OptConstraintType]; ok {
			assert.True(t, orma.IsDialectNotSupported(err), "mask %b", mask)
		} else {
			assert.NoError(t, err, "mask %b", mask)
		}
	}
}

func TestDecodeOptions(t *testing.T) {
	t.Run("typed", func(t *testing.T) {
		opts, err := querygen.DecodeOptions(querygen.TruncateTable, "postgres", map[string]any{
			"cascade":         "true",
			"restartIdentity": true,
		})
		require.NoError(t, err)
		assert.Equal(t, querygen.TruncateTableOptions{Cascade: true, RestartIdentity: true}, opts)
	})
	t.Run("comma separated slice", func(t *testing.T) {
		opts, err := querygen.DecodeOptions(querygen.ListSchemas, "postgres", map[string]any{"skip": "a,b"})
		require.NoError(t, err)
		assert.Equal(t, querygen.ListSchemasOptions{Skip: []string{"a", "b"}}, opts)
	})
	t.Run("weak int", func(t *testing.T) {
		opts, err := querygen.DecodeOptions(querygen.BulkDelete, "mysql", map[string]any{"limit": "10"})
		require.NoError(t, err)
		assert.Equal(t, querygen.BulkDeleteOptions{Limit: 10}, opts)
	})
	t.Run("unknown key", func(t *testing.T) {
		_, err := querygen.DecodeOptions(querygen.ListTables, "mysql", map[string]any{"schemaa": "x"})
		require.True(t, orma.IsUnknownOption(err))
	})
	t.Run("no options", func(t *testing.T) {
		opts, err := querygen.DecodeOptions(querygen.Version, "mysql", nil)
		require.NoError(t, err)
		assert.Empty(t, opts.Supplied())
	})
	t.Run("options on an operation without any", func(t *testing.T) {
		_, err := querygen.DecodeOptions(querygen.DescribeTable, "mysql", map[string]any{"schema": "x"})
		require.True(t, orma.IsUnknownOption(err))
	})
	t.Run("unknown operation", func(t *testing.T) {
		_, err := querygen.DecodeOptions("dropEverything", "mysql", nil)
		require.Error(t, err)
	})
}

func TestOptionSet(t *testing.T) {
	s := querygen.NewOptionSet(querygen.OptSkip, querygen.OptCascade, querygen.OptSkip)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(querygen.OptSkip))
	assert.False(t, s.Has(querygen.OptLimit))
	assert.Equal(t, []querygen.Option{querygen.OptCascade, querygen.OptSkip}, s.Options())
	assert.True(t, querygen.NewOptionSet(querygen.OptSkip).SubsetOf(s))
	assert.False(t, s.SubsetOf(querygen.NewOptionSet(querygen.OptSkip)))
	assert.True(t, querygen.NewOptionSet().SubsetOf(querygen.NewOptionSet()))
}

func TestSupportable(t *testing.T) {
	for _, op := range querygen.Operations() {
		assert.NotPanics(t, func() { querygen.Supportable(op) }, op)
	}
	assert.Zero(t, querygen.Supportable("nope").Len())
	assert.True(t, querygen.Supportable(querygen.TruncateTable).Has(querygen.OptRestartIdentity))
}
