package querygen

import "fmt"

// Request describes a generator call in loosely typed form, as assembled
// from command-line arguments or configuration.
type Request struct {
	Operation Operation
	// Target is the database name for CreateDatabase and a table reference
	// ("table" or "schema.table") for table operations.
	Target  string
	Where   string
	Options map[string]any
}

// Build decodes the request options and calls the matching generator method.
func Build(g Generator, req Request) (string, error) {
	opts, err := DecodeOptions(req.Operation, g.Dialect().Name, req.Options)
	if err != nil {
		return "", err
	}
	table := func() (TableRef, error) {
		return ResolveTable(req.Target)
	}
	switch o := opts.(type) {
	case CreateDatabaseOptions:
		if req.Target == "" {
			return "", fmt.Errorf("querygen: %s requires a database name", req.Operation)
		}
		return g.CreateDatabaseQuery(req.Target, o)
	case ListDatabasesOptions:
		return g.ListDatabasesQuery(o)
	case ListSchemasOptions:
		return g.ListSchemasQuery(o)
	case ListTablesOptions:
		return g.ListTablesQuery(o)
	case TruncateTableOptions:
		t, err := table()
		if err != nil {
			return "", err
		}
		return g.TruncateTableQuery(t, o)
	case ShowConstraintsOptions:
		t, err := table()
		if err != nil {
			return "", err
		}
		return g.ShowConstraintsQuery(t, o)
	case BulkDeleteOptions:
		t, err := table()
		if err != nil {
			return "", err
		}
		return g.BulkDeleteQuery(t, req.Where, o)
	}
	switch req.Operation {
	case DescribeTable:
		t, err := table()
		if err != nil {
			return "", err
		}
		return g.DescribeTableQuery(t)
	case ShowIndexes:
		t, err := table()
		if err != nil {
			return "", err
		}
		return g.ShowIndexesQuery(t)
	case Version:
		return g.VersionQuery()
	}
	return "", fmt.Errorf("querygen: unknown operation %q", req.Operation)
}
