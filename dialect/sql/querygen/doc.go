// Package querygen renders dialect specific SQL for catalog and
// maintenance operations.
//
// A Generator is registered per dialect by importing its package:
//
//	import _ "github.com/syssam/orma/dialect/sql/querygen/postgres"
//
//	g, err := querygen.Get("postgres")
//	q, err := g.ListTablesQuery(querygen.ListTablesOptions{Schema: "app"})
//
// Options are checked before any SQL is composed. An option the operation
// does not know fails with orma.UnknownOptionError; one the dialect does
// not implement fails with orma.DialectNotSupportedError.
package querygen
