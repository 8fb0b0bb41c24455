// Package orma is the SQL generation and transaction coordination layer of
// an object-relational mapping toolkit.
//
// The root package only holds the error taxonomy shared by every layer.
// The functionality lives in sub-packages:
//
//   - dialect: dialect names, capability descriptors and driver contracts
//   - dialect/sql: database/sql driver and connection manager
//   - dialect/sql/querygen: fragment assembly, option validation and the
//     per-dialect Generator contract
//   - transaction: managed and unmanaged transactions with nest modes
//   - model: model registry and foreign key ordering
//   - client: runtime facade with bulk truncate/destroy operations
//
// # Errors
//
// Validation errors are returned before any I/O happens:
//
//	q, err := gen.ListTablesQuery(querygen.ListTablesOptions{Schema: "app"})
//	if orma.IsDialectNotSupported(err) {
//	    // the option is known but this backend cannot honor it
//	}
package orma
