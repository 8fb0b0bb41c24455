// Package transaction runs units of work in database transactions.
//
// A Manager hands out managed transactions through Run, which commits or
// rolls back based on the result of the callback, and unmanaged ones
// through Begin. While a managed callback runs, its transaction travels
// in the context.Context passed to it; nested Run calls find it there and
// apply their nest mode:
//
//	err := m.Run(ctx, transaction.Options{}, func(ctx context.Context, tx *transaction.Tx) error {
//		// Joins tx instead of opening a second connection.
//		return m.Run(ctx, transaction.Options{NestMode: transaction.Reuse}, func(ctx context.Context, inner *transaction.Tx) error {
//			return inner.Exec(ctx, "DELETE FROM sessions", nil, nil)
//		})
//	})
package transaction
