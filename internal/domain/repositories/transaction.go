package repositories

import "context"

// TxFn is a unit of work run inside a transaction. It may be invoked more
// than once when the store retries a serialization conflict, so it must not
// have side effects outside the transaction.
type TxFn func(ctx context.Context) error

// TransactionManager runs units of work atomically. Every tree mutation goes
// through ExecTx; a returned error rolls back all writes made by fn.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
