package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside a database transaction, passing the
// infra-specific handle through tx. Repositories must accept a nil tx (pool path).
//
// The confirmation path uses it to make the payment CAS and the subscription CAS
// commit together; it is not a lock, losers of a race still observe zero rows affected.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
