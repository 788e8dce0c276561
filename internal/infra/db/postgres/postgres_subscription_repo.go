package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, status, starts_at, expires_at, created_at`

// Save inserts a new row; activation only ever happens through ActivateIfPending.
func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.Status, s.StartsAt, s.ExpiresAt, s.CreatedAt)
	return translate("save subscription", err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, translate("find subscription", err)
	}
	return s, nil
}

// ListActiveByUser returns stored-active rows; time-based expiry is left to the caller.
func (r *subscriptionRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND status = 'active' ORDER BY expires_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, translate("list subscriptions", err)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, translate("scan subscription", err)
		}
		out = append(out, s)
	}
	return out, translate("list subscriptions", rows.Err())
}

func (r *subscriptionRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string, startsAt, expiresAt time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status = 'active',
       starts_at = $2,
       expires_at = $3
 WHERE id = $1
   AND status = 'pending'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, startsAt, expiresAt)
	if err != nil {
		return false, translate("activate subscription", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) CancelIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE subscriptions SET status = 'cancelled' WHERE id = $1 AND status = 'pending'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, translate("cancel subscription", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.StartsAt, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}
