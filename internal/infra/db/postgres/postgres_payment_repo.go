package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

// DocumentCipher seals payer documents bound to the owning payment id.
type DocumentCipher interface {
	Seal(owner, plaintext string) (string, error)
	Open(owner, ciphertext string) (string, error)
}

type paymentRepo struct {
	pool   *pgxpool.Pool
	cipher DocumentCipher // nil stores documents as given
}

func NewPaymentRepo(pool *pgxpool.Pool, cipher DocumentCipher) *paymentRepo {
	return &paymentRepo{pool: pool, cipher: cipher}
}

const paymentColumns = `id, user_id, subscription_id, provider, external_charge_id, amount, status, method, payer_name, payer_document, paid_at, created_at, updated_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (` + paymentColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	doc, err := r.seal(p.ID, p.Payer.Document)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.SubscriptionID, p.Provider, p.ExternalChargeID, p.Amount, p.Status, p.Method,
		p.Payer.Name, doc, p.PaidAt, p.CreatedAt, p.UpdatedAt)
	return translate("save payment", err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return r.findOne(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1;`, id)
}

func (r *paymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Payment, error) {
	if externalID == "" {
		return nil, fmt.Errorf("external charge id is empty: %w", domain.ErrInvalidArgument)
	}
	return r.findOne(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE external_charge_id = $1;`, externalID)
}

// MarkPaidIfPending is the confirmation compare-and-swap; zero rows affected means
// the payment was already terminal when the UPDATE ran.
func (r *paymentRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, paidAt time.Time, payer model.Payer) (bool, error) {
	query := `
    UPDATE payments
       SET status = 'paid',
           paid_at = $2,
           payer_name = $3,
           payer_document = $4,
           updated_at = $2
     WHERE id = $1
       AND status = 'pending'`

	doc, err := r.seal(id, payer.Document)
	if err != nil {
		return false, err
	}
	cmd, err := execSQL(ctx, r.pool, tx, query, id, paidAt, payer.Name, doc)
	if err != nil {
		return false, translate("mark payment paid", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE payments SET status = 'failed', updated_at = NOW() WHERE id = $1 AND status = 'pending'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, translate("mark payment failed", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
	WHERE status = 'pending' AND external_charge_id <> '' AND created_at < $1
	ORDER BY created_at ASC
	LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, translate("list pending payments", err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list pending payments", err)
	}
	return out, nil
}

func (r *paymentRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg string) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	return r.scan(row)
}

func (r *paymentRepo) scan(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var doc string
	if err := row.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.Provider, &p.ExternalChargeID, &p.Amount, &p.Status, &p.Method,
		&p.Payer.Name, &doc, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, translate("find payment", err)
		}
		return nil, fmt.Errorf("find payment: %w: %v", domain.ErrReadDatabaseRow, err)
	}
	var err error
	if p.Payer.Document, err = r.open(p.ID, doc); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) seal(owner, doc string) (string, error) {
	if r.cipher == nil || doc == "" {
		return doc, nil
	}
	out, err := r.cipher.Seal(owner, doc)
	if err != nil {
		return "", fmt.Errorf("seal payer document: %w: %v", domain.ErrPersistence, err)
	}
	return out, nil
}

func (r *paymentRepo) open(owner, doc string) (string, error) {
	if r.cipher == nil || doc == "" {
		return doc, nil
	}
	out, err := r.cipher.Open(owner, doc)
	if err != nil {
		return "", fmt.Errorf("open payer document: %w: %v", domain.ErrReadDatabaseRow, err)
	}
	return out, nil
}
