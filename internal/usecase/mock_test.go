package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/domain/ports/repository"
)

// --- In-memory store shared by the repo mocks ---
//
// One mutex guards every table so the *IfPending methods behave like a single
// conditional UPDATE does in postgres.

type memStore struct {
	mu       sync.Mutex
	plans    map[string]*model.Plan
	payments map[string]*model.Payment
	subs     map[string]*model.Subscription

	// writes counts successful conditional transitions.
	writes int

	saveErr error // injected failure for Save calls
	casErr  error // injected failure for *IfPending calls
	listErr error // injected failure for ListPendingOlderThan
}

func newMemStore() *memStore {
	return &memStore{
		plans:    map[string]*model.Plan{},
		payments: map[string]*model.Payment{},
		subs:     map[string]*model.Subscription{},
	}
}

func clonePayment(p *model.Payment) *model.Payment {
	cp := *p
	if p.PaidAt != nil {
		t := *p.PaidAt
		cp.PaidAt = &t
	}
	return &cp
}

func cloneSub(s *model.Subscription) *model.Subscription {
	cp := *s
	if s.StartsAt != nil {
		t := *s.StartsAt
		cp.StartsAt = &t
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}

// --- Mock PlanRepository ---

type memPlanRepo struct{ s *memStore }

var _ repository.PlanRepository = (*memPlanRepo)(nil)

func (r *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.s.plans {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- Mock PaymentRepository ---

type memPaymentRepo struct{ s *memStore }

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func (r *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.saveErr != nil {
		return r.s.saveErr
	}
	for _, other := range r.s.payments {
		if other.ID != p.ID && p.ExternalChargeID != "" && other.ExternalChargeID == p.ExternalChargeID {
			return domain.ErrAlreadyExists
		}
	}
	r.s.payments[p.ID] = clonePayment(p)
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *memPaymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.ExternalChargeID == externalID {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, paidAt time.Time, payer model.Payer) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.casErr != nil {
		return false, r.s.casErr
	}
	p, ok := r.s.payments[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusPaid
	p.PaidAt = &paidAt
	p.Payer = payer
	p.UpdatedAt = paidAt
	r.s.writes++
	return true, nil
}

func (r *memPaymentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.casErr != nil {
		return false, r.s.casErr
	}
	p, ok := r.s.payments[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusFailed
	r.s.writes++
	return true, nil
}

func (r *memPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.listErr != nil {
		return nil, r.s.listErr
	}
	var out []*model.Payment
	for _, p := range r.s.payments {
		if p.Status == model.PaymentStatusPending && p.ExternalChargeID != "" && p.CreatedAt.Before(cutoff) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Mock SubscriptionRepository ---

type memSubRepo struct{ s *memStore }

var _ repository.SubscriptionRepository = (*memSubRepo)(nil)

func (r *memSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.saveErr != nil {
		return r.s.saveErr
	}
	r.s.subs[s.ID] = cloneSub(s)
	return nil
}

func (r *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneSub(s), nil
}

func (r *memSubRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.s.subs {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			out = append(out, cloneSub(s))
		}
	}
	return out, nil
}

func (r *memSubRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string, startsAt, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.casErr != nil {
		return false, r.s.casErr
	}
	s, ok := r.s.subs[id]
	if !ok || s.Status != model.SubscriptionStatusPending {
		return false, nil
	}
	s.Status = model.SubscriptionStatusActive
	s.StartsAt = &startsAt
	s.ExpiresAt = &expiresAt
	r.s.writes++
	return true, nil
}

func (r *memSubRepo) CancelIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.subs[id]
	if !ok || s.Status != model.SubscriptionStatusPending {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCancelled
	r.s.writes++
	return true, nil
}

// --- Mock TxManager ---

type mockTxManager struct{ calls int32 }

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	atomic.AddInt32(&m.calls, 1)
	return fn(ctx, nil)
}

// --- Mock PaymentGateway ---

type MockPaymentGateway struct {
	mu           sync.Mutex
	name         string
	seq          int
	createCalls  int
	statusCalls  int
	CreateErr    error
	StatusErr    error
	NativeStatus string
	Payer        model.Payer
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string {
	if m.name == "" {
		return string(model.ProviderQrpay)
	}
	return m.name
}

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, amount int64, callbackURL string) (adapter.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.CreateErr != nil {
		return adapter.Charge{}, m.CreateErr
	}
	m.seq++
	id := fmt.Sprintf("ext-%d", m.seq)
	return adapter.Charge{
		ExternalID:   id,
		Payload:      model.RenderablePayload{Code: "pix-code-" + id, ImageBase64: "aW1n"},
		NativeStatus: "PENDING",
	}, nil
}

func (m *MockPaymentGateway) GetChargeStatus(ctx context.Context, externalID string) (adapter.ChargeStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.StatusErr != nil {
		return adapter.ChargeStatus{}, m.StatusErr
	}
	return adapter.ChargeStatus{NativeStatus: m.NativeStatus, PayerName: m.Payer.Name, PayerDocument: m.Payer.Document}, nil
}

func (m *MockPaymentGateway) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

// --- Mock Notifier ---

type mockNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (n *mockNotifier) SubscriptionActivated(ctx context.Context, p *model.Payment, s *model.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

// --- Mock PollLimiter ---

type mockLimiter struct {
	allow bool
	err   error
}

func (l *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return l.allow, l.err
}

// --- Clock ---

// steppingClock returns a strictly increasing time on each call so that a
// duplicated write would be visible as a different timestamp.
type steppingClock struct {
	base time.Time
	n    int64
}

func (c *steppingClock) Now() time.Time {
	k := atomic.AddInt64(&c.n, 1)
	return c.base.Add(time.Duration(k) * time.Second)
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// --- Fixture ---

type fixture struct {
	store    *memStore
	plans    *memPlanRepo
	payments *memPaymentRepo
	subs     *memSubRepo
	tm       *mockTxManager
	gateway  *MockPaymentGateway
	notifier *mockNotifier
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:    s,
		plans:    &memPlanRepo{s: s},
		payments: &memPaymentRepo{s: s},
		subs:     &memSubRepo{s: s},
		tm:       &mockTxManager{},
		gateway:  &MockPaymentGateway{},
		notifier: &mockNotifier{},
	}
}

func (f *fixture) reconciler(now func() time.Time) *reconcileUC {
	return NewReconcileUseCase(f.payments, f.subs, f.plans, f.tm, f.notifier, now, newTestLogger())
}

func (f *fixture) charges(now func() time.Time) *chargeUC {
	return NewChargeUseCase(NewPlanUseCase(f.plans), f.payments, f.subs, f.tm, f.gateway, "https://cb.example/webhooks/qrpay?token=t", now, newTestLogger())
}

// seedPending stores a plan plus a pending payment/subscription pair.
func (f *fixture) seedPending(planDays int, paymentID, externalID, userID string) {
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = f.plans.Save(ctx, nil, &model.Plan{ID: "plan-1", Name: "VIP", PriceCents: 4990, DurationDays: planDays, Active: true})
	_ = f.subs.Save(ctx, nil, &model.Subscription{ID: "sub-" + paymentID, UserID: userID, PlanID: "plan-1", Status: model.SubscriptionStatusPending, CreatedAt: created})
	_ = f.payments.Save(ctx, nil, &model.Payment{
		ID: paymentID, UserID: userID, SubscriptionID: "sub-" + paymentID, Provider: string(model.ProviderQrpay),
		ExternalChargeID: externalID, Amount: 4990, Status: model.PaymentStatusPending, CreatedAt: created,
	})
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

var errBoom = errors.New("boom")
