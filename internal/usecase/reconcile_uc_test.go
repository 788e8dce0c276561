//go:build !integration

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
)

func TestReconcile_PaidActivatesOnce(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")
	uc := f.reconciler(fixedClock(t1))

	payer := model.Payer{Name: "Maria", Document: "12345678900"}
	res, err := uc.Reconcile(ctx, model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid, Payer: payer})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}
	if res.Payment.Status != model.PaymentStatusPaid {
		t.Errorf("expected payment paid, got %s", res.Payment.Status)
	}
	if res.Payment.PaidAt == nil || !res.Payment.PaidAt.Equal(t1) {
		t.Errorf("expected paid_at %s, got %v", t1, res.Payment.PaidAt)
	}
	if res.Payment.Payer != payer {
		t.Errorf("expected payer to be stored, got %+v", res.Payment.Payer)
	}
	sub := res.Subscription
	if sub.Status != model.SubscriptionStatusActive {
		t.Errorf("expected subscription active, got %s", sub.Status)
	}
	if !sub.StartsAt.Equal(t1) {
		t.Errorf("expected starts_at %s, got %s", t1, sub.StartsAt)
	}
	if want := t1.Add(30 * 24 * time.Hour); !sub.ExpiresAt.Equal(want) {
		t.Errorf("expected expires_at %s, got %s", want, sub.ExpiresAt)
	}
	if f.notifier.calls != 1 {
		t.Errorf("expected one activation notification, got %d", f.notifier.calls)
	}
}

func TestReconcile_DeterministicWindow(t *testing.T) {
	at := time.Date(2026, 6, 15, 23, 59, 0, 0, time.UTC)
	for _, days := range []int{1, 7, 30, 90, 365} {
		f := newFixture()
		f.seedPending(days, "pay-1", "ext-1", "user-1")
		res, err := f.reconciler(fixedClock(at)).Reconcile(context.Background(), model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
		if err != nil {
			t.Fatalf("days=%d: unexpected error: %v", days, err)
		}
		if want := at.Add(time.Duration(days) * 24 * time.Hour); !res.Subscription.ExpiresAt.Equal(want) {
			t.Errorf("days=%d: expected %s, got %s", days, want, res.Subscription.ExpiresAt)
		}
	}
}

func TestReconcile_DuplicateSequential(t *testing.T) {
	ctx := context.Background()
	clock := &steppingClock{base: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}

	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")
	uc := f.reconciler(clock.Now)

	first, err := uc.Reconcile(ctx, model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := uc.Reconcile(ctx, model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if second.Outcome != OutcomeNoop {
		t.Errorf("expected duplicate to be a noop, got %s", second.Outcome)
	}
	if !first.Payment.PaidAt.Equal(*second.Payment.PaidAt) {
		t.Errorf("paid_at changed: %s vs %s", first.Payment.PaidAt, second.Payment.PaidAt)
	}
	if !first.Subscription.ExpiresAt.Equal(*second.Subscription.ExpiresAt) {
		t.Errorf("expires_at changed: %s vs %s", first.Subscription.ExpiresAt, second.Subscription.ExpiresAt)
	}
	if f.store.writes != 2 {
		t.Errorf("expected exactly two conditional writes (payment+subscription), got %d", f.store.writes)
	}
}

func TestReconcile_ConcurrentPaid(t *testing.T) {
	ctx := context.Background()
	clock := &steppingClock{base: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}

	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")
	uc := f.reconciler(clock.Now)

	const n = 16
	results := make([]*ReconcileResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = uc.Reconcile(ctx, model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
		}(i)
	}
	close(start)
	wg.Wait()

	applied := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if results[i].Outcome == OutcomeApplied {
			applied++
		}
		if results[i].Payment.Status != model.PaymentStatusPaid {
			t.Errorf("call %d: expected paid, got %s", i, results[i].Payment.Status)
		}
		if !results[i].Subscription.ExpiresAt.Equal(*results[0].Subscription.ExpiresAt) {
			t.Errorf("call %d: expires_at diverged", i)
		}
		if !results[i].Payment.PaidAt.Equal(*results[0].Payment.PaidAt) {
			t.Errorf("call %d: paid_at diverged", i)
		}
	}
	if applied != 1 {
		t.Errorf("expected exactly one applied activation, got %d", applied)
	}
	if f.store.writes != 2 {
		t.Errorf("expected two conditional writes, got %d", f.store.writes)
	}
	if f.notifier.calls != 1 {
		t.Errorf("expected a single notification, got %d", f.notifier.calls)
	}
}

func TestReconcile_TerminalIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, st := range []model.PaymentStatus{model.PaymentStatusFailed, model.PaymentStatusCancelled} {
		f := newFixture()
		f.seedPending(30, "pay-1", "ext-1", "user-1")
		f.store.payments["pay-1"].Status = st

		res, err := f.reconciler(nil).Reconcile(ctx, model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", st, err)
		}
		if res.Outcome != OutcomeNoop {
			t.Errorf("%s: expected noop, got %s", st, res.Outcome)
		}
		if res.Payment.Status != st {
			t.Errorf("%s: status changed to %s", st, res.Payment.Status)
		}
		if res.Subscription.Status != model.SubscriptionStatusPending {
			t.Errorf("%s: subscription touched: %s", st, res.Subscription.Status)
		}
		if f.store.writes != 0 {
			t.Errorf("%s: expected no writes, got %d", st, f.store.writes)
		}
	}
}

func TestReconcile_UnknownCharge(t *testing.T) {
	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")

	_, err := f.reconciler(nil).Reconcile(context.Background(), model.Confirmation{ExternalChargeID: "missing", Status: model.CanonicalPaid})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.store.writes != 0 {
		t.Errorf("expected no writes, got %d", f.store.writes)
	}
	if f.store.payments["pay-1"].Status != model.PaymentStatusPending {
		t.Error("existing payment must stay pending")
	}
}

func TestReconcile_Failed(t *testing.T) {
	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")
	uc := f.reconciler(nil)

	res, err := uc.Reconcile(context.Background(), model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalFailed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}
	if res.Payment.Status != model.PaymentStatusFailed {
		t.Errorf("expected failed payment, got %s", res.Payment.Status)
	}
	if res.Payment.PaidAt != nil {
		t.Error("failed payment must not carry paid_at")
	}
	if res.Subscription.Status != model.SubscriptionStatusCancelled {
		t.Errorf("expected cancelled subscription, got %s", res.Subscription.Status)
	}

	// a later paid signal does not resurrect it
	again, err := uc.Reconcile(context.Background(), model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Outcome != OutcomeNoop || again.Payment.Status != model.PaymentStatusFailed {
		t.Errorf("expected failed payment to stay failed, got %s/%s", again.Outcome, again.Payment.Status)
	}
}

func TestReconcile_PendingSignalDoesNothing(t *testing.T) {
	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")

	res, err := f.reconciler(nil).Reconcile(context.Background(), model.Confirmation{PaymentID: "pay-1", Status: model.CanonicalPending})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomePending {
		t.Errorf("expected pending outcome, got %s", res.Outcome)
	}
	if f.store.writes != 0 || f.tm.calls != 0 {
		t.Errorf("expected no transaction or writes, got writes=%d tx=%d", f.store.writes, f.tm.calls)
	}
}

func TestReconcile_PersistenceFailure(t *testing.T) {
	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")
	f.store.casErr = errBoom

	_, err := f.reconciler(nil).Reconcile(context.Background(), model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !domain.IsRetryable(err) {
		t.Error("persistence failures must be retryable")
	}
}

func TestReconcile_NotifierFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.seedPending(30, "pay-1", "ext-1", "user-1")
	f.notifier.err = errBoom

	res, err := f.reconciler(nil).Reconcile(context.Background(), model.Confirmation{ExternalChargeID: "ext-1", Status: model.CanonicalPaid})
	if err != nil {
		t.Fatalf("notifier error leaked: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}
}

func TestReconcile_MissingReference(t *testing.T) {
	f := newFixture()
	_, err := f.reconciler(nil).Reconcile(context.Background(), model.Confirmation{Status: model.CanonicalPaid})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
