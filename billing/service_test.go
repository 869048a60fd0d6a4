package billing

import (
	"context"
	"testing"
	"time"

	"blogger_bot/audit"
	"blogger_bot/database"
	"blogger_bot/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users     map[int64]*database.User
	activated []string
	cancelled []bool
	toggled   []bool
	now       time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]*database.User{
			1: {ID: 1, PlatformID: 42, SubscriptionStatus: database.StatusInactive},
		},
		now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) GetUserByPlatformID(_ context.Context, platformID int64) (*database.User, error) {
	for _, u := range f.users {
		if u.PlatformID == platformID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (*database.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) RefreshSubscription(_ context.Context, id int64) (*database.User, error) {
	u := f.users[id]
	if u != nil && u.SubscriptionEndDate != nil && !u.SubscriptionEndDate.After(f.now) && u.SubscriptionStatus.Usable() {
		u.SubscriptionStatus = database.StatusExpired
	}
	return u, nil
}

func (f *fakeStore) Activate(_ context.Context, userID int64, window time.Duration, amount int, ref string) (*database.Subscription, error) {
	f.activated = append(f.activated, ref)
	end := f.now.Add(window)
	u := f.users[userID]
	u.SubscriptionStatus = database.StatusActive
	u.SubscriptionEndDate = &end
	return &database.Subscription{UserID: userID, Amount: amount, Status: database.StatusActive, PaymentID: &ref, EndDate: end}, nil
}

func (f *fakeStore) ToggleAutoRenewal(_ context.Context, userID int64, enable bool) (bool, error) {
	f.toggled = append(f.toggled, enable)
	return f.users[userID].SubscriptionStatus == database.StatusActive, nil
}

func (f *fakeStore) Cancel(_ context.Context, userID int64, immediate bool) (bool, error) {
	f.cancelled = append(f.cancelled, immediate)
	return true, nil
}

func (f *fakeStore) History(context.Context, int64, int) ([]database.Subscription, error) {
	return []database.Subscription{{ID: 2}, {ID: 1}}, nil
}

type fakeGateway struct{ valid bool }

func (g *fakeGateway) CreateCheckout(_ context.Context, userID int64, amount int) (payment.Checkout, error) {
	return payment.Checkout{Ref: "ref", Payload: "42:ref.sig", RedirectTarget: "https://pay"}, nil
}

func (g *fakeGateway) Verify(signature, payload string) bool {
	return g.valid && signature == "sig" && payload == "42:ref"
}

type recorder struct {
	kinds []audit.ActionKind
}

func (r *recorder) RecordAction(_ audit.UserSnapshot, _ *audit.BloggerSnapshot, k audit.ActionKind) {
	r.kinds = append(r.kinds, k)
}
func (r *recorder) RecordComplaint(audit.Complaint) {}

func newService(valid bool) (*Service, *fakeStore, *recorder) {
	store := newFakeStore()
	rec := &recorder{}
	svc := NewService(store, &fakeGateway{valid: valid}, rec, 50000, 30*24*time.Hour)
	svc.now = func() time.Time { return store.now }
	return svc, store, rec
}

func TestConfirmPaymentActivates(t *testing.T) {
	svc, store, rec := newService(true)

	sub, err := svc.ConfirmPayment(context.Background(), 42, "42:ref.sig", "charge-1", 50000)
	require.NoError(t, err)
	assert.Equal(t, database.StatusActive, sub.Status)
	assert.Equal(t, []string{"charge-1"}, store.activated)
	assert.Equal(t, store.now.Add(30*24*time.Hour), sub.EndDate)
	assert.Equal(t, []audit.ActionKind{audit.ActionSubscriptionActivated}, rec.kinds)

	_, ok, err := svc.Access(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmPaymentFallsBackToRef(t *testing.T) {
	svc, store, _ := newService(true)
	_, err := svc.ConfirmPayment(context.Background(), 42, "42:ref.sig", "", 60000)
	require.NoError(t, err)
	assert.Equal(t, []string{"ref"}, store.activated)
}

func TestConfirmPaymentRejects(t *testing.T) {
	tests := []struct {
		name    string
		valid   bool
		payer   int64
		payload string
		amount  int
		want    error
	}{
		{"bad signature", false, 42, "42:ref.sig", 50000, ErrInvalidSignature},
		{"malformed payload", true, 42, "garbage", 50000, payment.ErrBadPayload},
		{"other payer", true, 43, "42:ref.sig", 50000, ErrPayerMismatch},
		{"underpaid", true, 42, "42:ref.sig", 100, ErrUnderpaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, rec := newService(tt.valid)
			_, err := svc.ConfirmPayment(context.Background(), tt.payer, tt.payload, "c", tt.amount)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.activated)
			assert.Empty(t, rec.kinds)
		})
	}
}

func TestConfirmPaymentUnknownUser(t *testing.T) {
	svc, store, _ := newService(true)
	delete(store.users, 1)

	_, err := svc.ConfirmPayment(context.Background(), 42, "42:ref.sig", "c", 50000)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestCancelAndToggleRecord(t *testing.T) {
	svc, store, rec := newService(true)
	ctx := context.Background()

	ok, err := svc.ToggleAutoRenewal(ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.kinds)

	store.users[1].SubscriptionStatus = database.StatusActive
	ok, err = svc.ToggleAutoRenewal(ctx, 1, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Cancel(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []bool{true}, store.cancelled)
	assert.Equal(t, []audit.ActionKind{audit.ActionAutoRenewalToggled, audit.ActionSubscriptionCancelled}, rec.kinds)
}

func TestAccessExpires(t *testing.T) {
	svc, store, _ := newService(true)
	past := store.now.Add(-time.Hour)
	store.users[1].SubscriptionStatus = database.StatusActive
	store.users[1].SubscriptionEndDate = &past

	u, ok, err := svc.Access(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, database.StatusExpired, u.SubscriptionStatus)
}

func TestStartCheckout(t *testing.T) {
	svc, store, _ := newService(true)
	c, err := svc.StartCheckout(context.Background(), store.users[1])
	require.NoError(t, err)
	assert.Equal(t, "https://pay", c.RedirectTarget)
	assert.Equal(t, 50000, svc.Price())
}

func TestHistory(t *testing.T) {
	svc, _, _ := newService(true)
	h, err := svc.History(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Len(t, h, 2)
}
