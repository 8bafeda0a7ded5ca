package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"

	"github.com/evseev/channelgate/internal/domain"
	"github.com/evseev/channelgate/internal/telegram"
)

// mockStore fakes the storage layer for every job.
type mockStore struct {
	mock.Mock
}

var (
	_ ReconcilerStore  = (*mockStore)(nil)
	_ NotifierStore    = (*mockStore)(nil)
	_ BroadcasterStore = (*mockStore)(nil)
	_ PaymentStore     = (*mockStore)(nil)
	_ ReportsStore     = (*mockStore)(nil)
	_ GranterStore     = (*mockStore)(nil)
)

func (m *mockStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockStore) GetChannelByID(ctx context.Context, id int64) (*domain.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *mockStore) GetPackageByID(ctx context.Context, id int64) (*domain.Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Package), args.Error(1)
}

func (m *mockStore) ListPackageChannels(ctx context.Context, packageID int64) ([]*domain.Channel, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Channel), args.Error(1)
}

func (m *mockStore) ListExpired(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

func (m *mockStore) MarkExpired(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) ListExpiringInWindow(ctx context.Context, now time.Time, w domain.Window) ([]*domain.Subscription, error) {
	args := m.Called(ctx, now, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

func (m *mockStore) MarkWindowNotified(ctx context.Context, id int64, w domain.Window) error {
	return m.Called(ctx, id, w).Error(0)
}

func (m *mockStore) ListDueBroadcasts(ctx context.Context, now time.Time) ([]*domain.Broadcast, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Broadcast), args.Error(1)
}

func (m *mockStore) ClaimBroadcast(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) FinishBroadcast(ctx context.Context, id int64, status domain.BroadcastStatus, sent, errs int) error {
	return m.Called(ctx, id, status, sent, errs).Error(0)
}

func (m *mockStore) ResolveAudience(ctx context.Context, b *domain.Broadcast) ([]*domain.User, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *mockStore) ListPendingPayments(ctx context.Context, createdAfter time.Time) ([]*domain.Payment, error) {
	args := m.Called(ctx, createdAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *mockStore) MarkPaymentPaid(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) MarkPaymentExpired(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) ExtendSubscription(ctx context.Context, p *domain.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) CollectDailyStats(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyStats), args.Error(1)
}

func (m *mockStore) SaveDailyStats(ctx context.Context, stats *domain.DailyStats) error {
	return m.Called(ctx, stats).Error(0)
}

func (m *mockStore) CollectWeeklyReport(ctx context.Context, from, to time.Time) (*domain.WeeklyReport, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeeklyReport), args.Error(1)
}

func (m *mockStore) DeleteOldBroadcasts(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteOldTerminalSubscriptions(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) DeleteOldUnpaidPayments(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// mockMessenger fakes the outbound Telegram gateway.
type mockMessenger struct {
	mock.Mock
}

var _ Messenger = (*mockMessenger)(nil)

func (m *mockMessenger) RevokeMembership(ctx context.Context, chatID, userID int64) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

func (m *mockMessenger) SendMessage(ctx context.Context, chatID int64, text string, buttons []telegram.Button) error {
	return m.Called(ctx, chatID, text, buttons).Error(0)
}

func (m *mockMessenger) SendMedia(ctx context.Context, chatID int64, mediaType domain.MediaType, fileID, caption string) error {
	return m.Called(ctx, chatID, mediaType, fileID, caption).Error(0)
}

// mockInvoices fakes the payment provider.
type mockInvoices struct {
	mock.Mock
}

var _ InvoiceChecker = (*mockInvoices)(nil)

func (m *mockInvoices) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockInvoices) GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	args := m.Called(ctx, invoiceID)
	return args.String(0), args.Error(1)
}

// mockLinker fakes invite link creation.
type mockLinker struct {
	mock.Mock
}

var _ InviteLinker = (*mockLinker)(nil)

func (m *mockLinker) CreateInviteLink(ctx context.Context, chatID int64, name string, expireAt time.Time) (string, error) {
	args := m.Called(ctx, chatID, name, expireAt)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func int64ptr(v int64) *int64 { return &v }
