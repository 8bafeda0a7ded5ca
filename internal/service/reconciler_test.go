package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evseev/channelgate/internal/domain"
)

func expiredSub(id int64) *domain.Subscription {
	return &domain.Subscription{
		ID:        id,
		UserID:    10,
		Kind:      domain.SubscriptionKindChannel,
		ChannelID: int64ptr(1),
		Status:    domain.SubscriptionStatusActive,
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestReconciler_ExpiresAndKicks(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	sub := expiredSub(1)
	user := &domain.User{ID: 10, TelegramID: 100, Language: "en"}
	channel := &domain.Channel{ID: 1, TelegramID: -100200, Title: "Premium"}

	store.On("ListExpired", mock.Anything, mock.Anything).Return([]*domain.Subscription{sub}, nil)
	store.On("GetUserByID", mock.Anything, int64(10)).Return(user, nil)
	store.On("GetChannelByID", mock.Anything, int64(1)).Return(channel, nil)
	store.On("MarkExpired", mock.Anything, int64(1)).Return(nil)
	tg.On("RevokeMembership", mock.Anything, int64(-100200), int64(100)).Return(nil)
	tg.On("SendMessage", mock.Anything, int64(100), mock.Anything, mock.Anything).Return(nil)

	revoked := 0
	events := &Events{AccessRevoked: func(ctx context.Context, s *domain.Subscription, u *domain.User) {
		revoked++
		require.Equal(t, sub.ID, s.ID)
		require.Equal(t, user.ID, u.ID)
	}}

	r := NewReconciler(store, tg, testLimiter(), events, testLogger())
	require.NoError(t, r.Run(context.Background()))

	require.Equal(t, 1, revoked)
	store.AssertExpectations(t)
	tg.AssertExpectations(t)
}

func TestReconciler_RevokeFailureStillExpires(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	sub := expiredSub(2)
	store.On("ListExpired", mock.Anything, mock.Anything).Return([]*domain.Subscription{sub}, nil)
	store.On("GetUserByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, TelegramID: 100}, nil)
	store.On("GetChannelByID", mock.Anything, int64(1)).Return(&domain.Channel{ID: 1, TelegramID: -100200}, nil)
	store.On("MarkExpired", mock.Anything, int64(2)).Return(nil)
	tg.On("RevokeMembership", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("telegram down"))
	tg.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	r := NewReconciler(store, tg, testLimiter(), nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertCalled(t, "MarkExpired", mock.Anything, int64(2))
}

func TestReconciler_PackageKicksEveryChannel(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	sub := &domain.Subscription{
		ID:        3,
		UserID:    10,
		Kind:      domain.SubscriptionKindPackage,
		PackageID: int64ptr(5),
		Status:    domain.SubscriptionStatusActive,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	channels := []*domain.Channel{
		{ID: 1, TelegramID: -100201},
		{ID: 2, TelegramID: -100202},
	}

	store.On("ListExpired", mock.Anything, mock.Anything).Return([]*domain.Subscription{sub}, nil)
	store.On("GetUserByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, TelegramID: 100}, nil)
	store.On("ListPackageChannels", mock.Anything, int64(5)).Return(channels, nil)
	store.On("GetPackageByID", mock.Anything, int64(5)).Return(&domain.Package{ID: 5, Title: "Bundle"}, nil)
	store.On("MarkExpired", mock.Anything, int64(3)).Return(nil)
	tg.On("RevokeMembership", mock.Anything, int64(-100201), int64(100)).Return(nil).Once()
	tg.On("RevokeMembership", mock.Anything, int64(-100202), int64(100)).Return(nil).Once()
	tg.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	r := NewReconciler(store, tg, testLimiter(), nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	tg.AssertExpectations(t)
}

func TestReconciler_MissingUserSkipsRow(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	store.On("ListExpired", mock.Anything, mock.Anything).Return([]*domain.Subscription{expiredSub(4)}, nil)
	store.On("GetUserByID", mock.Anything, int64(10)).Return(nil, domain.ErrUserNotFound)

	r := NewReconciler(store, tg, testLimiter(), nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything)
	tg.AssertNotCalled(t, "RevokeMembership", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_ListFailureIsFatal(t *testing.T) {
	store := new(mockStore)
	store.On("ListExpired", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	r := NewReconciler(store, new(mockMessenger), testLimiter(), nil, testLogger())
	require.Error(t, r.Run(context.Background()))
}

func TestReconciler_PerItemFailureContinuesBatch(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	bad := expiredSub(5)
	good := expiredSub(6)

	store.On("ListExpired", mock.Anything, mock.Anything).Return([]*domain.Subscription{bad, good}, nil)
	store.On("GetUserByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, TelegramID: 100}, nil)
	store.On("GetChannelByID", mock.Anything, int64(1)).Return(&domain.Channel{ID: 1, TelegramID: -100200}, nil)
	tg.On("RevokeMembership", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tg.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("MarkExpired", mock.Anything, int64(5)).Return(errors.New("write failed"))
	store.On("MarkExpired", mock.Anything, int64(6)).Return(nil)

	r := NewReconciler(store, tg, testLimiter(), nil, testLogger())
	require.NoError(t, r.Run(context.Background()))

	store.AssertCalled(t, "MarkExpired", mock.Anything, int64(6))
}
