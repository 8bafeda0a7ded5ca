package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/domain"
)

func newTestReports(store *mockStore, tg *mockMessenger, admins []int64) *Reports {
	cfg := &config.Config{AdminIDs: admins, BackupKeep: 2}
	return NewReports(store, tg, cfg, testLogger())
}

func TestReports_DailyStatsUpsertsYesterday(t *testing.T) {
	store := new(mockStore)

	stats := &domain.DailyStats{Date: time.Now().UTC().AddDate(0, 0, -1), NewUsers: 3}
	store.On("CollectDailyStats", mock.Anything, mock.MatchedBy(func(day time.Time) bool {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		return day.Year() == yesterday.Year() && day.YearDay() == yesterday.YearDay()
	})).Return(stats, nil)
	store.On("SaveDailyStats", mock.Anything, stats).Return(nil)

	r := newTestReports(store, new(mockMessenger), nil)
	require.NoError(t, r.DailyStats(context.Background()))

	store.AssertExpectations(t)
}

func TestReports_WeeklyReportGoesToEveryAdmin(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	report := &domain.WeeklyReport{
		From:           time.Now().UTC().AddDate(0, 0, -7),
		To:             time.Now().UTC(),
		NewUsers:       5,
		PaymentsAmount: decimal.NewFromInt(100),
		TopChannels:    []domain.ChannelCount{{Title: "Premium", Count: 12}},
	}
	store.On("CollectWeeklyReport", mock.Anything, mock.Anything, mock.Anything).Return(report, nil)
	tg.On("SendMessage", mock.Anything, int64(111), mock.Anything, mock.Anything).Return(nil).Once()
	tg.On("SendMessage", mock.Anything, int64(222), mock.Anything, mock.Anything).Return(nil).Once()

	r := newTestReports(store, tg, []int64{111, 222})
	require.NoError(t, r.WeeklyReport(context.Background()))

	tg.AssertExpectations(t)
}

func TestReports_WeeklyReportDeliveryFailureIsNotFatal(t *testing.T) {
	store := new(mockStore)
	tg := new(mockMessenger)

	store.On("CollectWeeklyReport", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.WeeklyReport{}, nil)
	tg.On("SendMessage", mock.Anything, int64(111), mock.Anything, mock.Anything).
		Return(errors.New("blocked"))
	tg.On("SendMessage", mock.Anything, int64(222), mock.Anything, mock.Anything).Return(nil)

	r := newTestReports(store, tg, []int64{111, 222})
	require.NoError(t, r.WeeklyReport(context.Background()))

	tg.AssertCalled(t, "SendMessage", mock.Anything, int64(222), mock.Anything, mock.Anything)
}

func TestReports_CleanupRunsEveryDelete(t *testing.T) {
	store := new(mockStore)

	store.On("DeleteOldBroadcasts", mock.Anything, mock.Anything).Return(int64(2), nil)
	store.On("DeleteOldTerminalSubscriptions", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("db hiccup"))
	store.On("DeleteOldUnpaidPayments", mock.Anything, mock.Anything).Return(int64(1), nil)

	r := newTestReports(store, new(mockMessenger), nil)
	require.NoError(t, r.Cleanup(context.Background()))

	// One failing delete does not stop the others.
	store.AssertExpectations(t)
}

func TestReports_BackupDisabledWithoutDirectory(t *testing.T) {
	r := newTestReports(new(mockStore), new(mockMessenger), nil)
	require.NoError(t, r.Backup(context.Background()))
}

func TestReports_PruneKeepsNewestBackups(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"channelgate_20260101_040000.dump",
		"channelgate_20260102_040000.dump",
		"channelgate_20260103_040000.dump",
		"channelgate_20260104_040000.dump",
	}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("dump"), 0o644))
	}
	// Unrelated files are left alone.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	r := newTestReports(new(mockStore), new(mockMessenger), nil)
	r.backupDir = dir

	require.NoError(t, r.pruneBackups())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	require.ElementsMatch(t, left, []string{
		"channelgate_20260103_040000.dump",
		"channelgate_20260104_040000.dump",
		"notes.txt",
	})
}
