package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/evseev/channelgate/internal/config"
	"github.com/evseev/channelgate/internal/domain"
)

// ReportsStore is the storage surface of the stats, cleanup and report
// tasks.
type ReportsStore interface {
	CollectDailyStats(ctx context.Context, day time.Time) (*domain.DailyStats, error)
	SaveDailyStats(ctx context.Context, stats *domain.DailyStats) error
	CollectWeeklyReport(ctx context.Context, from, to time.Time) (*domain.WeeklyReport, error)
	DeleteOldBroadcasts(ctx context.Context, before time.Time) (int64, error)
	DeleteOldTerminalSubscriptions(ctx context.Context, before time.Time) (int64, error)
	DeleteOldUnpaidPayments(ctx context.Context, before time.Time) (int64, error)
}

// Reports bundles the housekeeping tasks: daily stats aggregation, the
// weekly admin report, retention cleanup and database backups.
type Reports struct {
	store       ReportsStore
	tg          Messenger
	adminIDs    []int64
	databaseURL string
	backupDir   string
	backupKeep  int
	log         *slog.Logger
}

func NewReports(store ReportsStore, tg Messenger, cfg *config.Config, log *slog.Logger) *Reports {
	return &Reports{
		store:       store,
		tg:          tg,
		adminIDs:    cfg.AdminIDs,
		databaseURL: cfg.DatabaseURL,
		backupDir:   cfg.BackupDir,
		backupKeep:  cfg.BackupKeep,
		log:         log,
	}
}

// DailyStats aggregates yesterday's counters into one upserted row.
func (r *Reports) DailyStats(ctx context.Context) error {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	stats, err := r.store.CollectDailyStats(ctx, yesterday)
	if err != nil {
		return err
	}
	if err := r.store.SaveDailyStats(ctx, stats); err != nil {
		return err
	}

	r.log.Info("daily stats saved",
		"date", stats.Date.Format("2006-01-02"),
		"new_users", stats.NewUsers,
		"payments", stats.PaymentsCount)
	return nil
}

// WeeklyReport sends the 7-day summary to every admin.
func (r *Reports) WeeklyReport(ctx context.Context) error {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)

	report, err := r.store.CollectWeeklyReport(ctx, from, to)
	if err != nil {
		return err
	}

	text := weeklyReportText(report)
	for _, adminID := range r.adminIDs {
		if err := r.tg.SendMessage(ctx, adminID, text, nil); err != nil {
			r.log.Error("weekly report not delivered", "admin_id", adminID, "error", err)
		}
	}
	return nil
}

// Cleanup enforces the retention windows. Each delete runs on its own;
// one failing does not stop the others.
func (r *Reports) Cleanup(ctx context.Context) error {
	now := time.Now().UTC()

	broadcasts, err := r.store.DeleteOldBroadcasts(ctx, now.Add(-config.BroadcastRetention))
	if err != nil {
		r.log.Error("broadcast cleanup failed", "error", err)
	}
	subs, err := r.store.DeleteOldTerminalSubscriptions(ctx, now.Add(-config.SubscriptionRetention))
	if err != nil {
		r.log.Error("subscription cleanup failed", "error", err)
	}
	payments, err := r.store.DeleteOldUnpaidPayments(ctx, now.Add(-config.UnpaidRetention))
	if err != nil {
		r.log.Error("payment cleanup failed", "error", err)
	}

	r.log.Info("cleanup finished",
		"broadcasts", broadcasts, "subscriptions", subs, "payments", payments)
	return nil
}

// Backup dumps the database with pg_dump and prunes old dumps down to
// the configured count. An empty backup directory disables the task.
func (r *Reports) Backup(ctx context.Context) error {
	if r.backupDir == "" {
		r.log.Debug("backup directory not configured, skipping")
		return nil
	}
	if err := os.MkdirAll(r.backupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("channelgate_%s.dump", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(r.backupDir, name)

	cmd := exec.CommandContext(ctx, "pg_dump", "--format=custom", "--file", path, r.databaseURL)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump: %w: %s", err, out)
	}

	r.log.Info("database backup written", "path", path)
	return r.pruneBackups()
}

func (r *Reports) pruneBackups() error {
	entries, err := os.ReadDir(r.backupDir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	var dumps []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".dump" {
			dumps = append(dumps, e.Name())
		}
	}
	if len(dumps) <= r.backupKeep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(dumps)
	for _, name := range dumps[:len(dumps)-r.backupKeep] {
		if err := os.Remove(filepath.Join(r.backupDir, name)); err != nil {
			r.log.Error("failed to prune old backup", "name", name, "error", err)
		}
	}
	return nil
}
