// Package scheduler runs the cron-driven digests: a daily summary of
// requisitions waiting on follow-up and a month-end reminder to run the
// close. Cron jobs only read and notify; no business mutation happens here.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ndiasse/stockroom/internal/config"
	"github.com/ndiasse/stockroom/internal/domain/models"
	"github.com/ndiasse/stockroom/pkg/clients/notify"
)

// OrderSource lists requisitions for the digest.
type OrderSource interface {
	Orders(ctx context.Context, origin string) ([]models.RequisitionOrder, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	orders   OrderSource
	notifier notify.Client
	logger   *zap.Logger
}

// NewScheduler creates a scheduler instance. The cron runs in the configured
// timezone so "09:00" means the warehouse's morning, not the host's.
func NewScheduler(cfg config.SchedulerConfig, orders OrderSource, notifier notify.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to local", zap.String("timezone", cfg.Timezone), zap.Error(err))
		location = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		cfg:      cfg,
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

// Start registers and starts the cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.String("digest", s.cfg.DigestSchedule),
		zap.String("reminder", s.cfg.ReminderSchedule))

	if _, err := s.cron.AddFunc(s.cfg.DigestSchedule, s.sendFollowUpDigest); err != nil {
		s.logger.Error("failed to schedule follow-up digest", zap.Error(err))
	}
	if _, err := s.cron.AddFunc(s.cfg.ReminderSchedule, s.sendCloseReminder); err != nil {
		s.logger.Error("failed to schedule close reminder", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendFollowUpDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	orders, err := s.orders.Orders(ctx, "")
	if err != nil {
		s.logger.Error("failed to load orders for digest", zap.Error(err))
		return
	}

	var lines []string
	for _, order := range orders {
		if order.Status != models.StatusFollowUpRequested {
			continue
		}
		var owed []string
		for _, line := range order.LineItems {
			if line.Remaining().IsPositive() {
				owed = append(owed, fmt.Sprintf("%s %s %s", line.Remaining(), line.UOM, line.ProductName))
			}
		}
		lines = append(lines, fmt.Sprintf("%s (%s, since %s): %s",
			order.ID, order.Origin, order.SubmittedAt.Format(models.DateLayout), strings.Join(owed, ", ")))
	}

	if len(lines) == 0 {
		s.logger.Debug("no follow-ups pending, digest skipped")
		return
	}

	msg := notify.Message{
		Title: fmt.Sprintf("%d requisition(s) waiting on follow-up", len(lines)),
		Body:  strings.Join(lines, "\n"),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send follow-up digest", zap.Error(err))
		return
	}
	s.logger.Info("follow-up digest sent", zap.Int("orders", len(lines)))
}

func (s *Scheduler) sendCloseReminder() {
	now := time.Now()
	// The reminder schedule fires on the 28th-31st; only the true last day of
	// the month should notify.
	if now.AddDate(0, 0, 1).Day() != 1 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	msg := notify.Message{
		Title: "Month-end close reminder",
		Body: fmt.Sprintf("Period %s ends today. Finish physical counts and run the month close.",
			now.Format("2006-01")),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send close reminder", zap.Error(err))
		return
	}
	s.logger.Info("close reminder sent")
}
