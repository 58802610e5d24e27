package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"HammerScanner/internal/logger"
	"HammerScanner/internal/notifier"
	"HammerScanner/internal/recorder"
	"HammerScanner/internal/scanner"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Scheduler runs scans on a cron schedule and on chat command. Scans never overlap.
type Scheduler struct {
	Cron      *cron.Cron
	Scanner   *scanner.Scanner
	Formatter *notifier.Formatter
	Recorder  recorder.Recorder
	Timeout   time.Duration

	mu   sync.Mutex
	last *scanner.Report
}

// NewScheduler creates a new Scheduler. Cron specs carry a leading seconds field.
func NewScheduler(sc *scanner.Scanner, f *notifier.Formatter, rec recorder.Recorder, timeout time.Duration) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Scanner:   sc,
		Formatter: f,
		Recorder:  rec,
		Timeout:   timeout,
	}
}

// Register adds the periodic scan job.
func (s *Scheduler) Register(ctx context.Context, spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunScan(ctx) }); err != nil {
		return errors.Wrapf(err, "register scan job %q", spec)
	}
	logger.Infof("scan job registered: %s", spec)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Infof("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Infof("scheduler stopped")
}

// RunScan performs one scan bounded by the configured timeout.
func (s *Scheduler) RunScan(ctx context.Context) *scanner.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	rep := s.Scanner.Scan(ctx)
	s.last = rep
	return rep
}

// LastReport returns the most recent report, or nil before the first scan.
func (s *Scheduler) LastReport() *scanner.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	// "/scan@SomeBot" is how group chats address a bot.
	cmd := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])

	switch cmd {
	case "/scan":
		rep := s.RunScan(ctx)
		if s.Scanner.Summary {
			return ""
		}
		return s.Formatter.FormatSummary(rep.Summary(), rep.SkipReasons())
	case "/universe":
		return notifier.FormatUniverse(s.Scanner.Universe)
	case "/status":
		return s.status()
	default:
		return "Commands:\n• /scan run a scan now\n• /universe list instruments\n• /status last runs"
	}
}

func (s *Scheduler) status() string {
	if s.Recorder != nil {
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			logger.Errorf("load recent runs: %v", err)
		} else if len(runs) > 0 {
			var b strings.Builder
			b.WriteString("🗂 **RECENT SCANS**\n")
			for _, r := range runs {
				b.WriteString(fmt.Sprintf("`%s` %s: %d scanned, %d signals, %d skipped\n",
					r.StartedAt.Format("2006-01-02 15:04"), r.Mode, r.Scanned, r.Signals, r.Skipped))
			}
			return strings.TrimRight(b.String(), "\n")
		}
	}
	if rep := s.LastReport(); rep != nil {
		return s.Formatter.FormatSummary(rep.Summary(), rep.SkipReasons())
	}
	return "No scan has run yet."
}
