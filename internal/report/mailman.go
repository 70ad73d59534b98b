// Package report sends periodic email digests of cleansed stories.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hn_cleanser/internal/config"
	"hn_cleanser/internal/model"
)

// Catalog is the persistence surface the mailman needs.
type Catalog interface {
	FindReportLogs(ctx context.Context) ([]model.ReportLog, error)
	InsertReportLog(ctx context.Context, sentMillis int64) error
	FindCleansedSince(ctx context.Context, sinceMillis int64) ([]model.CleansedItem, error)
	CountCleansedItems(ctx context.Context) (int64, error)
}

// Mailer delivers one HTML email. Failures are logged but never fatal to the
// cleanse cycle.
type Mailer interface {
	Send(to []string, subject, htmlBody string) error
}

// Notifier optionally pushes a short summary over a second channel.
type Notifier interface {
	Send(text string) error
}

// ErrDisabled is returned by ShouldSend when email reports are turned off.
var ErrDisabled = errors.New("email reports are disabled")

// defaultCheckInterval is how often the mailman re-checks whether a report
// is due. The persisted report log, not the timer, decides when to send, so
// the cadence survives process restarts mid-interval.
const defaultCheckInterval = time.Hour

// Mailman periodically checks whether a digest is due and sends it.
type Mailman struct {
	catalog       Catalog
	mailer        Mailer
	notifier      Notifier
	cfg           config.Report
	username      string
	checkInterval time.Duration
	log           *slog.Logger

	stopping atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Mailman. notifier may be nil.
func New(catalog Catalog, mailer Mailer, notifier Notifier, cfg config.Report, username string, log *slog.Logger) *Mailman {
	return &Mailman{
		catalog:       catalog,
		mailer:        mailer,
		notifier:      notifier,
		cfg:           cfg,
		username:      username,
		checkInterval: defaultCheckInterval,
		log:           log,
		stopCh:        make(chan struct{}),
	}
}

// SetCheckInterval overrides the default hourly due-check cadence.
func (m *Mailman) SetCheckInterval(d time.Duration) {
	m.checkInterval = d
}

// Start arms the periodic due-check. A no-op when reports are disabled.
func (m *Mailman) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		m.log.Info("email reports disabled")
		return
	}
	m.log.Info("starting report mailman", "frequency", m.cfg.Frequency)
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop prevents future checks and waits for an in-flight send to finish.
func (m *Mailman) Stop() {
	m.stopping.Store(true)
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	m.log.Info("report mailman stopped")
}

func (m *Mailman) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if m.stopping.Load() {
				m.log.Info("preventing report check, shutting down")
				continue
			}
			m.tick(ctx)
		}
	}
}

func (m *Mailman) tick(ctx context.Context) {
	due, err := m.ShouldSend(ctx)
	if err != nil {
		m.log.Error("report due check", "error", err)
		return
	}
	if !due {
		return
	}
	if err := m.Send(ctx); err != nil {
		m.log.Error("send report", "error", err)
	}
}

// ShouldSend reports whether a full report frequency has elapsed since the
// last send. The very first invocation has no baseline to compare against,
// so it persists a bootstrap record and reports false; the first real report
// then covers everything cleansed since the feature was enabled.
func (m *Mailman) ShouldSend(ctx context.Context) (bool, error) {
	if !m.cfg.Enabled {
		return false, ErrDisabled
	}

	logs, err := m.catalog.FindReportLogs(ctx)
	if err != nil {
		return false, fmt.Errorf("find report logs: %w", err)
	}

	if len(logs) == 0 {
		if err := m.catalog.InsertReportLog(ctx, time.Now().UnixMilli()); err != nil {
			return false, fmt.Errorf("persist bootstrap report log: %w", err)
		}
		m.log.Info("no previous report, recorded bootstrap send time")
		return false, nil
	}

	lookback := time.Now().Add(-m.cfg.Frequency)
	lastSent := time.UnixMilli(logs[0].SentTime)
	return lookback.After(lastSent), nil
}

// Send emails a digest of every story cleansed since the last report and
// records the send. If nothing was cleansed, no email goes out.
func (m *Mailman) Send(ctx context.Context) error {
	logs, err := m.catalog.FindReportLogs(ctx)
	if err != nil {
		return fmt.Errorf("find report logs: %w", err)
	}
	if len(logs) == 0 {
		return nil
	}

	items, err := m.catalog.FindCleansedSince(ctx, logs[0].SentTime)
	if err != nil {
		return fmt.Errorf("find cleansed items: %w", err)
	}
	if len(items) == 0 {
		m.log.Debug("no stories cleansed since last report, skipping send")
		return nil
	}

	total, err := m.catalog.CountCleansedItems(ctx)
	if err != nil {
		m.log.Error("count cleansed items", "error", err)
		total = -1
	}

	now := time.Now()
	subject := "Hacker News Cleanser Weekly Report: " + now.Format("2/1/2006")
	body, err := renderDigest(subject, m.username, items, total)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	if err := m.mailer.Send(m.cfg.Recipients, subject, body); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	m.log.Info("report sent", "recipients", len(m.cfg.Recipients), "stories", len(items))

	if err := m.catalog.InsertReportLog(ctx, now.UnixMilli()); err != nil {
		// Without the record the next check will send again; surface loudly.
		m.log.Error("persist report log, report will repeat until this is resolved", "error", err)
	}

	if m.notifier != nil {
		summary := fmt.Sprintf("Hacker News Cleanser report sent: %d stories cleansed this period, %d all time", len(items), total)
		if err := m.notifier.Send(summary); err != nil {
			m.log.Error("send report summary", "error", err)
		}
	}
	return nil
}
