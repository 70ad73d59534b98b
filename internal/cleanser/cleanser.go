// Package cleanser orchestrates the cleanse cycle: fetch the front page,
// scan it for stories, evaluate each one against the blocklists, and hide
// the matches while recording what was hidden.
package cleanser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hn_cleanser/internal/model"
	"hn_cleanser/internal/rules"
	"hn_cleanser/internal/scanner"
	"hn_cleanser/internal/session"
)

// FeedSession is the authenticated-session surface the cleanser needs.
type FeedSession interface {
	Login(ctx context.Context) error
	FetchFrontPage(ctx context.Context) (string, error)
	Hide(ctx context.Context, storyID, auth string) error
}

// Catalog is the persistence surface the cleanser needs.
type Catalog interface {
	FindBlacklistedTitles(ctx context.Context) ([]model.TitleRule, error)
	FindBlacklistedSites(ctx context.Context) ([]model.SiteRule, error)
	FindBlacklistedUsers(ctx context.Context) ([]model.UserRule, error)
	SaveCleansedItem(ctx context.Context, item model.CleansedItem) error
	RetractCleansedItem(ctx context.Context, id string) error
	CountCleansedItems(ctx context.Context) (int64, error)
}

// Cleanser runs cleanse passes at a fixed interval. One pass is never run
// concurrently with another; a tick that lands while a pass is in flight is
// skipped, not queued.
type Cleanser struct {
	session  FeedSession
	catalog  Catalog
	interval time.Duration
	log      *slog.Logger

	// Regexes that failed to compile once are skipped for the lifetime of
	// this instance so they are not re-parsed (and re-logged) every pass.
	ignored *rules.IgnoredPatterns

	stopping  atomic.Bool
	cleansing atomic.Bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a Cleanser. Call Start to kick it off.
func New(sess FeedSession, catalog Catalog, interval time.Duration, log *slog.Logger) *Cleanser {
	return &Cleanser{
		session:  sess,
		catalog:  catalog,
		interval: interval,
		log:      log,
		ignored:  rules.NewIgnoredPatterns(),
		stopCh:   make(chan struct{}),
	}
}

// Start logs in, runs one immediate cleanse pass so the first results do not
// wait a full interval, then arms the recurring timer. Login failures are
// fatal and returned to the caller; in particular a validation-required
// response must never be retried automatically.
func (c *Cleanser) Start(ctx context.Context) error {
	c.log.Info("starting cleanser")

	total, err := c.catalog.CountCleansedItems(ctx)
	if err != nil {
		return fmt.Errorf("count cleansed items: %w", err)
	}
	c.log.Info("stories cleansed from your feed so far", "total", total)

	if err := c.session.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.log.Info("login successful", "frequency", c.interval)

	c.runPass(ctx)

	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

// Stop prevents future ticks and waits for any in-flight pass to finish.
// It does not interrupt the item currently being processed.
func (c *Cleanser) Stop() {
	c.stopping.Store(true)
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	c.log.Info("cleanser stopped")
}

func (c *Cleanser) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if c.stopping.Load() {
				c.log.Info("preventing cleanse, shutting down")
				continue
			}
			c.runPass(ctx)
		}
	}
}

// runPass runs one cleanse pass under the reentrancy guard.
func (c *Cleanser) runPass(ctx context.Context) {
	if !c.cleansing.CompareAndSwap(false, true) {
		c.log.Info("skipping cleanse, still processing previous one")
		return
	}
	defer c.cleansing.Store(false)
	c.cleanse(ctx)
}

func (c *Cleanser) cleanse(ctx context.Context) {
	page, err := c.session.FetchFrontPage(ctx)
	if err != nil {
		// Retried at the next tick.
		c.log.Error("fetch front page", "error", err)
		return
	}

	c.log.Debug("scanning front page for stories to cleanse")

	stories, err := scanner.Scan(page)
	if err != nil {
		c.log.Error("scan front page", "error", err)
		return
	}

	snap, err := c.blocklists(ctx)
	if err != nil {
		c.log.Error("load blocklists", "error", err)
		return
	}

	cleansed := 0
	for _, st := range stories {
		if c.stopping.Load() || ctx.Err() != nil {
			return
		}

		var verdict rules.Verdict
		if st.IsAd {
			// Ads carry no author and are always hidden, no rules consulted.
			c.log.Info("found an ad", "title", st.Title)
			verdict = rules.Verdict{Cleanse: true, CleansedBy: model.CleansedByAdvertisement}
		} else {
			verdict = rules.Evaluate(st.Title, st.User, st.Source, snap, c.ignored)
		}
		if !verdict.Cleanse {
			continue
		}

		c.log.Info("cleansing story", "title", st.Title, "source", st.Source, "cleansed_by", verdict.CleansedBy)

		auth := session.ExtractAuth(st.HideHref)
		if auth == "" {
			// A missing auth token means every remaining hide would fail the
			// same way, almost certainly because the session silently
			// expired. Abort the pass and keep the page for diagnosis; the
			// next tick starts from a fresh fetch.
			c.log.Error("no auth token in story's hide link, session may have expired", "story_id", st.ID, "title", st.Title)
			c.log.Error("front page at time of failure", "page", page)
			return
		}

		item := model.CleansedItem{
			ID:         st.ID,
			Title:      st.Title,
			User:       st.User,
			Source:     st.Source,
			CleansedBy: verdict.CleansedBy,
			Link:       st.Link,
			HideTime:   time.Now().UnixMilli(),
		}
		if err := c.catalog.SaveCleansedItem(ctx, item); err != nil {
			c.log.Error("persist cleansed item", "story_id", st.ID, "error", err)
			continue
		}
		if err := c.session.Hide(ctx, st.ID, auth); err != nil {
			c.log.Error("hide story", "story_id", st.ID, "error", err)
			// The hide never happened; the record must not claim it did.
			if err := c.catalog.RetractCleansedItem(ctx, st.ID); err != nil {
				c.log.Error("retract cleansed item", "story_id", st.ID, "error", err)
			}
			continue
		}
		item.Confirmed = true
		if err := c.catalog.SaveCleansedItem(ctx, item); err != nil {
			c.log.Error("confirm cleansed item", "story_id", st.ID, "error", err)
		}
		cleansed++
	}

	if cleansed == 0 {
		c.log.Debug("no stories needed cleansing")
	} else {
		c.log.Info("cleanse pass complete", "cleansed", cleansed)
	}
}

func (c *Cleanser) blocklists(ctx context.Context) (rules.Snapshot, error) {
	titles, err := c.catalog.FindBlacklistedTitles(ctx)
	if err != nil {
		return rules.Snapshot{}, err
	}
	sites, err := c.catalog.FindBlacklistedSites(ctx)
	if err != nil {
		return rules.Snapshot{}, err
	}
	users, err := c.catalog.FindBlacklistedUsers(ctx)
	if err != nil {
		return rules.Snapshot{}, err
	}
	return rules.Snapshot{Titles: titles, Sites: sites, Users: users}, nil
}
