package blocklist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// FeedIngester downloads blocklist feeds and answers membership checks in memory
type FeedIngester struct {
	registry   *Registry
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	logger     *slog.Logger
	now        func() time.Time

	// maxConcurrent bounds parallel feed downloads per refresh
	maxConcurrent int

	mu       sync.RWMutex
	entries  map[string][]netip.Prefix
	statuses map[string]*FeedStatus

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// FeedStatus represents the sync status of a feed
type FeedStatus struct {
	Source       string    `json:"source"`
	DisplayName  string    `json:"display_name"`
	URL          string    `json:"url"`
	Categories   []string  `json:"categories"`
	LastSync     time.Time `json:"last_sync,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	EntryCount   int       `json:"entry_count"`
	SyncStatus   string    `json:"sync_status"` // success, error, pending
	ErrorMessage string    `json:"error_message,omitempty"`
}

// SyncResult represents the result of a feed sync
type SyncResult struct {
	Source     string        `json:"source"`
	Success    bool          `json:"success"`
	EntryCount int           `json:"entry_count"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Match is one feed listing a checked address
type Match struct {
	Feed        string   `json:"feed"`
	DisplayName string   `json:"display_name"`
	Categories  []string `json:"categories"`
	Confidence  int      `json:"confidence"`
	Entry       string   `json:"entry"`
}

// CheckResult is the blocklist verdict for one address
type CheckResult struct {
	IP      string  `json:"ip"`
	Listed  bool    `json:"listed"`
	Matches []Match `json:"matches"`
}

// IngesterConfig holds configuration for the feed ingester
type IngesterConfig struct {
	Registry      *Registry
	HTTPTimeout   time.Duration
	MaxConcurrent int
	UserAgent     string
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// maxFeedSize limits a single feed download to 50MB
const maxFeedSize = 50 * 1024 * 1024

// NewFeedIngester creates a new feed ingester
func NewFeedIngester(cfg IngesterConfig) *FeedIngester {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "vigilancex-lookup/1.0 BlocklistFetcher"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	fi := &FeedIngester{
		registry:      cfg.Registry,
		httpClient:    httpClient,
		parser:        NewParser(),
		userAgent:     cfg.UserAgent,
		logger:        cfg.Logger,
		now:           time.Now,
		maxConcurrent: cfg.MaxConcurrent,
		entries:       make(map[string][]netip.Prefix),
		statuses:      make(map[string]*FeedStatus),
	}

	for _, feed := range cfg.Registry.EnabledFeeds() {
		fi.statuses[feed.Name] = &FeedStatus{
			Source:      feed.Name,
			DisplayName: feed.DisplayName,
			URL:         feed.URL,
			Categories:  cfg.Registry.CategoriesOf(feed.Name),
			SyncStatus:  "pending",
		}
	}

	return fi
}

// Registry returns the feed registry
func (fi *FeedIngester) Registry() *Registry {
	return fi.registry
}

// Start refreshes all feeds now, then every interval until Stop or ctx ends
func (fi *FeedIngester) Start(ctx context.Context, interval time.Duration) {
	fi.runMu.Lock()
	defer fi.runMu.Unlock()

	if fi.running {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	fi.running = true
	fi.stopCh = make(chan struct{})
	fi.doneCh = make(chan struct{})

	fi.logger.Info("Feed Ingester started", "feeds", len(fi.registry.EnabledFeeds()), "interval", interval)

	go fi.loop(ctx, interval, fi.stopCh, fi.doneCh)
}

func (fi *FeedIngester) loop(ctx context.Context, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	fi.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			fi.Refresh(ctx)
		}
	}
}

// Stop stops the refresh loop and waits for it to exit
func (fi *FeedIngester) Stop() {
	fi.runMu.Lock()
	if !fi.running {
		fi.runMu.Unlock()
		return
	}
	close(fi.stopCh)
	doneCh := fi.doneCh
	fi.running = false
	fi.runMu.Unlock()

	<-doneCh
	fi.logger.Info("Feed Ingester stopped")
}

// Refresh downloads every enabled feed, at most MaxConcurrent at a time.
// A feed that fails keeps its previous entries.
func (fi *FeedIngester) Refresh(ctx context.Context) []SyncResult {
	feeds := fi.registry.EnabledFeeds()
	results := make([]SyncResult, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fi.maxConcurrent)

	for i, feed := range feeds {
		g.Go(func() error {
			results[i] = fi.syncFeed(gctx, feed)
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	fi.logger.Info("Blocklist refresh complete",
		"feeds", len(feeds),
		"failed", failed,
		"entries", fi.EntryCount(),
	)

	return results
}

// syncFeed performs the actual sync for a single feed
func (fi *FeedIngester) syncFeed(ctx context.Context, feed FeedSource) SyncResult {
	start := fi.now()
	result := SyncResult{Source: feed.Name}

	prefixes, err := fi.fetchFeed(ctx, feed)
	result.Duration = fi.now().Sub(start)

	fi.mu.Lock()
	defer fi.mu.Unlock()

	status := fi.statuses[feed.Name]
	status.LastSync = start

	if err != nil {
		result.Error = err.Error()
		status.SyncStatus = "error"
		status.ErrorMessage = err.Error()
		fi.logger.Error("Feed sync failed", "feed", feed.Name, "error", err)
		return result
	}

	fi.entries[feed.Name] = prefixes
	status.LastSuccess = start
	status.EntryCount = len(prefixes)
	status.SyncStatus = "success"
	status.ErrorMessage = ""

	result.Success = true
	result.EntryCount = len(prefixes)

	fi.logger.Debug("Feed synced",
		"feed", feed.Name,
		"entries", result.EntryCount,
		"duration", result.Duration,
	)

	return result
}

func (fi *FeedIngester) fetchFeed(ctx context.Context, feed FeedSource) ([]netip.Prefix, error) {
	content, err := fi.downloadFeed(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	prefixes, err := fi.parser.Parse(content, feed.Format)
	if err != nil {
		return nil, err
	}
	if len(prefixes) == 0 {
		return nil, errors.New("no entries parsed from feed")
	}
	return prefixes, nil
}

// downloadFeed downloads feed content from URL
func (fi *FeedIngester) downloadFeed(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", fi.userAgent)
	req.Header.Set("Accept", "text/plain, */*")

	resp, err := fi.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

// Check reports every loaded feed containing addr
func (fi *FeedIngester) Check(addr netip.Addr) CheckResult {
	addr = addr.Unmap()
	result := CheckResult{IP: addr.String(), Matches: []Match{}}

	fi.mu.RLock()
	defer fi.mu.RUnlock()

	for _, feed := range fi.registry.EnabledFeeds() {
		for _, prefix := range fi.entries[feed.Name] {
			if prefix.Contains(addr) {
				result.Matches = append(result.Matches, Match{
					Feed:        feed.Name,
					DisplayName: feed.DisplayName,
					Categories:  fi.statuses[feed.Name].Categories,
					Confidence:  feed.Confidence,
					Entry:       prefix.String(),
				})
				break
			}
		}
	}
	result.Listed = len(result.Matches) > 0

	return result
}

// Loaded reports whether at least one feed has been synced successfully
func (fi *FeedIngester) Loaded() bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.entries) > 0
}

// EntryCount returns the total number of loaded entries
func (fi *FeedIngester) EntryCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	total := 0
	for _, prefixes := range fi.entries {
		total += len(prefixes)
	}
	return total
}

// FeedStatuses returns the status of all enabled feeds in registry order
func (fi *FeedIngester) FeedStatuses() []FeedStatus {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	statuses := []FeedStatus{}
	for _, feed := range fi.registry.EnabledFeeds() {
		statuses = append(statuses, *fi.statuses[feed.Name])
	}
	return statuses
}
