package blocklist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

type feedServer struct {
	*httptest.Server
	dropFails    atomic.Bool
	feodoTooLong atomic.Bool
	hits         atomic.Int32
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		switch r.URL.Path {
		case "/feodo.txt":
			if fs.feodoTooLong.Load() {
				w.Write([]byte("203.0.113.5\n# " + strings.Repeat("x", maxLineSize) + "\n198.51.100.9\n"))
				return
			}
			w.Write([]byte("# feodo\n203.0.113.5\n198.51.100.7\n"))
		case "/drop.txt":
			if fs.dropFails.Load() {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte("; drop\n203.0.113.0/24 ; SBL1\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestIngester(t *testing.T, fs *feedServer) *FeedIngester {
	t.Helper()
	reg := &Registry{
		Categories: map[string][]string{
			"botnet": {"feodo"},
			"c2":     {"feodo", "drop"},
			"spam":   {"drop"},
		},
		Feeds: []FeedSource{
			{Name: "feodo", DisplayName: "Feodo Tracker", URL: fs.URL + "/feodo.txt", Confidence: 95, Format: FormatIPList, Enabled: true},
			{Name: "drop", DisplayName: "Spamhaus DROP", URL: fs.URL + "/drop.txt", Confidence: 80, Format: FormatSpamhaus, Enabled: true},
			{Name: "disabled", URL: fs.URL + "/never.txt", Confidence: 10, Format: FormatIPList},
		},
	}
	require.NoError(t, reg.Validate())
	return NewFeedIngester(IngesterConfig{Registry: reg, HTTPTimeout: 5 * time.Second})
}

func TestIngesterPendingBeforeRefresh(t *testing.T) {
	fi := newTestIngester(t, newFeedServer(t))

	assert.False(t, fi.Loaded())
	statuses := fi.FeedStatuses()
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.Equal(t, "pending", s.SyncStatus)
	}
}

func TestIngesterRefreshAndCheck(t *testing.T) {
	fs := newFeedServer(t)
	fi := newTestIngester(t, fs)

	results := fi.Refresh(context.Background())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success, r.Source)
	}
	assert.True(t, fi.Loaded())
	assert.Equal(t, 3, fi.EntryCount())

	check := fi.Check(netip.MustParseAddr("203.0.113.5"))
	assert.True(t, check.Listed)
	require.Len(t, check.Matches, 2)
	assert.Equal(t, "feodo", check.Matches[0].Feed)
	assert.Equal(t, []string{"botnet", "c2"}, check.Matches[0].Categories)
	assert.Equal(t, "203.0.113.5/32", check.Matches[0].Entry)
	assert.Equal(t, "drop", check.Matches[1].Feed)
	assert.Equal(t, "203.0.113.0/24", check.Matches[1].Entry)

	check = fi.Check(netip.MustParseAddr("192.0.2.1"))
	assert.False(t, check.Listed)
	assert.NotNil(t, check.Matches)

	// Mapped IPv4 is checked as IPv4
	check = fi.Check(netip.MustParseAddr("::ffff:198.51.100.7"))
	assert.Equal(t, "198.51.100.7", check.IP)
	assert.True(t, check.Listed)
}

func TestIngesterFailedFeedKeepsPreviousEntries(t *testing.T) {
	fs := newFeedServer(t)
	fi := newTestIngester(t, fs)

	fi.Refresh(context.Background())
	fs.dropFails.Store(true)
	results := fi.Refresh(context.Background())

	var dropResult SyncResult
	for _, r := range results {
		if r.Source == "drop" {
			dropResult = r
		}
	}
	assert.False(t, dropResult.Success)
	assert.Contains(t, dropResult.Error, "502")

	// Old entries still answer
	assert.True(t, fi.Check(netip.MustParseAddr("203.0.113.200")).Listed)

	for _, s := range fi.FeedStatuses() {
		if s.Source == "drop" {
			assert.Equal(t, "error", s.SyncStatus)
			assert.Equal(t, 1, s.EntryCount)
			assert.False(t, s.LastSuccess.IsZero())
		}
	}
}

func TestIngesterUnreadableFeedKeepsPreviousEntries(t *testing.T) {
	fs := newFeedServer(t)
	fi := newTestIngester(t, fs)

	fi.Refresh(context.Background())
	fs.feodoTooLong.Store(true)
	results := fi.Refresh(context.Background())

	for _, r := range results {
		if r.Source == "feodo" {
			assert.False(t, r.Success)
			assert.Contains(t, r.Error, "too long")
		}
	}

	assert.True(t, fi.Check(netip.MustParseAddr("198.51.100.7")).Listed)
	assert.False(t, fi.Check(netip.MustParseAddr("198.51.100.9")).Listed)

	for _, s := range fi.FeedStatuses() {
		if s.Source == "feodo" {
			assert.Equal(t, "error", s.SyncStatus)
			assert.Equal(t, 2, s.EntryCount)
		}
	}
}

func TestIngesterRefreshConcurrencyLimit(t *testing.T) {
	tests := []struct {
		name          string
		maxConcurrent int
		wantLimit     int32
	}{
		{"configured", 2, 2},
		{"default", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inFlight, peak atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				w.Write([]byte("203.0.113.5\n"))
			}))
			t.Cleanup(server.Close)

			reg := &Registry{Categories: map[string][]string{}}
			for i := range 8 {
				reg.Feeds = append(reg.Feeds, FeedSource{
					Name:       "feed" + strconv.Itoa(i),
					URL:        server.URL + "/" + strconv.Itoa(i),
					Confidence: 50,
					Format:     FormatIPList,
					Enabled:    true,
				})
			}

			fi := NewFeedIngester(IngesterConfig{Registry: reg, MaxConcurrent: tt.maxConcurrent})
			results := fi.Refresh(context.Background())

			for _, r := range results {
				assert.True(t, r.Success, r.Error)
			}
			assert.LessOrEqual(t, peak.Load(), tt.wantLimit)
			assert.Positive(t, peak.Load())
		})
	}
}

func TestIngesterStartStop(t *testing.T) {
	fs := newFeedServer(t)
	fi := newTestIngester(t, fs)

	fi.Start(context.Background(), time.Hour)
	assert.Eventually(t, fi.Loaded, 2*time.Second, 10*time.Millisecond)
	fi.Stop()

	// Second Stop is a no-op
	fi.Stop()
	assert.Equal(t, int32(2), fs.hits.Load())
}

func TestAdapterFetch(t *testing.T) {
	fs := newFeedServer(t)
	fi := newTestIngester(t, fs)
	adapter := NewAdapter(fi)
	key := entity.Key{Kind: entity.KindIP, Value: "203.0.113.5"}

	assert.True(t, adapter.IsConfigured())
	assert.False(t, adapter.Supports(entity.KindURL))

	_, err := adapter.Fetch(context.Background(), key)
	assert.Error(t, err, "nothing loaded yet")

	fi.Refresh(context.Background())

	record, err := adapter.Fetch(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, record.Threats, 2)
	assert.Equal(t, "botnet", record.Threats[0].Type)
	assert.Equal(t, "high", record.Threats[0].Severity)
	assert.Equal(t, "c2", record.Threats[1].Type)
	assert.Equal(t, "medium", record.Threats[1].Severity)

	clean, err := adapter.Fetch(context.Background(), entity.Key{Kind: entity.KindIP, Value: "192.0.2.1"})
	require.NoError(t, err)
	assert.Empty(t, clean.Threats)
}

func TestConfidenceSeverity(t *testing.T) {
	assert.Equal(t, "high", confidenceSeverity(95))
	assert.Equal(t, "medium", confidenceSeverity(75))
	assert.Equal(t, "low", confidenceSeverity(40))
}
