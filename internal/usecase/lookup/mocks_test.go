package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// MockAdapter implements Adapter; Fetch goes through mock.Mock so calls can be counted
type MockAdapter struct {
	mock.Mock
	name  string
	tier  entity.Tier
	kinds []entity.KeyKind
}

func newMockAdapter(name string, tier entity.Tier, kinds ...entity.KeyKind) *MockAdapter {
	if len(kinds) == 0 {
		kinds = []entity.KeyKind{entity.KindIP}
	}
	return &MockAdapter{name: name, tier: tier, kinds: kinds}
}

func (m *MockAdapter) Name() string      { return m.name }
func (m *MockAdapter) Tier() entity.Tier { return m.tier }
func (m *MockAdapter) IsConfigured() bool {
	return true
}

func (m *MockAdapter) Supports(kind entity.KeyKind) bool {
	for _, k := range m.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *MockAdapter) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Copy so each call hands out a fresh record
	rec := *args.Get(0).(*entity.ProviderRecord)
	return &rec, args.Error(1)
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func geoRecord(country, city string, lat, lon float64) *entity.ProviderRecord {
	return &entity.ProviderRecord{
		Country:   entity.OptString(country),
		City:      entity.OptString(city),
		Latitude:  entity.OptFloat(lat),
		Longitude: entity.OptFloat(lon),
	}
}

// mockHistory implements HistoryRepository
type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Save(ctx context.Context, h *entity.LookupHistory) error {
	return m.Called(ctx, h).Error(0)
}

func (m *mockHistory) ListByKey(ctx context.Context, key string, limit int) ([]entity.LookupHistory, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LookupHistory), args.Error(1)
}

// mockNotifier implements Notifier
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BroadcastToTopic(topic, msgType string, payload interface{}) {
	m.Called(topic, msgType, payload)
}
