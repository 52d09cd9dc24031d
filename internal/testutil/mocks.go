package testutil

import (
	"context"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and counts the
// calls tests care about.
type MockMetrics struct {
	mu             sync.Mutex
	RPCCalls       map[string]int
	RPCErrors      int
	AliasRefreshes int
	LastFastPoll   bool
	Samples        int
	TrackedPeers   int
	LedgerFetches  map[string]int
	LedgerErrors   map[string]int
	CursorResets   map[string]int
	Persisted      int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}

func (m *MockMetrics) ObserveRPC(method string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RPCCalls == nil {
		m.RPCCalls = make(map[string]int)
	}
	m.RPCCalls[method]++
	if err != nil {
		m.RPCErrors++
	}
}

func (m *MockMetrics) ObserveAliasRefresh(_ time.Duration, _ float64, fastPoll bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AliasRefreshes++
	m.LastFastPoll = fastPoll
}

func (m *MockMetrics) AddAvailabilitySamples(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Samples += n
}

func (m *MockMetrics) SetTrackedPeers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TrackedPeers = n
}

func (m *MockMetrics) ObserveLedgerFetch(class string, _ int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LedgerFetches == nil {
		m.LedgerFetches = make(map[string]int)
		m.LedgerErrors = make(map[string]int)
	}
	m.LedgerFetches[class]++
	if err != nil {
		m.LedgerErrors[class]++
	}
}

func (m *MockMetrics) IncCursorResets(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CursorResets == nil {
		m.CursorResets = make(map[string]int)
	}
	m.CursorResets[class]++
}

// Resets returns the number of index resets seen for class.
func (m *MockMetrics) Resets(class string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CursorResets[class]
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockStore implements interfaces.AvailabilityStoreInterface in memory.
type MockStore struct {
	mu      sync.Mutex
	Records []models.AvailabilityRecord
	LoadErr error
	SaveErr error
	Saves   int
}

func (m *MockStore) Load() ([]models.AvailabilityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]models.AvailabilityRecord(nil), m.Records...), nil
}

func (m *MockStore) Save(records []models.AvailabilityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Records = append([]models.AvailabilityRecord(nil), records...)
	return nil
}

// MockLightning implements lightning.Client. Unset functions return empty
// results; every call is counted by method name.
type MockLightning struct {
	mu     sync.Mutex
	Calls  map[string]int
	Starts map[string][]uint64

	GetInfoFn          func(ctx context.Context) (*lightning.GetInfoResponse, error)
	ListPeersFn        func(ctx context.Context) ([]lightning.Peer, error)
	ListPeerChannelsFn func(ctx context.Context) ([]lightning.PeerChannel, error)
	ListFundsFn        func(ctx context.Context) ([]lightning.FundsOutput, error)
	ListNodesFn        func(ctx context.Context, id string) ([]lightning.Node, error)
	ListForwardsFn     func(ctx context.Context, req lightning.ListRequest) ([]lightning.Forward, error)
	ListPaysFn         func(ctx context.Context, req lightning.ListRequest) ([]lightning.Pay, error)
	ListInvoicesFn     func(ctx context.Context, req lightning.ListRequest) ([]lightning.Invoice, error)
	DecodeFn           func(ctx context.Context, s string) (*lightning.Decoded, error)
}

func (m *MockLightning) count(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[method]++
}

func (m *MockLightning) start(method string, req lightning.ListRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Starts == nil {
		m.Starts = make(map[string][]uint64)
	}
	m.Starts[method] = append(m.Starts[method], req.Start)
}

// CallCount returns how many times method was called.
func (m *MockLightning) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

// StartsOf returns the start index of every list call made for method.
func (m *MockLightning) StartsOf(method string) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.Starts[method]...)
}

func (m *MockLightning) GetInfo(ctx context.Context) (*lightning.GetInfoResponse, error) {
	m.count("getinfo")
	if m.GetInfoFn != nil {
		return m.GetInfoFn(ctx)
	}
	return &lightning.GetInfoResponse{}, nil
}

func (m *MockLightning) ListPeers(ctx context.Context) ([]lightning.Peer, error) {
	m.count("listpeers")
	if m.ListPeersFn != nil {
		return m.ListPeersFn(ctx)
	}
	return nil, nil
}

func (m *MockLightning) ListPeerChannels(ctx context.Context) ([]lightning.PeerChannel, error) {
	m.count("listpeerchannels")
	if m.ListPeerChannelsFn != nil {
		return m.ListPeerChannelsFn(ctx)
	}
	return nil, nil
}

func (m *MockLightning) ListFunds(ctx context.Context) ([]lightning.FundsOutput, error) {
	m.count("listfunds")
	if m.ListFundsFn != nil {
		return m.ListFundsFn(ctx)
	}
	return nil, nil
}

func (m *MockLightning) ListNodes(ctx context.Context, id string) ([]lightning.Node, error) {
	m.count("listnodes")
	if m.ListNodesFn != nil {
		return m.ListNodesFn(ctx, id)
	}
	return nil, nil
}

func (m *MockLightning) ListForwards(ctx context.Context, req lightning.ListRequest) ([]lightning.Forward, error) {
	m.count("listforwards")
	m.start("listforwards", req)
	if m.ListForwardsFn != nil {
		return m.ListForwardsFn(ctx, req)
	}
	return nil, nil
}

func (m *MockLightning) ListPays(ctx context.Context, req lightning.ListRequest) ([]lightning.Pay, error) {
	m.count("listpays")
	m.start("listpays", req)
	if m.ListPaysFn != nil {
		return m.ListPaysFn(ctx, req)
	}
	return nil, nil
}

func (m *MockLightning) ListInvoices(ctx context.Context, req lightning.ListRequest) ([]lightning.Invoice, error) {
	m.count("listinvoices")
	m.start("listinvoices", req)
	if m.ListInvoicesFn != nil {
		return m.ListInvoicesFn(ctx, req)
	}
	return nil, nil
}

func (m *MockLightning) Decode(ctx context.Context, s string) (*lightning.Decoded, error) {
	m.count("decode")
	if m.DecodeFn != nil {
		return m.DecodeFn(ctx, s)
	}
	return &lightning.Decoded{}, nil
}
