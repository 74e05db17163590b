package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"crossmarket/internal/query"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type mockRunner struct {
	result *query.Result
	err    error

	calls      int
	lastName   string
	lastParams map[string]string
}

func (m *mockRunner) Run(ctx context.Context, name string, params map[string]string) (*query.Result, error) {
	m.calls++
	m.lastName = name
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type fakeRedis struct {
	data   map[string][]byte
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func TestQueryService_RunCacheHit(t *testing.T) {
	t.Parallel()

	cached := &query.Result{Name: "oil_yearly_average", Columns: []string{"year"}, Rows: [][]any{{2024.0}}}
	data, _ := json.Marshal(cached)

	fake := newFakeRedis()
	_ = fake.Set(context.Background(), "query:oil_yearly_average", data, 0)

	runner := &mockRunner{}
	svc := NewQueryService(testTracer, runner, fake, time.Minute)

	got, err := svc.Run(context.Background(), "oil_yearly_average", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != cached.Name || len(got.Rows) != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if runner.calls != 0 {
		t.Fatal("cache hit must not reach the runner")
	}
}

func TestQueryService_RunCachesOnMiss(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{result: &query.Result{Name: "available_coins", Columns: []string{"coin_id"}}}
	fake := newFakeRedis()
	svc := NewQueryService(testTracer, runner, fake, time.Minute)

	if _, err := svc.Run(context.Background(), "available_coins", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected one runner call, got %d", runner.calls)
	}
	if _, ok := fake.data["query:available_coins"]; !ok {
		t.Fatal("result not cached")
	}
}

func TestQueryService_CacheKeyIncludesParams(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{result: &query.Result{Name: "coin_price_series"}}
	fake := newFakeRedis()
	svc := NewQueryService(testTracer, runner, fake, time.Minute)

	params := map[string]string{
		"start_date": "2025-01-01",
		"end_date":   "2025-06-30",
		"coin_id":    "bitcoin",
	}
	if _, err := svc.Run(context.Background(), "coin_price_series", params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "query:coin_price_series:coin_id=bitcoin:end_date=2025-06-30:start_date=2025-01-01"
	if _, ok := fake.data[want]; !ok {
		t.Fatalf("expected deterministic cache key %q, cached keys: %v", want, keys(fake.data))
	}
}

func TestQueryService_RedisFailureFallsThrough(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{result: &query.Result{Name: "available_coins"}}
	fake := newFakeRedis()
	fake.getErr = errors.New("redis down")
	fake.setErr = errors.New("redis down")
	svc := NewQueryService(testTracer, runner, fake, time.Minute)

	got, err := svc.Run(context.Background(), "available_coins", nil)
	if err != nil {
		t.Fatalf("cache failure must not fail the query: %v", err)
	}
	if got.Name != "available_coins" || runner.calls != 1 {
		t.Fatalf("unexpected result: %+v (runner calls %d)", got, runner.calls)
	}
}

func TestQueryService_InvalidRequestNotCached(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{err: &query.InvalidRequestError{Name: "nope", Reason: "not in catalog"}}
	fake := newFakeRedis()
	svc := NewQueryService(testTracer, runner, fake, time.Minute)

	if _, err := svc.Run(context.Background(), "nope", nil); !query.IsInvalidRequest(err) {
		t.Fatalf("expected InvalidRequestError, got %v", err)
	}
	if len(fake.data) != 0 {
		t.Fatal("errors must not be cached")
	}
}

func TestQueryService_CatalogFilters(t *testing.T) {
	t.Parallel()

	svc := NewQueryService(testTracer, &mockRunner{}, nil, time.Minute)

	all := svc.Catalog("")
	oil := svc.Catalog(query.CategoryOil)
	if len(all) == 0 || len(oil) == 0 || len(oil) >= len(all) {
		t.Fatalf("unexpected catalog sizes: all=%d oil=%d", len(all), len(oil))
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
