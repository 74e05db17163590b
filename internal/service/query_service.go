package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"crossmarket/internal/query"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

type QueryRunner interface {
	Run(ctx context.Context, name string, params map[string]string) (*query.Result, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// QueryService fronts the catalog runner with a Redis result cache. The
// store only changes when the pipeline reloads a table, so short TTLs
// keep results fresh enough for every surface.
type QueryService struct {
	tracer trace.Tracer
	runner QueryRunner
	redis  RedisClient
	ttl    time.Duration
}

func NewQueryService(tracer trace.Tracer, runner QueryRunner, redisClient RedisClient, ttl time.Duration) *QueryService {
	return &QueryService{
		tracer: tracer,
		runner: runner,
		redis:  redisClient,
		ttl:    ttl,
	}
}

// Catalog lists the available queries, optionally filtered by category.
func (s *QueryService) Catalog(category string) []query.Definition {
	return query.List(category)
}

// Run executes a catalog query, serving from Redis when a fresh result
// for the same name and params exists. Cache failures fall through to
// the store; an invalid request is never cached.
func (s *QueryService) Run(ctx context.Context, name string, params map[string]string) (*query.Result, error) {
	ctx, span := s.tracer.Start(ctx, "query-service.run")
	defer span.End()

	key := cacheKey(name, params)

	if s.redis != nil {
		cached, err := s.getResultCache(ctx, key)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	result, err := s.runner.Run(ctx, name, params)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.setResultCache(ctx, key, result); err != nil {
			log.Printf("redis cache write error for %s: %v", name, err)
		}
	}
	return result, nil
}

// cacheKey is deterministic for a given name and parameter set.
func cacheKey(name string, params map[string]string) string {
	if len(params) == 0 {
		return "query:" + name
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("query:")
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, ":%s=%s", k, params[k])
	}
	return b.String()
}

func (s *QueryService) setResultCache(ctx context.Context, key string, result *query.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, s.ttl).Err()
}

func (s *QueryService) getResultCache(ctx context.Context, key string) (*query.Result, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result query.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
