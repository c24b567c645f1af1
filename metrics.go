// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// APIRequests counts backend calls by operation and outcome
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cynic_api_requests_total",
		Help: "Total number of backend API calls by operation and outcome",
	}, []string{"operation", "outcome"})

	// APILatency records backend call latency by operation
	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cynic_api_request_duration_seconds",
		Help:    "Backend API call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Events counts handled form events by view and action
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cynic_events_total",
		Help: "Total number of form events by view and action",
	}, []string{"view", "action"})

	// StateStoreErrors counts failed state loads and saves
	StateStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cynic_state_store_errors_total",
		Help: "Total number of state store errors by operation",
	}, []string{"operation"})

	// RedisErrors counts redis errors by command
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cynic_redis_errors_total",
		Help: "Total number of redis errors by command",
	}, []string{"command"})
)

func observeAPICall(op, outcome string, dur time.Duration) {
	APIRequests.WithLabelValues(op, outcome).Inc()
	APILatency.WithLabelValues(op).Observe(dur.Seconds())
}

type redisMetricsHook struct{}

func (h redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}
