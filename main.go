// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/kjk/cynic/session"
	"github.com/kjk/cynic/state"
)

var (
	configPath   = flag.String("config", "config.yml", "Path to configuration file")
	httpAddr     = flag.String("addr", ":5010", "HTTP server address")
	inProduction = flag.Bool("production", false, "are we running in production")
)

// openStateStore picks redis when configured, memory otherwise
func openStateStore(cfg *Config, logger *ServerLogger) (state.Store, error) {
	if cfg.RedisURL == "" {
		logger.Noticef("keeping state of up to %d clients in memory", cfg.MaxClients)
		return state.NewMemoryStore(cfg.StateTTL, cfg.MaxClients), nil
	}
	rdb, err := state.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url %q: %w", cfg.RedisURL, err)
	}
	rdb.AddHook(redisMetricsHook{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis at %s: %w", cfg.RedisURL, err)
	}
	logger.Noticef("keeping client state in redis at %s", rdb.Options().Addr)
	return state.NewRedisStore(rdb, cfg.StateTTL), nil
}

func main() {
	flag.Parse()

	logger := NewServerLogger(256, 256, os.Stdout)

	cfg, err := readConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed reading config file %s. %s\n", *configPath, err)
	}
	authKey, encrKey, err := cookieKeys(cfg, *inProduction)
	if err != nil {
		log.Fatalf("%s\n", err)
	}
	states, err := openStateStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open state store: %s\n", err)
	}

	srv := NewServer(cfg, session.NewStore(authKey, encrKey), states, logger, *inProduction)
	logger.Noticef("Started running on %s, api at %s", *httpAddr, cfg.APIBaseURL)
	if err := http.ListenAndServe(*httpAddr, srv.Handler()); err != nil {
		fmt.Printf("http.ListenAndServe() failed with %s\n", err)
	}
	fmt.Printf("Exited\n")
}
