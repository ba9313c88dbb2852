// Command server runs the mfnav ingestion pipeline and its read/control-plane
// HTTP API, wiring config -> store -> rate-limiter backend -> upstream
// client -> pipeline orchestrator -> scheduler -> API, in the spirit of
// marlonfan-go-stock-collector's main.go wiring but split across internal/
// packages instead of one flat main.go.
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/marlonfan/mfnav/internal/api"
	"github.com/marlonfan/mfnav/internal/config"
	"github.com/marlonfan/mfnav/internal/kvstore"
	"github.com/marlonfan/mfnav/internal/kvstore/redisstore"
	"github.com/marlonfan/mfnav/internal/kvstore/upstashstore"
	"github.com/marlonfan/mfnav/internal/pipeline"
	"github.com/marlonfan/mfnav/internal/ratelimiter"
	"github.com/marlonfan/mfnav/internal/scheduler"
	"github.com/marlonfan/mfnav/internal/store"
	"github.com/marlonfan/mfnav/internal/upstream"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("=== mfnav ingestion service ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	setupLogOutput(cfg.LogDir)

	db, err := store.Open(cfg.MySQL.DSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	kv := newKVStore(cfg)
	limiter := ratelimiter.New(kv, cfg.RateLimit)

	client := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, limiter)

	orchestrator, err := pipeline.New(db, client)
	if err != nil {
		log.Fatalf("init pipeline orchestrator: %v", err)
	}

	sched, err := scheduler.New(orchestrator, cfg.SyncCron, cfg.SyncTZ)
	if err != nil {
		log.Fatalf("init scheduler: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer sched.Stop()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.New(db, orchestrator, limiter)

	addr := ":" + cfg.Port
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}
	log.Printf("API server starting on %s", addr)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server: %v", err)
		}
	case sig := <-stop:
		log.Printf("received signal %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("api server shutdown error: %v", err)
	}
}

// newKVStore selects the rate-limiter backend: Upstash REST if its
// credentials are configured, otherwise standard Redis, per the design's
// "polymorphism over key-value backend" note.
func newKVStore(cfg *config.Config) kvstore.Store {
	if cfg.Upstash.Enabled() {
		log.Println("[kvstore] using Upstash REST backend")
		return upstashstore.New(cfg.Upstash.RESTURL, cfg.Upstash.RESTToken)
	}
	log.Println("[kvstore] using standard Redis backend")
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	return redisstore.New(rdb)
}

// setupLogOutput tees log output to logDir/mfnav.log alongside stdout, if
// logDir is writable. Falls back to stdout only, never failing startup over
// a logging directory problem.
func setupLogOutput(logDir string) {
	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Printf("[log] could not create log dir %s: %v", logDir, err)
		return
	}
	f, err := os.OpenFile(filepath.Join(logDir, "mfnav.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[log] could not open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}
