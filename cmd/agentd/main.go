// Command agentd is an example daemon wiring a cluster, an execution audit
// store, Prometheus metrics, and the optional admin HTTP/WS surface into one
// process. It is a reference composition, not a required entrypoint — any
// host process can embed system/cluster directly instead.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/r3e-network/jsagent/pkg/logger"
	"github.com/r3e-network/jsagent/system/adminapi"
	"github.com/r3e-network/jsagent/system/cluster"
	"github.com/r3e-network/jsagent/system/metrics"
	"github.com/r3e-network/jsagent/system/store"
)

func main() {
	ctx := context.Background()
	log := logger.NewFromEnv()

	clusterID := envOr("AGENTD_CLUSTER_ID", "default")
	m := metrics.Init(clusterID)

	notifier := redisNotifierFromEnv(log)

	workerRate := envFloatOr("AGENTD_WORKER_RATE", 64)
	workerBurst := envIntOr("AGENTD_WORKER_BURST", 128)

	c := cluster.New(clusterID, m, notifier, cluster.WithRateLimit(workerRate, workerBurst))

	auditStore, closeStore := storeFromEnv(log)
	if closeStore != nil {
		defer closeStore()
	}
	_ = auditStore // wired for callers that want execution history; agentd itself only hosts it

	janitorSchedule := envOr("AGENTD_JANITOR_SCHEDULE", cluster.DefaultSweepSchedule)
	janitor := cluster.NewJanitor(c, janitorSchedule, log)
	if err := janitor.Start(); err != nil {
		log.WithField("error", err).Fatal("agentd: failed to start janitor")
	}
	defer janitor.Stop()

	adminAddr := envOr("AGENTD_ADMIN_ADDR", "")
	var adminServer *http.Server
	if adminAddr != "" {
		secret := []byte(os.Getenv("AGENTD_ADMIN_SECRET"))
		router := adminapi.NewRouter(adminapi.Deps{
			Clusters: map[string]*cluster.Cluster{clusterID: c},
			Metrics:  m,
			Secret:   secret,
			Log:      log,
		})
		adminServer = &http.Server{
			Addr:              adminAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.WithField("addr", adminAddr).Info("agentd: admin surface listening")
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithField("error", err).Fatal("agentd: admin surface failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("agentd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.WithField("error", err).Warn("agentd: admin surface shutdown error")
		}
	}
	for _, agentID := range c.AgentIDs() {
		if err := c.DisposeAgent(shutdownCtx, agentID); err != nil {
			log.WithField("error", err).WithField("agent_id", agentID).Warn("agentd: dispose on shutdown failed")
		}
	}
	c.Platform().Shutdown()
}

func redisNotifierFromEnv(log *logger.Logger) *cluster.RedisNotifier {
	addr := os.Getenv("AGENTD_REDIS_ADDR")
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return cluster.NewRedisNotifier(client, log)
}

func storeFromEnv(log *logger.Logger) (store.Store, func()) {
	dsn := os.Getenv("AGENTD_POSTGRES_DSN")
	if dsn == "" {
		return store.NewMemoryStore(), nil
	}
	pg, err := store.OpenPostgresStore(dsn)
	if err != nil {
		log.WithField("error", err).Fatal("agentd: failed to open postgres store")
	}
	return pg, func() { pg.Close() }
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
