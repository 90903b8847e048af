// cmd/server is the main entrypoint for a KV store node.
//
// Configuration is entirely via flags/environment (internal/config) so
// a single binary can serve any role in the cluster.
//
// Example — single node:
//
//	ADDRESS=localhost:13801 VIEW=localhost:13801 REPL_FACTOR=1 ./server
//
// Example — 4-node cluster at replication factor 2, one process per node:
//
//	ADDRESS=localhost:13801 VIEW=localhost:13801,localhost:13802,localhost:13803,localhost:13804 REPL_FACTOR=2 ./server
//	ADDRESS=localhost:13802 VIEW=localhost:13801,localhost:13802,localhost:13803,localhost:13804 REPL_FACTOR=2 ./server
//	...
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distributed-kvstore/internal/api"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/config"
	"distributed-kvstore/internal/distributor"
	"distributed-kvstore/internal/logging"
	"distributed-kvstore/internal/peer"
	"distributed-kvstore/internal/scheduler"
	"distributed-kvstore/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.Bind(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logging.Logger.Fatal().Err(err).Msg("parse flags")
	}

	cfg, err := config.Load(fs)
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("load config")
	}

	logLevel := logging.InfoLevel
	logging.Init(logging.Config{Level: logLevel, JSONOutput: cfg.LogJSON})
	log := logging.WithNode(cfg.Address)

	// ── Storage ────────────────────────────────────────────────────────────
	var s *store.Store
	if cfg.AuditLogPath != "" {
		s, err = store.NewWithAuditLog(cfg.AuditLogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open audit log")
		}
	} else {
		s = store.New()
	}
	defer s.Close()

	// ── Membership ─────────────────────────────────────────────────────────
	view, err := cluster.NewView(cfg.View, cfg.Address, cfg.ReplFactor)
	if err != nil {
		log.Fatal().Err(err).Msg("build initial view")
	}

	// ── Distributor ────────────────────────────────────────────────────────
	peerClient := peer.NewWithTimeout(cfg.PeerTimeout)
	sched := scheduler.New()
	dist := distributor.New(view, s, peerClient, sched, log, cfg.GossipInterval)
	defer dist.Close()

	// ── HTTP server ────────────────────────────────────────────────────────
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(log), api.Recovery(log))

	api.NewHandler(dist, cfg.Address).Register(router)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("address", cfg.Address).
			Int("bucket", view.BucketIndex()).
			Int("repl_factor", cfg.ReplFactor).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
}
