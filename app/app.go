// Package app assembles the server from configuration: storage, the game
// controller, the websocket transport, the lobby HTTP API, quick match,
// and the monitor loop. Run blocks until the context ends or a signal
// arrives.
package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/janryu/janryu/common/cache"
	"github.com/janryu/janryu/common/config"
	"github.com/janryu/janryu/common/database"
	"github.com/janryu/janryu/common/http"
	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/core/persistence"
	"github.com/janryu/janryu/core/repository"
	"github.com/janryu/janryu/framework/conn"
	"github.com/janryu/janryu/game"
	"github.com/janryu/janryu/hall/api"
	"github.com/janryu/janryu/march"
	"github.com/janryu/janryu/relay"
	"github.com/janryu/janryu/replay"
)

func Run(ctx context.Context) error {
	conf := config.Conf

	repo, mongoMgr, readCache := buildRepository(conf)
	redisMgr := buildRedis(conf.DatabaseConf.RedisConf)

	sink, err := replay.NewSink(conf.Replay.Dir)
	if err != nil {
		return err
	}

	// The relay is an observer; an unreachable NATS degrades to none.
	rel, err := relay.Connect(conf.Relay.NatsURL)
	if err != nil {
		log.Warn("event relay disabled: %v", err)
		rel = nil
	}

	store := conn.NewSessionStore()
	ctrl := game.NewController(conf, store, sink, rel, repo)
	manager := conn.NewManager(conf.AppName, conf.Ws, conf.Auth, ctrl, store)

	var queue *march.Queue
	var pool *march.Pool
	if conf.March.Enabled {
		if redisMgr == nil {
			log.Warn("quick match enabled but redis is not configured, skipping")
		} else {
			queue = march.NewQueue(redisMgr)
			pool = march.NewPool(conf.March, queue, ctrl, rel)
			pool.Start()
		}
	}

	node := conf.AppName
	if hostname, err := os.Hostname(); err == nil {
		node = conf.AppName + "@" + hostname
	}
	monitor := game.NewMonitor(node, ctrl, rel, time.Minute)
	monitor.Start()

	server := http.NewHttpServer(
		http.WithPort(conf.HttpPort),
		http.WithMode(conf.Log.Level),
		http.WithAccessLog(),
	)
	server.Use(
		http.CorsMiddleware(),
		http.SecurityMiddleware(),
		http.RequestIDMiddleware(),
		http.RateLimitMiddleware(20, 40),
	)
	lobby := api.NewAPI(conf, ctrl, queue, repo, rel)
	lobby.RegisterRoutes(server)

	go func() {
		log.Info("lobby listening on :%d", conf.HttpPort)
		if err := server.Start(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal("lobby server: %v", err)
		}
	}()

	go func() {
		if err := manager.Run(conf.Ws.Addr); err != nil {
			log.Fatal("websocket server: %v", err)
		}
	}()

	stop := func() {
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Intake first, then transport, then the games themselves, then
		// the stores they flush into.
		if pool != nil {
			pool.Stop()
		}
		monitor.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("lobby shutdown: %v", err)
		}
		manager.Close()
		ctrl.Close()
		rel.Close()
		sink.Close()
		readCache.Close()
		if err := mongoMgr.Close(); err != nil {
			log.Warn("mongo close: %v", err)
		}
		if err := redisMgr.Close(); err != nil {
			log.Warn("redis close: %v", err)
		}
		log.Info("server stopped")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	select {
	case <-ctx.Done():
		stop()
		return nil
	case s := <-c:
		log.Info("signal %v, stopping", s)
		stop()
		return nil
	}
}

// buildRepository picks the record store: mongo with a ristretto read cache
// when configured, the in-memory store otherwise. A dev run without mongo
// still serves history, just not across restarts.
func buildRepository(conf *config.Configuration) (repository.PlayedGameRepository, *database.MongoManager, *cache.ReadCache) {
	mc := conf.DatabaseConf.MongoConf
	if mc.Url == "" {
		log.Warn("mongo not configured, played games stay in memory")
		return persistence.NewMemoryPlayedGames(), nil, nil
	}

	mongoMgr, err := database.NewMongo(mc)
	if err != nil {
		log.Error("mongo unavailable, falling back to in-memory records: %v", err)
		return persistence.NewMemoryPlayedGames(), nil, nil
	}

	readCache, err := cache.NewReadCache(4096, 10*time.Minute)
	if err != nil {
		log.Warn("record cache unavailable: %v", err)
		readCache = nil
	}

	repo, err := persistence.NewMongoPlayedGames(mongoMgr, readCache)
	if err != nil {
		log.Error("played-game repository init failed, falling back to memory: %v", err)
		_ = mongoMgr.Close()
		return persistence.NewMemoryPlayedGames(), nil, nil
	}
	return repo, mongoMgr, readCache
}

// buildRedis connects redis when any address is configured. Without it the
// quick-match queue stays off; rooms still work.
func buildRedis(rc config.RedisConf) *database.RedisManager {
	if rc.Addr == "" && rc.Host == "" && len(rc.ClusterAddrs) == 0 {
		return nil
	}

	redisMgr, err := database.NewRedis(rc)
	if err != nil {
		log.Error("redis unavailable, quick match disabled: %v", err)
		return nil
	}
	return redisMgr
}
