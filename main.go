package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thewug/cakeraffle/auth"
	"github.com/thewug/cakeraffle/config"
	"github.com/thewug/cakeraffle/store"
	"github.com/thewug/cakeraffle/web"
)

func main() {
	config_path := flag.String("config", "config.yml", "path to the YAML settings file")
	flag.Parse()

	cfg, err := config.Load(*config_path)
	if err != nil {
		log.Fatal("Read settings: ", err.Error())
	}
	logger := cfg.Logger()
	fmt.Println("cakeraffle!")

	slots, err := store.Open(cfg.Storage)
	if err != nil {
		log.Fatal("Open storage: ", err.Error())
	}
	defer slots.Close()

	keeper, err := auth.NewKeeper(cfg.Session.Key, cfg.Session.Coder)
	if err != nil {
		log.Fatal("Session keys: ", err.Error())
	}
	keeper.Secure = cfg.Session.Secure

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := store.NewRegistry(slots, logger)
	hubs := web.NewHubs(ctx, registry, logger)
	hubs.Tick = cfg.Draw.Tick
	hubs.Steps = cfg.Draw.Steps
	defer hubs.Shutdown()

	sweeper, err := web.StartSweeper(hubs, cfg.Sweep.Interval, cfg.Sweep.Idle)
	if err != nil {
		log.Fatal("Start sweeper: ", err.Error())
	}
	defer sweeper.Stop()

	if cfg.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: web.NewServer(hubs, keeper, logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdown)
	}()

	logger.Info("listening", "addr", cfg.Listen, "storage", cfg.Storage.Driver)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("ListenAndServe: ", err.Error())
	}
}
