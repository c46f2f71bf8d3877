package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rams/internal/config"
	"rams/internal/database"
	"rams/internal/game"
	"rams/internal/server"
	"rams/internal/wallet"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	store, err := database.NewStore(cfg.DBPath, log.WithField("component", "store"))
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer store.Close()

	broadcaster := game.NewBroadcaster(log.WithField("component", "broadcaster"))
	defer broadcaster.Close()

	manager := game.NewManager(game.Options{
		Rules:      cfg.Rules(),
		PlayerName: cfg.PlayerName,
		Seed:       cfg.Seed,
		BotDelay:   cfg.BotDelay,
		Store:      store,
		Wallet:     wallet.NewStub(cfg.WalletDelay, log.WithField("component", "wallet")),
		Notifier:   broadcaster,
		Publisher:  broadcaster,
		Log:        log.WithField("component", "table"),
	})
	defer manager.Close()
	manager.Restore(context.Background())

	handler := server.NewHandler(manager, broadcaster, log.WithField("component", "http"))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	log.Info("server stopped")
}
