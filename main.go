package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/AA-Fatima/599-cal/app/client/admin"
	"github.com/AA-Fatima/599-cal/app/client/calc"
	"github.com/AA-Fatima/599-cal/app/config"
	"github.com/AA-Fatima/599-cal/app/service/conversation"
	"github.com/AA-Fatima/599-cal/app/service/engine"
	"github.com/AA-Fatima/599-cal/app/service/history"
	"github.com/AA-Fatima/599-cal/app/service/queue"
	"github.com/AA-Fatima/599-cal/app/service/session"
	"github.com/AA-Fatima/599-cal/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, calc.NewClient)
	do.Provide(di, admin.NewClient)
	do.Provide(di, session.New)
	do.Provide(di, history.New)
	do.Provide(di, conversation.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)

	slog.Debug("Client started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	if err = do.MustInvoke[*engine.Service](di).Run(appCtx); err != nil {
		slog.Error("Engine stopped", "error", err)
	}
}
