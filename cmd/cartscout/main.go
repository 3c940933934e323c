package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartscout/internal/auth"
	"cartscout/internal/config"
	"cartscout/internal/http/server"
	"cartscout/internal/jobs"
	applog "cartscout/internal/log"
	"cartscout/internal/repos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	closer := applog.Setup(cfg.LogFile)
	defer closer.Close()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	iss := auth.NewIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	app, deps := server.New(db, iss, server.DefaultOptions())

	sched, err := jobs.Start(deps.Auth, jobs.PruneSchedule)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()
	applog.Info(nil, "server.start", map[string]any{"port": cfg.Port, "env": cfg.Env})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	applog.Info(nil, "server.stop", nil)
	<-sched.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		applog.Error(nil, "server.shutdown.fail", err, nil)
	}
}
