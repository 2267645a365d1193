package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/lootshop/internal/client/cli"
	"github.com/dmitrijs2005/lootshop/internal/client/client"
	"github.com/dmitrijs2005/lootshop/internal/client/config"
	"github.com/dmitrijs2005/lootshop/internal/client/services"
	"github.com/dmitrijs2005/lootshop/internal/filex"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/dmitrijs2005/lootshop/internal/netx"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dbPath, err := filex.EnsureParentDir(cfg.DBPath)
	if err != nil {
		log.Fatalf("state dir: %v", err)
	}

	db, err := client.InitDatabase(ctx, dbPath)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer db.Close()

	logger := logging.NewText(os.Stderr, cfg.LogLevel)
	api := client.NewHTTPClient(cfg.ServerURL, netx.DefaultTimeout)

	auth := services.NewAuthService(api, db, logger, services.Options{
		SessionTTL:    cfg.SessionTTL,
		AdminCacheTTL: cfg.AdminCacheTTL,
	})

	cli.NewApp(cfg, auth, os.Stdin, os.Stdout, logger).Run(ctx)

}
