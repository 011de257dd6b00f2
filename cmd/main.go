package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/bootstrap"
	"github.com/9triver/clusterrpc/internal/config"
	"github.com/9triver/clusterrpc/internal/util"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	util.InitLogger(cfg.Logging.Level)

	if cfg.Logging.FileEnabled {
		logFile, err := util.OpenLogFile(cfg.Logging.FileDir, cfg.Logging.RetentionDays)
		if err != nil {
			logrus.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logrus.AddHook(logFile)
	}

	// 使用 Bootstrap 初始化所有模块
	node, err := bootstrap.Initialize(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize: %v", err)
	}
	defer node.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := node.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start services: %v", err)
	}
	logrus.Info("Cluster node started successfully")

	// 优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logrus.Info("Shutting down...")
}
