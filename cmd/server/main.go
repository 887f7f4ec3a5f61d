package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmonc/polyempire-sub000/internal/engine"
	"github.com/andresmonc/polyempire-sub000/internal/infrastructure/storage"
	"github.com/andresmonc/polyempire-sub000/internal/network"
	"github.com/andresmonc/polyempire-sub000/internal/server"
	"github.com/andresmonc/polyempire-sub000/internal/version"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	cfg, err := engine.LoadConfig()
	if err != nil {
		logger.Log.Fatal("Config error:", err)
	}

	var port string
	var archiveDir string
	flag.StringVar(&port, "port", cfg.Port, "HTTP listen port")
	flag.StringVar(&archiveDir, "archive", cfg.ArchiveDir, "Directory for finished game archives (empty disables)")
	flag.Parse()
	cfg.Port = port
	cfg.ArchiveDir = archiveDir

	logger.Log.Info("Starting PolyEmpire Server...")
	logger.Log.Info(version.String())

	// 2. Архив завершенных партий (опционально)
	var archive *storage.ArchiveService
	if cfg.ArchiveDir != "" {
		indexPath := cfg.ArchiveIndex
		if indexPath == "" {
			indexPath = cfg.ArchiveDir + "/index.db"
		}
		archive, err = storage.NewArchiveService(cfg.ArchiveDir, indexPath)
		if err != nil {
			logger.Log.Fatal("Archive init error:", err)
		}
		defer archive.Close()
		logger.Log.Infof("📦 Archiving finished games to %s", cfg.ArchiveDir)
	}

	// 3. Инициализация ядра
	hub := network.NewHub()
	gameService := engine.NewGameService(cfg, hub, archive)
	gameService.StartReaper()

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 4. Запуск сервера
	srv := server.New(gameService, cfg.Port)

	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("Server start error:", err)
		}
	}()

	<-stop
	logger.Log.Info("Shutting down...")

	gameService.Stop()

	logger.Log.Info("Done.")
}
