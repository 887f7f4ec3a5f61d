package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmonc/polyempire-sub000/internal/agent"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

func init() {
	logger.Init()
}

// Запускает бота-наблюдателя против живого сервера:
//
//	bot -server http://localhost:8080 -game <sessionId> -name Bot -civ rome
func main() {
	var serverURL, sessionID, name, civ string
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	flag.StringVar(&sessionID, "game", "", "Session id to join")
	flag.StringVar(&name, "name", "Bot", "Bot player name")
	flag.StringVar(&civ, "civ", "rome", "Civilization id")
	flag.Parse()

	if sessionID == "" {
		logger.Log.Fatal("-game is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bot := agent.NewBot(serverURL, name, civ)
	if err := bot.Join(ctx, sessionID); err != nil {
		logger.Log.Fatal("Join error:", err)
	}

	bot.Run(ctx)
}
