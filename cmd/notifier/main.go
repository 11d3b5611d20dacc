package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/app"
	"github.com/concert-mate/bot/core/logger"
	coretelegram "github.com/concert-mate/bot/core/telegram"
	tgsender "github.com/concert-mate/bot/core/telegram/sender"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/bot.yaml"
	}

	cfg, err := app.Load(cfgPath)
	if err != nil {
		log.Fatalf("notifier: config: %v", err)
	}

	a, err := app.Bootstrap(cfg)
	if err != nil {
		log.Fatalf("notifier: bootstrap: %v", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("notifier: logger shutdown: %v", err)
		}
	}()
	defer a.Close()

	// The reconciler only sends; no poller is attached.
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.CoreConfig().Telegram.Token,
		Client: coretelegram.BuildHTTPClient(),
	})
	if err != nil {
		log.Fatalf("notifier: bot init: %v", err)
	}
	disp := tgsender.NewDispatcher(tgsender.Options{})
	defer disp.Close()
	a.BindSender(bot, disp)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.RunNotifier(ctx); err != nil {
		log.Fatalf("notifier: %v", err)
	}
}
