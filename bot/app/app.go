// Package app assembles the two processes of the bot: the Telegram
// conversation frontend and the notification reconciler. Both share the
// session store, the result cache, and the outbound sender; only the update
// source differs.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/broker"
	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/handlers"
	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/notifier"
	"github.com/concert-mate/bot/bot/outbound"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/userservice"
	"github.com/concert-mate/bot/core/bootstrap"
	"github.com/concert-mate/bot/core/buildinfo"
	"github.com/concert-mate/bot/core/logger"
	coretelegram "github.com/concert-mate/bot/core/telegram"
	"github.com/concert-mate/bot/core/telegram/callbacks"
	"github.com/concert-mate/bot/core/telegram/commands"
	"github.com/concert-mate/bot/core/telegram/format"
	"github.com/concert-mate/bot/core/telegram/helpers"
	"github.com/concert-mate/bot/core/telegram/router"
	tgsender "github.com/concert-mate/bot/core/telegram/sender"
	"log/slog"
)

const textHandlerFailure = "Что-то пошло не так. Попробуйте ещё раз чуть позже."

var startedAt = time.Now()

// App holds the wired components shared by both entry points.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	kv       cache.KV
	sessions *session.Manager
	engine   *handlers.Engine
	out      *lazySender
}

// Bootstrap initializes logging, storage, and the conversation engine. The
// outbound sender stays unbound until a Telegram bot instance exists.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	kv, err := cache.NewRedisKV(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, fmt.Errorf("app: redis init failed: %w", err)
	}

	agent := userservice.NewClient(cfg.UserService.BaseURL(), &http.Client{
		Timeout: cfg.UserService.Timeout(),
	})

	sessions := session.NewManager(session.NewPostgresStore(res.DB))
	out := &lazySender{}

	return &App{
		cfg:      cfg,
		db:       res.DB,
		kv:       kv,
		sessions: sessions,
		engine:   handlers.NewEngine(sessions, agent, cache.New(kv), out),
		out:      out,
	}, nil
}

// BindSender attaches the Telegram transport once a bot instance exists.
func (a *App) BindSender(bot *tele.Bot, disp *tgsender.Dispatcher) {
	a.out.bind(outbound.NewTeleSender(bot, disp))
}

// Close releases storage connections.
func (a *App) Close() error {
	var first error
	if err := a.kv.Close(); err != nil {
		first = err
	}
	if err := a.db.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// TelegramRunOptions wires commands, callbacks, and message routing into
// the shared bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Начать работу с ботом",
	})
	reg.RegisterCommand("/stop", commands.Command{
		Handler:     a.handleStop,
		Description: "Остановить бота и забыть мои данные",
	})
	reg.RegisterCommand("/skip", commands.Command{
		Handler:     a.handleSkip,
		Description: "Пропустить текущий шаг",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Информация о сборке",
		AdminOnly:   true,
		Hidden:      true,
	})

	for _, key := range keyboards.Uniques() {
		if err := reg.RegisterCallback(key, a.handleCallback); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}
	reg.SetTextFallback(a.handleText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(nil, reg, router.TextOptions{})...)
	routes = append(routes, coretelegram.Route{
		Endpoint: tele.OnLocation,
		Handler:  a.handleLocation,
	})

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.BindSender(rt.Bot, rt.Dispatcher)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

// RunNotifier consumes broker events until the context is canceled.
func (a *App) RunNotifier(ctx context.Context) error {
	conn, err := broker.Connect(a.cfg.Broker.URL, a.cfg.Broker.Queue)
	if err != nil {
		return fmt.Errorf("app: broker connect failed: %w", err)
	}
	consumer := broker.NewConsumer(conn)
	defer consumer.Close()

	rec := notifier.New(a.sessions, a.out, a.kv, notifier.Options{
		BatchSize:  a.cfg.Notifier.BatchSize,
		BatchPause: time.Duration(a.cfg.Notifier.BatchPauseMS) * time.Millisecond,
		DedupTTL:   time.Duration(a.cfg.Notifier.DedupTTLHours) * time.Hour,
	})

	if err := consumer.Start(ctx, a.cfg.Broker.Subject, a.cfg.Broker.Queue, rec.Handle); err != nil {
		return fmt.Errorf("app: broker subscribe failed: %w", err)
	}

	<-ctx.Done()
	return nil
}

func (a *App) handleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return a.report(c, a.engine.OnStart(context.Background(), sender.ID, sender.Username))
}

func (a *App) handleStop(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return a.report(c, a.engine.OnStop(context.Background(), sender.ID))
}

func (a *App) handleSkip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return a.report(c, a.engine.OnSkip(context.Background(), sender.ID))
}

func (a *App) handleStats(c tele.Context) error {
	return helpers.SendHTML(c, fmt.Sprintf("%s %s\n%s %s\n%s %s\n%s %s",
		format.Bold("version:"), format.Escape(buildinfo.Version),
		format.Bold("commit:"), format.Escape(buildinfo.Commit),
		format.Bold("built:"), format.Escape(buildinfo.Date),
		format.Bold("uptime:"), time.Since(startedAt).Round(time.Second)))
}

func (a *App) handleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	return a.report(c, a.engine.OnText(context.Background(), sender.ID, c.Text()))
}

func (a *App) handleLocation(c tele.Context) error {
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil || msg.Location == nil {
		return nil
	}
	loc := msg.Location
	return a.report(c, a.engine.OnLocation(context.Background(), sender.ID, float64(loc.Lat), float64(loc.Lng)))
}

func (a *App) handleCallback(c tele.Context) error {
	sender := c.Sender()
	cb := c.Callback()
	if sender == nil || cb == nil {
		return nil
	}
	unique, payload := callbacks.ParseCallbackData(cb)
	return a.report(c, a.engine.OnCallback(context.Background(), sender.ID, unique, payload))
}

// report is the transport-boundary error policy: the engine already chose a
// stable state, so the user only needs a generic failure note.
func (a *App) report(c tele.Context, err error) error {
	if err == nil {
		return nil
	}
	logger.TG.Error("handler failed",
		slog.String("event", "app.handler.error"),
		slog.Int64("user_id", c.Sender().ID),
		slog.String("err", err.Error()),
	)
	return helpers.SendText(c, textHandlerFailure)
}
