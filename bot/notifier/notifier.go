// Package notifier turns broker events into Telegram messages. It shares
// the session manager with the conversation engine, so a notification for a
// user never interleaves with their in-flight dialogue action.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/concert-mate/bot/bot/broker"
	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/concertfmt"
	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/outbound"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/core/logger"
)

const (
	defaultBatchSize  = 30
	defaultBatchPause = 2 * time.Second
	defaultDedupTTL   = 24 * time.Hour

	dedupPrefix = "notify:dedup:"

	textMenu = "Выберите действие:"
)

// errSkipped aborts the session closure without persisting anything.
var errSkipped = errors.New("notifier: event skipped")

// Options tunes delivery pacing and dedup retention. Zero values take the
// defaults.
type Options struct {
	// BatchSize is how many messages go out before a pause.
	BatchSize int
	// BatchPause is the pause between batches; it keeps a large event under
	// the Telegram per-chat rate.
	BatchPause time.Duration
	// DedupTTL is how long a delivered event's key blocks redelivery.
	DedupTTL time.Duration
}

// Reconciler delivers concert notifications under the per-user session
// lock.
type Reconciler struct {
	sessions *session.Manager
	out      outbound.Sender
	kv       cache.KV
	opts     Options

	sleep func(time.Duration)
}

func New(sessions *session.Manager, out outbound.Sender, kv cache.KV, opts Options) *Reconciler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = defaultBatchPause
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = defaultDedupTTL
	}
	return &Reconciler{
		sessions: sessions,
		out:      out,
		kv:       kv,
		opts:     opts,
		sleep:    time.Sleep,
	}
}

// Handle delivers one broker event. It satisfies broker.Handler; every
// failure ends the event, never the consumer.
func (r *Reconciler) Handle(ctx context.Context, ev *broker.Event, dedupKey string) {
	userID := ev.User.TelegramID
	log := logger.NOTIFY.With(
		slog.String("delivery_id", uuid.NewString()),
		slog.Int64("user_id", userID),
	)

	claimed := false
	fresh, err := r.kv.SetNX(ctx, dedupPrefix+dedupKey, "1", r.opts.DedupTTL)
	switch {
	case err != nil:
		// Delivery is at-least-once; when the dedup store is down we favor a
		// possible duplicate over a lost notification.
		log.Warn("dedup store unavailable",
			slog.String("event", "notify.dedup.error"),
			slog.String("cause", err.Error()),
		)
	case fresh:
		claimed = true
	default:
		log.Debug("duplicate event suppressed",
			slog.String("event", "notify.dedup.hit"),
			slog.String("key", dedupKey),
		)
		return
	}

	started := time.Now()
	err = r.sessions.Do(ctx, userID, func(sess *session.Session) error {
		return r.deliver(ctx, userID, sess, ev, log)
	})
	switch {
	case errors.Is(err, errSkipped):
		return
	case err != nil:
		// A transient abort releases the claim so the transport's redelivery
		// of the same event is not suppressed.
		if claimed {
			if delErr := r.kv.Del(ctx, dedupPrefix+dedupKey); delErr != nil {
				log.Warn("dedup release failed",
					slog.String("event", "notify.dedup.release_failed"),
					slog.String("cause", delErr.Error()),
				)
			}
		}
		log.Warn("event aborted",
			slog.String("event", "notify.event.aborted"),
			slog.String("cause", err.Error()),
		)
	default:
		log.Info("event delivered",
			slog.String("event", "notify.event.delivered"),
			slog.Int("concerts", len(ev.Concerts)),
			slog.Duration("duration", logger.Took(started)),
		)
	}
}

func (r *Reconciler) deliver(ctx context.Context, userID int64, sess *session.Session, ev *broker.Event, log *slog.Logger) error {
	if sess.Version == 0 {
		// No conversation on record: the user never started or said /stop.
		log.Debug("no session, event skipped", slog.String("event", "notify.skip.no_session"))
		return errSkipped
	}
	if !sess.Data.NoticesEnabled {
		log.Debug("notifications disabled, event skipped", slog.String("event", "notify.skip.muted"))
		return errSkipped
	}

	// The keyboard would end up above the notifications; retract it now and
	// re-send a fresh one after.
	retracted := false
	if id, ok := sess.LastKeyboard(); ok {
		if err := r.out.Delete(ctx, userID, id); err == nil {
			retracted = true
		}
	}

	sent := 0
	for _, c := range ev.Concerts {
		if err := r.out.Notify(ctx, userID, concertfmt.Announcement(c), nil); err != nil {
			if outbound.IsBlocked(err) {
				log.Info("user unreachable, event dropped", slog.String("event", "notify.blocked"))
				return errSkipped
			}
			return err
		}
		sent++

		if lon, lat, err := coords(c.MapURL); err == nil {
			if err := r.out.SendLocation(ctx, userID, lat, lon); err != nil {
				if outbound.IsBlocked(err) {
					log.Info("user unreachable, event dropped", slog.String("event", "notify.blocked"))
					return errSkipped
				}
				return err
			}
			sent++
		}

		if sent >= r.opts.BatchSize {
			r.sleep(r.opts.BatchPause)
			sent = 0
		}
	}

	if retracted {
		sess.SetState(states.MainMenu)
		id, err := r.out.Send(ctx, userID, textMenu, keyboards.MainMenu())
		if err != nil {
			if outbound.IsBlocked(err) {
				return errSkipped
			}
			return err
		}
		sess.RecordKeyboard(id)
	}
	return nil
}

func coords(mapURL *string) (lon, lat float64, err error) {
	if mapURL == nil {
		return 0, 0, errors.New("no map url")
	}
	return concertfmt.MapCoords(*mapURL)
}
