package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/patiponrmutl/thaimilitary/clock"
)

// listenerPing keeps an idle LISTEN connection from being dropped
// silently by proxies.
const listenerPing = 90 * time.Second

// ListenPostgres subscribes to NotifyChannel and broadcasts on hub for
// every notification, so writes made by other instances reach local
// subscribers. It runs until ctx is done.
func ListenPostgres(ctx context.Context, dsn string, hub *Hub, log *slog.Logger) error {
	l := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("postgres listener event", "event", int(ev), "err", err)
		}
	})
	if err := l.Listen(NotifyChannel); err != nil {
		_ = l.Close()
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	ticker := clock.Real().NewTicker(listenerPing)
	go func() {
		defer l.Close()
		defer ticker.Stop()
		relayNotifications(ctx, l.Notify, ticker.C, l.Ping, hub, log)
	}()

	return nil
}

// relayNotifications broadcasts on hub for every notification and pings
// on every tick until ctx is done or notify is closed.
func relayNotifications(ctx context.Context, notify <-chan *pq.Notification, tick <-chan time.Time, ping func() error, hub *Hub, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notify:
			if !ok {
				return
			}
			// n == nil หลัง reconnect: อาจพลาด notification ไปแล้ว ให้ทุกคน query ใหม่
			if n == nil {
				log.Info("postgres listener reconnected")
			}
			hub.Broadcast()
		case <-tick:
			go func() {
				if err := ping(); err != nil {
					log.Warn("postgres listener ping", "err", err)
				}
			}()
		}
	}
}
