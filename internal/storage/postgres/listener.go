package postgres

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/realtime"
)

// RealtimeChannel is the NOTIFY channel written by the change triggers.
const RealtimeChannel = "realtime"

// Publisher receives decoded change events.
type Publisher interface {
	Publish(e realtime.Event)
}

// Listener holds a dedicated connection in LISTEN mode and forwards every
// notification on RealtimeChannel to a Publisher.
type Listener struct {
	pool    *pgxpool.Pool
	pub     Publisher
	lg      *zap.Logger
	backoff time.Duration

	listening atomic.Bool
}

// NewListener creates a Listener. Call Run to start it.
func NewListener(pool *pgxpool.Pool, pub Publisher, lg *zap.Logger) *Listener {
	return &Listener{
		pool:    pool,
		pub:     pub,
		lg:      lg,
		backoff: time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		l.listening.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		l.lg.Warn("Realtime listener disconnected", zap.Error(err), zap.Duration("retry_in", l.backoff))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.backoff):
		}
	}
}

// Check reports an error while the listener is not connected.
func (l *Listener) Check(context.Context) error {
	if !l.listening.Load() {
		return errors.New("realtime listener is not connected")
	}
	return nil
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listener connection: %w", err)
	}
	// The connection is in LISTEN mode; never hand it back to the pool.
	raw := conn.Hijack()
	defer func() { _ = raw.Close(context.Background()) }()

	if _, err := raw.Exec(ctx, "LISTEN "+pgx.Identifier{RealtimeChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %q: %w", RealtimeChannel, err)
	}
	l.listening.Store(true)
	l.lg.Info("Realtime listener connected", zap.String("channel", RealtimeChannel))

	for {
		n, err := raw.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}
		ev, err := realtime.ParseEvent([]byte(n.Payload))
		if err != nil {
			l.lg.Warn("Skipping malformed notification", zap.Error(err))
			continue
		}
		l.pub.Publish(ev)
	}
}
