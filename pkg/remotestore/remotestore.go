// Package remotestore wraps the authoritative central MySQL server: the
// half of every table's mirror that the kiosk pushes into and pulls from
// (spec.md §6 remote schema). Every call is wrapped in a circuit breaker so
// a prolonged outage fails fast instead of blocking on TCP timeouts,
// hardening (not changing) spec.md §4.5's offline-tolerance contract.
package remotestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sony/gobreaker/v2"

	"github.com/maniegokryz-prog/EndDev/internal/kioskerr"
)

// Store is the kiosk's handle on the remote server.
type Store struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker[any]
	timeout time.Duration
}

// Open prepares a connection pool for the remote MySQL server at dsn. It
// does not contact the server, so an unreachable server at startup is not an
// error here; the first failing call reports it as TransientRemote. timeout
// bounds every individual query (spec.md §5's "≤5s" remote connection
// timeout).
func Open(dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "remotestore",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Store{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		timeout: timeout,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies connectivity through the circuit breaker, so its outcome
// also counts toward the breaker's state.
func (s *Store) Ping(ctx context.Context) error {
	_, err := call(s, ctx, "ping", func(cctx context.Context) (struct{}, error) {
		return struct{}{}, s.db.PingContext(cctx)
	})
	return err
}

// BreakerState reports the circuit breaker's current state for /healthz.
func (s *Store) BreakerState() string {
	return s.breaker.State().String()
}

// call executes fn through the circuit breaker with a per-call timeout,
// wrapping any failure as kioskerr.TransientRemote — the one error kind
// §7 says is "never fatal for C6; logged and counted in SyncStatus".
func call[T any](s *Store, ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		res, err := fn(cctx)
		return res, err
	})
	if err != nil {
		var zero T
		return zero, &kioskerr.TransientRemote{Op: op, Err: err}
	}
	return v.(T), nil
}
