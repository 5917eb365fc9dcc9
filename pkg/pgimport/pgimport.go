package pgimport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Target names one PostgreSQL host whose connectable databases become
// pool entries, one per datname, aliased by the database name.
type Target struct {
	Host      string
	Port      int
	User      string
	Password  string
	DefaultDB string
}

const fetchDatabasesQuery = `SELECT datname FROM pg_database WHERE datallowconn = true ORDER BY datname`

func (t Target) connString() string {
	return fmt.Sprintf("user=%s host=%s port=%d dbname=%s password=%s",
		t.User, t.Host, t.Port, t.DefaultDB, t.Password)
}

func (t Target) connect(ctx context.Context) (*pgx.Conn, error) {
	var conn *pgx.Conn
	err := retry.Do(ctx, retry.WithMaxRetries(7, retry.NewFibonacci(500*time.Millisecond)), func(ctx context.Context) error {
		var err error
		conn, err = pgx.Connect(ctx, t.connString())
		if err != nil {
			bouncerlog.Zero.Debug().
				Err(err).
				Str("host", t.Host).
				Int("port", t.Port).
				Msg("retrying connect")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, cfgerror.Newf(cfgerror.IMPORT, "connect to %s:%d: %s", t.Host, t.Port, err)
	}
	return conn, nil
}

// Fetch lists the connectable databases of one target as alias→Database.
func Fetch(ctx context.Context, target Target) (map[string]config.Database, error) {
	conn, err := target.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			bouncerlog.Zero.Error().Err(err).Msg("close import connection")
		}
	}()

	rows, err := conn.Query(ctx, fetchDatabasesQuery)
	if err != nil {
		return nil, cfgerror.Newf(cfgerror.IMPORT, "query pg_database on %s:%d: %s", target.Host, target.Port, err)
	}
	defer rows.Close()

	entries := map[string]config.Database{}
	for rows.Next() {
		var datname string
		if err := rows.Scan(&datname); err != nil {
			return nil, cfgerror.Newf(cfgerror.IMPORT, "scan pg_database row: %s", err)
		}
		db, err := config.MakeDatabase(datname, target.Host, target.Port, datname)
		if err != nil {
			return nil, cfgerror.Newf(cfgerror.IMPORT, "database %q on %s:%d: %s", datname, target.Host, target.Port, err)
		}
		if target.User != "" {
			db.SetUser(target.User)
		}
		if target.Password != "" {
			db.SetPassword(target.Password)
		}
		entries[datname] = db
	}
	if err := rows.Err(); err != nil {
		return nil, cfgerror.Newf(cfgerror.IMPORT, "read pg_database on %s:%d: %s", target.Host, target.Port, err)
	}

	bouncerlog.Zero.Info().
		Str("host", target.Host).
		Int("port", target.Port).
		Int("databases", len(entries)).
		Msg("fetched database list")
	return entries, nil
}

// FetchAll queries every target concurrently and merges the results.
// An alias reported by two targets is an error, same as a duplicate
// alias in parsed text. Ignored aliases are dropped before the merge.
func FetchAll(ctx context.Context, targets []Target, ignoreAliases []string) (map[string]config.Database, error) {
	ignored := map[string]bool{}
	for _, alias := range ignoreAliases {
		ignored[alias] = true
	}

	var mu sync.Mutex
	merged := map[string]config.Database{}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		group.Go(func() error {
			entries, err := Fetch(groupCtx, target)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for alias, db := range entries {
				if ignored[alias] {
					continue
				}
				if _, ok := merged[alias]; ok {
					return cfgerror.Newf(cfgerror.IMPORT, "duplicate database alias %q reported by %s:%d", alias, target.Host, target.Port)
				}
				merged[alias] = db
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}
