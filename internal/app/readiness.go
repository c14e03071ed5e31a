package app

import (
	"context"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/ats-cv-scorer/internal/adapter/httpserver"
)

// Pinger is anything that can report its reachability.
type Pinger interface{ Ping(ctx context.Context) error }

type redisPinger struct{ rdb redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// BuildReadinessChecks returns the /readyz probes. The database is always
// probed; redis and tika only when configured.
func BuildReadinessChecks(db Pinger, rdb redis.UniversalClient, tika Pinger) []httpserver.Check {
	checks := []httpserver.Check{{Name: "db", Probe: probe(db, "db")}}
	if rdb != nil {
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redisPinger{rdb: rdb}.Ping})
	}
	if tika != nil {
		checks = append(checks, httpserver.Check{Name: "tika", Probe: tika.Ping})
	}
	return checks
}

func probe(p Pinger, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		if p == nil {
			return errNotConfigured(name)
		}
		return p.Ping(ctx)
	}
}

type errNotConfigured string

func (e errNotConfigured) Error() string { return string(e) + " not configured" }
