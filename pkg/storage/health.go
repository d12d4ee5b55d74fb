package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Health reports basic liveness for a pool by pinging it with a 2-second
// timeout.
func Health(ctx context.Context, pool *pgxpool.Pool) (healthy bool, err error) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return false, err
	}
	return true, nil
}
