package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweep deletes expired sessions every interval until ctx is done. Expired
// sessions already fail GetValid, so this only bounds table growth.
func Sweep(ctx context.Context, repo Repo, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Ctx(ctx).Error().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				log.Ctx(ctx).Debug().Int64("deleted", n).Msg("expired sessions removed")
			}
		}
	}
}
