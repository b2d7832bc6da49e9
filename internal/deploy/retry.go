package deploy

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
	"git.home.luguber.info/inful/gwcrelease/internal/logfields"
	"git.home.luguber.info/inful/gwcrelease/internal/retry"
)

// RetryingDialer redials after network errors. Authentication and
// configuration failures are returned at once.
type RetryingDialer struct {
	Dialer Dialer
	Policy retry.Policy
	Logger *slog.Logger
}

// Dial implements Dialer.
func (r *RetryingDialer) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var sess Session
	err := r.Policy.Do(ctx,
		func(err error) bool { return errors.HasCategory(err, errors.CategoryNetwork) },
		func(attempt int, wait time.Duration, err error) {
			logger.Warn("Connection failed, retrying",
				logfields.Host(ep.Address()),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				logfields.Error(err))
		},
		func() error {
			s, err := r.Dialer.Dial(ctx, ep)
			if err != nil {
				return err
			}
			sess = s
			return nil
		})
	if err != nil {
		return nil, err
	}
	return sess, nil
}
