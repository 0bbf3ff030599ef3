package usecase

import (
	"context"

	"github.com/rs/zerolog"
)

// unitOfWork runs fn inside one transaction, retrying the whole attempt on
// transient concurrency errors when a Retrier is configured.
type unitOfWork struct {
	txManager TransactionManager
	retrier   Retrier
	logger    zerolog.Logger
}

func (u unitOfWork) run(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	attempt := func() error {
		tx, err := u.txManager.Begin(ctx)
		if err != nil {
			return err
		}

		if err := fn(ctx, tx); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				u.logger.Warn().Err(rbErr).Msg("rollback failed")
			}
			return err
		}

		return tx.Commit(ctx)
	}

	if u.retrier == nil {
		return attempt()
	}
	return u.retrier.Retry(ctx, attempt)
}
