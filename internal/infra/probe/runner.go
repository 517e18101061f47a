package probe

import (
	"context"

	"golang.org/x/sync/errgroup"

	"mcpdrift/internal/domain"
)

// RunParallel runs independent sessions with bounded concurrency and returns
// their baselines in input order. Sessions never share ledger state, so
// substitution stays deterministic per session. The first failing session
// cancels the rest.
func RunParallel(ctx context.Context, sessions []*Session, limit int) ([]domain.Baseline, error) {
	if limit <= 0 {
		limit = 1
	}
	baselines := make([]domain.Baseline, len(sessions))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, session := range sessions {
		group.Go(func() error {
			baseline, err := session.Run(groupCtx)
			if err != nil {
				return err
			}
			baselines[i] = baseline
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return baselines, nil
}
