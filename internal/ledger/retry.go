package ledger

import (
	"context"
	"errors"
	"time"

	"advisory/internal/models"
	"advisory/internal/repository"
)

const defaultRetries = 3

// withTimeout bounds a single store call. A non-positive budget leaves
// the parent context untouched.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func attempts(retries int) int {
	if retries <= 0 {
		retries = defaultRetries
	}
	return retries + 1
}

// UpdateClient applies a read-modify-write on one client under
// optimistic concurrency, reloading and reapplying fn on version
// conflicts. fn returning ErrSkipSave leaves the record untouched.
func UpdateClient(ctx context.Context, repo repository.Repository, retries int, timeout time.Duration, id uint64, fn func(*models.Client) error) (*models.Client, error) {
	var lastErr error
	for i := 0; i < attempts(retries); i++ {
		callCtx, cancel := withTimeout(ctx, timeout)
		client, err := repo.GetClientByID(callCtx, id)
		cancel()
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, ErrClientNotRegistered
		}
		if err := fn(client); err != nil {
			if errors.Is(err, ErrSkipSave) {
				return client, nil
			}
			return nil, err
		}
		callCtx, cancel = withTimeout(ctx, timeout)
		err = repo.SaveClient(callCtx, client)
		cancel()
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// UpdatePlan is UpdateClient for plans.
func UpdatePlan(ctx context.Context, repo repository.Repository, retries int, timeout time.Duration, id uint64, fn func(*models.Plan) error) (*models.Plan, error) {
	var lastErr error
	for i := 0; i < attempts(retries); i++ {
		callCtx, cancel := withTimeout(ctx, timeout)
		plan, err := repo.GetPlanByID(callCtx, id)
		cancel()
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, NotFound("plan")
		}
		if err := fn(plan); err != nil {
			if errors.Is(err, ErrSkipSave) {
				return plan, nil
			}
			return nil, err
		}
		callCtx, cancel = withTimeout(ctx, timeout)
		err = repo.SavePlan(callCtx, plan)
		cancel()
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// UpdateAdvisor is UpdateClient for advisors.
func UpdateAdvisor(ctx context.Context, repo repository.Repository, retries int, timeout time.Duration, id uint64, fn func(*models.Advisor) error) (*models.Advisor, error) {
	var lastErr error
	for i := 0; i < attempts(retries); i++ {
		callCtx, cancel := withTimeout(ctx, timeout)
		advisor, err := repo.GetAdvisorByID(callCtx, id)
		cancel()
		if err != nil {
			return nil, err
		}
		if advisor == nil {
			return nil, NotFound("advisor")
		}
		if err := fn(advisor); err != nil {
			if errors.Is(err, ErrSkipSave) {
				return advisor, nil
			}
			return nil, err
		}
		callCtx, cancel = withTimeout(ctx, timeout)
		err = repo.SaveAdvisor(callCtx, advisor)
		cancel()
		if err == nil {
			return advisor, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ErrSkipSave signals that fn decided no write is needed.
var ErrSkipSave = errors.New("skip save")
