package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"advisory/internal/models"
	"advisory/internal/notify"
	"advisory/internal/repository"
)

// SubscriptionLedger enrolls and renews premium subscriptions, keeping
// the client and plan sides of the relation symmetric. The two writes
// are independent; a failure between them leaves the relation briefly
// asymmetric and PruneExpired is the self-healing path.
type SubscriptionLedger struct {
	Repo     repository.Repository
	Notifier notify.Notifier
	Logger   *zap.Logger

	// Now is injectable for tests; defaults to time.Now UTC.
	Now     func() time.Time
	Retries int
	Timeout time.Duration
}

const (
	StatusSubscribed        = "subscribed"
	StatusAlreadySubscribed = "already_subscribed"
)

type SubscribeResult struct {
	Status              string    `json:"status"`
	SubscriptionExpires time.Time `json:"subscription_expires"`
}

func (l *SubscriptionLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

// Subscribe enrolls the client in a premium plan for durationDays, or
// renews an expired entry in place. Calling it again inside the
// validity window is a no-op success with the unchanged expiry.
func (l *SubscriptionLedger) Subscribe(ctx context.Context, clientID, planID uint64, durationDays int) (*SubscribeResult, error) {
	if durationDays <= 0 {
		return nil, BadRequest("subscription duration must be positive")
	}

	callCtx, cancel := withTimeout(ctx, l.Timeout)
	client, err := l.Repo.GetClientByID(callCtx, clientID)
	cancel()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotRegistered
	}

	callCtx, cancel = withTimeout(ctx, l.Timeout)
	plan, err := l.Repo.GetPlanByID(callCtx, planID)
	cancel()
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, NotFound("plan")
	}
	if !plan.IsPremium {
		return nil, ErrNotPremiumPlan
	}

	now := l.now()
	if i := client.SubscriptionFor(planID); i >= 0 && client.SubscribedPlans[i].Active(now) {
		return &SubscribeResult{
			Status:              StatusAlreadySubscribed,
			SubscriptionExpires: client.SubscribedPlans[i].SubscriptionExpires,
		}, nil
	}
	if i := plan.SubscriptionFor(clientID); i >= 0 && plan.SubscribedClients[i].Active(now) {
		return &SubscribeResult{
			Status:              StatusAlreadySubscribed,
			SubscriptionExpires: plan.SubscribedClients[i].SubscriptionExpires,
		}, nil
	}

	expires := now.Add(time.Duration(durationDays) * 24 * time.Hour)

	// Client side first, then plan side; same order as every writer so
	// conflicting subscribers converge.
	_, err = UpdateClient(ctx, l.Repo, l.Retries, l.Timeout, clientID, func(c *models.Client) error {
		c.SubscribedPlans = upsertSubscription(c.SubscribedPlans, planID, now, expires)
		return nil
	})
	if err != nil {
		return nil, err
	}
	_, err = UpdatePlan(ctx, l.Repo, l.Retries, l.Timeout, planID, func(p *models.Plan) error {
		if !p.IsPremium {
			return ErrNotPremiumPlan
		}
		p.SubscribedClients = upsertSubscription(p.SubscribedClients, clientID, now, expires)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if l.Notifier != nil {
		msg := fmt.Sprintf("%s subscribed to your plan, %s", client.Name, plan.PlanName)
		l.Notifier.Notify(msg, clientID, []uint64{plan.AdvisorID})
	}
	if l.Logger != nil {
		l.Logger.Info("subscription recorded",
			zap.Uint64("client_id", clientID),
			zap.Uint64("plan_id", planID),
			zap.Time("expires", expires),
		)
	}

	return &SubscribeResult{Status: StatusSubscribed, SubscriptionExpires: expires}, nil
}

// PruneExpired removes every subscription entry past its expiry from
// the client and from each plan the client nominally subscribes to,
// persisting mutated records. It is idempotent and order-independent
// across plans, and returns the plans still actively subscribed.
func (l *SubscriptionLedger) PruneExpired(ctx context.Context, clientID uint64) ([]models.Plan, error) {
	callCtx, cancel := withTimeout(ctx, l.Timeout)
	client, err := l.Repo.GetClientByID(callCtx, clientID)
	cancel()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotRegistered
	}

	now := l.now()
	planIDs := make([]uint64, 0, len(client.SubscribedPlans))
	for _, e := range client.SubscribedPlans {
		planIDs = append(planIDs, e.ID)
	}

	callCtx, cancel = withTimeout(ctx, l.Timeout)
	plans, err := l.Repo.ListPlansByIDs(callCtx, planIDs)
	cancel()
	if err != nil {
		return nil, err
	}

	active := make([]models.Plan, 0, len(plans))
	for _, plan := range plans {
		pruned := pruneEntries(plan.SubscribedClients, now)
		if len(pruned) != len(plan.SubscribedClients) {
			saved, err := UpdatePlan(ctx, l.Repo, l.Retries, l.Timeout, plan.ID, func(p *models.Plan) error {
				next := pruneEntries(p.SubscribedClients, now)
				if len(next) == len(p.SubscribedClients) {
					return ErrSkipSave
				}
				p.SubscribedClients = next
				return nil
			})
			if err != nil {
				return nil, err
			}
			plan = *saved
		}
		if i := plan.SubscriptionFor(clientID); i >= 0 && plan.SubscribedClients[i].Active(now) {
			active = append(active, plan)
		}
	}

	if len(pruneEntries(client.SubscribedPlans, now)) != len(client.SubscribedPlans) {
		_, err = UpdateClient(ctx, l.Repo, l.Retries, l.Timeout, clientID, func(c *models.Client) error {
			next := pruneEntries(c.SubscribedPlans, now)
			if len(next) == len(c.SubscribedPlans) {
				return ErrSkipSave
			}
			c.SubscribedPlans = next
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return active, nil
}

// upsertSubscription renews an existing entry in place or appends a
// new one, preserving the at-most-one-entry-per-id invariant.
func upsertSubscription(entries []models.SubscriptionEntry, id uint64, now, expires time.Time) []models.SubscriptionEntry {
	for i := range entries {
		if entries[i].ID == id {
			entries[i].SubscriptionDate = now
			entries[i].SubscriptionExpires = expires
			return entries
		}
	}
	return append(entries, models.SubscriptionEntry{
		ID:                  id,
		SubscriptionDate:    now,
		SubscriptionExpires: expires,
	})
}

func pruneEntries(entries []models.SubscriptionEntry, now time.Time) []models.SubscriptionEntry {
	kept := make([]models.SubscriptionEntry, 0, len(entries))
	for _, e := range entries {
		if e.Active(now) {
			kept = append(kept, e)
		}
	}
	return kept
}
