package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"advisory/internal/ledger"
	"advisory/internal/models"
	"advisory/internal/repository"
)

const reconcilePageLen = 500

// ReconcileService repairs the denormalized relations. The transaction
// log is the source of truth for bought and advisor memberships; the
// investment path writes them best-effort and a crash between writes
// leaves one side behind. RunOnce re-derives the membership sets from
// the log and sweeps expired subscription entries from both sides.
type ReconcileService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Window bounds the log scan; zero means the full log.
	Window  time.Duration
	Retries int
	Timeout time.Duration
}

func (s *ReconcileService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("reconcile run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *ReconcileService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if err := s.rebuildMemberships(ctx); err != nil {
		return err
	}
	return s.sweepSubscriptions(ctx)
}

type membershipSets struct {
	clientPlans    map[uint64]map[uint64]struct{}
	clientAdvisors map[uint64]map[uint64]struct{}
	planClients    map[uint64]map[uint64]struct{}
	advisorClients map[uint64]map[uint64]struct{}
}

// rebuildMemberships scans the transaction log and re-adds every
// membership reference the log proves. It only ever adds; removal
// would need evidence a transaction never existed.
func (s *ReconcileService) rebuildMemberships(ctx context.Context) error {
	sets := membershipSets{
		clientPlans:    map[uint64]map[uint64]struct{}{},
		clientAdvisors: map[uint64]map[uint64]struct{}{},
		planClients:    map[uint64]map[uint64]struct{}{},
		advisorClients: map[uint64]map[uint64]struct{}{},
	}

	params := repository.ListTransactionsParams{Limit: reconcilePageLen}
	if s.Window > 0 {
		since := time.Now().UTC().Add(-s.Window)
		params.Since = &since
	}
	for {
		page, err := s.Repo.ListTransactions(ctx, params)
		if err != nil {
			return err
		}
		for i := range page {
			tx := &page[i]
			addMember(sets.clientPlans, tx.ClientID, tx.PlanID)
			addMember(sets.clientAdvisors, tx.ClientID, tx.AdvisorID)
			addMember(sets.planClients, tx.PlanID, tx.ClientID)
			addMember(sets.advisorClients, tx.AdvisorID, tx.ClientID)
		}
		if len(page) < params.Limit {
			break
		}
		params.Offset += params.Limit
	}

	repaired := 0
	for clientID := range sets.clientPlans {
		planIDs := sets.clientPlans[clientID]
		advisorIDs := sets.clientAdvisors[clientID]
		_, err := ledger.UpdateClient(ctx, s.Repo, s.Retries, s.Timeout, clientID, func(c *models.Client) error {
			changed := false
			for id := range planIDs {
				if !models.ContainsID(c.BoughtPlanIDs, id) {
					c.BoughtPlanIDs = append(c.BoughtPlanIDs, id)
					changed = true
				}
			}
			for id := range advisorIDs {
				if !models.ContainsID(c.AdvisorIDs, id) {
					c.AdvisorIDs = append(c.AdvisorIDs, id)
					changed = true
				}
			}
			if !changed {
				return ledger.ErrSkipSave
			}
			return nil
		})
		if err != nil {
			s.warn("client membership repair failed", clientID, err)
			continue
		}
		repaired++
	}

	for planID, clientIDs := range sets.planClients {
		_, err := ledger.UpdatePlan(ctx, s.Repo, s.Retries, s.Timeout, planID, func(p *models.Plan) error {
			changed := false
			for id := range clientIDs {
				if !models.ContainsID(p.BoughtClientIDs, id) {
					p.BoughtClientIDs = append(p.BoughtClientIDs, id)
					changed = true
				}
			}
			if !changed {
				return ledger.ErrSkipSave
			}
			return nil
		})
		if err != nil {
			s.warn("plan membership repair failed", planID, err)
		}
	}

	for advisorID, clientIDs := range sets.advisorClients {
		_, err := ledger.UpdateAdvisor(ctx, s.Repo, s.Retries, s.Timeout, advisorID, func(a *models.Advisor) error {
			changed := false
			for id := range clientIDs {
				if !models.ContainsID(a.ClientIDs, id) {
					a.ClientIDs = append(a.ClientIDs, id)
					changed = true
				}
			}
			if !changed {
				return ledger.ErrSkipSave
			}
			return nil
		})
		if err != nil {
			s.warn("advisor membership repair failed", advisorID, err)
		}
	}

	if s.Logger != nil {
		s.Logger.Info("membership reconcile complete", zap.Int("clients_seen", repaired))
	}
	return nil
}

// sweepSubscriptions prunes expired entries from every plan and client.
func (s *ReconcileService) sweepSubscriptions(ctx context.Context) error {
	now := time.Now().UTC()

	for offset := 0; ; offset += reconcilePageLen {
		plans, err := s.Repo.ListPlans(ctx, repository.ListPlansParams{Limit: reconcilePageLen, Offset: offset, OrderBy: "id", Asc: ptr(true)})
		if err != nil {
			return err
		}
		for i := range plans {
			if !hasExpired(plans[i].SubscribedClients, now) {
				continue
			}
			_, err := ledger.UpdatePlan(ctx, s.Repo, s.Retries, s.Timeout, plans[i].ID, func(p *models.Plan) error {
				next := keepActive(p.SubscribedClients, now)
				if len(next) == len(p.SubscribedClients) {
					return ledger.ErrSkipSave
				}
				p.SubscribedClients = next
				return nil
			})
			if err != nil {
				s.warn("plan subscription sweep failed", plans[i].ID, err)
			}
		}
		if len(plans) < reconcilePageLen {
			break
		}
	}

	for offset := 0; ; offset += reconcilePageLen {
		clients, err := s.Repo.ListClients(ctx, reconcilePageLen, offset)
		if err != nil {
			return err
		}
		for i := range clients {
			if !hasExpired(clients[i].SubscribedPlans, now) {
				continue
			}
			_, err := ledger.UpdateClient(ctx, s.Repo, s.Retries, s.Timeout, clients[i].ID, func(c *models.Client) error {
				next := keepActive(c.SubscribedPlans, now)
				if len(next) == len(c.SubscribedPlans) {
					return ledger.ErrSkipSave
				}
				c.SubscribedPlans = next
				return nil
			})
			if err != nil {
				s.warn("client subscription sweep failed", clients[i].ID, err)
			}
		}
		if len(clients) < reconcilePageLen {
			break
		}
	}

	return nil
}

func (s *ReconcileService) warn(msg string, id uint64, err error) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.Uint64("id", id), zap.Error(err))
	}
}

func addMember(m map[uint64]map[uint64]struct{}, key, member uint64) {
	set, ok := m[key]
	if !ok {
		set = map[uint64]struct{}{}
		m[key] = set
	}
	set[member] = struct{}{}
}

func hasExpired(entries []models.SubscriptionEntry, now time.Time) bool {
	for _, e := range entries {
		if !e.Active(now) {
			return true
		}
	}
	return false
}

func keepActive(entries []models.SubscriptionEntry, now time.Time) []models.SubscriptionEntry {
	kept := make([]models.SubscriptionEntry, 0, len(entries))
	for _, e := range entries {
		if e.Active(now) {
			kept = append(kept, e)
		}
	}
	return kept
}

func ptr[T any](v T) *T { return &v }
