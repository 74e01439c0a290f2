package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"advisory/internal/ledger"
	"advisory/internal/models"
	"advisory/internal/notify"
	"advisory/internal/repository"
)

// PlanService covers the advisor-facing plan lifecycle and the
// client-facing catalog views.
type PlanService struct {
	Repo     repository.Repository
	Subs     *ledger.SubscriptionLedger
	Notifier notify.Notifier
	Logger   *zap.Logger

	Retries int
	Timeout time.Duration
}

// PlanView is a catalog row decorated for one viewing client.
type PlanView struct {
	models.Plan
	AdvisorName  string `json:"advisor_name"`
	IsSubscribed bool   `json:"is_subscribed"`
	IsBought     bool   `json:"is_bought"`
}

// Create validates the basket and stores a new plan for the advisor.
func (s *PlanService) Create(ctx context.Context, advisorID uint64, name string, isPremium bool, edits []models.HoldingEdit) (*models.Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ledger.BadRequest("plan name is required")
	}

	advisor, err := s.Repo.GetAdvisorByID(ctx, advisorID)
	if err != nil {
		return nil, err
	}
	if advisor == nil {
		return nil, ledger.NotFound("advisor")
	}

	stocks, err := ledger.MergeHoldings(nil, edits)
	if err != nil {
		return nil, err
	}

	plan := &models.Plan{
		AdvisorID: advisorID,
		PlanName:  name,
		IsPremium: isPremium,
		IsActive:  true,
		Stocks:    stocks,
	}
	if err := s.Repo.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("plan created",
			zap.Uint64("plan_id", plan.ID),
			zap.Uint64("advisor_id", advisorID),
			zap.Bool("is_premium", isPremium),
		)
	}
	return plan, nil
}

// EditBasket merges the proposed holdings into the plan's basket and
// notifies the plan's audience. Only the owning advisor may edit.
func (s *PlanService) EditBasket(ctx context.Context, advisorID, planID uint64, edits []models.HoldingEdit) (*models.Plan, error) {
	if len(edits) == 0 {
		return nil, ledger.BadRequest("at least one holding is required")
	}

	plan, err := ledger.UpdatePlan(ctx, s.Repo, s.Retries, s.Timeout, planID, func(p *models.Plan) error {
		if p.AdvisorID != advisorID {
			return ledger.BadRequest("plan belongs to another advisor")
		}
		stocks, err := ledger.MergeHoldings(p.Stocks, edits)
		if err != nil {
			return err
		}
		p.Stocks = stocks
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAudience(plan, fmt.Sprintf("The plan %s has been rebalanced by your advisor", plan.PlanName))
	return plan, nil
}

// Toggle flips the plan's active flag and returns the updated plan.
func (s *PlanService) Toggle(ctx context.Context, advisorID, planID uint64) (*models.Plan, error) {
	plan, err := ledger.UpdatePlan(ctx, s.Repo, s.Retries, s.Timeout, planID, func(p *models.Plan) error {
		if p.AdvisorID != advisorID {
			return ledger.BadRequest("plan belongs to another advisor")
		}
		p.IsActive = !p.IsActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("plan toggled",
			zap.Uint64("plan_id", planID),
			zap.Bool("is_active", plan.IsActive),
		)
	}
	return plan, nil
}

// notifyAudience fans a message out to the plan's active subscribers
// for premium plans, or to its bought clients for free plans.
func (s *PlanService) notifyAudience(plan *models.Plan, message string) {
	if s.Notifier == nil || plan == nil {
		return
	}
	var recipients []uint64
	if plan.IsPremium {
		now := time.Now().UTC()
		for _, e := range plan.SubscribedClients {
			if e.Active(now) {
				recipients = append(recipients, e.ID)
			}
		}
	} else {
		recipients = plan.BoughtClientIDs
	}
	s.Notifier.Notify(message, plan.AdvisorID, recipients)
}

// ListByAdvisor returns the advisor's plans, newest first by default.
func (s *PlanService) ListByAdvisor(ctx context.Context, advisorID uint64, params repository.ListPlansParams) ([]models.Plan, error) {
	params.AdvisorID = &advisorID
	return s.Repo.ListPlans(ctx, params)
}

// TopPlans returns the advisor's plans ranked by bought count.
func (s *PlanService) TopPlans(ctx context.Context, advisorID uint64, limit int) ([]models.Plan, error) {
	return s.Repo.ListTopPlansByBought(ctx, advisorID, limit)
}

// Browse returns active plans decorated with the viewing client's
// subscription and purchase state. Expired subscription entries are
// pruned from both sides before the flags are computed.
func (s *PlanService) Browse(ctx context.Context, clientID uint64, params repository.ListPlansParams) ([]PlanView, error) {
	client, err := s.Repo.GetClientByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ledger.ErrClientNotRegistered
	}

	activePlans := map[uint64]bool{}
	if s.Subs != nil {
		plans, err := s.Subs.PruneExpired(ctx, clientID)
		if err != nil {
			return nil, err
		}
		for _, p := range plans {
			activePlans[p.ID] = true
		}
	}

	active := true
	params.IsActive = &active
	plans, err := s.Repo.ListPlans(ctx, params)
	if err != nil {
		return nil, err
	}

	advisorNames, err := s.advisorNames(ctx, plans)
	if err != nil {
		return nil, err
	}

	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, PlanView{
			Plan:         p,
			AdvisorName:  advisorNames[p.AdvisorID],
			IsSubscribed: activePlans[p.ID],
			IsBought:     models.ContainsID(p.BoughtClientIDs, clientID),
		})
	}
	return views, nil
}

func (s *PlanService) advisorNames(ctx context.Context, plans []models.Plan) (map[uint64]string, error) {
	ids := make([]uint64, 0, len(plans))
	seen := map[uint64]struct{}{}
	for _, p := range plans {
		if _, ok := seen[p.AdvisorID]; ok {
			continue
		}
		seen[p.AdvisorID] = struct{}{}
		ids = append(ids, p.AdvisorID)
	}
	if len(ids) == 0 {
		return map[uint64]string{}, nil
	}
	advisors, err := s.Repo.ListAdvisorsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint64]string, len(advisors))
	for _, a := range advisors {
		names[a.ID] = a.Name
	}
	return names, nil
}
