package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"advisory/internal/cache"
	"advisory/internal/ledger"
	"advisory/internal/models"
	"advisory/internal/repository"
	"advisory/internal/returns"
)

const (
	analyticsDefaultTTL  = 5 * time.Minute
	analyticsScanPageLen = 500
)

// AnalyticsService computes advisor dashboards and client portfolio
// views from the transaction log. Results are cached per entity; the
// investment path invalidates on write.
type AnalyticsService struct {
	Repo   repository.Repository
	Agg    *returns.Aggregator
	Cache  *cache.Cache
	Logger *zap.Logger
	TTL    time.Duration
}

type AdvisorTotals struct {
	TotalClients  int64           `json:"total_clients"`
	TotalPlans    int64           `json:"total_plans"`
	TotalSold     int64           `json:"total_sold"`
	TotalInvested decimal.Decimal `json:"total_invested"`
}

// SoldDistribution splits the advisor's sold plans and gathered amounts
// between the free and premium tiers.
type SoldDistribution struct {
	FreeCount       int64           `json:"free_count"`
	PremiumCount    int64           `json:"premium_count"`
	FreeInvested    decimal.Decimal `json:"free_invested"`
	PremiumInvested decimal.Decimal `json:"premium_invested"`
}

// Portfolio is a client's investment view: the per-transaction profit
// rows plus the rolled-up summary.
type Portfolio struct {
	Summary returns.Summary      `json:"summary"`
	Items   []returns.PlanProfit `json:"items"`
}

func (s *AnalyticsService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return analyticsDefaultTTL
}

func advisorKey(advisorID uint64, section string) string {
	return fmt.Sprintf("analytics:advisor:%d:%s", advisorID, section)
}

func clientKey(clientID uint64, section string) string {
	return fmt.Sprintf("analytics:client:%d:%s", clientID, section)
}

// scanTransactions pages through every transaction matching params and
// feeds each page to fn.
func (s *AnalyticsService) scanTransactions(ctx context.Context, params repository.ListTransactionsParams, fn func([]models.Transaction)) error {
	params.Limit = analyticsScanPageLen
	params.Offset = 0
	for {
		page, err := s.Repo.ListTransactions(ctx, params)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		fn(page)
		if len(page) < params.Limit {
			return nil
		}
		params.Offset += params.Limit
	}
}

// Totals returns the advisor's headline counters.
func (s *AnalyticsService) Totals(ctx context.Context, advisorID uint64) (AdvisorTotals, error) {
	return cache.GetOrSet(ctx, s.Cache, advisorKey(advisorID, "totals"), s.ttl(), func() (AdvisorTotals, error) {
		advisor, err := s.Repo.GetAdvisorByID(ctx, advisorID)
		if err != nil {
			return AdvisorTotals{}, err
		}
		if advisor == nil {
			return AdvisorTotals{}, ledger.NotFound("advisor")
		}

		totals := AdvisorTotals{TotalClients: int64(len(advisor.ClientIDs))}

		totals.TotalPlans, err = s.Repo.CountPlans(ctx, repository.ListPlansParams{AdvisorID: &advisorID})
		if err != nil {
			return AdvisorTotals{}, err
		}
		totals.TotalSold, err = s.Repo.CountTransactions(ctx, repository.ListTransactionsParams{AdvisorID: &advisorID})
		if err != nil {
			return AdvisorTotals{}, err
		}
		err = s.scanTransactions(ctx, repository.ListTransactionsParams{AdvisorID: &advisorID}, func(page []models.Transaction) {
			for i := range page {
				totals.TotalInvested = totals.TotalInvested.Add(page[i].InvestedAmount)
			}
		})
		if err != nil {
			return AdvisorTotals{}, err
		}
		return totals, nil
	})
}

// Distribution returns the advisor's free vs premium sold split, by
// count and by invested amount.
func (s *AnalyticsService) Distribution(ctx context.Context, advisorID uint64) (SoldDistribution, error) {
	return cache.GetOrSet(ctx, s.Cache, advisorKey(advisorID, "distribution"), s.ttl(), func() (SoldDistribution, error) {
		var dist SoldDistribution
		err := s.scanTransactions(ctx, repository.ListTransactionsParams{AdvisorID: &advisorID}, func(page []models.Transaction) {
			for i := range page {
				if page[i].IsPremium {
					dist.PremiumCount++
					dist.PremiumInvested = dist.PremiumInvested.Add(page[i].InvestedAmount)
				} else {
					dist.FreeCount++
					dist.FreeInvested = dist.FreeInvested.Add(page[i].InvestedAmount)
				}
			}
		})
		if err != nil {
			return SoldDistribution{}, err
		}
		return dist, nil
	})
}

// MonthlySold returns month-wise free and premium sold counts.
func (s *AnalyticsService) MonthlySold(ctx context.Context, advisorID uint64) ([]repository.MonthlySoldRow, error) {
	return cache.GetOrSet(ctx, s.Cache, advisorKey(advisorID, "monthly"), s.ttl(), func() ([]repository.MonthlySoldRow, error) {
		return s.Repo.MonthlySoldCounts(ctx, advisorID)
	})
}

// TopInvestors ranks the advisor's clients. by is "plans" for distinct
// plans bought or "amount" for total invested.
func (s *AnalyticsService) TopInvestors(ctx context.Context, advisorID uint64, by string, limit int) ([]repository.TopInvestorRow, error) {
	switch by {
	case "", "plans":
		return cache.GetOrSet(ctx, s.Cache, advisorKey(advisorID, "top:plans"), s.ttl(), func() ([]repository.TopInvestorRow, error) {
			return s.Repo.TopInvestorsByPlans(ctx, advisorID, limit)
		})
	case "amount":
		return cache.GetOrSet(ctx, s.Cache, advisorKey(advisorID, "top:amount"), s.ttl(), func() ([]repository.TopInvestorRow, error) {
			return s.Repo.TopInvestorsByAmount(ctx, advisorID, limit)
		})
	default:
		return nil, ledger.BadRequest("unknown ranking: " + by)
	}
}

// AdvisorReturns estimates profit over everything sold by the advisor.
func (s *AnalyticsService) AdvisorReturns(ctx context.Context, advisorID uint64) (returns.Summary, error) {
	return cache.GetOrSet(ctx, s.Cache, advisorKey(advisorID, "returns"), s.ttl(), func() (returns.Summary, error) {
		var summary returns.Summary
		err := s.scanTransactions(ctx, repository.ListTransactionsParams{AdvisorID: &advisorID}, func(page []models.Transaction) {
			part := s.Agg.Aggregate(page)
			summary.TotalInvested = summary.TotalInvested.Add(part.TotalInvested)
			summary.TotalProfit = summary.TotalProfit.Add(part.TotalProfit)
		})
		if err != nil {
			return returns.Summary{}, err
		}
		summary.TotalReturn = summary.TotalInvested.Add(summary.TotalProfit)
		return summary, nil
	})
}

// ClientPortfolio estimates per-transaction and total returns for one
// client's investments.
func (s *AnalyticsService) ClientPortfolio(ctx context.Context, clientID uint64) (Portfolio, error) {
	return cache.GetOrSet(ctx, s.Cache, clientKey(clientID, "portfolio"), s.ttl(), func() (Portfolio, error) {
		client, err := s.Repo.GetClientByID(ctx, clientID)
		if err != nil {
			return Portfolio{}, err
		}
		if client == nil {
			return Portfolio{}, ledger.ErrClientNotRegistered
		}

		var p Portfolio
		err = s.scanTransactions(ctx, repository.ListTransactionsParams{ClientID: &clientID}, func(page []models.Transaction) {
			p.Items = append(p.Items, s.Agg.PerTransaction(page)...)
		})
		if err != nil {
			return Portfolio{}, err
		}
		for i := range p.Items {
			p.Summary.TotalInvested = p.Summary.TotalInvested.Add(p.Items[i].Invested)
			p.Summary.TotalProfit = p.Summary.TotalProfit.Add(p.Items[i].Profit)
		}
		p.Summary.TotalReturn = p.Summary.TotalInvested.Add(p.Summary.TotalProfit)
		return p, nil
	})
}

// Invalidate drops the cached analytics touched by a new investment.
func (s *AnalyticsService) Invalidate(ctx context.Context, advisorID, clientID uint64) {
	err := s.Cache.Delete(ctx,
		advisorKey(advisorID, "totals"),
		advisorKey(advisorID, "distribution"),
		advisorKey(advisorID, "monthly"),
		advisorKey(advisorID, "top:plans"),
		advisorKey(advisorID, "top:amount"),
		advisorKey(advisorID, "returns"),
		clientKey(clientID, "portfolio"),
	)
	if err != nil && s.Logger != nil {
		s.Logger.Warn("analytics cache invalidation failed",
			zap.Uint64("advisor_id", advisorID),
			zap.Uint64("client_id", clientID),
			zap.Error(err),
		)
	}
}
