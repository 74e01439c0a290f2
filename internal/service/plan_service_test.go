package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"advisory/internal/ledger"
	"advisory/internal/models"
	"advisory/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newPlanFixture() (*PlanService, *stubRepo, *recordingNotifier) {
	repo := newStubRepo()
	notifier := &recordingNotifier{}
	svc := &PlanService{
		Repo:     repo,
		Notifier: notifier,
		Subs: &ledger.SubscriptionLedger{
			Repo: repo,
			Now:  func() time.Time { return testNow },
		},
	}
	repo.advisors[1] = models.Advisor{ID: 1, Name: "Meera"}
	repo.clients[10] = models.Client{ID: 10, Name: "Arjun"}
	return svc, repo, notifier
}

func TestPlanCreate_ValidatesAndStores(t *testing.T) {
	svc, repo, _ := newPlanFixture()

	plan, err := svc.Create(context.Background(), 1, "  Dividend Kings ", true, []models.HoldingEdit{
		{Symbol: "KO", Qty: dec(10), Price: dec(60)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.PlanName != "Dividend Kings" {
		t.Fatalf("name=%q want trimmed", plan.PlanName)
	}
	if !plan.IsActive || !plan.IsPremium {
		t.Fatalf("flags wrong: %+v", plan)
	}
	if _, ok := repo.plans[plan.ID]; !ok {
		t.Fatalf("plan not stored")
	}

	if _, err := svc.Create(context.Background(), 1, "", false, nil); ledger.KindOf(err) != ledger.KindBadRequest {
		t.Fatalf("empty name: err=%v want bad_request", err)
	}
	if _, err := svc.Create(context.Background(), 9, "X", false, nil); ledger.KindOf(err) != ledger.KindNotFound {
		t.Fatalf("unknown advisor: err=%v want not_found", err)
	}
}

func TestEditBasket_MergesAndNotifiesBoughtClients(t *testing.T) {
	svc, repo, notifier := newPlanFixture()

	repo.plans[100] = models.Plan{
		ID:        100,
		AdvisorID: 1,
		PlanName:  "Blue Chip",
		IsActive:  true,
		Stocks: []models.Holding{
			{Symbol: "AAPL", Qty: dec(10), AvgPrice: dec(100)},
		},
		BoughtClientIDs: []uint64{10, 11},
	}

	plan, err := svc.EditBasket(context.Background(), 1, 100, []models.HoldingEdit{
		{Symbol: "AAPL", Qty: dec(20), Price: dec(150)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Stocks[0].AvgPrice.Cmp(dec(125)) != 0 {
		t.Fatalf("avg=%s want=125", plan.Stocks[0].AvgPrice)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("notifications=%d want=1", len(notifier.messages))
	}
	if got := notifier.recipients[0]; len(got) != 2 || got[0] != 10 || got[1] != 11 {
		t.Fatalf("recipients=%v want=[10 11]", got)
	}
}

func TestEditBasket_PremiumNotifiesActiveSubscribersOnly(t *testing.T) {
	svc, repo, notifier := newPlanFixture()

	repo.plans[100] = models.Plan{
		ID:        100,
		AdvisorID: 1,
		PlanName:  "Premium Growth",
		IsPremium: true,
		IsActive:  true,
		Stocks: []models.Holding{
			{Symbol: "AAPL", Qty: dec(10), AvgPrice: dec(100)},
		},
		BoughtClientIDs: []uint64{99},
		SubscribedClients: []models.SubscriptionEntry{
			{ID: 10, SubscriptionExpires: time.Now().UTC().Add(24 * time.Hour)},
			{ID: 11, SubscriptionExpires: time.Now().UTC().Add(-24 * time.Hour)},
		},
	}

	_, err := svc.EditBasket(context.Background(), 1, 100, []models.HoldingEdit{
		{Symbol: "AAPL", Qty: dec(10), Price: dec(100)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := notifier.recipients[0]; len(got) != 1 || got[0] != 10 {
		t.Fatalf("recipients=%v want=[10]", got)
	}
}

func TestEditBasket_RejectsForeignAdvisor(t *testing.T) {
	svc, repo, _ := newPlanFixture()
	repo.plans[100] = models.Plan{ID: 100, AdvisorID: 2, PlanName: "X", IsActive: true}

	_, err := svc.EditBasket(context.Background(), 1, 100, []models.HoldingEdit{
		{Symbol: "AAPL", Qty: dec(1), Price: dec(1)},
	})
	if ledger.KindOf(err) != ledger.KindBadRequest {
		t.Fatalf("err=%v want bad_request", err)
	}
}

func TestToggle_FlipsActiveFlag(t *testing.T) {
	svc, repo, _ := newPlanFixture()
	repo.plans[100] = models.Plan{ID: 100, AdvisorID: 1, PlanName: "X", IsActive: true}

	plan, err := svc.Toggle(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.IsActive {
		t.Fatalf("want inactive after toggle")
	}
	plan, err = svc.Toggle(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plan.IsActive {
		t.Fatalf("want active after second toggle")
	}
}

func TestBrowse_DecoratesAndPrunes(t *testing.T) {
	svc, repo, _ := newPlanFixture()

	repo.plans[100] = models.Plan{
		ID: 100, AdvisorID: 1, PlanName: "Active Premium", IsPremium: true, IsActive: true,
		SubscribedClients: []models.SubscriptionEntry{
			{ID: 10, SubscriptionDate: testNow.Add(-24 * time.Hour), SubscriptionExpires: testNow.Add(24 * time.Hour)},
		},
	}
	repo.plans[200] = models.Plan{
		ID: 200, AdvisorID: 1, PlanName: "Lapsed Premium", IsPremium: true, IsActive: true,
		SubscribedClients: []models.SubscriptionEntry{
			{ID: 10, SubscriptionDate: testNow.Add(-60 * 24 * time.Hour), SubscriptionExpires: testNow.Add(-30 * 24 * time.Hour)},
		},
	}
	repo.plans[300] = models.Plan{
		ID: 300, AdvisorID: 1, PlanName: "Paused", IsActive: false,
	}
	repo.plans[400] = models.Plan{
		ID: 400, AdvisorID: 1, PlanName: "Free Basket", IsActive: true,
		BoughtClientIDs: []uint64{10},
	}
	client := repo.clients[10]
	client.SubscribedPlans = []models.SubscriptionEntry{
		{ID: 100, SubscriptionDate: testNow.Add(-24 * time.Hour), SubscriptionExpires: testNow.Add(24 * time.Hour)},
		{ID: 200, SubscriptionDate: testNow.Add(-60 * 24 * time.Hour), SubscriptionExpires: testNow.Add(-30 * 24 * time.Hour)},
	}
	repo.clients[10] = client

	views, err := svc.Browse(context.Background(), 10, repository.ListPlansParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("views=%d want=3 (inactive plan hidden)", len(views))
	}
	byID := map[uint64]PlanView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	if !byID[100].IsSubscribed {
		t.Fatalf("plan 100 should be subscribed")
	}
	if byID[200].IsSubscribed {
		t.Fatalf("plan 200 subscription should have lapsed")
	}
	if !byID[400].IsBought {
		t.Fatalf("plan 400 should be bought")
	}
	if byID[100].AdvisorName != "Meera" {
		t.Fatalf("advisor name=%q want=Meera", byID[100].AdvisorName)
	}

	// Lazy prune persisted the cleanup on both sides.
	if len(repo.clients[10].SubscribedPlans) != 1 {
		t.Fatalf("client entries=%d want=1", len(repo.clients[10].SubscribedPlans))
	}
	if len(repo.plans[200].SubscribedClients) != 0 {
		t.Fatalf("plan 200 entries=%d want=0", len(repo.plans[200].SubscribedClients))
	}
}
