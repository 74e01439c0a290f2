package service

import (
	"context"
	"sort"

	"advisory/internal/models"
	"advisory/internal/repository"
)

// stubRepo is a test-only in-memory implementation of
// repository.Repository with the same version compare-and-swap
// behavior as the real store.
type stubRepo struct {
	advisors      map[uint64]models.Advisor
	clients       map[uint64]models.Client
	plans         map[uint64]models.Plan
	transactions  []models.Transaction
	notifications []models.Notification

	nextID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		advisors: map[uint64]models.Advisor{},
		clients:  map[uint64]models.Client{},
		plans:    map[uint64]models.Plan{},
	}
}

func (s *stubRepo) nextSeq() uint64 {
	s.nextID++
	return s.nextID
}

func cloneAdvisor(a models.Advisor) models.Advisor {
	a.ClientIDs = append([]uint64(nil), a.ClientIDs...)
	return a
}

func cloneClient(c models.Client) models.Client {
	c.BoughtPlanIDs = append([]uint64(nil), c.BoughtPlanIDs...)
	c.SubscribedPlans = append([]models.SubscriptionEntry(nil), c.SubscribedPlans...)
	c.AdvisorIDs = append([]uint64(nil), c.AdvisorIDs...)
	c.PlanData = append([]models.PlanPosition(nil), c.PlanData...)
	return c
}

func clonePlan(p models.Plan) models.Plan {
	p.Stocks = append([]models.Holding(nil), p.Stocks...)
	p.BoughtClientIDs = append([]uint64(nil), p.BoughtClientIDs...)
	p.SubscribedClients = append([]models.SubscriptionEntry(nil), p.SubscribedClients...)
	return p
}

func (s *stubRepo) CreateAdvisor(ctx context.Context, item *models.Advisor) error {
	if item.ID == 0 {
		item.ID = s.nextSeq()
	}
	s.advisors[item.ID] = cloneAdvisor(*item)
	return nil
}

func (s *stubRepo) GetAdvisorByID(ctx context.Context, id uint64) (*models.Advisor, error) {
	a, ok := s.advisors[id]
	if !ok {
		return nil, nil
	}
	out := cloneAdvisor(a)
	return &out, nil
}

func (s *stubRepo) ListAdvisorsByIDs(ctx context.Context, ids []uint64) ([]models.Advisor, error) {
	var out []models.Advisor
	for _, id := range ids {
		if a, ok := s.advisors[id]; ok {
			out = append(out, cloneAdvisor(a))
		}
	}
	return out, nil
}

func (s *stubRepo) SaveAdvisor(ctx context.Context, item *models.Advisor) error {
	stored, ok := s.advisors[item.ID]
	if !ok || stored.Version != item.Version {
		return repository.ErrVersionConflict
	}
	item.Version++
	s.advisors[item.ID] = cloneAdvisor(*item)
	return nil
}

func (s *stubRepo) CreateClient(ctx context.Context, item *models.Client) error {
	if item.ID == 0 {
		item.ID = s.nextSeq()
	}
	s.clients[item.ID] = cloneClient(*item)
	return nil
}

func (s *stubRepo) GetClientByID(ctx context.Context, id uint64) (*models.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	out := cloneClient(c)
	return &out, nil
}

func (s *stubRepo) ListClients(ctx context.Context, limit, offset int) ([]models.Client, error) {
	ids := make([]uint64, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []models.Client
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneClient(s.clients[id]))
	}
	return out, nil
}

func (s *stubRepo) ListClientsByIDs(ctx context.Context, ids []uint64) ([]models.Client, error) {
	var out []models.Client
	for _, id := range ids {
		if c, ok := s.clients[id]; ok {
			out = append(out, cloneClient(c))
		}
	}
	return out, nil
}

func (s *stubRepo) SaveClient(ctx context.Context, item *models.Client) error {
	stored, ok := s.clients[item.ID]
	if !ok || stored.Version != item.Version {
		return repository.ErrVersionConflict
	}
	item.Version++
	s.clients[item.ID] = cloneClient(*item)
	return nil
}

func (s *stubRepo) CreatePlan(ctx context.Context, item *models.Plan) error {
	if item.ID == 0 {
		item.ID = s.nextSeq()
	}
	s.plans[item.ID] = clonePlan(*item)
	return nil
}

func (s *stubRepo) GetPlanByID(ctx context.Context, id uint64) (*models.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	out := clonePlan(p)
	return &out, nil
}

func (s *stubRepo) ListPlans(ctx context.Context, params repository.ListPlansParams) ([]models.Plan, error) {
	ids := make([]uint64, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []models.Plan
	for _, id := range ids {
		p := s.plans[id]
		if params.AdvisorID != nil && p.AdvisorID != *params.AdvisorID {
			continue
		}
		if params.IsPremium != nil && p.IsPremium != *params.IsPremium {
			continue
		}
		if params.IsActive != nil && p.IsActive != *params.IsActive {
			continue
		}
		out = append(out, clonePlan(p))
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountPlans(ctx context.Context, params repository.ListPlansParams) (int64, error) {
	params.Limit = 0
	params.Offset = 0
	items, err := s.ListPlans(ctx, params)
	return int64(len(items)), err
}

func (s *stubRepo) ListPlansByIDs(ctx context.Context, ids []uint64) ([]models.Plan, error) {
	var out []models.Plan
	for _, id := range ids {
		if p, ok := s.plans[id]; ok {
			out = append(out, clonePlan(p))
		}
	}
	return out, nil
}

func (s *stubRepo) ListTopPlansByBought(ctx context.Context, advisorID uint64, limit int) ([]models.Plan, error) {
	items, err := s.ListPlans(ctx, repository.ListPlansParams{AdvisorID: &advisorID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return len(items[i].BoughtClientIDs) > len(items[j].BoughtClientIDs)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *stubRepo) SavePlan(ctx context.Context, item *models.Plan) error {
	stored, ok := s.plans[item.ID]
	if !ok || stored.Version != item.Version {
		return repository.ErrVersionConflict
	}
	item.Version++
	s.plans[item.ID] = clonePlan(*item)
	return nil
}

func (s *stubRepo) InsertTransaction(ctx context.Context, item *models.Transaction) error {
	if item.ID == 0 {
		item.ID = s.nextSeq()
	}
	s.transactions = append(s.transactions, *item)
	return nil
}

func (s *stubRepo) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range s.transactions {
		if params.AdvisorID != nil && tx.AdvisorID != *params.AdvisorID {
			continue
		}
		if params.ClientID != nil && tx.ClientID != *params.ClientID {
			continue
		}
		if params.PlanID != nil && tx.PlanID != *params.PlanID {
			continue
		}
		if params.Since != nil && tx.Date.Before(*params.Since) {
			continue
		}
		out = append(out, tx)
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *stubRepo) CountTransactions(ctx context.Context, params repository.ListTransactionsParams) (int64, error) {
	params.Limit = 0
	params.Offset = 0
	items, err := s.ListTransactions(ctx, params)
	return int64(len(items)), err
}

func (s *stubRepo) MonthlySoldCounts(ctx context.Context, advisorID uint64) ([]repository.MonthlySoldRow, error) {
	counts := map[[2]int]*repository.MonthlySoldRow{}
	for _, tx := range s.transactions {
		if tx.AdvisorID != advisorID {
			continue
		}
		key := [2]int{tx.Date.Year(), int(tx.Date.Month())}
		row, ok := counts[key]
		if !ok {
			row = &repository.MonthlySoldRow{Year: key[0], Month: key[1]}
			counts[key] = row
		}
		if tx.IsPremium {
			row.Premium++
		} else {
			row.Free++
		}
	}
	var out []repository.MonthlySoldRow
	for _, row := range counts {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *stubRepo) TopInvestorsByPlans(ctx context.Context, advisorID uint64, limit int) ([]repository.TopInvestorRow, error) {
	return nil, nil
}

func (s *stubRepo) TopInvestorsByAmount(ctx context.Context, advisorID uint64, limit int) ([]repository.TopInvestorRow, error) {
	return nil, nil
}

func (s *stubRepo) InsertNotification(ctx context.Context, item *models.Notification) error {
	if item.ID == 0 {
		item.ID = s.nextSeq()
	}
	s.notifications = append(s.notifications, *item)
	return nil
}

func (s *stubRepo) ListNotificationsByRecipient(ctx context.Context, recipientID uint64, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

// recordingNotifier captures notifications synchronously for asserts.
type recordingNotifier struct {
	messages   []string
	senders    []uint64
	recipients [][]uint64
}

func (n *recordingNotifier) Notify(message string, senderID uint64, recipientIDs []uint64) {
	n.messages = append(n.messages, message)
	n.senders = append(n.senders, senderID)
	n.recipients = append(n.recipients, recipientIDs)
}
