package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"advisory/internal/models"
	"advisory/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Advisors ---------------------------------------------------------------

func (s *Store) CreateAdvisor(ctx context.Context, item *models.Advisor) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAdvisorByID(ctx context.Context, id uint64) (*models.Advisor, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Advisor
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAdvisorsByIDs(ctx context.Context, ids []uint64) ([]models.Advisor, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Advisor
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveAdvisor(ctx context.Context, item *models.Advisor) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	prev := item.Version
	res := s.db.WithContext(ctx).Model(&models.Advisor{}).
		Where("id = ? AND version = ?", item.ID, prev).
		Updates(map[string]any{
			"name":       item.Name,
			"client_ids": item.ClientIDs,
			"version":    prev + 1,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrVersionConflict
	}
	item.Version = prev + 1
	return nil
}

// --- Clients ----------------------------------------------------------------

func (s *Store) CreateClient(ctx context.Context, item *models.Client) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetClientByID(ctx context.Context, id uint64) (*models.Client, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Client
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListClients(ctx context.Context, limit, offset int) ([]models.Client, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Client
	err := s.db.WithContext(ctx).
		Order("id asc").
		Limit(normalizeLimit(limit, 200)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListClientsByIDs(ctx context.Context, ids []uint64) ([]models.Client, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Client
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveClient(ctx context.Context, item *models.Client) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	prev := item.Version
	res := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ? AND version = ?", item.ID, prev).
		Updates(map[string]any{
			"name":             item.Name,
			"bought_plan_ids":  item.BoughtPlanIDs,
			"subscribed_plans": item.SubscribedPlans,
			"advisor_ids":      item.AdvisorIDs,
			"plan_data":        item.PlanData,
			"version":          prev + 1,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrVersionConflict
	}
	item.Version = prev + 1
	return nil
}

// --- Plans ------------------------------------------------------------------

func (s *Store) CreatePlan(ctx context.Context, item *models.Plan) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPlanByID(ctx context.Context, id uint64) (*models.Plan, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Plan
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPlans(ctx context.Context, params repository.ListPlansParams) ([]models.Plan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Plan{})
	if params.AdvisorID != nil && *params.AdvisorID > 0 {
		query = query.Where("advisor_id = ?", *params.AdvisorID)
	}
	if params.IsPremium != nil {
		query = query.Where("is_premium = ?", *params.IsPremium)
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Plan
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPlans(ctx context.Context, params repository.ListPlansParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Plan{})
	if params.AdvisorID != nil && *params.AdvisorID > 0 {
		query = query.Where("advisor_id = ?", *params.AdvisorID)
	}
	if params.IsPremium != nil {
		query = query.Where("is_premium = ?", *params.IsPremium)
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListPlansByIDs(ctx context.Context, ids []uint64) ([]models.Plan, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Plan
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTopPlansByBought(ctx context.Context, advisorID uint64, limit int) ([]models.Plan, error) {
	if s == nil || s.db == nil || advisorID == 0 {
		return nil, nil
	}
	var items []models.Plan
	err := s.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("advisor_id = ?", advisorID).
		Where("jsonb_array_length(coalesce(bought_client_ids, '[]'::jsonb)) > 0").
		Order("jsonb_array_length(coalesce(bought_client_ids, '[]'::jsonb)) desc").
		Limit(normalizeLimit(limit, 6)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SavePlan(ctx context.Context, item *models.Plan) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	prev := item.Version
	res := s.db.WithContext(ctx).Model(&models.Plan{}).
		Where("id = ? AND version = ?", item.ID, prev).
		Updates(map[string]any{
			"plan_name":          item.PlanName,
			"is_premium":         item.IsPremium,
			"is_active":          item.IsActive,
			"stocks":             item.Stocks,
			"bought_client_ids":  item.BoughtClientIDs,
			"subscribed_clients": item.SubscribedClients,
			"version":            prev + 1,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrVersionConflict
	}
	item.Version = prev + 1
	return nil
}

// --- Transactions -----------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, item *models.Transaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := transactionsQuery(s.db.WithContext(ctx), params)
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.Transaction
	if err := query.Order("date desc, invested_amount desc").
		Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTransactions(ctx context.Context, params repository.ListTransactionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := transactionsQuery(s.db.WithContext(ctx), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func transactionsQuery(db *gorm.DB, params repository.ListTransactionsParams) *gorm.DB {
	query := db.Model(&models.Transaction{})
	if params.AdvisorID != nil && *params.AdvisorID > 0 {
		query = query.Where("advisor_id = ?", *params.AdvisorID)
	}
	if params.ClientID != nil && *params.ClientID > 0 {
		query = query.Where("client_id = ?", *params.ClientID)
	}
	if params.PlanID != nil && *params.PlanID > 0 {
		query = query.Where("plan_id = ?", *params.PlanID)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("date >= ?", *params.Since)
	}
	return query
}

func (s *Store) MonthlySoldCounts(ctx context.Context, advisorID uint64) ([]repository.MonthlySoldRow, error) {
	if s == nil || s.db == nil || advisorID == 0 {
		return nil, nil
	}
	var rows []repository.MonthlySoldRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			EXTRACT(YEAR FROM date)::int AS year,
			EXTRACT(MONTH FROM date)::int AS month,
			COUNT(*) FILTER (WHERE NOT is_premium) AS free,
			COUNT(*) FILTER (WHERE is_premium) AS premium
		FROM transactions
		WHERE advisor_id = ?
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 DESC`, advisorID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) TopInvestorsByPlans(ctx context.Context, advisorID uint64, limit int) ([]repository.TopInvestorRow, error) {
	return s.topInvestors(ctx, advisorID, limit, "unique_plans_count desc")
}

func (s *Store) TopInvestorsByAmount(ctx context.Context, advisorID uint64, limit int) ([]repository.TopInvestorRow, error) {
	return s.topInvestors(ctx, advisorID, limit, "total_invested desc")
}

func (s *Store) topInvestors(ctx context.Context, advisorID uint64, limit int, order string) ([]repository.TopInvestorRow, error) {
	if s == nil || s.db == nil || advisorID == 0 {
		return nil, nil
	}
	var rows []repository.TopInvestorRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			client_id,
			MAX(client_name) AS client_name,
			COUNT(DISTINCT plan_id) AS unique_plans_count,
			COALESCE(SUM(invested_amount), 0) AS total_invested
		FROM transactions
		WHERE advisor_id = ?
		GROUP BY client_id
		ORDER BY `+order+`
		LIMIT ?`, advisorID, normalizeLimit(limit, 10)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Notifications ----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipientID uint64, limit int) ([]models.Notification, error) {
	if s == nil || s.db == nil || recipientID == 0 {
		return nil, nil
	}
	var items []models.Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, def string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = def
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
