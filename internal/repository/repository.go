package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"advisory/internal/models"
)

// ErrVersionConflict is returned by the Save* methods when the record
// was modified since it was read. Callers reload and retry.
var ErrVersionConflict = errors.New("version conflict")

type ListPlansParams struct {
	Limit     int
	Offset    int
	AdvisorID *uint64
	IsPremium *bool
	IsActive  *bool
	OrderBy   string
	Asc       *bool
}

type ListTransactionsParams struct {
	Limit     int
	Offset    int
	AdvisorID *uint64
	ClientID  *uint64
	PlanID    *uint64
	Since     *time.Time
}

// MonthlySoldRow is the month-wise free vs premium sold count for one
// advisor.
type MonthlySoldRow struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Free    int64 `json:"free"`
	Premium int64 `json:"premium"`
}

// TopInvestorRow ranks a client by distinct plans bought and total
// amount invested through one advisor.
type TopInvestorRow struct {
	ClientID         uint64          `json:"client_id"`
	ClientName       string          `json:"client_name"`
	UniquePlansCount int64           `json:"unique_plans_count"`
	TotalInvested    decimal.Decimal `json:"total_invested"`
}

type Repository interface {
	// Advisors
	CreateAdvisor(ctx context.Context, item *models.Advisor) error
	GetAdvisorByID(ctx context.Context, id uint64) (*models.Advisor, error)
	ListAdvisorsByIDs(ctx context.Context, ids []uint64) ([]models.Advisor, error)
	SaveAdvisor(ctx context.Context, item *models.Advisor) error

	// Clients
	CreateClient(ctx context.Context, item *models.Client) error
	GetClientByID(ctx context.Context, id uint64) (*models.Client, error)
	ListClients(ctx context.Context, limit, offset int) ([]models.Client, error)
	ListClientsByIDs(ctx context.Context, ids []uint64) ([]models.Client, error)
	SaveClient(ctx context.Context, item *models.Client) error

	// Plans
	CreatePlan(ctx context.Context, item *models.Plan) error
	GetPlanByID(ctx context.Context, id uint64) (*models.Plan, error)
	ListPlans(ctx context.Context, params ListPlansParams) ([]models.Plan, error)
	CountPlans(ctx context.Context, params ListPlansParams) (int64, error)
	ListPlansByIDs(ctx context.Context, ids []uint64) ([]models.Plan, error)
	ListTopPlansByBought(ctx context.Context, advisorID uint64, limit int) ([]models.Plan, error)
	SavePlan(ctx context.Context, item *models.Plan) error

	// Transactions (append-only)
	InsertTransaction(ctx context.Context, item *models.Transaction) error
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]models.Transaction, error)
	CountTransactions(ctx context.Context, params ListTransactionsParams) (int64, error)
	MonthlySoldCounts(ctx context.Context, advisorID uint64) ([]MonthlySoldRow, error)
	TopInvestorsByPlans(ctx context.Context, advisorID uint64, limit int) ([]TopInvestorRow, error)
	TopInvestorsByAmount(ctx context.Context, advisorID uint64, limit int) ([]TopInvestorRow, error)

	// Notifications
	InsertNotification(ctx context.Context, item *models.Notification) error
	ListNotificationsByRecipient(ctx context.Context, recipientID uint64, limit int) ([]models.Notification, error)
}
