package service

import (
	"context"
	"time"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/cache"
	"procurement-backend/internal/model"

	"gorm.io/gorm"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type SupplierRanking struct {
	SupplierID   string  `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	TotalValue   float64 `json:"total_value"`
	PaymentCount int64   `json:"payment_count"`
}

type DashboardResponse struct {
	TimeRangeStartDate  time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate    time.Time         `json:"time_range_end_date"`
	SuppliersByStatus   []StatusCount     `json:"suppliers_by_status"`
	ContractsByStatus   []StatusCount     `json:"contracts_by_status"`
	PaymentsByStatus    []StatusCount     `json:"payments_by_status"`
	TotalContractValue  float64           `json:"total_contract_value"`
	TotalPaidAmount     float64           `json:"total_paid_amount"`
	TotalPendingAmount  float64           `json:"total_pending_amount"`
	TopSuppliersByValue []SupplierRanking `json:"top_suppliers_by_value"`
	ExpiringContracts   int64             `json:"expiring_contracts"`
}

type StatisticsService interface {
	GetDashboard(ctx context.Context, principal *auth.Principal, startDate, endDate time.Time) (DashboardResponse, error)
}

type statisticsService struct {
	db          *gorm.DB
	permService PermissionService
	cache       *cache.Store
}

func NewStatisticsService(db *gorm.DB, permService PermissionService, cacheStore *cache.Store) StatisticsService {
	return &statisticsService{db: db, permService: permService, cache: cacheStore}
}

// GetDashboard aggregates lifecycle metrics across the date bracket.
// Dashboard reads are manager-level.
func (s *statisticsService) GetDashboard(ctx context.Context, principal *auth.Principal, startDate, endDate time.Time) (DashboardResponse, error) {
	if err := s.permService.CheckRole(principal, approverRoles, "statistics.read"); err != nil {
		return DashboardResponse{}, err
	}

	key := cache.ListKey("dashboard", 1, 1, map[string]string{
		"start": startDate.Format("2006-01-02"),
		"end":   endDate.Format("2006-01-02"),
	})
	var cached DashboardResponse
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	var response DashboardResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	db := s.db.WithContext(ctx)

	var supplierCounts []StatusCount
	db.Model(&model.Supplier{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&supplierCounts)
	response.SuppliersByStatus = supplierCounts

	var contractCounts []StatusCount
	db.Model(&model.Contract{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&contractCounts)
	response.ContractsByStatus = contractCounts

	var paymentCounts []StatusCount
	db.Model(&model.Payment{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&paymentCounts)
	response.PaymentsByStatus = paymentCounts

	var contractValue struct {
		Value float64
	}
	db.Model(&model.Contract{}).
		Select("COALESCE(SUM(value), 0) as value").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.ContractStatusActive, startDate, endDate).
		Scan(&contractValue)
	response.TotalContractValue = contractValue.Value

	var paidAmount struct {
		Value float64
	}
	db.Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0) as value").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.PaymentStatusPaid, startDate, endDate).
		Scan(&paidAmount)
	response.TotalPaidAmount = paidAmount.Value

	var pendingAmount struct {
		Value float64
	}
	db.Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0) as value").
		Where("status IN ? AND created_at >= ? AND created_at <= ?", []string{model.PaymentStatusPending, model.PaymentStatusApproved}, startDate, endDate).
		Scan(&pendingAmount)
	response.TotalPendingAmount = pendingAmount.Value

	var topSuppliers []SupplierRanking
	db.Table("payments").
		Select("suppliers.id as supplier_id, suppliers.name as supplier_name, SUM(payments.amount) as total_value, COUNT(payments.id) as payment_count").
		Joins("JOIN suppliers ON suppliers.id = payments.supplier_id").
		Where("payments.status = ? AND payments.created_at >= ? AND payments.created_at <= ? AND payments.deleted_at IS NULL", model.PaymentStatusPaid, startDate, endDate).
		Group("suppliers.id, suppliers.name").
		Order("total_value DESC").
		Limit(5).
		Scan(&topSuppliers)
	response.TopSuppliersByValue = topSuppliers

	// Contracts ending within 30 days of the bracket end
	db.Model(&model.Contract{}).
		Where("status = ? AND end_date >= ? AND end_date <= ?", model.ContractStatusActive, endDate, endDate.AddDate(0, 0, 30)).
		Count(&response.ExpiringContracts)

	s.cache.Set(ctx, key, response, cache.ListTTL)
	return response, nil
}
