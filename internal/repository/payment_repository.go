package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	UpdateStatusIf(id uint, fromStatuses []string, updates map[string]interface{}) (bool, error)
	GetByID(id uint) (*models.Payment, error)
	GetByTransactionNo(transactionNo string) (*models.Payment, error)
	GetLatestByOrderID(orderID uint) (*models.Payment, error)
	GetSuccessByOrderID(orderID uint) (*models.Payment, error)
	ListExpiredPending(cutoff time.Time, limit int) ([]models.Payment, error)
	ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update 更新支付记录
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// UpdateStatusIf 条件状态更新，仅当前状态在 fromStatuses 内才生效。
// 返回是否有行被更新，用于并发回调下的幂等判断。
func (r *GormPaymentRepository) UpdateStatusIf(id uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == 0 || len(fromStatuses) == 0 || len(updates) == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByTransactionNo 根据商户交易号获取支付记录
func (r *GormPaymentRepository) GetByTransactionNo(transactionNo string) (*models.Payment, error) {
	transactionNo = strings.TrimSpace(transactionNo)
	if transactionNo == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("transaction_no = ?", transactionNo).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetLatestByOrderID 获取订单最新支付记录
func (r *GormPaymentRepository) GetLatestByOrderID(orderID uint) (*models.Payment, error) {
	if orderID == 0 {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("order_id = ?", orderID).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetSuccessByOrderID 获取订单已成功的支付记录（含已退款）
func (r *GormPaymentRepository) GetSuccessByOrderID(orderID uint) (*models.Payment, error) {
	if orderID == 0 {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("order_id = ? AND status IN ?",
		orderID,
		[]string{constants.PaymentStatusSuccess, constants.PaymentStatusRefunded},
	).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// ListExpiredPending 获取已超时的待支付记录
func (r *GormPaymentRepository) ListExpiredPending(cutoff time.Time, limit int) ([]models.Payment, error) {
	query := r.db.Where("status = ? AND created_at <= ?", constants.PaymentStatusPending, cutoff).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var payments []models.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// ListAdmin 管理端支付列表
func (r *GormPaymentRepository) ListAdmin(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.TransactionNo != "" {
		query = query.Where("transaction_no = ?", strings.TrimSpace(filter.TransactionNo))
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
