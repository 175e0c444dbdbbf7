package service

import (
	"time"

	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/repository"
)

// OrderService 订单协作方。支付核心只读取订单，
// 并在支付成功后请求一次 confirmed 状态变更。
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetOrder 获取订单
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// MarkConfirmed 把待支付订单标记为 confirmed。
// 已经 confirmed 的订单视为幂等成功。
func (s *OrderService) MarkConfirmed(orderID uint, paidAt time.Time) error {
	updated, err := s.orderRepo.ConfirmIfPending(orderID, paidAt)
	if err != nil {
		logger.Errorw("order_confirm_failed", "order_id", orderID, "error", err)
		return ErrOrderUpdateFailed
	}
	if updated {
		return nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return ErrOrderUpdateFailed
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusConfirmed {
		return nil
	}
	logger.Warnw("order_confirm_status_conflict",
		"order_id", orderID,
		"current_status", order.Status,
	)
	return ErrOrderStatusInvalid
}
