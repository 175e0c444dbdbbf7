package main

import (
	"fmt"
	"os"
	"time"

	"github.com/minimall-next/internal/config"
	"github.com/minimall-next/internal/constants"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化默认管理员
	adminUser := os.Getenv("MM_DEFAULT_ADMIN_USERNAME")
	adminPass := os.Getenv("MM_DEFAULT_ADMIN_PASSWORD")
	if err := models.InitDefaultAdmin(adminUser, adminPass); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 添加待支付的演示订单
	now := time.Now()
	recent := now.Add(-5 * time.Minute)
	stale := now.Add(-2 * time.Hour)
	paidAt := now.Add(-30 * time.Minute)

	orders := []models.Order{
		{
			OrderNo:        "SEED-ORDER-PENDING-001",
			UserID:         1001,
			Status:         constants.OrderStatusPendingPayment,
			TotalAmountFen: 9900,
			CreatedAt:      recent,
		},
		{
			OrderNo:        "SEED-ORDER-PENDING-002",
			UserID:         1002,
			Status:         constants.OrderStatusPendingPayment,
			TotalAmountFen: 25800,
			CreatedAt:      recent,
		},
		{
			OrderNo:        "SEED-ORDER-STALE-001",
			UserID:         1003,
			Status:         constants.OrderStatusPendingPayment,
			TotalAmountFen: 4500,
			CreatedAt:      stale,
		},
		{
			OrderNo:        "SEED-ORDER-CONFIRMED-001",
			UserID:         1001,
			Status:         constants.OrderStatusConfirmed,
			TotalAmountFen: 12800,
			PaidAt:         &paidAt,
			CreatedAt:      stale,
		},
	}

	created := 0
	for _, order := range orders {
		var existing models.Order
		if err := models.DB.Where("order_no = ?", order.OrderNo).First(&existing).Error; err != nil {
			if err := models.DB.Create(&order).Error; err != nil {
				stdLog.Printf("Failed to create order %s: %v", order.OrderNo, err)
			} else {
				stdLog.Printf("Created order: %s", order.OrderNo)
				created++
			}
		} else {
			stdLog.Printf("Order already exists: %s", order.OrderNo)
		}
	}

	// 为已确认的演示订单补一条成功支付记录
	var confirmed models.Order
	if err := models.DB.Where("order_no = ?", "SEED-ORDER-CONFIRMED-001").First(&confirmed).Error; err == nil {
		var existing models.Payment
		if err := models.DB.Where("order_id = ?", confirmed.ID).First(&existing).Error; err != nil {
			payment := models.Payment{
				TransactionNo:        fmt.Sprintf("PAY%d%d%06d", confirmed.ID, paidAt.Unix(), 424242),
				OrderID:              confirmed.ID,
				UserID:               confirmed.UserID,
				AmountFen:            confirmed.TotalAmountFen,
				Method:               constants.PaymentMethodWechat,
				Status:               constants.PaymentStatusSuccess,
				GatewayTransactionID: "4200000000000000001",
				PaidAt:               &paidAt,
			}
			if err := models.DB.Create(&payment).Error; err != nil {
				stdLog.Printf("Failed to create payment for %s: %v", confirmed.OrderNo, err)
			} else {
				stdLog.Printf("Created payment: %s", payment.TransactionNo)
			}
		} else {
			stdLog.Printf("Payment already exists for order: %s", confirmed.OrderNo)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Printf("- %d new orders (pending + confirmed demos)\n", created)
	fmt.Println("- 1 success payment on the confirmed order")
	fmt.Println("- Default admin (set MM_DEFAULT_ADMIN_USERNAME / MM_DEFAULT_ADMIN_PASSWORD to override)")
}
