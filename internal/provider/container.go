package provider

import (
	"github.com/minimall-next/internal/cache"
	"github.com/minimall-next/internal/config"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/models"
	"github.com/minimall-next/internal/payment/gateway"
	"github.com/minimall-next/internal/payment/sign"
	"github.com/minimall-next/internal/queue"
	"github.com/minimall-next/internal/repository"
	"github.com/minimall-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	SignEngine  *sign.Engine

	// Repositories
	AdminRepo   repository.AdminRepository
	OrderRepo   repository.OrderRepository
	PaymentRepo repository.PaymentRepository

	// Services
	AuthService    *service.AuthService
	OrderService   *service.OrderService
	PaymentService *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	signEngine, err := sign.NewEngine(sign.Config{
		MerchantID:     cfg.Payment.Merchant.MerchantID,
		AppID:          cfg.Payment.Merchant.AppID,
		APIKey:         cfg.Payment.Merchant.APIKey,
		SignType:       cfg.Payment.Merchant.SignType,
		PrivateKeyPath: cfg.Payment.Merchant.PrivateKeyPath,
		SerialNo:       cfg.Payment.Merchant.SerialNo,
	})
	if err != nil {
		logger.Errorw("provider_init_sign_engine_failed", "error", err)
		return nil, err
	}

	gatewayClient, err := gateway.NewClient(gateway.Config{
		BaseURL:        cfg.Payment.Gateway.BaseURL,
		NotifyURL:      cfg.Payment.Gateway.NotifyURL,
		TimeoutSeconds: cfg.Payment.Gateway.TimeoutSeconds,
		MerchantID:     cfg.Payment.Merchant.MerchantID,
		AppID:          cfg.Payment.Merchant.AppID,
	}, signEngine)
	if err != nil {
		logger.Errorw("provider_init_gateway_failed", "error", err)
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		SignEngine:  signEngine,
	}

	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)

	c.AuthService = service.NewAuthService(c.AdminRepo, cfg.JWT)
	c.OrderService = service.NewOrderService(c.OrderRepo)
	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.OrderRepo,
		c.OrderService,
		gatewayClient,
		signEngine,
		c.QueueClient,
		cfg.Payment.ExpireMinutes,
	)
	return c, nil
}
