package worker

import (
	"context"
	"errors"
	"time"

	"github.com/minimall-next/internal/config"
	"github.com/minimall-next/internal/logger"
	"github.com/minimall-next/internal/queue"

	"github.com/hibiken/asynq"
)

const sweepBatchSize = 200

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.PaymentService != nil {
		go s.runTimeoutSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runTimeoutSweepLoop 兜底扫描：延迟任务丢失时也能把超时的待支付记录收敛到 failed
func (s *Service) runTimeoutSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.PaymentService == nil {
		return
	}
	interval := time.Minute
	if s.consumer.Config != nil && s.consumer.Config.Payment.SweepIntervalSeconds > 0 {
		interval = time.Duration(s.consumer.Config.Payment.SweepIntervalSeconds) * time.Second
	}
	runOnce := func() {
		swept, err := s.consumer.PaymentService.SweepExpiredPayments(time.Now(), sweepBatchSize)
		if err != nil {
			logger.Warnw("worker_payment_timeout_sweep_failed", "error", err)
			return
		}
		if swept > 0 {
			logger.Infow("worker_payment_timeout_sweep_done", "swept", swept)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
