/*
 * @module service/scheduler/refresh_scheduler
 * @description 看板刷新调度器：单一重复定时任务驱动采集tick，支持间隔与Cron两种触发方式
 * @architecture 基于Go协程和定时器的调度器模式
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 定时器触发 -> 在途检查 -> 采集tick -> 渲染回调
 * @rules 同一时刻至多一个待命定时器；tick在途时本次触发直接跳过，不排队不重入
 * @dependencies github.com/robfig/cron/v3
 * @refs service/dashboard/dashboard_service.go
 */

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"prodboard-service/service/dashboard"
	"prodboard-service/service/models"
)

// minInterval 刷新间隔下限
const minInterval = 5 * time.Second

// RenderFunc 每次成功tick后的渲染回调，交付完整视图模型
type RenderFunc func(view *models.DashboardView)

// RefreshScheduler 看板刷新调度器
type RefreshScheduler struct {
	dashboard *dashboard.DashboardService
	render    RenderFunc

	mu       sync.Mutex
	interval time.Duration
	ticker   *time.Ticker
	cron     *cron.Cron
	cronID   cron.EntryID
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

// NewRefreshScheduler 创建调度器，render可为nil
func NewRefreshScheduler(ds *dashboard.DashboardService, interval time.Duration, render RenderFunc) *RefreshScheduler {
	if interval < minInterval {
		interval = minInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshScheduler{
		dashboard: ds,
		render:    render,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动间隔定时器
func (s *RefreshScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("调度器已在运行")
	}

	s.ticker = time.NewTicker(s.interval)
	s.running = true
	go s.run()

	slog.Info("刷新调度器已启动", "interval", s.interval.String())
	return nil
}

// StartCron 附加Cron表达式触发（秒级精度），与间隔定时器共用同一个在途保护
func (s *RefreshScheduler) StartCron(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		s.cron = cron.New(cron.WithSeconds())
		s.cron.Start()
	} else if s.cronID != 0 {
		s.cron.Remove(s.cronID)
	}

	id, err := s.cron.AddFunc(expr, s.fire)
	if err != nil {
		return fmt.Errorf("Cron表达式无效 [%s]: %w", expr, err)
	}
	s.cronID = id

	slog.Info("Cron刷新已配置", "expr", expr)
	return nil
}

// Stop 停止全部定时器
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cancel()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	s.running = false

	slog.Info("刷新调度器已停止")
}

// SetInterval 调整刷新间隔，立即生效
func (s *RefreshScheduler) SetInterval(interval time.Duration) {
	if interval < minInterval {
		interval = minInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	if s.ticker != nil {
		s.ticker.Reset(interval)
	}
	slog.Info("刷新间隔已调整", "interval", interval.String())
}

// Interval 当前刷新间隔
func (s *RefreshScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// run 定时循环
func (s *RefreshScheduler) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.ticker.C:
			s.fire()
		}
	}
}

// fire 执行一次采集tick
// 在途保护由DashboardService保证，这里只处理跳过与回调
func (s *RefreshScheduler) fire() {
	ctx, cancel := context.WithTimeout(s.ctx, 60*time.Second)
	defer cancel()

	view, err := s.dashboard.RefreshTick(ctx)
	if err != nil {
		if errors.Is(err, dashboard.ErrTickInFlight) {
			slog.Debug("tick在途，本次触发跳过")
			return
		}
		// 失败tick也可能带着上一次有效视图
	}
	if view != nil && s.render != nil {
		s.render(view)
	}
}
