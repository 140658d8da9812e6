/*
 * @module service/dashboard/dashboard_service
 * @description 看板服务：采集tick编排（拉取->变更检测->规范化->聚合->视图模型）、
 *              失败时保留上次有效数据、快照缓存与事件发布
 * @architecture 分层架构 - 业务编排层，单tick串行执行
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 拉取原始表 -> 哈希比对 -> 规范化 -> 聚合分级 -> 过滤排序 -> 轮播推进 -> 视图交付
 * @rules 同一时刻至多一个tick在执行；模式错误与数据源错误绝不清空上一次有效数据
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/ingestion, service/aggregation, service/source, service/scheduler
 */

package dashboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"prodboard-service/service/aggregation"
	"prodboard-service/service/cache"
	"prodboard-service/service/event"
	"prodboard-service/service/ingestion"
	"prodboard-service/service/meta"
	"prodboard-service/service/models"
	"prodboard-service/service/monitoring"
	"prodboard-service/service/source"
)

// ErrTickInFlight 上一个采集tick尚未结束
var ErrTickInFlight = errors.New("上一次采集尚未完成")

// configID 看板配置的固定主键
const configID = "default"

// DashboardService 看板服务
type DashboardService struct {
	db         *gorm.DB
	normalizer *ingestion.Normalizer
	aggregator *aggregation.Aggregator
	snapshot   *cache.SnapshotCache
	publisher  *event.Publisher

	mu       sync.Mutex
	state    *DashboardState
	source   source.TableSource
	inFlight bool
}

// NewDashboardService 创建看板服务
// db、snapshot、publisher均可为nil，对应能力降级为空操作
func NewDashboardService(db *gorm.DB, src source.TableSource, snapshot *cache.SnapshotCache, publisher *event.Publisher) *DashboardService {
	s := &DashboardService{
		db:         db,
		normalizer: ingestion.NewNormalizer(),
		aggregator: aggregation.NewAggregator(),
		snapshot:   snapshot,
		publisher:  publisher,
		state:      NewDashboardState(),
		source:     src,
	}
	s.restore()
	return s
}

// restore 启动时加载持久化配置与Redis快照兜底
func (s *DashboardService) restore() {
	if s.db != nil {
		var config models.DashboardConfig
		if err := s.db.First(&config, "id = ?", configID).Error; err == nil {
			s.state.Filters = config.Filters()
		}
	}
	if view := s.snapshot.Load(context.Background()); view != nil {
		s.state.LastView = view
		slog.Info("已从快照恢复上一次视图模型", "lines", len(view.Lines))
	}
}

// SetSource 切换数据源，下一次tick生效；切换后强制视为有变更
// 数据源选择写入配置存储，重启后恢复
func (s *DashboardService) SetSource(src source.TableSource) {
	s.mu.Lock()
	s.source = src
	s.state.LastHash = ""
	s.mu.Unlock()

	if err := s.persistSource(src); err != nil {
		slog.Warn("数据源配置持久化失败", "error", err)
	}
}

// SourceType 当前数据源类型
func (s *DashboardService) SourceType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ""
	}
	return s.source.Type()
}

// RefreshTick 执行一次完整采集tick
// 同一时刻至多一个tick在执行，被占用时返回ErrTickInFlight；
// 任何采集失败都保留上一次有效视图模型并在返回的视图中标记stale
func (s *DashboardService) RefreshTick(ctx context.Context) (*models.DashboardView, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrTickInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	start := time.Now()
	tickID := uuid.New().String()
	view, err := s.runTick(ctx, tickID)
	monitoring.TickDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("采集tick失败", "tick_id", tickID, "error", err)
	}
	return view, err
}

// runTick tick主体，持有状态锁执行
func (s *DashboardService) runTick(ctx context.Context, tickID string) (*models.DashboardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.source == nil {
		return s.state.LastView, &models.SourceUnavailableError{
			Source: "none", Err: errors.New("尚未配置数据源"),
		}
	}

	start := time.Now()
	table, err := s.source.Fetch(ctx)
	if err != nil {
		return s.failTick(ctx, tickID, start, meta.IngestStatusSourceErr, 0, err)
	}

	hash := tableHash(table)
	if s.state.HasData() && hash == s.state.LastHash {
		// 内容未变仍是一次完整tick：轮播照常推进，跳过规范化与重新聚合
		view := s.buildView(tickID, false, "")
		s.recordRun(tickID, meta.IngestStatusNoChange, len(table.Rows), 0, len(s.state.Groups), nil, "", start)
		monitoring.RefreshTicks.WithLabelValues(meta.IngestStatusNoChange).Inc()
		return view, nil
	}

	result, err := s.normalizer.Normalize(table)
	if err != nil {
		return s.failTick(ctx, tickID, start, meta.IngestStatusSchemaErr, len(table.Rows), err)
	}

	s.state.ReplaceRecords(result.Records, s.aggregator)
	s.state.LastHash = hash
	if len(result.Records) > 0 {
		s.state.DayToken = result.Records[0].DayToken
	} else {
		s.state.DayToken = meta.DayTokenFor(time.Now().Weekday())
	}

	view := s.buildView(tickID, false, "")

	monitoring.RefreshTicks.WithLabelValues(meta.IngestStatusSuccess).Inc()
	monitoring.RowsSkipped.Add(float64(result.SkippedRows))
	s.recordRun(tickID, meta.IngestStatusSuccess, len(table.Rows), result.SkippedRows, len(s.state.Groups), result.Warnings, "", start)

	s.snapshot.Store(ctx, view)
	s.publisher.Publish(ctx, event.RefreshEvent{
		Type:        event.EventRefreshCompleted,
		TickID:      tickID,
		SourceType:  s.source.Type(),
		LineCount:   len(s.state.Groups),
		RowsIn:      len(table.Rows),
		RowsSkipped: result.SkippedRows,
	})

	slog.Info("采集tick完成", "tick_id", tickID,
		"rows", len(table.Rows), "skipped", result.SkippedRows,
		"lines", len(s.state.Groups), "warnings", len(result.Warnings))

	return view, nil
}

// failTick 失败路径统一处理：保留旧数据、记录审计与指标、发布失败事件
func (s *DashboardService) failTick(ctx context.Context, tickID string, start time.Time, status string, rowsIn int, cause error) (*models.DashboardView, error) {
	monitoring.RefreshTicks.WithLabelValues(status).Inc()
	s.recordRun(tickID, status, rowsIn, 0, 0, nil, cause.Error(), start)

	sourceType := ""
	if s.source != nil {
		sourceType = s.source.Type()
	}
	s.publisher.Publish(ctx, event.RefreshEvent{
		Type:       event.EventIngestionFailed,
		TickID:     tickID,
		SourceType: sourceType,
		RowsIn:     rowsIn,
		ErrorMsg:   cause.Error(),
	})

	// 上一次有效数据原样保留，仅标记stale并透出错误消息
	if s.state.HasData() || s.state.LastView != nil {
		return s.buildView(tickID, true, cause.Error()), cause
	}
	return nil, cause
}

// buildView 从当前状态构造视图模型并推进可见产线的轮播计数
func (s *DashboardService) buildView(tickID string, stale bool, lastError string) *models.DashboardView {
	if !s.state.HasData() {
		// 快照兜底：还没有本进程内的成功采集
		if s.state.LastView != nil {
			view := *s.state.LastView
			view.Stale = true
			view.LastError = lastError
			return &view
		}
		return nil
	}

	visible := s.aggregator.VisibleLines(s.state.Groups, s.state.Filters)

	lines := make([]models.LineView, 0, len(visible))
	for _, line := range visible {
		group := s.state.Groups[line]
		lines = append(lines, models.LineView{
			Line:      line,
			Aggregate: group.Aggregate,
			Product:   s.aggregator.ProductAt(group, s.state.Rotation[line]),
			Products:  s.aggregator.ProductNames(group),
		})
	}

	summary := s.aggregator.Summary(s.state.Groups)
	for bucket, count := range summary.BucketCounts {
		monitoring.LinesByBucket.WithLabelValues(bucket).Set(float64(count))
	}
	monitoring.OverallPercentage.Set(summary.Percentage)

	// 展示后推进：当前tick按现有计数取品，下一tick轮到下一个
	s.state.AdvanceRotation(visible)

	view := &models.DashboardView{
		Lines:       lines,
		Summary:     summary,
		DayToken:    s.state.DayToken,
		RefreshedAt: time.Now(),
		TickID:      tickID,
		Stale:       stale,
		LastError:   lastError,
	}
	s.state.LastView = view
	return view
}

// View 返回最近一次的视图模型，尚无任何数据时返回ErrNoData
func (s *DashboardService) View() (*models.DashboardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastView == nil {
		return nil, models.ErrNoData
	}
	return s.state.LastView, nil
}

// Filters 当前过滤配置
func (s *DashboardService) Filters() models.FilterOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filters
}

// UpdateFilters 更新过滤配置并持久化，下一次tick按新配置构造视图
func (s *DashboardService) UpdateFilters(opts models.FilterOptions) error {
	s.mu.Lock()
	s.state.Filters = opts
	s.mu.Unlock()

	return s.saveConfig(func(config *models.DashboardConfig) {
		config.ShowOnTarget = opts.ShowOnTarget
		config.ShowInProgress = opts.ShowInProgress
		config.ShowAttention = opts.ShowAttention
		config.Search = opts.Search
	})
}

// SaveRefreshSchedule 持久化刷新间隔（秒）与Cron表达式，重启后由启动流程恢复
func (s *DashboardService) SaveRefreshSchedule(seconds int, cronExpr string) error {
	return s.saveConfig(func(config *models.DashboardConfig) {
		if seconds > 0 {
			config.RefreshInterval = seconds
		}
		if cronExpr != "" {
			config.CronExpression = cronExpr
		}
	})
}

// persistSource 持久化当前数据源选择
func (s *DashboardService) persistSource(src source.TableSource) error {
	if src == nil {
		return nil
	}
	url := ""
	if httpSrc, ok := src.(*source.HTTPSource); ok {
		url = httpSrc.URL()
	}
	return s.saveConfig(func(config *models.DashboardConfig) {
		config.SourceType = src.Type()
		config.SourceURL = url
	})
}

// StoredConfig 读取持久化的看板配置，无库或尚无记录时返回nil
func (s *DashboardService) StoredConfig() *models.DashboardConfig {
	if s.db == nil {
		return nil
	}
	var config models.DashboardConfig
	if err := s.db.First(&config, "id = ?", configID).Error; err != nil {
		return nil
	}
	return &config
}

// saveConfig 读改写单行配置，避免整行覆盖清掉其他字段
func (s *DashboardService) saveConfig(mutate func(*models.DashboardConfig)) error {
	if s.db == nil {
		return nil
	}
	var config models.DashboardConfig
	if err := s.db.First(&config, "id = ?", configID).Error; err != nil {
		config = models.DashboardConfig{
			ID:              configID,
			ShowOnTarget:    true,
			ShowInProgress:  true,
			ShowAttention:   true,
			RefreshInterval: 60,
		}
	}
	mutate(&config)
	return s.db.Save(&config).Error
}

// recordRun 写入采集运行审计记录
func (s *DashboardService) recordRun(tickID, status string, rowsIn, skipped, lineCount int, warnings []string, errMsg string, start time.Time) {
	if s.db == nil {
		return
	}
	sourceType := ""
	if s.source != nil {
		sourceType = s.source.Type()
	}
	run := models.IngestionRun{
		ID:          uuid.New().String(),
		TickID:      tickID,
		SourceType:  sourceType,
		Status:      status,
		RowsIn:      rowsIn,
		RowsSkipped: skipped,
		LineCount:   lineCount,
		Warnings:    warnings,
		ErrorMsg:    errMsg,
		Duration:    time.Since(start).Milliseconds(),
	}
	if err := s.db.Create(&run).Error; err != nil {
		slog.Warn("采集审计记录写入失败", "error", err)
	}
}

// RecentRuns 查询最近的采集运行记录
func (s *DashboardService) RecentRuns(limit int) ([]models.IngestionRun, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []models.IngestionRun
	err := s.db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// tableHash 原始表内容哈希，用于变更检测
// json.Marshal对map键排序，同样内容稳定得到同样哈希
func tableHash(table *models.RawTable) string {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Sprintf("unhashable-%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
