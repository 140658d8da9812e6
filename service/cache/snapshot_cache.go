/*
 * @module service/cache/snapshot_cache
 * @description Redis视图模型快照缓存，实例重启后可先以上一次有效数据对外提供服务
 * @architecture 工具层 - 可选缓存能力，Redis缺席时整体降级为空操作
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 采集成功 -> 快照写入 -> 实例重启 -> 快照读取兜底
 * @rules 快照只存最近一次成功的视图模型JSON，带TTL；读写失败只记日志不影响采集
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/dashboard/dashboard_service.go
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"prodboard-service/service/models"
)

// snapshotKey 快照在Redis中的键名
const snapshotKey = "prodboard:view_snapshot"

// snapshotTTL 快照过期时间，过期的生产数据没有展示价值
const snapshotTTL = 24 * time.Hour

// SnapshotCache 视图模型快照缓存
type SnapshotCache struct {
	client *redis.Client
}

// NewSnapshotCache 按环境变量创建快照缓存
// REDIS_HOST未配置时返回nil，调用方对nil接收者做空操作处理
func NewSnapshotCache() *SnapshotCache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis连接失败，快照缓存停用", "error", err)
		return nil
	}

	slog.Info("快照缓存已启用", "addr", client.Options().Addr)
	return &SnapshotCache{client: client}
}

// Store 写入最近一次成功的视图模型
func (c *SnapshotCache) Store(ctx context.Context, view *models.DashboardView) {
	if c == nil || view == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		slog.Warn("快照序列化失败", "error", err)
		return
	}
	if err := c.client.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		slog.Warn("快照写入失败", "error", err)
	}
}

// Load 读取快照，不存在或读取失败时返回nil
func (c *SnapshotCache) Load(ctx context.Context) *models.DashboardView {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("快照读取失败", "error", err)
		}
		return nil
	}

	var view models.DashboardView
	if err := json.Unmarshal(data, &view); err != nil {
		slog.Warn("快照反序列化失败", "error", err)
		return nil
	}
	view.Stale = true
	return &view
}
