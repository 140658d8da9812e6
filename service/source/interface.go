/*
 * @module service/source/interface
 * @description 表格数据源统一接口定义
 * @architecture 分层架构 - 数据源抽象层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 采集tick -> Fetch -> 原始表 -> 规范化
 * @rules Fetch为同步阻塞调用，超时通过context控制；数据源失败返回SourceUnavailableError
 * @refs service/source/csv.go, service/source/http.go, service/source/push.go, service/source/mqtt.go
 */

package source

import (
	"context"

	"prodboard-service/service/models"
)

// TableSource 表格数据源接口
// 每次采集tick调用一次Fetch，返回完整的原始表
type TableSource interface {
	// Type 数据源类型标识
	Type() string
	// Fetch 拉取当前完整表格，失败时返回 *models.SourceUnavailableError
	Fetch(ctx context.Context) (*models.RawTable, error)
}
