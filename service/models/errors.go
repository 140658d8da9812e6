/*
 * @module service/models/errors
 * @description 采集与聚合的错误类型定义
 * @architecture 数据模型层 - 类型化错误
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 错误产生 -> errors.As/Is 判别 -> 保留上次有效数据并透出消息
 * @rules 模式错误与数据源错误只使当次采集失败，绝不清空上一次成功的数据
 * @refs service/ingestion, service/dashboard
 */

package models

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError 表级模式错误：必需列缺失
// 当次采集中止，调用方必须保留上一次有效的记录集
type SchemaError struct {
	MissingColumns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("表缺少必需列: %s", strings.Join(e.MissingColumns, ", "))
}

// SourceUnavailableError 数据源不可用：文件读取失败或远程拉取失败
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("数据源不可用 [%s]: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// ErrNoData 尚未有任何一次成功采集
var ErrNoData = errors.New("暂无有效的看板数据")

// IsSchemaError 判断是否为表级模式错误
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsSourceUnavailable 判断是否为数据源不可用错误
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}
