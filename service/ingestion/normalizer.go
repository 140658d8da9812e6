/*
 * @module service/ingestion/normalizer
 * @description 原始生产表的校验与规范化：必需列校验、星期列解析、数值定型、产线时间推导
 * @architecture 分层架构 - 数据采集层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 模式校验 -> 星期列解析(每次采集一次) -> 逐行定型 -> 产线时间回填
 * @rules 单行坏数据跳过不报错；只有必需列缺失才使整表采集失败
 * @dependencies github.com/spf13/cast
 * @refs service/meta/production.go, service/models/production.go
 */

package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// timestampLayouts DHAPO列接受的时间格式，按常见程度排列
var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2006-01-02",
}

// Normalizer 原始表规范化器
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer 创建规范化器，使用系统时钟
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerAt 创建使用固定时钟的规范化器，测试用
func NewNormalizerAt(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize 将原始表转换为规范化记录集
// 必需列缺失时返回 *models.SchemaError，其余行级问题一律跳过并计数
func (n *Normalizer) Normalize(table *models.RawTable) (*models.NormalizeResult, error) {
	if err := n.validateSchema(table); err != nil {
		return nil, err
	}

	result := &models.NormalizeResult{
		Records: make([]models.CanonicalRecord, 0, len(table.Rows)),
	}

	dayToken := meta.DayTokenFor(n.now().Weekday())
	dayColumn := ResolveDayColumn(table.Columns, dayToken)

	hasTimestamp := table.HasColumn(meta.ColumnTimestamp)
	if !hasTimestamp {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("缺少时间列 %s，所有产线的最近更新时间为空", meta.ColumnTimestamp))
	}

	// 产线时间从原始行推导，先于行级过滤计算，属于产线而非单行
	lineTimes := n.resolveLineTimestamps(table, hasTimestamp)

	for _, row := range table.Rows {
		record, ok := n.normalizeRow(row, dayToken, dayColumn)
		if !ok {
			result.SkippedRows++
			continue
		}
		record.LastUpdate = lineTimes[record.Line]
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// validateSchema 校验必需列，返回缺失列清单
func (n *Normalizer) validateSchema(table *models.RawTable) error {
	var missing []string
	for _, required := range meta.RequiredColumns {
		if !table.HasColumn(required) {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return &models.SchemaError{MissingColumns: missing}
	}
	return nil
}

// ResolveDayColumn 在表列名中解析当天的星期列
// 先精确匹配规范名，再按同义词表大小写不敏感匹配；都找不到时返回规范名本身，
// 此时逐行取值自然落空、当天目标按0处理，不构成表级错误
func ResolveDayColumn(columns []string, dayToken string) string {
	for _, c := range columns {
		if c == dayToken {
			return c
		}
	}
	for _, c := range columns {
		if meta.MatchesDayColumn(c, dayToken) {
			return c
		}
	}
	return dayToken
}

// normalizeRow 定型单行，返回false表示该行应被跳过
func (n *Normalizer) normalizeRow(row map[string]interface{}, dayToken, dayColumn string) (models.CanonicalRecord, bool) {
	line := strings.TrimSpace(cast.ToString(row[meta.ColumnLine]))
	if line == "" {
		return models.CanonicalRecord{}, false
	}

	produced, err := coerceQuantity(row[meta.ColumnProducedQty])
	if err != nil {
		return models.CanonicalRecord{}, false
	}
	target, err := coerceQuantity(row[meta.ColumnWeeklyTarget])
	if err != nil {
		return models.CanonicalRecord{}, false
	}
	remaining, err := coerceQuantity(row[meta.ColumnWeeklyRemaining])
	if err != nil {
		return models.CanonicalRecord{}, false
	}

	// 序号与当天目标的解析失败不致丢行，回落为0
	sequence := cast.ToInt(row[meta.ColumnSequence])
	if sequence < 0 {
		sequence = 0
	}
	todayTarget, err := coerceQuantity(row[dayColumn])
	if err != nil {
		todayTarget = 0
	}

	return models.CanonicalRecord{
		Line:            line,
		Product:         strings.TrimSpace(cast.ToString(row[meta.ColumnProduct])),
		Sequence:        sequence,
		TodayTarget:     todayTarget,
		ProducedQty:     produced,
		WeeklyTarget:    target,
		WeeklyRemaining: remaining,
		DayToken:        dayToken,
		DayColumn:       dayColumn,
	}, true
}

// coerceQuantity 单元格数值定型：空值归0，无法解析时报错
func coerceQuantity(value interface{}) (float64, error) {
	if value == nil {
		return 0, nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return cast.ToFloat64E(value)
}

// resolveLineTimestamps 按产线推导最近更新时间
// 取该产线所有可解析时间的最大值；全部不可解析时退回最后一个非空原始值作为展示串
func (n *Normalizer) resolveLineTimestamps(table *models.RawTable, hasTimestamp bool) map[string]models.LineTimestamp {
	result := make(map[string]models.LineTimestamp)
	if !hasTimestamp {
		return result
	}

	lastRaw := make(map[string]string)
	maxTime := make(map[string]time.Time)

	for _, row := range table.Rows {
		line := strings.TrimSpace(cast.ToString(row[meta.ColumnLine]))
		if line == "" {
			continue
		}
		raw := row[meta.ColumnTimestamp]
		if raw == nil {
			continue
		}
		display := strings.TrimSpace(cast.ToString(raw))
		if display == "" {
			continue
		}
		lastRaw[line] = display

		if ts, ok := parseTimestamp(raw); ok {
			if current, exists := maxTime[line]; !exists || ts.After(current) {
				maxTime[line] = ts
			}
		}
	}

	for line, ts := range maxTime {
		t := ts
		result[line] = models.LineTimestamp{Time: &t}
	}
	for line, raw := range lastRaw {
		if _, ok := result[line]; !ok {
			result[line] = models.LineTimestamp{Raw: raw}
		}
	}
	return result
}

// parseTimestamp 解析单元格中的时间值，不可解析时返回false
func parseTimestamp(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	}

	s := strings.TrimSpace(cast.ToString(value))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
