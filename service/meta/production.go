/*
 * @module service/meta/production
 * @description 生产看板领域常量定义，包括必需列名、星期列同义词表、状态分级阈值
 * @architecture 元数据层 - 提供静态领域定义
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 无状态常量定义
 * @rules 列名与状态名保持与工厂ERP导出表（葡语列名）一致，不做翻译
 * @refs service/ingestion, service/aggregation
 */

package meta

import (
	"strings"
	"time"
)

// 必需列名（周生产表固定模式，来自工厂ERP导出）
const (
	ColumnLine            = "LINHA"       // 产线名称
	ColumnProduct         = "DESCRPROD"   // 产品描述
	ColumnProducedQty     = "QTDAPONTADA" // 本周累计报工数量
	ColumnWeeklyTarget    = "TOTALSEMANA" // 周目标数量
	ColumnWeeklyRemaining = "SALDOSEMANA" // 周剩余数量（超产时为负）
	ColumnSequence        = "SEQ"         // 可选：产品序号
	ColumnTimestamp       = "DHAPO"       // 可选：最近报工时间
)

// RequiredColumns 表级校验所需的列集合，缺失任意一列视为模式错误
var RequiredColumns = []string{
	ColumnLine,
	ColumnProduct,
	ColumnProducedQty,
	ColumnWeeklyTarget,
	ColumnWeeklyRemaining,
}

// DayTokens 星期列的规范名称，周一为起点，与 time.Weekday 映射见 DayTokenFor
var DayTokens = [7]string{
	"SEGUNDA", "TERCA", "QUARTA", "QUINTA", "SEXTA", "SABADO", "DOMINGO",
}

// daySynonyms 每个星期列接受的同义写法（缩写、带重音拼法、英文名）
// 匹配时统一做大小写折叠和去空白处理
var daySynonyms = map[string][]string{
	"SEGUNDA": {"SEGUNDA-FEIRA", "SEGUNDA FEIRA", "SEG", "MONDAY"},
	"TERCA":   {"TERÇA", "TERCA-FEIRA", "TERÇA-FEIRA", "TERÇA FEIRA", "TER", "TUESDAY"},
	"QUARTA":  {"QUARTA-FEIRA", "QUARTA FEIRA", "QUA", "WEDNESDAY"},
	"QUINTA":  {"QUINTA-FEIRA", "QUINTA FEIRA", "QUI", "THURSDAY"},
	"SEXTA":   {"SEXTA-FEIRA", "SEXTA FEIRA", "SEX", "FRIDAY"},
	"SABADO":  {"SÁBADO", "SAB", "SÁB", "SATURDAY"},
	"DOMINGO": {"DOM", "SUNDAY"},
}

// DayTokenFor 根据星期几返回规范的星期列名
func DayTokenFor(weekday time.Weekday) string {
	// time.Weekday 以周日为0，表以周一为起点
	idx := (int(weekday) + 6) % 7
	return DayTokens[idx]
}

// DaySynonyms 返回某个规范星期列名的同义写法列表
func DaySynonyms(token string) []string {
	return daySynonyms[token]
}

// MatchesDayColumn 判断某个输入列名是否是指定星期列的可接受写法
func MatchesDayColumn(column, token string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(column))
	if normalized == token {
		return true
	}
	for _, syn := range daySynonyms[token] {
		if normalized == strings.ToUpper(syn) {
			return true
		}
	}
	return false
}

// 展示分级状态（卡片着色用，阈值85/70/50）
const (
	StatusTargetMet  = "Meta Atingida"
	StatusNearTarget = "Próximo da Meta"
	StatusInProgress = "Em Andamento"
	StatusAttention  = "Atenção"
)

// 展示分级优先级，1为最好，排序时升序排列
const (
	PriorityTargetMet  = 1
	PriorityNearTarget = 2
	PriorityInProgress = 3
	PriorityAttention  = 4
)

// 展示分级颜色标记（前端卡片边框色）
const (
	ColorGreen  = "#28a745"
	ColorYellow = "#ffc107"
	ColorOrange = "#fd7e14"
	ColorRed    = "#dc3545"
)

// 可见性过滤状态（侧栏筛选用，阈值90/75，与展示分级阈值历史上不一致，保持原样）
const (
	FilterOnTarget   = "No Target"
	FilterInProgress = "Em Andamento"
	FilterAttention  = "Atenção"
)

// 数据源类型
const (
	SourceTypeCSVUpload = "csv_upload" // 上传的分号分隔CSV
	SourceTypeHTTPCSV   = "http_csv"   // 远程CSV，HTTP GET拉取
	SourceTypePush      = "push"       // Webhook推送的JSON行
	SourceTypeMQTT      = "mqtt"       // 车间MQTT推送
)

// IngestStatus 采集运行结果状态
const (
	IngestStatusSuccess   = "success"
	IngestStatusSchemaErr = "schema_error"
	IngestStatusSourceErr = "source_error"
	IngestStatusNoChange  = "no_change"
)
