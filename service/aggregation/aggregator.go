/*
 * @module service/aggregation/aggregator
 * @description 产线聚合与状态分级：完成率计算、状态分桶、可见性过滤、排序与产品轮播
 * @architecture 分层架构 - 聚合计算层，纯函数无副作用
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 规范化记录 -> 按产线分组 -> 聚合指标 -> 过滤排序 -> 轮播选品
 * @rules 展示分级阈值(85/70/50)与过滤分级阈值(90/75)是两套独立阈值，不得合并
 * @refs service/meta/production.go, service/models/production.go
 */

package aggregation

import (
	"sort"
	"strings"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// ProductEntry 产线内一个产品的聚合条目
// 同名产品的多条记录数量求和，顺序按SEQ升序、同序号保持输入顺序
type ProductEntry struct {
	Product     string
	Sequence    int
	ProducedQty float64
	TodayTarget float64
}

// LineGroup 单条产线的聚合结果
type LineGroup struct {
	Aggregate models.LineAggregate
	Products  []ProductEntry
}

// Aggregator 聚合计算器
type Aggregator struct{}

// NewAggregator 创建聚合计算器
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Classify 展示分级：给定完成率返回状态名、优先级与颜色标记
// 全函数且确定，区间下界闭合：85整点即"Meta Atingida"
func Classify(percentage float64) (status string, priority int, color string) {
	switch {
	case percentage >= 85:
		return meta.StatusTargetMet, meta.PriorityTargetMet, meta.ColorGreen
	case percentage >= 70:
		return meta.StatusNearTarget, meta.PriorityNearTarget, meta.ColorYellow
	case percentage >= 50:
		return meta.StatusInProgress, meta.PriorityInProgress, meta.ColorOrange
	default:
		return meta.StatusAttention, meta.PriorityAttention, meta.ColorRed
	}
}

// FilterBucket 可见性过滤分级，阈值(90/75)与展示分级历史上不一致，按原样保留
func FilterBucket(percentage float64) string {
	switch {
	case percentage >= 90:
		return meta.FilterOnTarget
	case percentage >= 75:
		return meta.FilterInProgress
	default:
		return meta.FilterAttention
	}
}

// Percentage 完成率计算，目标为0时定义为0，避免除零
func Percentage(produced, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return produced / target * 100
}

// GroupByLine 将规范化记录按产线分组并计算聚合指标
func (a *Aggregator) GroupByLine(records []models.CanonicalRecord) map[string]*LineGroup {
	groups := make(map[string]*LineGroup)
	productIdx := make(map[string]map[string]int) // line -> product -> Products下标

	for _, r := range records {
		group, ok := groups[r.Line]
		if !ok {
			group = &LineGroup{
				Aggregate: models.LineAggregate{Line: r.Line},
			}
			groups[r.Line] = group
			productIdx[r.Line] = make(map[string]int)
		}

		group.Aggregate.ProducedQty += r.ProducedQty
		group.Aggregate.WeeklyTarget += r.WeeklyTarget
		group.Aggregate.Remaining += r.WeeklyRemaining
		if group.Aggregate.LastUpdate.Time == nil && group.Aggregate.LastUpdate.Raw == "" {
			group.Aggregate.LastUpdate = r.LastUpdate
		}

		// 重复的(产线,产品)数量求和而不是新增条目
		if idx, exists := productIdx[r.Line][r.Product]; exists {
			group.Products[idx].ProducedQty += r.ProducedQty
			group.Products[idx].TodayTarget += r.TodayTarget
		} else {
			productIdx[r.Line][r.Product] = len(group.Products)
			group.Products = append(group.Products, ProductEntry{
				Product:     r.Product,
				Sequence:    r.Sequence,
				ProducedQty: r.ProducedQty,
				TodayTarget: r.TodayTarget,
			})
		}
	}

	for _, group := range groups {
		agg := &group.Aggregate
		agg.Percentage = Percentage(agg.ProducedQty, agg.WeeklyTarget)
		agg.Status, agg.Priority, agg.Color = Classify(agg.Percentage)
		agg.ProductCount = len(group.Products)

		// SEQ升序，同序号保持输入顺序
		sort.SliceStable(group.Products, func(i, j int) bool {
			return group.Products[i].Sequence < group.Products[j].Sequence
		})
	}

	return groups
}

// VisibleLines 应用状态开关与产线名子串搜索，返回按(优先级,产线名)升序的可见产线
// 过滤使用FilterBucket阈值而非展示分级阈值；过滤幂等
func (a *Aggregator) VisibleLines(groups map[string]*LineGroup, opts models.FilterOptions) []string {
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	visible := make([]string, 0, len(groups))
	for line, group := range groups {
		if !a.statusEnabled(group.Aggregate.Percentage, opts) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(line), search) {
			continue
		}
		visible = append(visible, line)
	}

	sort.Slice(visible, func(i, j int) bool {
		pi := groups[visible[i]].Aggregate.Priority
		pj := groups[visible[j]].Aggregate.Priority
		if pi != pj {
			return pi < pj
		}
		return visible[i] < visible[j]
	})

	return visible
}

// statusEnabled 判断产线的过滤分级是否被开关启用
func (a *Aggregator) statusEnabled(percentage float64, opts models.FilterOptions) bool {
	switch FilterBucket(percentage) {
	case meta.FilterOnTarget:
		return opts.ShowOnTarget
	case meta.FilterInProgress:
		return opts.ShowInProgress
	default:
		return opts.ShowAttention
	}
}

// ProductAt 按轮播计数选出产线当前展示的产品
// 下标 = 计数 mod 产品数；产品列表为空时返回nil，调用方按"无数据"处理
func (a *Aggregator) ProductAt(group *LineGroup, counter int) *models.ProductView {
	if group == nil || len(group.Products) == 0 {
		return nil
	}
	if counter < 0 {
		counter = 0
	}

	idx := counter % len(group.Products)
	entry := group.Products[idx]

	return &models.ProductView{
		Product:     entry.Product,
		Sequence:    entry.Sequence,
		ProducedQty: entry.ProducedQty,
		TodayTarget: entry.TodayTarget,
		Percentage:  Percentage(entry.ProducedQty, entry.TodayTarget),
		Index:       idx,
		Total:       len(group.Products),
	}
}

// ProductNames 产线全部产品名，按聚合后的展示顺序
func (a *Aggregator) ProductNames(group *LineGroup) []string {
	names := make([]string, 0, len(group.Products))
	for _, p := range group.Products {
		names = append(names, p.Product)
	}
	return names
}

// Summary 全局汇总：总产量、总目标、整体完成率与按过滤分级的产线数
func (a *Aggregator) Summary(groups map[string]*LineGroup) models.GlobalSummary {
	summary := models.GlobalSummary{
		BucketCounts: map[string]int{
			meta.FilterOnTarget:   0,
			meta.FilterInProgress: 0,
			meta.FilterAttention:  0,
		},
	}

	for _, group := range groups {
		summary.TotalProduced += group.Aggregate.ProducedQty
		summary.TotalTarget += group.Aggregate.WeeklyTarget
		summary.BucketCounts[FilterBucket(group.Aggregate.Percentage)]++
	}
	summary.Percentage = Percentage(summary.TotalProduced, summary.TotalTarget)

	return summary
}
