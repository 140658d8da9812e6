/*
 * @module service/dashboard/dashboard_service_test
 * @description 看板服务单元测试：采集tick编排、失败保留旧数据、变更检测与轮播推进
 * @architecture 测试层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 桩数据源 -> RefreshTick -> 断言视图模型与状态
 * @rules 覆盖模式错误、数据源错误、内容未变与过滤联动
 * @dependencies testing, stretchr/testify, testutil
 */

package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
	"prodboard-service/service/source"
	"prodboard-service/testutil"
)

// stubSource 测试桩数据源
type stubSource struct {
	table *models.RawTable
	err   error
}

func (s *stubSource) Type() string { return "stub" }

func (s *stubSource) Fetch(_ context.Context) (*models.RawTable, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

// todayColumn 按运行当天取星期列名，规范化器内部使用系统时钟
func todayColumn() string {
	return meta.DayTokenFor(time.Now().Weekday())
}

func goodTable() *models.RawTable {
	return testutil.MakeWeekTable(todayColumn(),
		testutil.WeekRow{Line: "LINHA 01", Product: "Produto A", Seq: 1, Produced: 80, Target: 100, Remaining: 20, DayQty: 30},
		testutil.WeekRow{Line: "LINHA 01", Product: "Produto B", Seq: 2, Produced: 20, Target: 50, Remaining: 30, DayQty: 10},
		testutil.WeekRow{Line: "LINHA 02", Product: "Produto C", Seq: 1, Produced: 95, Target: 100, Remaining: 5, DayQty: 20},
	)
}

func TestRefreshTickSuccess(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	view, err := service.RefreshTick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.False(t, view.Stale)
	assert.NotEmpty(t, view.TickID)
	require.Len(t, view.Lines, 2)

	// LINHA 02 95% 优先级1排在前面
	assert.Equal(t, "LINHA 02", view.Lines[0].Line)
	assert.Equal(t, "LINHA 01", view.Lines[1].Line)

	l1 := view.Lines[1]
	assert.Equal(t, 100.0, l1.Aggregate.ProducedQty)
	assert.Equal(t, 150.0, l1.Aggregate.WeeklyTarget)
	assert.InDelta(t, 66.67, l1.Aggregate.Percentage, 0.01)
	assert.Equal(t, meta.StatusInProgress, l1.Aggregate.Status)
	require.NotNil(t, l1.Product)
	assert.Equal(t, 0, l1.Product.Index)
	assert.Equal(t, []string{"Produto A", "Produto B"}, l1.Products)

	assert.Equal(t, 195.0, view.Summary.TotalProduced)
	assert.Equal(t, 250.0, view.Summary.TotalTarget)
}

func TestRefreshTickNoChangeAdvancesRotation(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	first, err := service.RefreshTick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.Lines[1].Product)
	assert.Equal(t, 0, first.Lines[1].Product.Index)

	// 内容未变，tick照常完成且轮播推进到下一个产品
	second, err := service.RefreshTick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second.Lines[1].Product)
	assert.Equal(t, 1, second.Lines[1].Product.Index)
	assert.Equal(t, "Produto B", second.Lines[1].Product.Product)

	// 2个产品，第三次tick转回第一个
	third, err := service.RefreshTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, third.Lines[1].Product.Index)
}

func TestRefreshTickSchemaErrorRetainsData(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	_, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	// 换上缺列的表
	src.table = &models.RawTable{Columns: []string{meta.ColumnLine, meta.ColumnProduct}}
	view, err := service.RefreshTick(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsSchemaError(err))

	// 上一次有效数据保留并标记stale
	require.NotNil(t, view)
	assert.True(t, view.Stale)
	assert.NotEmpty(t, view.LastError)
	assert.Len(t, view.Lines, 2)

	current, err := service.View()
	require.NoError(t, err)
	assert.Len(t, current.Lines, 2)
}

func TestRefreshTickSourceErrorRetainsData(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	_, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	src.err = &models.SourceUnavailableError{Source: "stub", Err: errors.New("conexão recusada")}
	view, err := service.RefreshTick(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsSourceUnavailable(err))
	require.NotNil(t, view)
	assert.True(t, view.Stale)
	assert.Len(t, view.Lines, 2)
}

func TestRefreshTickFailureWithoutPriorData(t *testing.T) {
	src := &stubSource{err: &models.SourceUnavailableError{Source: "stub", Err: errors.New("sem dados")}}
	service := NewDashboardService(nil, src, nil, nil)

	view, err := service.RefreshTick(context.Background())
	require.Error(t, err)
	assert.Nil(t, view)

	_, err = service.View()
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestUpdateFiltersAffectsView(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	_, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	// 只显示No Target(≥90%)：剩LINHA 02
	require.NoError(t, service.UpdateFilters(models.FilterOptions{ShowOnTarget: true}))
	view, err := service.RefreshTick(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "LINHA 02", view.Lines[0].Line)

	// 汇总仍覆盖全部产线而非可见子集
	assert.Equal(t, 195.0, view.Summary.TotalProduced)
}

func TestRotationOnlyAdvancesVisibleLines(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	_, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	// LINHA 01不可见的两个tick里它的计数不前进
	require.NoError(t, service.UpdateFilters(models.FilterOptions{ShowOnTarget: true}))
	_, err = service.RefreshTick(context.Background())
	require.NoError(t, err)
	_, err = service.RefreshTick(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.UpdateFilters(models.DefaultFilterOptions()))
	view, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	require.Len(t, view.Lines, 2)
	// 第一次tick后计数为1，期间不可见未推进
	assert.Equal(t, 1, view.Lines[1].Product.Index)
}

func TestRecordRunAudit(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	src := &stubSource{table: goodTable()}
	service := NewDashboardService(tdb.DB, src, nil, nil)

	_, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	src.table = &models.RawTable{Columns: []string{meta.ColumnLine}}
	_, err = service.RefreshTick(context.Background())
	require.Error(t, err)

	runs, err := service.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	statuses := []string{runs[0].Status, runs[1].Status}
	assert.Contains(t, statuses, meta.IngestStatusSuccess)
	assert.Contains(t, statuses, meta.IngestStatusSchemaErr)
}

func TestUpdateFiltersPersists(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	src := &stubSource{table: goodTable()}
	service := NewDashboardService(tdb.DB, src, nil, nil)

	opts := models.FilterOptions{ShowOnTarget: true, Search: "linha"}
	require.NoError(t, service.UpdateFilters(opts))

	// 新实例从库中恢复过滤配置
	restored := NewDashboardService(tdb.DB, src, nil, nil)
	assert.Equal(t, opts, restored.Filters())
}

func TestSourceAndScheduleConfigPersist(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	src := &stubSource{table: goodTable()}
	service := NewDashboardService(tdb.DB, src, nil, nil)

	service.SetSource(source.NewHTTPSource("http://erp.local/semana.csv", 0))
	require.NoError(t, service.SaveRefreshSchedule(30, "0 */2 * * * *"))

	stored := service.StoredConfig()
	require.NotNil(t, stored)
	assert.Equal(t, meta.SourceTypeHTTPCSV, stored.SourceType)
	assert.Equal(t, "http://erp.local/semana.csv", stored.SourceURL)
	assert.Equal(t, 30, stored.RefreshInterval)
	assert.Equal(t, "0 */2 * * * *", stored.CronExpression)

	// 后续的过滤更新不清掉已存的数据源与刷新配置
	require.NoError(t, service.UpdateFilters(models.FilterOptions{ShowOnTarget: true}))
	stored = service.StoredConfig()
	require.NotNil(t, stored)
	assert.Equal(t, meta.SourceTypeHTTPCSV, stored.SourceType)
	assert.Equal(t, 30, stored.RefreshInterval)
	assert.True(t, stored.ShowOnTarget)
	assert.False(t, stored.ShowInProgress)
}

func TestSetSourceForcesChangeDetection(t *testing.T) {
	src := &stubSource{table: goodTable()}
	service := NewDashboardService(nil, src, nil, nil)

	_, err := service.RefreshTick(context.Background())
	require.NoError(t, err)

	// 相同内容但数据源被切换，视为有变更重新规范化
	other := &stubSource{table: goodTable()}
	service.SetSource(other)
	view, err := service.RefreshTick(context.Background())
	require.NoError(t, err)
	assert.False(t, view.Stale)
}
