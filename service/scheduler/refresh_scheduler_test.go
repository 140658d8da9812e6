/*
 * @module service/scheduler/refresh_scheduler_test
 * @description 刷新调度器单元测试：间隔下限、Cron表达式校验、启停与触发回调
 * @architecture 测试层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 构造调度器 -> 触发 -> 断言回调与状态
 * @rules 不依赖真实定时器走表，直接驱动触发逻辑
 * @dependencies testing, stretchr/testify
 */

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodboard-service/service/dashboard"
	"prodboard-service/service/meta"
	"prodboard-service/service/models"
	"prodboard-service/service/source"
	"prodboard-service/testutil"
)

func newTestDashboard() (*dashboard.DashboardService, *source.PushSource) {
	push := source.NewPushSource()
	push.Receive(testutil.MakeWeekTable(meta.DayTokenFor(time.Now().Weekday()),
		testutil.WeekRow{Line: "LINHA 01", Product: "Produto A", Seq: 1, Produced: 90, Target: 100, Remaining: 10, DayQty: 20},
	))
	return dashboard.NewDashboardService(nil, push, nil, nil), push
}

func TestIntervalClamped(t *testing.T) {
	ds, _ := newTestDashboard()

	s := NewRefreshScheduler(ds, time.Second, nil)
	assert.Equal(t, minInterval, s.Interval())

	s.SetInterval(2 * time.Second)
	assert.Equal(t, minInterval, s.Interval())

	s.SetInterval(30 * time.Second)
	assert.Equal(t, 30*time.Second, s.Interval())
}

func TestStartStop(t *testing.T) {
	ds, _ := newTestDashboard()
	s := NewRefreshScheduler(ds, time.Minute, nil)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "重复启动应报错")

	s.Stop()
	s.Stop() // 重复停止为空操作
}

func TestStartCronInvalidExpr(t *testing.T) {
	ds, _ := newTestDashboard()
	s := NewRefreshScheduler(ds, time.Minute, nil)
	defer s.Stop()

	assert.Error(t, s.StartCron("isso não é cron"))
	assert.NoError(t, s.StartCron("0 */5 * * * *"))
}

func TestFireDeliversView(t *testing.T) {
	var delivered *models.DashboardView
	ds, _ := newTestDashboard()
	s := NewRefreshScheduler(ds, time.Minute, func(view *models.DashboardView) {
		delivered = view
	})

	s.fire()

	require.NotNil(t, delivered)
	require.Len(t, delivered.Lines, 1)
	assert.Equal(t, "LINHA 01", delivered.Lines[0].Line)
	assert.False(t, delivered.Stale)
}

func TestFireSourceFailureKeepsLastView(t *testing.T) {
	var deliveries []*models.DashboardView
	ds, _ := newTestDashboard()
	s := NewRefreshScheduler(ds, time.Minute, func(view *models.DashboardView) {
		deliveries = append(deliveries, view)
	})

	s.fire()
	require.Len(t, deliveries, 1)

	// 数据源失效后继续触发，回调仍交付带stale标记的旧视图
	ds.SetSource(source.NewPushSource())
	s.fire()

	require.Len(t, deliveries, 2)
	assert.True(t, deliveries[1].Stale)
	require.Len(t, deliveries[1].Lines, 1)
}
