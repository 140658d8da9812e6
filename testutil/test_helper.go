/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数：内存数据库与生产表数据工厂
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prodboard-service/service/meta"
	"prodboard-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	err = db.AutoMigrate(
		&models.DashboardConfig{},
		&models.IngestionRun{},
		&models.PushAPIKey{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"dashboard_configs",
		"ingestion_runs",
		"push_api_keys",
	}
	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// WeekRow 测试用生产表行
type WeekRow struct {
	Line      string
	Product   string
	Seq       interface{}
	Produced  interface{}
	Target    interface{}
	Remaining interface{}
	DayQty    interface{}
	Timestamp interface{}
}

// MakeWeekTable 按给定星期列名构造一张完整的原始生产表
func MakeWeekTable(dayColumn string, rows ...WeekRow) *models.RawTable {
	table := &models.RawTable{
		Columns: []string{
			meta.ColumnLine, meta.ColumnProduct, meta.ColumnSequence,
			dayColumn,
			meta.ColumnProducedQty, meta.ColumnWeeklyTarget, meta.ColumnWeeklyRemaining,
			meta.ColumnTimestamp,
		},
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, map[string]interface{}{
			meta.ColumnLine:            r.Line,
			meta.ColumnProduct:         r.Product,
			meta.ColumnSequence:        r.Seq,
			dayColumn:                  r.DayQty,
			meta.ColumnProducedQty:     r.Produced,
			meta.ColumnWeeklyTarget:    r.Target,
			meta.ColumnWeeklyRemaining: r.Remaining,
			meta.ColumnTimestamp:       r.Timestamp,
		})
	}
	return table
}

// FixedClock 返回固定时间的时钟函数，2025-06-04是星期三
func FixedClock(value string) func() time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		panic(fmt.Sprintf("invalid fixed clock value: %v", err))
	}
	return func() time.Time { return t }
}
