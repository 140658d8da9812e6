/*
 * @module service/init
 * @description 服务初始化模块：数据库连接与迁移、数据源装配、看板服务与刷新调度器启动
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 数据库、Redis、Kafka、MQTT均为可选依赖，缺席时对应能力降级，看板本体照常服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"prodboard-service/service/cache"
	"prodboard-service/service/dashboard"
	"prodboard-service/service/event"
	"prodboard-service/service/meta"
	"prodboard-service/service/models"
	"prodboard-service/service/scheduler"
	"prodboard-service/service/source"
)

var (
	DB *gorm.DB

	GlobalCSVSource        *source.CSVSource
	GlobalPushSource       *source.PushSource
	GlobalMQTTSource       *source.MQTTSource
	GlobalSnapshotCache    *cache.SnapshotCache
	GlobalEventPublisher   *event.Publisher
	GlobalDashboardService *dashboard.DashboardService
	GlobalScheduler        *scheduler.RefreshScheduler
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
// 未配置或连接失败时以无持久化模式运行，只丢失配置存储与采集审计
func initDatabase() {
	var dsn string

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else if host := os.Getenv("DB_HOST"); host != "" {
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "prodboard")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=America/Sao_Paulo",
			host, port, user, password, dbname, sslmode)
	} else {
		log.Println("未配置数据库，以无持久化模式运行")
		return
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Printf("数据库连接失败，以无持久化模式运行: %v", err)
		DB = nil
		return
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	if DB == nil {
		return
	}

	if err := DB.AutoMigrate(
		&models.DashboardConfig{},
		&models.IngestionRun{},
		&models.PushAPIKey{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	GlobalCSVSource = source.NewCSVSource()
	GlobalPushSource = source.NewPushSource()
	GlobalSnapshotCache = cache.NewSnapshotCache()
	GlobalEventPublisher = event.NewPublisher()

	// MQTT数据源按需启动
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		port, _ := strconv.Atoi(getEnvWithDefault("MQTT_PORT", "1883"))
		GlobalMQTTSource = source.NewMQTTSource(source.MQTTConfig{
			Broker:   broker,
			Port:     port,
			ClientID: getEnvWithDefault("MQTT_CLIENT_ID", "prodboard-service"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			Topic:    getEnvWithDefault("MQTT_TOPIC", "prodboard/production"),
		})
		if err := GlobalMQTTSource.Start(context.Background()); err != nil {
			log.Printf("MQTT数据源启动失败: %v", err)
			GlobalMQTTSource = nil
		}
	}

	// 持久化配置优先于环境变量：接口改过的间隔与数据源在重启后恢复
	stored := loadStoredConfig()

	GlobalDashboardService = dashboard.NewDashboardService(
		DB, resolveInitialSource(stored), GlobalSnapshotCache, GlobalEventPublisher)

	interval, _ := strconv.Atoi(getEnvWithDefault("REFRESH_INTERVAL", "60"))
	if stored != nil && stored.RefreshInterval > 0 {
		interval = stored.RefreshInterval
	}
	GlobalScheduler = scheduler.NewRefreshScheduler(
		GlobalDashboardService, time.Duration(interval)*time.Second, nil)
	if err := GlobalScheduler.Start(); err != nil {
		log.Fatalf("刷新调度器启动失败: %v", err)
	}
	expr := os.Getenv("REFRESH_CRON")
	if stored != nil && stored.CronExpression != "" {
		expr = stored.CronExpression
	}
	if expr != "" {
		if err := GlobalScheduler.StartCron(expr); err != nil {
			log.Printf("Cron刷新配置失败: %v", err)
		}
	}

	log.Println("看板服务初始化完成")
}

// loadStoredConfig 读取持久化的看板配置，无库或尚无记录时返回nil
func loadStoredConfig() *models.DashboardConfig {
	if DB == nil {
		return nil
	}
	var config models.DashboardConfig
	if err := DB.First(&config, "id = ?", "default").Error; err != nil {
		return nil
	}
	return &config
}

// resolveInitialSource 选择启动时的数据源，持久化的选择优先于环境变量
func resolveInitialSource(stored *models.DashboardConfig) source.TableSource {
	sourceType := getEnvWithDefault("SOURCE_TYPE", meta.SourceTypeCSVUpload)
	sourceURL := os.Getenv("SOURCE_URL")
	if stored != nil && stored.SourceType != "" {
		sourceType = stored.SourceType
		if stored.SourceURL != "" {
			sourceURL = stored.SourceURL
		}
	}

	switch sourceType {
	case meta.SourceTypeHTTPCSV:
		if sourceURL == "" {
			log.Println("数据源为http_csv但没有可用的URL，回落为文件上传数据源")
			return GlobalCSVSource
		}
		timeout, _ := strconv.Atoi(getEnvWithDefault("SOURCE_TIMEOUT", "30"))
		return source.NewHTTPSource(sourceURL, time.Duration(timeout)*time.Second)
	case meta.SourceTypePush:
		return GlobalPushSource
	case meta.SourceTypeMQTT:
		if GlobalMQTTSource != nil {
			return GlobalMQTTSource
		}
		log.Println("数据源为mqtt但MQTT未启用，回落为文件上传数据源")
		return GlobalCSVSource
	default:
		return GlobalCSVSource
	}
}
