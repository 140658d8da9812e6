/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"prodboard-service/api/controllers"
	apimiddleware "prodboard-service/api/middleware"
	"prodboard-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置：看板前端跨域访问
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 看板视图与配置
	dashboardController := controllers.NewDashboardController()
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", dashboardController.GetView)
		r.Post("/refresh", dashboardController.Refresh)
		r.Get("/filters", dashboardController.GetFilters)
		r.Put("/filters", dashboardController.UpdateFilters)
		r.Put("/interval", dashboardController.UpdateInterval)
		r.Get("/runs", dashboardController.GetRuns)
	})

	// 数据接入：上传与推送受API密钥保护
	ingestController := controllers.NewIngestController()
	r.Route("/ingest", func(r chi.Router) {
		r.Use(apimiddleware.PushAuth(service.DB))
		r.Post("/upload", ingestController.Upload)
		r.Post("/push", ingestController.Push)
		r.Post("/source", ingestController.SetSource)
	})
}
