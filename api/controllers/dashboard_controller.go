/*
 * @module api/controllers/dashboard_controller
 * @description 看板控制器：视图模型查询、手动刷新、过滤配置、刷新间隔与采集审计
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow HTTP请求 -> 控制器 -> 看板服务 -> 视图模型
 * @rules 统一的错误处理和响应格式；刷新接口在tick在途时返回409
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go, service/dashboard
 */

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"prodboard-service/service"
	"prodboard-service/service/dashboard"
	"prodboard-service/service/models"
)

// DashboardController 看板控制器
type DashboardController struct {
	dashboard *dashboard.DashboardService
}

// NewDashboardController 创建看板控制器实例
func NewDashboardController() *DashboardController {
	return &DashboardController{dashboard: service.GlobalDashboardService}
}

// GetView 获取当前视图模型
// @Summary 获取看板视图模型
// @Description 返回最近一次采集得到的完整视图模型，含可见产线、汇总指标与轮播产品
// @Tags 看板
// @Produce json
// @Success 200 {object} APIResponse
// @Router /dashboard [get]
func (c *DashboardController) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := c.dashboard.View()
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusNotFound,
			"msg":    "暂无看板数据，请先上传或配置数据源",
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "获取看板数据成功",
		"data":   view,
	})
}

// Refresh 手动触发一次采集tick
// @Summary 手动刷新
// @Description 立即执行一次采集tick并返回新的视图模型；上一次tick未结束时返回409
// @Tags 看板
// @Produce json
// @Success 200 {object} APIResponse
// @Router /dashboard/refresh [post]
func (c *DashboardController) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := c.dashboard.RefreshTick(r.Context())
	if err != nil {
		if errors.Is(err, dashboard.ErrTickInFlight) {
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusConflict,
				"msg":    "上一次刷新尚未完成",
			})
			return
		}
		// 失败tick可能仍带着上一次有效数据
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadGateway,
			"msg":    "刷新失败: " + err.Error(),
			"data":   view,
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "刷新成功",
		"data":   view,
	})
}

// GetFilters 获取过滤配置
// @Summary 获取过滤配置
// @Description 返回当前的状态开关与搜索词
// @Tags 看板
// @Produce json
// @Success 200 {object} APIResponse
// @Router /dashboard/filters [get]
func (c *DashboardController) GetFilters(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "获取过滤配置成功",
		"data":   c.dashboard.Filters(),
	})
}

// UpdateFilters 更新过滤配置
// @Summary 更新过滤配置
// @Description 更新状态开关与产线名搜索词并持久化
// @Tags 看板
// @Accept json
// @Produce json
// @Param filters body models.FilterOptions true "过滤配置"
// @Success 200 {object} APIResponse
// @Router /dashboard/filters [put]
func (c *DashboardController) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var opts models.FilterOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求体解析失败: " + err.Error(),
		})
		return
	}

	if err := c.dashboard.UpdateFilters(opts); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "过滤配置保存失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "过滤配置已更新",
		"data":   opts,
	})
}

// UpdateInterval 调整自动刷新间隔
// @Summary 调整刷新间隔
// @Description 调整自动刷新间隔（秒），可附带Cron表达式；立即生效并持久化，重启后恢复
// @Tags 看板
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse
// @Router /dashboard/interval [put]
func (c *DashboardController) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seconds int    `json:"seconds"`
		Cron    string `json:"cron,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求体解析失败: " + err.Error(),
		})
		return
	}
	if body.Seconds <= 0 {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "刷新间隔必须为正数",
		})
		return
	}
	if body.Cron != "" {
		if err := service.GlobalScheduler.StartCron(body.Cron); err != nil {
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusBadRequest,
				"msg":    err.Error(),
			})
			return
		}
	}

	service.GlobalScheduler.SetInterval(time.Duration(body.Seconds) * time.Second)

	if err := c.dashboard.SaveRefreshSchedule(body.Seconds, body.Cron); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "刷新配置保存失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "刷新间隔已调整",
		"data":   map[string]interface{}{"seconds": body.Seconds, "cron": body.Cron},
	})
}

// GetRuns 查询采集运行审计
// @Summary 查询采集运行记录
// @Description 返回最近的采集运行审计记录
// @Tags 看板
// @Produce json
// @Param limit query int false "返回条数上限"
// @Success 200 {object} APIResponse
// @Router /dashboard/runs [get]
func (c *DashboardController) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := c.dashboard.RecentRuns(limit)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "查询采集记录失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "查询采集记录成功",
		"data":   runs,
	})
}
