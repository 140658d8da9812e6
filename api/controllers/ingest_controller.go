/*
 * @module api/controllers/ingest_controller
 * @description 数据接入控制器：CSV文件上传、JSON整表推送、数据源切换
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 接收数据 -> 数据源快照替换 -> 立即触发一次采集tick
 * @rules 上传与推送成功后同步执行一次tick，调用方拿到的响应已反映新数据
 * @dependencies github.com/go-chi/render
 * @refs api/routes.go, service/source
 */

package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"prodboard-service/service"
	"prodboard-service/service/dashboard"
	"prodboard-service/service/meta"
	"prodboard-service/service/models"
	"prodboard-service/service/source"
)

// maxUploadBytes 上传文件体积上限
const maxUploadBytes = 32 << 20

// IngestController 数据接入控制器
type IngestController struct {
	dashboard *dashboard.DashboardService
	csv       *source.CSVSource
	push      *source.PushSource
}

// NewIngestController 创建数据接入控制器实例
func NewIngestController() *IngestController {
	return &IngestController{
		dashboard: service.GlobalDashboardService,
		csv:       service.GlobalCSVSource,
		push:      service.GlobalPushSource,
	}
}

// Upload 上传CSV文件
// @Summary 上传生产表CSV
// @Description 上传分号分隔的周生产表CSV，替换当前文件数据源内容并立即刷新
// @Tags 数据接入
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV文件"
// @Success 200 {object} APIResponse
// @Router /ingest/upload [post]
func (c *IngestController) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "上传表单解析失败: " + err.Error(),
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "缺少上传文件字段 file",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "读取上传内容失败: " + err.Error(),
		})
		return
	}

	c.csv.SetData(header.Filename, data)
	c.dashboard.SetSource(c.csv)

	c.refreshAfterIngest(w, r, "文件上传成功")
}

// Push 接收JSON整表推送
// @Summary 推送生产表
// @Description 接收 {columns, rows} 结构的整表推送，替换推送数据源快照并立即刷新
// @Tags 数据接入
// @Accept json
// @Produce json
// @Param table body models.RawTable true "完整生产表"
// @Success 200 {object} APIResponse
// @Router /ingest/push [post]
func (c *IngestController) Push(w http.ResponseWriter, r *http.Request) {
	var table models.RawTable
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "推送数据解析失败: " + err.Error(),
		})
		return
	}
	if len(table.Columns) == 0 {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "推送数据缺少列定义",
		})
		return
	}

	c.push.Receive(&table)
	c.dashboard.SetSource(c.push)

	c.refreshAfterIngest(w, r, "推送接收成功")
}

// SetSource 切换数据源
// @Summary 切换数据源
// @Description 切换看板数据源类型；http_csv需提供url，切换后下一次tick生效
// @Tags 数据接入
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse
// @Router /ingest/source [post]
func (c *IngestController) SetSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type    string `json:"type"`
		URL     string `json:"url,omitempty"`
		Timeout int    `json:"timeout,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求体解析失败: " + err.Error(),
		})
		return
	}

	var src source.TableSource
	switch body.Type {
	case meta.SourceTypeCSVUpload:
		src = c.csv
	case meta.SourceTypePush:
		src = c.push
	case meta.SourceTypeHTTPCSV:
		if body.URL == "" {
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusBadRequest,
				"msg":    "http_csv数据源必须提供url",
			})
			return
		}
		src = source.NewHTTPSource(body.URL, time.Duration(body.Timeout)*time.Second)
	case meta.SourceTypeMQTT:
		if service.GlobalMQTTSource == nil {
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusBadRequest,
				"msg":    "MQTT数据源未启用",
			})
			return
		}
		src = service.GlobalMQTTSource
	default:
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "未知数据源类型: " + body.Type,
		})
		return
	}

	c.dashboard.SetSource(src)

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    "数据源已切换",
		"data":   map[string]string{"type": body.Type},
	})
}

// refreshAfterIngest 接入新数据后立即执行一次tick并返回结果
// 模式错误同样在这里透出：上一次有效数据保留，调用方收到明确的失败消息
func (c *IngestController) refreshAfterIngest(w http.ResponseWriter, r *http.Request, okMsg string) {
	view, err := c.dashboard.RefreshTick(r.Context())
	if err != nil && !errors.Is(err, dashboard.ErrTickInFlight) {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusUnprocessableEntity,
			"msg":    okMsg + "，但采集失败: " + err.Error(),
			"data":   view,
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": 0,
		"msg":    okMsg,
		"data":   view,
	})
}
