/*
 * @module api/middleware/push_auth
 * @description 数据接入端点的API密钥校验中间件，密钥以bcrypt哈希存储
 * @architecture 中间件模式 - 请求前置校验
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 提取X-API-Key -> 按前缀查找 -> bcrypt比对 -> 放行/拒绝
 * @rules 未配置数据库或未配置任何密钥时不启用校验，便于单机部署
 * @dependencies golang.org/x/crypto/bcrypt, gorm.io/gorm
 * @refs api/routes.go, service/models/dashboard.go
 */

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"prodboard-service/service/models"
)

// keyPrefixLen 密钥前缀长度，用于免遍历查找
const keyPrefixLen = 8

// PushAuth 数据接入密钥校验中间件
// db为nil或库中没有启用的密钥时直接放行
func PushAuth(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if db == nil {
				next.ServeHTTP(w, r)
				return
			}

			var count int64
			if err := db.Model(&models.PushAPIKey{}).Where("is_active = ?", true).Count(&count).Error; err != nil || count == 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				unauthorized(w, r, "缺少X-API-Key请求头")
				return
			}

			prefix := key
			if len(prefix) > keyPrefixLen {
				prefix = prefix[:keyPrefixLen]
			}

			var candidates []models.PushAPIKey
			if err := db.Where("key_prefix = ? AND is_active = ?", prefix, true).Find(&candidates).Error; err != nil {
				unauthorized(w, r, "密钥校验失败")
				return
			}

			for _, candidate := range candidates {
				if bcrypt.CompareHashAndPassword([]byte(candidate.KeyHash), []byte(key)) == nil {
					now := time.Now()
					db.Model(&models.PushAPIKey{}).Where("id = ?", candidate.ID).
						Update("last_used_at", &now)
					next.ServeHTTP(w, r)
					return
				}
			}

			unauthorized(w, r, "无效的API密钥")
		})
	}
}

// unauthorized 拒绝请求
func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    msg,
	})
}
