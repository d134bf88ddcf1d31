package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"Underworld/internal/shared/security"
	"Underworld/internal/shared/transport"
	"Underworld/internal/shared/transport/http/dto"
	"Underworld/internal/shared/types"
)

const (
	ctxKeyPlayerID = "underworld.player_id"
	ctxKeyName     = "underworld.player_name"
	ctxKeyRole     = "underworld.role"
)

// TokenParser 由 security.Issuer 实现。
type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// Auth 校验 Bearer token，把玩家 id 与角色放进 gin.Context。
// roles 非空时只放行这些角色。
func Auth(parser TokenParser, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, transport.Unauthorized, "缺少登录凭证")
			return
		}
		claims, err := parser.Parse(strings.TrimSpace(token))
		if err != nil {
			transport.SetErrorReason(c.Request.Context(), err.Error())
			abort(c, transport.Unauthorized, "登录凭证无效")
			return
		}
		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			abort(c, transport.Forbidden, "没有权限")
			return
		}
		if claims.Role == security.RolePlayer && !claims.PlayerID.Valid() {
			abort(c, transport.Unauthorized, "登录凭证无效")
			return
		}
		c.Set(ctxKeyPlayerID, claims.PlayerID)
		c.Set(ctxKeyName, claims.Name)
		c.Set(ctxKeyRole, claims.Role)
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(dto.StatusOf(code), dto.Error(code, msg))
}

// PlayerIDFrom 读取 Auth 写入的玩家 id。
func PlayerIDFrom(c *gin.Context) (types.PlayerID, bool) {
	v, ok := c.Get(ctxKeyPlayerID)
	if !ok {
		return types.NoPlayer, false
	}
	pid, ok := v.(types.PlayerID)
	return pid, ok && pid.Valid()
}

func PlayerNameFrom(c *gin.Context) string {
	return c.GetString(ctxKeyName)
}

func RoleFrom(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}
