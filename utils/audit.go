package utils

import (
	"net"

	"rental-sync-server/models"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// Audit writes one SyncAudit row for an admin-triggered action. Best effort:
// audit failures never fail the action itself.
func Audit(db *gorm.DB, ctx iris.Context, entry models.SyncAudit) {
	if tok := jwt.Get(ctx); tok != nil {
		if at, ok := tok.(*AccessToken); ok {
			entry.AdminUserID = at.ID
		}
	}
	entry.IPAddress = clientIP(ctx)
	db.Create(&entry)
}

func clientIP(ctx iris.Context) string {
	if ip := ctx.GetHeader("X-Forwarded-For"); ip != "" {
		return ip
	}
	ip, _, _ := net.SplitHostPort(ctx.RemoteAddr())
	return ip
}
