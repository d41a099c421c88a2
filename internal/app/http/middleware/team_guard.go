package middleware

import (
	"net/http"

	"compliance-training/internal/domain/accounts"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequireTeamManager lets the request through only when the caller manages
// the team account named by the :id path parameter. The parsed id is stored
// under "account_id".
func RequireTeamManager(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid account id"})
			return
		}

		var count int64
		err = db.WithContext(c.Request.Context()).
			Model(&accounts.Membership{}).
			Where("account_id = ? AND user_id = ? AND role IN ?", accountID, c.GetUint("user_id"),
				[]string{accounts.RoleTeamManager, accounts.RoleOwner}).
			Count(&count).Error
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check membership"})
			return
		}
		if count == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not manage this team"})
			return
		}

		c.Set("account_id", accountID)
		c.Next()
	}
}
