package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware resolves the caller from a bearer token into the request
// context: user id/name for audit attribution, region for the round gate.
// A missing token is not an error here; mutations on watched entities then
// record a null actor, and reads run unscoped by region.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		ctx = utils.SetUserNameInContext(ctx, claim.Name)
		ctx = utils.SetRoleInContext(ctx, claim.Role)
		if claim.Region != "" {
			ctx = utils.SetRegionInContext(ctx, claim.Region)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
