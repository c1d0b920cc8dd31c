package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/parkaro/internal/identity"
)

const principalKey = "principal"

// principal собирает identity.Principal из заголовков; проверка подлинности — на шлюзе перед нами.
func principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := identity.FromHeaders(
			c.GetHeader(identity.HeaderUserID),
			c.GetHeader(identity.HeaderStaff),
			c.GetHeader(identity.HeaderEmployeeID),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principalOf(c *gin.Context) identity.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(identity.Principal)
	return p
}
