package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/middleware"
	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
