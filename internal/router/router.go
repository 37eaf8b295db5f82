// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/config"
	"github.com/civicledger/IPRx-Core/internal/handlers"
	"github.com/civicledger/IPRx-Core/internal/middleware"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

const apiVersion = "1.0.0"

func Initialize(cfg *config.Config, svc *services.Services) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	organisationHandler := handlers.NewOrganisationHandler(svc.Organisations)
	marketplaceHandler := handlers.NewMarketplaceHandler(svc.Marketplaces)
	tokenHandler := handlers.NewTokenHandler(svc.Tokens)
	exchangeHandler := handlers.NewExchangeHandler(svc.Exchange)
	registryHandler := handlers.NewRegistryHandler(svc.Registry)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	generalLimiter := middleware.NewGeneralRateLimiter(cfg.RateLimit)
	authLimiter := middleware.NewAuthRateLimiter(cfg.RateLimit)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.Server)))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.BodyLimit(cfg.Ledger.MaxRequestBytes()))
	r.Use(middleware.Metrics(svc.Metrics))
	r.Use(generalLimiter.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": apiVersion,
		})
	})
	r.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))

	v1 := r.Group("/v1")
	// Audit entries need the caller, so the recorder runs inside auth.
	audited := middleware.AuditLogMiddleware(svc.Admin)
	{
		auth := v1.Group("/auth")
		auth.Use(authLimiter.Middleware())
		{
			auth.POST("/challenge", authHandler.Challenge)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		organisations := v1.Group("/organisations")
		{
			organisations.GET("", organisationHandler.List)
			organisations.GET("/:index", organisationHandler.Get)
			organisations.GET("/:index/admins", organisationHandler.ListAdmins)
			organisations.GET("/:index/admins/:address", organisationHandler.IsAdmin)
			organisations.GET("/:index/ip-types", organisationHandler.ListIPTypes)
			organisations.GET("/:index/ip-types/:typeIndex", organisationHandler.GetIPType)

			protected := organisations.Group("")
			protected.Use(middleware.AuthRequired(), audited)
			{
				protected.POST("", organisationHandler.Create)
				protected.POST("/:index/admins", organisationHandler.AuthoriseAdmin)
				protected.POST("/:index/ip-types", organisationHandler.AddIPType)
			}
		}

		marketplaces := v1.Group("/marketplaces")
		{
			marketplaces.GET("", marketplaceHandler.List)
			marketplaces.GET("/:index", marketplaceHandler.Get)
			marketplaces.GET("/registered/:address", marketplaceHandler.IsRegistered)
			marketplaces.POST("", middleware.AuthRequired(), audited, marketplaceHandler.Register)
		}

		tokens := v1.Group("/tokens")
		{
			tokens.GET("/:address/claims/:ipIndex", tokenHandler.GetClaim)

			protected := tokens.Group("")
			protected.Use(middleware.AuthRequired(), audited)
			{
				protected.POST("", tokenHandler.Register)
				protected.POST("/:address/claims", tokenHandler.Claim)
				protected.PUT("/:address/claims/:ipIndex/licensable", tokenHandler.SetLicensable)
			}
		}

		orders := v1.Group("/orders")
		{
			orders.POST("/verify", exchangeHandler.Verify)
			orders.GET("/:marketplace", exchangeHandler.List)
			orders.GET("/:marketplace/:index", exchangeHandler.Get)
			orders.GET("/:marketplace/:index/payment", exchangeHandler.GetPayment)
			orders.GET("/:marketplace/:index/signature", exchangeHandler.GetSignature)
			orders.GET("/:marketplace/:index/status", exchangeHandler.GetStatus)

			protected := orders.Group("")
			protected.Use(middleware.AuthRequired(), audited)
			{
				protected.POST("", exchangeHandler.Submit)
				protected.PUT("/:marketplace/:index/approve", exchangeHandler.Approve)
				protected.PUT("/:marketplace/:index/reject", exchangeHandler.Reject)
			}
		}

		v1.GET("/nonces/:signer", exchangeHandler.LastNonce)
		v1.GET("/registry/components/:name", registryHandler.Component)

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.OwnerRequired())
		{
			admin.GET("/stats", adminHandler.GetDashboardStats)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	return r
}

func corsConfig(cfg config.ServerConfig) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "Accept-Language")
	c.ExposeHeaders = []string{middleware.RequestIDHeader, "X-Total-Count"}
	if len(cfg.AllowOrigins) == 0 || (len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = cfg.AllowOrigins
	return c
}
