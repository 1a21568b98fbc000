package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ngx_pipeline/internal/app/di"
	alerthandler "ngx_pipeline/internal/feature/alerts/transport/handler"
	indhandler "ngx_pipeline/internal/feature/indicators/transport/handler"
	insthandler "ngx_pipeline/internal/feature/instruments/transport/handler"
	runhandler "ngx_pipeline/internal/feature/pipeline/transport/handler"
	pricehandler "ngx_pipeline/internal/feature/prices/transport/handler"
	rechandler "ngx_pipeline/internal/feature/recommendations/transport/handler"
	"ngx_pipeline/internal/platform/http/handler"
	jwtmw "ngx_pipeline/internal/platform/jwt"
)

// NewRouter は読み取り系APIと、JWTで保護された操作系APIを登録したエンジンを返します。
func NewRouter(app *di.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), app.Metrics.GinMiddleware())

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.GET("/readyz", handler.Ready(app.Pinger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	instruments := insthandler.NewInstrumentHandler(app.Instruments)
	prices := pricehandler.NewPricesHandler(app.Prices)
	indicators := indhandler.NewIndicatorHandler(app.Indicators)
	alerts := alerthandler.NewAlertHandler(app.Alerts)
	recs := rechandler.NewRecommendationHandler(app.Recommendations)
	runs := runhandler.NewRunHandler(app.Orchestrator)

	r.GET("/instruments", instruments.List)
	r.GET("/prices/latest", prices.Latest)
	r.GET("/prices/:code", prices.LatestByCode)
	r.GET("/prices/:code/history", prices.History)
	r.GET("/indicators/:code", indicators.History)
	r.GET("/alerts", alerts.List)
	r.GET("/recommendations/top", recs.Top)
	r.GET("/runs/latest", runs.Latest)

	// 認証必須のルート
	// → オペレーター権限の JWT が必要になる
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(app.Config.Server.JWTSecret))
	{
		auth.POST("/instruments/:code/deactivate", instruments.Deactivate)
		auth.POST("/alerts/:id/resolve", alerts.Resolve)
		auth.POST("/runs", runs.Trigger)
	}

	return r
}
