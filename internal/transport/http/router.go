// Package http exposes the quiz service over REST and WebSocket.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/countdown"
	"live-quiz-service/internal/metrics"
)

type Config struct {
	Service *app.Service
	// Metrics is optional; connections are counted when set.
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics, promhttp.Handler() when nil.
	MetricsHandler http.Handler
	// Clock drives the participant countdown, the system clock when nil.
	Clock countdown.Clock
}

func NewRouter(c Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if c.MetricsHandler == nil {
		c.MetricsHandler = promhttp.Handler()
	}

	e := gin.New()
	e.GET("/metrics", gin.WrapH(c.MetricsHandler))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), requestLogger())

	e.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := &API{svc: c.Service}
	ws := NewWSHandler(c.Service, c.Metrics, c.Clock)
	authn := authenticate(c.Service.Issuer(), false)
	optional := authenticate(c.Service.Issuer(), true)

	g := e.Group("/api")
	g.POST("/quizzes/validate", api.ValidateQuiz)
	g.POST("/quizzes", api.SaveQuiz)
	g.GET("/quizzes/:id", api.ExportQuiz)

	g.POST("/sessions", api.CreateSession)
	g.GET("/sessions/:id", optional, api.GetSession)
	g.POST("/sessions/:id/start", authn, api.StartSession)
	g.POST("/sessions/:id/finish", authn, api.FinishSession)
	g.POST("/join", api.Join)
	g.GET("/sessions/:id/participants/:pid", authn, api.GetParticipant)
	g.POST("/sessions/:id/participants/:pid/answers", authn, api.SubmitAnswer)
	g.POST("/sessions/:id/participants/:pid/timeout", authn, api.SubmitTimeout)
	g.GET("/sessions/:id/results", authn, api.Results)
	g.GET("/sessions/:id/results.csv", authn, api.ResultsCSV)

	e.GET("/ws/sessions/:id", authn, ws.Serve)
	return e
}
