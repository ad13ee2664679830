package monitoring

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hubenschmidt/langgraph-react/internal/logging"
)

// NewServer builds the local observability listener: /metrics for the given
// registry and /healthz. The caller owns ListenAndServe and Shutdown.
func NewServer(addr string, reg *prometheus.Registry, log *logging.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info("metrics listener configured", zap.String("addr", addr))
	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
