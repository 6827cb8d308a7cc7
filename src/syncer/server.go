package syncer

import (
	"context"
	"net/http"

	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring"
	"github.com/warp-contracts/tom-indexer/src/utils/task"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rest API server, serves monitor counters
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine
	registry   *prometheus.Registry

	monitor monitoring.Monitor
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if !config.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	self.Router = gin.New()
	self.Router.Use(gin.Recovery())

	self.registry = prometheus.NewRegistry()
	self.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	self.httpServer = &http.Server{
		Addr:    self.Config.RESTListenAddress,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	self.registry.MustRegister(monitor.GetPrometheusCollector())

	v1 := self.Router.Group("v1")
	{
		v1.GET("state", monitor.OnGetState)
		v1.GET("health", monitor.OnGetHealth)
	}
	self.Router.GET("metrics", gin.WrapH(promhttp.HandlerFor(self.registry, promhttp.HandlerOpts{})))
	pprof.Register(self.Router)

	return self
}

func (self *Server) run() (err error) {
	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
