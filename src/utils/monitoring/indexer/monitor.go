package monitor_indexer

import (
	"math"
	"net/http"
	"time"

	"github.com/warp-contracts/tom-indexer/src/utils/config"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring"
	"github.com/warp-contracts/tom-indexer/src/utils/monitoring/report"
	"github.com/warp-contracts/tom-indexer/src/utils/task"

	"github.com/gammazero/deque"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var _ monitoring.Monitor = (*Monitor)(nil)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report *report.Report

	historySize int

	// Max time without a successful poll before the indexer is considered stuck
	maxPollDelay time.Duration

	collector *Collector

	// Event processing speed
	EventsApplied *deque.Deque[uint64]
}

func NewMonitor(config *config.Config) (self *Monitor) {
	self = new(Monitor)

	self.Report = report.NewReport()

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())

	self.collector = NewCollector().WithMonitor(self)

	// Polls may legitimately fail a few times in a row
	self.maxPollDelay = 10 * config.Syncer.PollInterval

	self.Task = task.NewTask(config, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorEvents)

	return self.WithMaxHistorySize(30)
}

func (self *Monitor) WithMaxHistorySize(maxHistorySize int) *Monitor {
	self.historySize = maxHistorySize
	self.EventsApplied = deque.New[uint64](self.historySize)
	return self
}

func (self *Monitor) GetReport() *report.Report {
	return self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Measure event processing speed
func (self *Monitor) monitorEvents() (err error) {
	loaded := self.Report.Syncer.State.EventsApplied.Load()

	self.EventsApplied.PushBack(loaded)
	if self.EventsApplied.Len() > self.historySize {
		self.EventsApplied.PopFront()
	}
	value := float64(self.EventsApplied.Back()-self.EventsApplied.Front()) / float64(self.EventsApplied.Len())

	self.Report.Syncer.State.AverageEventsAppliedPerMinute.Store(round(value))
	return
}

func (self *Monitor) IsOK() bool {
	now := time.Now().Unix()
	if now-self.Report.Run.State.StartTimestamp.Load() < 300 {
		return true
	}

	// Backfill may take long, polling starts afterwards
	if !self.Report.Syncer.State.BackfillFinished.Load() {
		return true
	}

	lastPoll := self.Report.Syncer.State.LastPollTimestamp.Load()
	return time.Duration(now-lastPoll)*time.Second <= self.maxPollDelay
}

func (self *Monitor) OnGetState(c *gin.Context) {
	self.Report.Run.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.State.StartTimestamp.Load()))
	c.JSON(http.StatusOK, self.Report)
}

func (self *Monitor) OnGetHealth(c *gin.Context) {
	if self.IsOK() {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
}
