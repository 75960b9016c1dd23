package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	accrualRuns     uint64
	yearCloseRuns   uint64
	totalDurationMs uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordAccrualRun() {
	atomic.AddUint64(&c.accrualRuns, 1)
}

func (c *Collector) RecordYearCloseRun() {
	atomic.AddUint64(&c.yearCloseRuns, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":   total,
		"errorsTotal":     errs,
		"accrualRuns":     atomic.LoadUint64(&c.accrualRuns),
		"yearCloseRuns":   atomic.LoadUint64(&c.yearCloseRuns),
		"avgDurationMs":   avg,
		"totalDurationMs": totalMs,
	}
}
