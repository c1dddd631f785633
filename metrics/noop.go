package metrics

import (
	"time"

	"github.com/saiset-co/sai-campaigns/types"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics { return &NoopMetrics{} }

func (n *NoopMetrics) Start() error                    { return nil }
func (n *NoopMetrics) Stop() error                     { return nil }
func (n *NoopMetrics) IsRunning() bool                 { return true }
func (n *NoopMetrics) RegisterRoutes(types.HTTPRouter) {}

func (n *NoopMetrics) Counter(string, map[string]string) types.Counter { return noopInstrument{} }
func (n *NoopMetrics) Gauge(string, map[string]string) types.Gauge     { return noopInstrument{} }
func (n *NoopMetrics) Histogram(string, []float64, map[string]string) types.Histogram {
	return noopInstrument{}
}

type noopInstrument struct{}

func (noopInstrument) Inc()                      {}
func (noopInstrument) Dec()                      {}
func (noopInstrument) Add(float64)               {}
func (noopInstrument) Set(float64)               {}
func (noopInstrument) Get() float64              { return 0 }
func (noopInstrument) Observe(float64)           {}
func (noopInstrument) ObserveDuration(time.Time) {}
func (noopInstrument) GetCount() uint64          { return 0 }
func (noopInstrument) GetSum() float64           { return 0 }
