package relayd

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

type metrics struct {
	log  io.Writer
	reg  gometrics.Registry
	tick time.Duration
}

var m = &metrics{
	reg:  gometrics.DefaultRegistry,
	tick: 60 * time.Second,
}

// StartMetrics begins periodic JSON metrics reports to w.
func StartMetrics(w io.Writer, tick time.Duration) {
	m.log = w
	if tick > 0 {
		m.tick = tick
	}
	go gometrics.WriteJSON(m.reg, m.tick, m.log)
}

// FinalMetrics writes one last report, for shutdown.
func FinalMetrics() {
	if m.log == nil {
		return
	}
	gometrics.WriteJSONOnce(m.reg, m.log)
}

func incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}
