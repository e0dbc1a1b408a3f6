package applayer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mel2oo/go-alcore/proto"
)

// PrometheusProfiler is the opt-in Profiler implementation ("zero-cost
// when disabled"): it records detect/parse call latency as histograms
// labeled by protocol and direction. Registered only when a caller opts in
// via WithProfiler; the default noopProfiler avoids the label-lookup cost
// entirely.
type PrometheusProfiler struct {
	detectSeconds *prometheus.HistogramVec
	parseSeconds  *prometheus.HistogramVec
}

// NewPrometheusProfiler constructs a PrometheusProfiler and registers its
// collectors with reg. Passing prometheus.DefaultRegisterer matches the
// package-level registration most prometheus client users reach for.
func NewPrometheusProfiler(reg prometheus.Registerer) *PrometheusProfiler {
	p := &PrometheusProfiler{
		detectSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alcore",
			Subsystem: "applayer",
			Name:      "detect_seconds",
			Help:      "Time spent in a single detect() call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"l4", "direction"}),
		parseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alcore",
			Subsystem: "applayer",
			Name:      "parse_seconds",
			Help:      "Time spent in a single parse() call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"proto", "direction"}),
	}
	reg.MustRegister(p.detectSeconds, p.parseSeconds)
	return p
}

func (p *PrometheusProfiler) ObserveDetect(l4 proto.L4, dir proto.Direction, d time.Duration) {
	p.detectSeconds.WithLabelValues(l4.String(), dir.String()).Observe(d.Seconds())
}

// ObserveParse labels by the bare numeric protocol id. Resolving it to a
// registered name would require threading the shared proto.Registry into
// the profiler; callers who need named labels should wrap this profiler
// with one that does that lookup first.
func (p *PrometheusProfiler) ObserveParse(id proto.AppProto, dir proto.Direction, d time.Duration) {
	p.parseSeconds.WithLabelValues(id.String(), dir.String()).Observe(d.Seconds())
}
