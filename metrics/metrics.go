package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// flatcoreNamespace 是本项目所有 Prometheus 指标使用的命名空间。
	flatcoreNamespace = "flatcore"

	codecSubsystem = "codec"

	opLabelName     = "op"
	resultLabelName = "result"
	codecLabelName  = "codec"
)

// op 标签取值。
const (
	MarshalLabel   = "marshal"
	UnmarshalLabel = "unmarshal"
)

// result 标签取值。
const (
	SuccessLabel = "success"
	FailLabel    = "fail"
	WrittenLabel = "written"
	ReusedLabel  = "reused"
)

var (
	// sizeBuckets 为消息大小的桶划分，单位为字节。
	// [64 256 1024 4096 16384 65536 262144 1.048576e+06 4.194304e+06 1.6777216e+07]
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

	CodecBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: flatcoreNamespace,
			Subsystem: codecSubsystem,
			Name:      "bytes",
			Help:      "size of buffers passing through the codec",
			Buckets:   sizeBuckets,
		}, []string{codecLabelName, opLabelName})

	CodecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: flatcoreNamespace,
			Subsystem: codecSubsystem,
			Name:      "ops_total",
			Help:      "count of codec marshal/unmarshal calls",
		}, []string{codecLabelName, opLabelName, resultLabelName})

	Vtables = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: flatcoreNamespace,
			Name:      "vtables_total",
			Help:      "vtables written or reused by builders handed to the codec",
		}, []string{resultLabelName})

	VerifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: flatcoreNamespace,
			Name:      "verify_failures_total",
			Help:      "buffers rejected by the verifier",
		})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回已注册指标所用的 Registerer，未调用 Register 时返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册本包定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(CodecBytes)
		r.MustRegister(CodecOps)
		r.MustRegister(Vtables)
		r.MustRegister(VerifyFailures)
		metricRegisterer = r
	})
}

// ObserveCodec 记录一次编解码调用。
func ObserveCodec(codec, op string, size int, err error) {
	if err != nil {
		CodecOps.WithLabelValues(codec, op, FailLabel).Inc()
		return
	}
	CodecOps.WithLabelValues(codec, op, SuccessLabel).Inc()
	CodecBytes.WithLabelValues(codec, op).Observe(float64(size))
}

// ObserveVtables 记录一次 Finish 产生的 vtable 写入与复用次数。
func ObserveVtables(written, reused int) {
	if written > 0 {
		Vtables.WithLabelValues(WrittenLabel).Add(float64(written))
	}
	if reused > 0 {
		Vtables.WithLabelValues(ReusedLabel).Add(float64(reused))
	}
}
