package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor 下单台的Prometheus指标，实现 order.Recorder。
type Monitor struct {
	registry *prometheus.Registry

	// 生命周期
	transitions *prometheus.CounterVec

	// 提交
	offersSubmitted *prometheus.CounterVec
	offerResults    *prometheus.CounterVec
	offerLatency    *prometheus.HistogramVec
	duplicates      prometheus.Counter

	// 表单校验
	validationFailures *prometheus.CounterVec

	// 网关
	gatewayRequests *prometheus.CounterVec
	gatewayErrors   *prometheus.CounterVec
	catalogReloads  prometheus.Counter
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "offerdesk",
		Subsystem: "order",
	}
}

// New 创建新的Monitor实例，使用独立 registry
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "state_transitions_total",
				Help:      "表单状态转换次数",
			},
			[]string{"from", "to"},
		),
		offersSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "offers_submitted_total",
				Help:      "提交到账本的挂单数",
			},
			[]string{"op"},
		),
		offerResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "offer_results_total",
				Help:      "挂单提交结果",
			},
			[]string{"op", "outcome"},
		),
		offerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "offer_latency_seconds",
				Help:      "挂单提交耗时（秒）",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "duplicate_submits_total",
			Help:      "在途期间被合并的重复提交",
		}),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_failures_total",
				Help:      "提交闸门拦截的校验错误",
			},
			[]string{"kind"},
		),
		gatewayRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "账本网关请求总数",
			},
			[]string{"command"},
		),
		gatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "errors_total",
				Help:      "账本网关错误总数",
			},
			[]string{"command"},
		),
		catalogReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "config",
			Name:      "catalog_reloads_total",
			Help:      "币种目录热更新次数",
		}),
	}
}

func (m *Monitor) RecordTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Monitor) RecordOfferSubmitted(op string) {
	m.offersSubmitted.WithLabelValues(op).Inc()
}

func (m *Monitor) RecordOfferResult(op, outcome string, seconds float64) {
	m.offerResults.WithLabelValues(op, outcome).Inc()
	m.offerLatency.WithLabelValues(op).Observe(seconds)
}

func (m *Monitor) RecordDuplicateSubmit() {
	m.duplicates.Inc()
}

func (m *Monitor) RecordValidationFailure(kind string) {
	m.validationFailures.WithLabelValues(kind).Inc()
}

// 网关相关方法
func (m *Monitor) RecordGatewayRequest(command string) {
	m.gatewayRequests.WithLabelValues(command).Inc()
}

func (m *Monitor) RecordGatewayError(command string) {
	m.gatewayErrors.WithLabelValues(command).Inc()
}

func (m *Monitor) RecordCatalogReload() {
	m.catalogReloads.Inc()
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
