package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsService 对话与检索指标
type MetricsService struct {
	turnsTotal       *prometheus.CounterVec
	retrievalsTotal  prometheus.Counter
	generationsTotal prometheus.Counter
}

// NewMetricsService 创建并注册指标
func NewMetricsService(reg prometheus.Registerer) *MetricsService {
	m := &MetricsService{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosrag_turns_total",
			Help: "Total dialog turns by policy and status.",
		}, []string{"policy", "status"}),
		retrievalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rosrag_retrievals_total",
			Help: "Total knowledge base retrievals.",
		}),
		generationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rosrag_generations_total",
			Help: "Total generation model calls.",
		}),
	}

	reg.MustRegister(m.turnsTotal, m.retrievalsTotal, m.generationsTotal)
	return m
}

func (m *MetricsService) ObserveTurn(policy, status string) {
	m.turnsTotal.WithLabelValues(policy, status).Inc()
}

func (m *MetricsService) ObserveRetrieval() {
	m.retrievalsTotal.Inc()
}

func (m *MetricsService) ObserveGeneration() {
	m.generationsTotal.Inc()
}
