package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/dorm_bot/internal/fsm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsNamespace = "dorm_bot"

// Metrics счётчики переходов, чистильщика и модерации
type Metrics struct {
	transitions *prometheus.CounterVec
	claimed     prometheus.Counter
	decisions   *prometheus.CounterVec
}

// NewMetrics регистрирует счётчики в reg. Повторная регистрация
// возвращает уже существующие коллекторы.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fsm_transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to"}),
		claimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweeper_claimed_total",
			Help:      "Expired join requests claimed by the sweeper.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "moderation_decisions_total",
			Help:      "Final moderation decisions.",
		}, []string{"decision"}),
	}

	var err error
	if m.transitions, err = registerCounterVec(reg, m.transitions); err != nil {
		return nil, fmt.Errorf("register transitions counter: %w", err)
	}
	if m.decisions, err = registerCounterVec(reg, m.decisions); err != nil {
		return nil, fmt.Errorf("register decisions counter: %w", err)
	}
	if err := reg.Register(m.claimed); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register claimed counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(prometheus.Counter)
		if !ok {
			return nil, fmt.Errorf("register claimed counter: %w", err)
		}
		m.claimed = existing
	}
	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, err
}

// ObserveTransition реализует fsm.Observer
func (m *Metrics) ObserveTransition(from, to fsm.Tag) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(tagLabel(from), tagLabel(to)).Inc()
}

// ObserveClaimed учитывает заявки, забранные чистильщиком
func (m *Metrics) ObserveClaimed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.claimed.Add(float64(n))
}

// ObserveDecision учитывает итоговое решение модерации
func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

func tagLabel(t fsm.Tag) string {
	if t == fsm.None {
		return "none"
	}
	return string(t)
}

// MetricsServer отдаёт /metrics
type MetricsServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewMetricsServer создаёт сервер метрик для gatherer
func NewMetricsServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.Named("metrics"),
	}
}

// Run слушает до отмены ctx
func (s *MetricsServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Metrics server listening", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
