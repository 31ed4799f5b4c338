// Package metrics expone métricas Prometheus del API y del libro de existencias.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los colectores sobre un registro propio (no el global de prometheus).
type Metrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	movementCounter *prometheus.CounterVec
	movementLatency *prometheus.HistogramVec
	outboxPublished prometheus.Counter
}

// New registra los colectores de proceso, runtime y del dominio.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmaster_http_requests_total",
				Help: "Total de solicitudes HTTP atendidas",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockmaster_http_request_duration_seconds",
				Help:    "Duración de las solicitudes HTTP en segundos",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		movementCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmaster_movements_total",
				Help: "Movimientos de inventario procesados por tipo y resultado",
			},
			[]string{"kind", "result"},
		),
		movementLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockmaster_ledger_duration_seconds",
				Help:    "Duración de la transacción de un movimiento",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"},
		),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockmaster_outbox_published_total",
			Help: "Eventos del outbox entregados al broker",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCounter,
		m.requestLatency,
		m.movementCounter,
		m.movementLatency,
		m.outboxPublished,
	)
	return m
}

// Registry devuelve el registro (tests y colectores adicionales).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveMovement implementa inventory.Recorder.
func (m *Metrics) ObserveMovement(kind, result string, elapsed time.Duration) {
	m.movementCounter.WithLabelValues(kind, result).Inc()
	m.movementLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// OutboxPublished implementa outbox.Counter.
func (m *Metrics) OutboxPublished(n int) {
	m.outboxPublished.Add(float64(n))
}

// Middleware mide cada solicitud usando la ruta registrada, no la URL, para acotar la cardinalidad.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		// Sin ruta coincidente Fiber reporta la del middleware ("/").
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		m.requestCounter.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.requestLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone /metrics con el formato de exposición de Prometheus.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
}
