package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/storefront-cart/internal/domain"
	"github.com/nikolayk812/storefront-cart/internal/port"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// GatewayMetrics counts remote cart calls by operation and result.
type GatewayMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) (*GatewayMetrics, error) {
	m := &GatewayMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart_gateway",
			Name:      "calls_total",
			Help:      "Remote cart store calls by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "cart_gateway",
			Name:      "call_duration_seconds",
			Help:      "Latency of remote cart store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{m.calls, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *GatewayMetrics) observe(op string, start time.Time, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.calls.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

type instrumentedGateway struct {
	next    port.CartGateway
	metrics *GatewayMetrics
}

func InstrumentGateway(next port.CartGateway, m *GatewayMetrics) port.CartGateway {
	return &instrumentedGateway{next: next, metrics: m}
}

func (g *instrumentedGateway) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (_ domain.CartLineItem, err error) {
	defer func(start time.Time) { g.metrics.observe("upsert_item", start, err) }(time.Now())
	return g.next.UpsertItem(ctx, userID, productID, quantity)
}

func (g *instrumentedGateway) FetchCart(ctx context.Context, userID uuid.UUID) (_ []domain.CartLineItem, err error) {
	defer func(start time.Time) { g.metrics.observe("fetch_cart", start, err) }(time.Now())
	return g.next.FetchCart(ctx, userID)
}

func (g *instrumentedGateway) DeleteItem(ctx context.Context, userID, productID uuid.UUID) (err error) {
	defer func(start time.Time) { g.metrics.observe("delete_item", start, err) }(time.Now())
	return g.next.DeleteItem(ctx, userID, productID)
}

func (g *instrumentedGateway) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (_ domain.CartLineItem, err error) {
	defer func(start time.Time) { g.metrics.observe("update_item_quantity", start, err) }(time.Now())
	return g.next.UpdateItemQuantity(ctx, userID, productID, quantity)
}

func (m *GatewayMetrics) Calls() *prometheus.CounterVec {
	return m.calls
}
