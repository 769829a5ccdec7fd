package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics tracks placed orders and rejected checkouts.
type CheckoutMetrics struct {
	placed   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	revenue  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_placed_total",
		Help: "Orders created by checkout, by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Checkouts rejected before an order was created, by error code.",
	}, []string{"reason"})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_revenue_cents_total",
		Help: "Sum of order totals in cents.",
	})
	reg.MustRegister(placed, rejected, revenue)
	return &CheckoutMetrics{placed: placed, rejected: rejected, revenue: revenue}
}

// IncPlaced records a successful checkout.
func (m *CheckoutMetrics) IncPlaced(paymentMethod string, totalCents int64) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
	if totalCents > 0 {
		m.revenue.Add(float64(totalCents))
	}
}

// IncRejected records a checkout that failed with the given reason code.
func (m *CheckoutMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}
