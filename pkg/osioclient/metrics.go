package osioclient

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestsTotal counts the requests issued by gateways, by HTTP method
var RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "osio_requests_total",
	Help: "The total number of requests made to the OpenSensors API",
}, []string{"method"})

// RequestFailuresTotal counts the requests that failed in transport or returned a status >= 400
var RequestFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "osio_request_failures_total",
	Help: "The total number of failed requests to the OpenSensors API",
}, []string{"method"})

// StreamsOpenedTotal counts the event streams that were opened successfully
var StreamsOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "osio_streams_opened_total",
	Help: "The total number of real-time event streams opened",
})

// RegisterMetrics registers the gateway counters with the given registry.
// Registering them again on the same registry is not an error. A different collector
// registered under one of the names is.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RequestsTotal, RequestFailuresTotal, StreamsOpenedTotal} {
		if err := reg.Register(c); err != nil {
			var registered prometheus.AlreadyRegisteredError
			if errors.As(err, &registered) && registered.ExistingCollector == c {
				continue
			}
			return err
		}
	}
	return nil
}
