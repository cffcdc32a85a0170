package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxScrapesInFlight bounds concurrent scrapes of one collector.
const maxScrapesInFlight = 4

// Handler serves the collector's registry. Scrapers that ask for
// OpenMetrics get it; a failing collector is skipped rather than failing
// the whole scrape. The handler counts its own requests and errors in the
// same registry.
func (c *Collector) Handler() http.Handler {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		Registry:            c.registry,
		EnableOpenMetrics:   true,
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: maxScrapesInFlight,
	})
	return promhttp.InstrumentMetricHandler(c.registry, h)
}
