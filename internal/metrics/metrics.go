package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transitdecode.org/hafas/internal/hafas"
)

// Decoder labels.
const (
	DecoderBinaryTrips  = "binary_trips"
	DecoderXMLTrips     = "xml_trips"
	DecoderStationBoard = "station_board"
	DecoderSuggestions  = "suggestions"
	DecoderNearby       = "nearby"
	DecoderXMLNearby    = "xml_nearby"
)

type Collector struct {
	reg *prometheus.Registry

	DecodeTotal       *prometheus.CounterVec // decoder, backend, outcome
	DecodeDuration    *prometheus.HistogramVec
	DecodedTrips      *prometheus.CounterVec
	DecodedDepartures *prometheus.CounterVec
	Backends          prometheus.Gauge
}

func NewCollector(backends int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		DecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hafas_decode_total",
			Help: "Decode calls by decoder, backend and outcome.",
		}, []string{"decoder", "backend", "outcome"}),
		DecodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hafas_decode_duration_seconds",
			Help:    "Time spent decoding one response.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}, []string{"decoder"}),
		DecodedTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hafas_decoded_trips_total",
			Help: "Trips produced by successful decodes.",
		}, []string{"backend"}),
		DecodedDepartures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hafas_decoded_departures_total",
			Help: "Departures produced by successful station board decodes.",
		}, []string{"backend"}),
		Backends: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hafas_backends_configured",
			Help: "Number of loaded backend profiles.",
		}),
	}

	reg.MustRegister(c.DecodeTotal, c.DecodeDuration, c.DecodedTrips, c.DecodedDepartures, c.Backends)
	c.Backends.Set(float64(backends))

	return c
}

// Outcome classifies a decode error into a bounded label value.
func Outcome(err error) string {
	var protocolErr *hafas.ProtocolError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, hafas.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, hafas.ErrProtocolVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, hafas.ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &protocolErr):
		return "protocol_error"
	default:
		return "error"
	}
}

// ObserveDecode records one decode call that started at start.
func (c *Collector) ObserveDecode(decoder, backend string, start time.Time, err error) {
	c.DecodeTotal.WithLabelValues(decoder, backend, Outcome(err)).Inc()
	c.DecodeDuration.WithLabelValues(decoder).Observe(time.Since(start).Seconds())
}

func (c *Collector) AddTrips(backend string, n int) {
	c.DecodedTrips.WithLabelValues(backend).Add(float64(n))
}

func (c *Collector) AddDepartures(backend string, n int) {
	c.DecodedDepartures.WithLabelValues(backend).Add(float64(n))
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
