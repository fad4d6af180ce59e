package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_client_calls_active",
		Help: "Currently active call (0 or 1 per client instance)",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_calls_total",
		Help: "Total calls started",
	})

	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_audio_frames_sent_total",
		Help: "Outbound microphone frames sent over the channel",
	})

	ChunksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_playback_chunks_enqueued_total",
		Help: "Synthesized audio chunks queued for playback",
	})

	ChunksPlayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_playback_chunks_played_total",
		Help: "Synthesized audio chunks played to completion",
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_playback_decode_failures_total",
		Help: "Audio chunks skipped because decoding failed",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_frames_dropped_total",
		Help: "Inbound channel frames dropped as malformed or unrecognized",
	})

	ErrorsShown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_client_errors_shown_total",
		Help: "User-visible transient errors displayed",
	})

	FirstPartialLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_client_first_partial_seconds",
		Help:    "Turn start to first partial transcript",
		Buckets: []float64{0.1, 0.2, 0.5, 0.8, 1.0, 1.5, 2.0, 3.0, 5.0},
	})

	FinalTranscriptLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_client_final_transcript_seconds",
		Help:    "Turn start to final transcript (server-reported)",
		Buckets: []float64{0.2, 0.5, 1.0, 1.5, 2.0, 3.0, 5.0, 8.0},
	})

	FirstAudioLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_client_first_audio_seconds",
		Help:    "Turn start to first synthesized audio chunk",
		Buckets: []float64{0.5, 1.0, 1.5, 2.0, 3.0, 5.0, 8.0, 12.0},
	})
)

// Serve exposes the Prometheus handler on addr. Blocks; run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
