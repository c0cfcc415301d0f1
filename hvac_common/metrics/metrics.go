// Package metrics holds the process-wide Prometheus counters the rest
// of the bridge increments inline at the point each event happens,
// the way ap.iotd's package-level `metrics` struct is incremented from
// its handlers. Registration happens once, in init, so every package
// that imports metrics can call Inc() without threading a registry
// handle through constructors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FramesSigned counts outbound command frames encrypted and signed
	// for delivery to an appliance (C5 Commands).
	FramesSigned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_frames_signed_total",
		Help: "Outbound command frames signed.",
	})
	// FramesRejected counts inbound property-update frames that failed
	// decrypt/verify (C5 PropertyUpdate). Frames dropped as stale by
	// sequence validation are not counted.
	FramesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_frames_rejected_total",
		Help: "Inbound property update frames rejected.",
	})
	// CommandsQueued counts commands enqueued across all devices (C4).
	CommandsQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_commands_queued_total",
		Help: "Commands enqueued across all devices.",
	})
	// CommandsPopped counts commands popped off a device queue and
	// handed to an appliance (C5 Commands).
	CommandsPopped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_commands_popped_total",
		Help: "Commands popped and sent to an appliance.",
	})
	// NotifierAttempts counts individual local_reg HTTP attempts,
	// including retries (C6).
	NotifierAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_notifier_attempts_total",
		Help: "local_reg keep-alive attempts, including retries.",
	})
	// NotifierFailures counts local_reg poke sequences that exhausted
	// every retry without a 202 (C6).
	NotifierFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_notifier_failures_total",
		Help: "local_reg keep-alive sequences exhausted without success.",
	})
	// MQTTPublishes counts property/availability/discovery publishes
	// sent to the broker (C8).
	MQTTPublishes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hvacbridge_mqtt_publishes_total",
		Help: "MQTT publishes (status, availability, discovery).",
	})
)

func init() {
	prometheus.MustRegister(FramesSigned, FramesRejected, CommandsQueued,
		CommandsPopped, NotifierAttempts, NotifierFailures, MQTTPublishes)
}
