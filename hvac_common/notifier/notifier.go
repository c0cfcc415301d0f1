// Package notifier implements the per-device local_reg liveness loop
// (C6): a periodic/event-driven poke that tells the appliance to
// connect in and drain its queued commands, with retry/backoff and
// availability tracking.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/metrics"
)

const (
	keepAliveInterval = 10 * time.Second
	drainPause        = 100 * time.Millisecond
	connectTimeout    = 5 * time.Second
	backoffBase       = time.Second
	backoffFactor     = 1.6
	backoffCap        = 10 * time.Second
	maxAttempts       = 6
)

type deviceState struct {
	device        *device.Device
	lastTimestamp time.Time
}

// Notifier drives the local_reg keep-alive poke for a fixed set of
// devices. One Notifier serves every configured device; devices never
// share state beyond the shared wake signal.
type Notifier struct {
	log     *zap.Logger
	localIP string
	port    int
	client  *http.Client

	mu     sync.Mutex
	states []*deviceState

	// wake is a single-slot buffered signal: a flurry of
	// enqueues produces at most one extra notifier iteration.
	wake chan struct{}
	stop chan struct{}
}

// New builds a Notifier for devices, reachable from localIP:port on
// our side of the local_reg exchange.
func New(log *zap.Logger, localIP string, port int, devices []*device.Device) *Notifier {
	states := make([]*deviceState, len(devices))
	for i, d := range devices {
		states[i] = &deviceState{device: d}
	}
	return &Notifier{
		log:     log,
		localIP: localIP,
		port:    port,
		client:  &http.Client{},
		states:  states,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// Notify wakes the notifier loop early, e.g. because a command was
// just enqueued for one of its devices.
func (n *Notifier) Notify() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Stop ends Run at its next wake.
func (n *Notifier) Stop() {
	close(n.stop)
}

// Run drives the poke loop until ctx is canceled or Stop is called.
// Each iteration's sleep is timer-based when queues look drained, or a
// short fixed pause to give the appliance time to drain otherwise.
func (n *Notifier) Run(ctx context.Context) {
	for {
		maxDepth := n.stepAll(ctx)

		var sleep time.Duration
		if maxDepth <= 1 {
			sleep = keepAliveInterval
		} else {
			sleep = drainPause
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-n.stop:
			timer.Stop()
			return
		case <-n.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (n *Notifier) stepAll(ctx context.Context) int {
	n.mu.Lock()
	states := make([]*deviceState, len(n.states))
	copy(states, n.states)
	n.mu.Unlock()

	maxDepth := 0
	for _, st := range states {
		if depth := st.device.QueueDepth(); depth > maxDepth {
			maxDepth = depth
		}
		n.poke(ctx, st)
	}
	return maxDepth
}

// poke sends one local_reg request for st's device, subject to the
// offline-backoff skip, and records the resulting availability.
func (n *Notifier) poke(ctx context.Context, st *deviceState) {
	d := st.device
	now := time.Now()
	if !d.Available() && now.Sub(st.lastTimestamp) < keepAliveInterval {
		return
	}
	st.lastTimestamp = now

	method := http.MethodPut
	if !d.Available() {
		method = http.MethodPost
	}
	notify := 0
	if d.QueueDepth() > 0 {
		notify = 1
	}
	body := map[string]interface{}{
		"local_reg": map[string]interface{}{
			"ip":     n.localIP,
			"notify": notify,
			"port":   n.port,
			"uri":    "/local_lan",
		},
	}

	ok := n.sendWithBackoff(ctx, d, method, body)
	d.SetAvailable(ok)
	if !ok {
		n.log.Error("local_reg keep-alive failed, marking device offline",
			zap.String("device", d.Name), zap.String("ip", d.IPAddress))
	}
}

// sendWithBackoff retries a failed local_reg send up to maxAttempts
// times, with exponential backoff capped at backoffCap.
func (n *Notifier) sendWithBackoff(ctx context.Context, d *device.Device, method string, body interface{}) bool {
	backoff := backoffBase
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * backoffFactor)
			if backoff > backoffCap {
				backoff = backoffCap
			}
		}
		if n.attempt(ctx, d, method, body) {
			return true
		}
	}
	metrics.NotifierFailures.Inc()
	return false
}

func (n *Notifier) attempt(ctx context.Context, d *device.Device, method string, body interface{}) bool {
	metrics.NotifierAttempts.Inc()
	data, err := json.Marshal(body)
	if err != nil {
		n.log.Error("failed to marshal local_reg body", zap.Error(err))
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/local_reg.json", d.IPAddress)
	req, err := http.NewRequestWithContext(reqCtx, method, url, bytes.NewReader(data))
	if err != nil {
		n.log.Error("failed to build local_reg request", zap.Error(err))
		return false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Debug("local_reg request failed", zap.String("device", d.Name), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		n.log.Debug("local_reg rejected", zap.String("device", d.Name), zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}
