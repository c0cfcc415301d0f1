// Package httpd is the local HTTP facade (C7): it routes appliance
// requests to the session protocol (C5) and home-automation requests
// to the device property mirror (C4), wrapped in a negroni middleware
// chain the way ap.httpd does.
package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"go.uber.org/zap"

	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/schema"
	"github.com/deiger/aircon/hvac_common/session"
)

// Server owns the router wiring appliance-facing and home-automation
// routes together.
type Server struct {
	log      *zap.Logger
	devices  []*device.Device
	byIP     map[string]*device.Device
	sessions *session.Manager
	router   *mux.Router
}

// New builds a Server over devices. Both the appliance-facing session
// routes and the home-automation status/command routes serve the same
// device set.
func New(log *zap.Logger, devices []*device.Device) *Server {
	s := &Server{
		log:      log,
		devices:  devices,
		byIP:     make(map[string]*device.Device, len(devices)),
		sessions: session.NewManager(log, devices),
		router:   mux.NewRouter(),
	}
	for _, d := range devices {
		s.byIP[d.IPAddress] = d
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/local_lan/key_exchange.json", s.sessions.KeyExchange).Methods(http.MethodPost)
	r.HandleFunc("/local_lan/commands.json", s.sessions.Commands).Methods(http.MethodGet)
	for _, path := range []string{
		"/local_lan/property/datapoint.json",
		"/local_lan/property/datapoint/ack.json",
		"/local_lan/node/property/datapoint.json",
		"/local_lan/node/property/datapoint/ack.json",
	} {
		r.HandleFunc(path, s.sessions.PropertyUpdate).Methods(http.MethodPost)
	}
	r.HandleFunc("/hisense/status", s.status).Methods(http.MethodGet)
	r.HandleFunc("/hisense/command", s.command).Methods(http.MethodGet)
}

// Handler wraps the router in a negroni chain: panic recovery plus a
// zap-backed request logger, matching ap.httpd's shape.
func (s *Server) Handler() http.Handler {
	n := negroni.New(negroni.NewRecovery())
	n.UseFunc(s.logRequest)
	n.UseHandler(s.router)
	return n
}

func (s *Server) logRequest(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	s.log.Debug("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr))
	next(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type deviceStatus struct {
	IP    string                   `json:"ip"`
	Props map[string]schema.Value  `json:"props"`
}

// status handles GET /hisense/status[?device_ip=IP].
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("device_ip")
	if ip == "" {
		out := make([]deviceStatus, 0, len(s.devices))
		for _, d := range s.devices {
			out = append(out, deviceStatus{IP: d.IPAddress, Props: d.Snapshot()})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"devices": out})
		return
	}
	d, ok := s.byIP[ip]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown device_ip"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"devices": []deviceStatus{{IP: d.IPAddress, Props: d.Snapshot()}},
	})
}

// command handles GET /hisense/command?device_ip=IP&property=NAME&value=V.
func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ip := q.Get("device_ip")
	property := q.Get("property")
	value := q.Get("value")

	d, ok := s.byIP[ip]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown device_ip"})
		return
	}
	if err := d.SetProperty(property, value); err != nil {
		status := http.StatusBadRequest
		s.log.Warn("failed to queue command",
			zap.String("device_ip", ip), zap.String("property", property), zap.Error(err))
		if errors.Is(err, device.ErrReadOnly) {
			writeJSON(w, status, map[string]string{"error": "read-only property"})
			return
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"queued_commands": d.QueueDepth()})
}
