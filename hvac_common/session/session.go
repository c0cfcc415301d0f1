// Package session implements the session protocol (C5): the
// key-exchange, command-fetch, and property-update endpoints the
// appliance calls into, keyed by the appliance's source IP. It
// enforces the sequence-number discipline in both directions and owns
// the encrypt/sign and decrypt/verify steps around C1.
package session

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/metrics"
)

// Error taxonomy, named the way cfgapi's package-level
// sentinels are, for log-site %v comparisons and wrapping.
var (
	ErrUnknownDevice = errors.New("session: unrecognized source address")
	ErrKeyInvalid    = errors.New("session: invalid key exchange request")
	ErrKeyMismatch   = errors.New("session: key_id does not match")
	ErrFraming       = errors.New("session: frame decrypt/verify failed")
)

// Manager routes appliance HTTP requests to the device they came from,
// keyed by source IP under the precondition that each LAN IP maps to
// exactly one device.
type Manager struct {
	log     *zap.Logger
	devices map[string]*device.Device
}

// NewManager builds a Manager over the given devices, indexed by their
// configured LAN IP address.
func NewManager(log *zap.Logger, devices []*device.Device) *Manager {
	m := &Manager{log: log, devices: make(map[string]*device.Device, len(devices))}
	for _, d := range devices {
		m.devices[d.IPAddress] = d
	}
	return m
}

func (m *Manager) lookup(r *http.Request) (*device.Device, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	d, ok := m.devices[host]
	if !ok {
		return nil, ErrUnknownDevice
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// KeyExchange handles POST /local_lan/key_exchange.json.
func (m *Manager) KeyExchange(w http.ResponseWriter, r *http.Request) {
	d, err := m.lookup(r)
	if err != nil {
		m.log.Warn("key exchange from unknown device", zap.String("remote", r.RemoteAddr))
		writeJSON(w, http.StatusNotFound, nil)
		return
	}

	var req struct {
		KeyExchange map[string]interface{} `json:"key_exchange"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.KeyExchange == nil {
		m.log.Error("malformed key exchange body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}
	ke := req.KeyExchange

	ver, _ := ke["ver"].(float64)
	proto, _ := ke["proto"].(float64)
	if _, hasSec := ke["sec"]; hasSec || ver != 1 || proto != 1 {
		m.log.Error("invalid key exchange", zap.Any("key_exchange", ke))
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	keyID, ok := ke["key_id"].(float64)
	if !ok {
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}
	if int(keyID) != d.KeyID() {
		m.log.Error("key_id mismatch", zap.Int("got", int(keyID)), zap.Int("want", d.KeyID()))
		writeJSON(w, http.StatusNotFound, nil)
		return
	}

	random1, _ := ke["random_1"].(string)
	time1, _ := ke["time_1"].(float64)

	random2, time2, err := d.UpdateKeys(random1, int64(time1))
	if err != nil {
		m.log.Error("failed to derive session keys", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"random_2": random2,
		"time_2":   time2,
	})
}

// Commands handles GET /local_lan/commands.json: pops
// one queue entry, encrypts and signs it under the device's app
// encryption context, and applies the optimistic property updater only
// after the reply has been written.
func (m *Manager) Commands(w http.ResponseWriter, r *http.Request) {
	d, err := m.lookup(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, nil)
		return
	}

	seqNo := d.NextCommandSeqNo()
	payload, updater, ok := d.PopCommand()
	if !ok {
		payload = map[string]interface{}{}
	}

	plaintext, err := json.Marshal(map[string]interface{}{
		"seq_no": seqNo,
		"data":   payload,
	})
	if err != nil {
		m.log.Error("failed to marshal command reply", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, nil)
		return
	}

	enc := d.AppEncryption()
	if enc == nil {
		writeJSON(w, http.StatusNotFound, nil)
		return
	}
	frame := map[string]string{
		"enc":  base64.StdEncoding.EncodeToString(enc.Encrypt(plaintext)),
		"sign": base64.StdEncoding.EncodeToString(enc.Sign(plaintext)),
	}
	metrics.FramesSigned.Inc()
	if ok {
		metrics.CommandsPopped.Inc()
	}
	writeJSON(w, http.StatusOK, frame)

	if updater != nil {
		updater()
	}
}

// PropertyUpdate handles POST /local_lan/property/datapoint[/ack].json
// and its /node/ variants.
func (m *Manager) PropertyUpdate(w http.ResponseWriter, r *http.Request) {
	d, err := m.lookup(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, nil)
		return
	}

	var frame struct {
		Enc  string `json:"enc"`
		Sign string `json:"sign"`
	}
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		m.log.Error("malformed update frame", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	plaintext, err := m.decryptAndVerify(d, frame.Enc, frame.Sign)
	if err != nil {
		metrics.FramesRejected.Inc()
		m.log.Error("failed to parse property", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	var update struct {
		SeqNo int64 `json:"seq_no"`
		Data  struct {
			Name  string      `json:"name"`
			Value interface{} `json:"value"`
		} `json:"data"`
	}
	if err := json.Unmarshal(plaintext, &update); err != nil {
		m.log.Error("failed to unmarshal update", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, nil)
		return
	}

	// The response is always 200 once the frame itself decrypted and
	// verified; staleness and schema misses are logged, not surfaced.
	writeJSON(w, http.StatusOK, nil)

	if !d.AcceptUpdateSeq(update.SeqNo) {
		m.log.Debug("dropping stale update", zap.Int64("seq_no", update.SeqNo))
		return
	}
	if update.Data.Name == "" {
		m.log.Debug("update carried no property, likely unsupported", zap.Int64("seq_no", update.SeqNo))
		return
	}
	if err := d.ApplyUpdate(update.Data.Name, update.Data.Value); err != nil {
		m.log.Warn("failed to apply property update", zap.String("name", update.Data.Name), zap.Error(err))
	}
}

func (m *Manager) decryptAndVerify(d *device.Device, encB64, signB64 string) ([]byte, error) {
	enc := d.DevEncryption()
	if enc == nil {
		return nil, ErrFraming
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encB64)
	if err != nil {
		return nil, errors.Wrap(err, "decoding enc")
	}
	plaintext, err := enc.Decrypt(ciphertext)
	if err != nil {
		return nil, errors.Wrap(err, "decrypting frame")
	}
	sign, err := base64.StdEncoding.DecodeString(signB64)
	if err != nil {
		return nil, errors.Wrap(err, "decoding sign")
	}
	if !enc.VerifySign(plaintext, sign) {
		return nil, ErrFraming
	}
	return plaintext, nil
}
