// Package device implements the per-appliance session and property
// mirror (C4): identity, session keys, a typed property mirror routed
// through the control-value codec where applicable, a priority command
// queue, sequence-number bookkeeping, availability tracking, and a
// change-listener fan-out. One Device exists per configured appliance
// for the lifetime of the process; only its mutable fields (keys,
// properties, queue, sequence numbers, availability) ever change.
package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/deiger/aircon/hvac_common/controlvalue"
	"github.com/deiger/aircon/hvac_common/crypto"
	"github.com/deiger/aircon/hvac_common/schema"
)

// ErrReadOnly is returned by SetProperty when asked to write a
// read-only field.
var ErrReadOnly = errors.New("device: property is read-only")

// ChangeListener is notified whenever a property's mirrored value
// changes (or, per the source behavior this mirrors, on every update
// attempt regardless of whether the value actually changed). notify
// may differ from the stored value; see overrides.
type ChangeListener func(deviceName, property string, notify schema.Value)

// overrides hooks device-model-specific behavior into the otherwise
// generic property-write and property-change pathways. Only AC-model
// devices install one; see ac.go.
type overrides interface {
	// BeforeParse runs before a user-initiated SetProperty call parses
	// its raw string value, while the special-case values still need
	// string comparison (e.g. t_work_mode's literal "OFF"). It may
	// enqueue its own prefix writes directly on d. It returns the
	// (possibly rewritten) name/raw to continue parsing-and-writing, or
	// handled=true if nothing further should be written.
	BeforeParse(d *Device, name, raw string) (outName, outRaw string, handled bool, err error)
	// AfterSet runs once the main write for name has been queued, with
	// its parsed value.
	AfterSet(d *Device, name string, value schema.Value)
	// NotifyValue computes the value change listeners observe for a
	// mirror write, which may differ from the stored value. Called with
	// d.mu held; must read d.mirror directly, not through Get.
	NotifyValue(d *Device, name string, value schema.Value) schema.Value
	// ExtraNotify returns additional (name, value) pairs to notify
	// listeners about as a side effect of writing name. Called with
	// d.mu held; must read d.mirror directly, not through Get.
	ExtraNotify(d *Device, name string, value schema.Value) []namedValue
}

type namedValue struct {
	name  string
	value schema.Value
}

// Identity groups the immutable, config-derived fields of a Device.
type Identity struct {
	Name       string
	Model      schema.Model
	App        string
	SWVersion  string
	MAC        string
	IPAddress  string
	TempUnit   schema.TemperatureUnit
	Secret     string
	LanipKeyID int
}

// Device is one configured appliance: identity, session keys, property
// mirror, command queue, and sequencing state.
type Device struct {
	Identity

	table *schema.Table

	mu sync.Mutex

	appEnc, devEnc *crypto.Encryption
	lanConfig      crypto.KeyMaterial

	mirror map[string]schema.Value

	queue        commandQueue
	insertSeq    int64
	cmdIDCounter int64
	commandsSeq  int64
	updatesSeqNo int64

	available bool

	listeners        []ChangeListener
	enqueueListeners []func()

	overrides overrides
}

// New constructs a Device for the given identity and property table,
// seeded with the table's declared defaults.
func New(id Identity, table *schema.Table) *Device {
	d := &Device{
		Identity: id,
		table:    table,
		mirror:   make(map[string]schema.Value, len(table.Fields())),
	}
	for _, f := range table.Fields() {
		d.mirror[f.Name] = f.Default
	}
	if id.Model == schema.ModelAC {
		d.overrides = &acOverrides{}
	}
	return d
}

// Table returns the device model's property schema.
func (d *Device) Table() *schema.Table { return d.table }

// AddListener registers fn to be invoked on every property write.
func (d *Device) AddListener(fn ChangeListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// AddEnqueueListener registers fn to be invoked, without the device
// lock held, whenever a command is pushed onto the queue. The notifier
// uses this as its event-driven wake, per spec.md §4.8's "condition
// variable signal raised when work is enqueued".
func (d *Device) AddEnqueueListener(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enqueueListeners = append(d.enqueueListeners, fn)
}

func (d *Device) snapshotListeners() []ChangeListener {
	out := make([]ChangeListener, len(d.listeners))
	copy(out, d.listeners)
	return out
}

func (d *Device) snapshotEnqueueListeners() []func() {
	out := make([]func(), len(d.enqueueListeners))
	copy(out, d.enqueueListeners)
	return out
}

// --- property mirror -------------------------------------------------

// usesControlValueLocked reports whether name should be routed through
// t_control_value: the model has that field, name isn't itself
// t_control_value, name has a control-value mapping, and the register
// is currently known (non-nil) in the mirror. Caller must hold d.mu.
func (d *Device) usesControlValueLocked(name string) bool {
	if name == "t_control_value" {
		return false
	}
	if _, ok := d.table.Field("t_control_value"); !ok {
		return false
	}
	if !isControlValueField(name) {
		return false
	}
	cv, ok := d.mirror["t_control_value"]
	return ok && cv != nil
}

var controlValueFieldSet = func() map[string]bool {
	m := make(map[string]bool)
	for _, n := range controlvalue.FieldNames() {
		m[n] = true
	}
	return m
}()

func isControlValueField(name string) bool { return controlValueFieldSet[name] }

// decodeControlValueFieldLocked resolves name's current value out of
// the control-value register, rounding the raw bit-packed int back
// through the field's own DecodeWire so callers observe the same
// declared enum/scalar type the direct-property path would produce.
// Caller must hold d.mu.
func (d *Device) decodeControlValueFieldLocked(reg controlvalue.Register, name string) schema.Value {
	raw, ok := controlvalue.Decode(reg)[name]
	if !ok {
		return nil
	}
	field, ok := d.table.Field(name)
	if !ok {
		return raw
	}
	v, err := field.DecodeWire(raw)
	if err != nil {
		return raw
	}
	return v
}

// Get returns name's current value, decoding through t_control_value
// when that register is authoritative for name.
func (d *Device) Get(name string) (schema.Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.usesControlValueLocked(name) {
		reg := controlvalue.Register(d.mirror["t_control_value"].(int))
		return d.decodeControlValueFieldLocked(reg, name), true
	}
	v, ok := d.mirror[name]
	return v, ok
}

// Snapshot returns a consistent copy of the whole mirror, with
// control-value-backed fields resolved through the register.
func (d *Device) Snapshot() map[string]schema.Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]schema.Value, len(d.mirror))
	var reg controlvalue.Register
	haveReg := false
	if cv, ok := d.mirror["t_control_value"]; ok && cv != nil {
		reg = controlvalue.Register(cv.(int))
		haveReg = true
	}
	for name, v := range d.mirror {
		if haveReg && isControlValueField(name) {
			out[name] = d.decodeControlValueFieldLocked(reg, name)
			continue
		}
		out[name] = v
	}
	return out
}

// applyMirrorLocked writes value into the mirror slot for name and
// reports whether it changed. Caller must hold d.mu.
func (d *Device) applyMirrorLocked(name string, value schema.Value) bool {
	old, existed := d.mirror[name]
	d.mirror[name] = value
	return !existed || old != value
}

// notify invokes every listener with (device name, property, notify
// value). Matches the source's always-notify behavior: listeners fire
// whether or not the value actually changed.
func (d *Device) notify(name string, value schema.Value) {
	listeners := d.snapshotListeners()
	for _, l := range listeners {
		l(d.Name, name, value)
	}
}

// update is the generic property-mirror write used by both the
// optimistic post-send updater and the inbound update path. It applies
// device-model overrides for the notified value and any extra
// notifications.
func (d *Device) update(name string, value schema.Value) {
	d.mu.Lock()
	d.applyMirrorLocked(name, value)
	notify := value
	var extra []namedValue
	if d.overrides != nil {
		notify = d.overrides.NotifyValue(d, name, value)
		extra = d.overrides.ExtraNotify(d, name, value)
	}
	d.mu.Unlock()

	d.notify(name, notify)
	for _, e := range extra {
		d.notify(e.name, e.value)
	}
}

// ApplyUpdate handles an inbound property update from the appliance:
// coerce raw through name's declared type and write it into the
// mirror. A write to t_control_value additionally
// decodes the register and writes each sub-field into its own named
// property.
func (d *Device) ApplyUpdate(name string, raw interface{}) error {
	field, ok := d.table.Field(name)
	if !ok {
		return fmt.Errorf("device: unknown property %q", name)
	}
	value, err := field.DecodeWire(raw)
	if err != nil {
		return fmt.Errorf("device: decoding %q: %w", name, err)
	}
	d.update(name, value)

	if name == "t_control_value" {
		reg := controlvalue.Register(value.(int))
		for subName, subValue := range controlvalue.Decode(reg) {
			if subField, ok := d.table.Field(subName); ok {
				decoded, err := subField.DecodeWire(subValue)
				if err == nil {
					d.update(subName, decoded)
				}
			}
		}
	}
	return nil
}

// --- sequence numbers --------------------------------------------------

// NextCommandSeqNo allocates and returns the next outgoing sequence
// number, strictly increasing per device.
func (d *Device) NextCommandSeqNo() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	seq := d.commandsSeq
	d.commandsSeq++
	return seq
}

// AcceptUpdateSeq enforces the inbound sequencing rule: accept if
// seqNo is past the high-water mark, or is
// exactly zero (the appliance's documented reset case). On acceptance
// the high-water mark is advanced to seqNo.
func (d *Device) AcceptUpdateSeq(seqNo int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seqNo == 0 {
		d.updatesSeqNo = 0
		return true
	}
	if seqNo <= d.updatesSeqNo {
		return false
	}
	d.updatesSeqNo = seqNo
	return true
}

// --- availability --------------------------------------------------

// Available reports the device's last-known liveness.
func (d *Device) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

// SetAvailable updates availability and, on change, publishes it to
// listeners under the synthetic property name "available".
func (d *Device) SetAvailable(online bool) {
	d.mu.Lock()
	changed := d.available != online
	d.available = online
	d.mu.Unlock()
	if changed {
		d.notify("available", online)
	}
}

// --- session keys --------------------------------------------------

// KeyID returns the device's provisioned lanip_key_id.
func (d *Device) KeyID() int { return d.LanipKeyID }

// AppEncryption returns the current app->dev encryption context.
func (d *Device) AppEncryption() *crypto.Encryption {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appEnc
}

// DevEncryption returns the current dev->app encryption context.
func (d *Device) DevEncryption() *crypto.Encryption {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devEnc
}

// UpdateKeys completes a key exchange: stores the appliance's
// random_1/time_1, generates a fresh random_2/time_2, rebuilds both
// Encryption contexts from the shared secret, and returns the values to
// echo back to the appliance.
func (d *Device) UpdateKeys(random1 string, time1 int64) (random2 string, time2 int64, err error) {
	random2, err = crypto.RandomAlnum(16)
	if err != nil {
		return "", 0, err
	}
	time2 = crypto.Time40(time.Now().UnixNano())

	km := crypto.KeyMaterial{Random1: random1, Time1: time1, Random2: random2, Time2: time2}
	secret := []byte(d.Secret)
	app, err := crypto.NewAppEncryption(secret, km)
	if err != nil {
		return "", 0, err
	}
	dev, err := crypto.NewDevEncryption(secret, km)
	if err != nil {
		return "", 0, err
	}

	d.mu.Lock()
	d.lanConfig = km
	d.appEnc = app
	d.devEnc = dev
	d.mu.Unlock()
	return random2, time2, nil
}
