package device

import (
	"container/heap"
	"fmt"

	"github.com/deiger/aircon/hvac_common/controlvalue"
	"github.com/deiger/aircon/hvac_common/crypto"
	"github.com/deiger/aircon/hvac_common/metrics"
	"github.com/deiger/aircon/hvac_common/schema"
)

// randomCommandID generates the 8-character alphanumeric "id" echoed
// inside a set-request's property object.
func randomCommandID() (string, error) {
	return crypto.RandomAlnum(8)
}

// Command priorities: user-initiated set-requests overtake background
// status-refresh get-requests regardless of insert time.
const (
	PrioritySet    = 10
	PriorityStatus = 100
)

// queuedCommand is one entry in a device's outgoing command queue.
type queuedCommand struct {
	priority int
	seq      int64 // monotonic insert order; FIFO tiebreak within a priority
	payload  map[string]interface{}
	updater  func()
	index    int
}

// commandQueue implements container/heap.Interface, keyed by (priority
// ascending, seq ascending).
type commandQueue []*queuedCommand

func (q commandQueue) Len() int { return len(q) }

func (q commandQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q commandQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *commandQueue) Push(x interface{}) {
	item := x.(*queuedCommand)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *commandQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	item.index = -1
	*q = old[:n-1]
	return item
}

// push enqueues payload at priority with the given post-send updater
// (nullable), assigning it the next FIFO tiebreak sequence number, and
// wakes every registered enqueue listener outside the lock.
func (d *Device) push(priority int, payload map[string]interface{}, updater func()) {
	d.mu.Lock()
	seq := d.insertSeq
	d.insertSeq++
	heap.Push(&d.queue, &queuedCommand{priority: priority, seq: seq, payload: payload, updater: updater})
	d.mu.Unlock()
	metrics.CommandsQueued.Inc()

	for _, fn := range d.snapshotEnqueueListeners() {
		fn()
	}
}

// QueueDepth returns the number of commands currently queued.
func (d *Device) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// PopCommand non-blockingly pops the highest-priority queued entry. ok
// is false if the queue is empty.
func (d *Device) PopCommand() (payload map[string]interface{}, updater func(), ok bool) {
	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return nil, nil, false
	}
	item := heap.Pop(&d.queue).(*queuedCommand)
	d.mu.Unlock()
	return item.payload, item.updater, true
}

// QueueStatusRefresh enqueues a background GET for every field in the
// device's property table, at PriorityStatus.
func (d *Device) QueueStatusRefresh() {
	for _, name := range d.table.Names() {
		d.mu.Lock()
		cmdID := d.cmdIDCounter
		d.cmdIDCounter++
		d.mu.Unlock()
		payload := map[string]interface{}{
			"cmds": []interface{}{
				map[string]interface{}{
					"cmd": map[string]interface{}{
						"method":   "GET",
						"resource": "property.json?name=" + name,
						"uri":      "/local_lan/property/datapoint.json",
						"data":     "",
						"cmd_id":   cmdID,
					},
				},
			},
		}
		d.push(PriorityStatus, payload, nil)
	}
}

// SetProperty is the entry point for a user-initiated (or MQTT/home
// automation) write to a named property, given its raw textual value
// (an uppercased MQTT command payload, or a home-automation query
// value). It enforces read-only, applies device-model overrides,
// parses the value through the field's declared type, routes through
// the control-value codec when applicable, and enqueues the resulting
// command at PrioritySet.
func (d *Device) SetProperty(name, raw string) error {
	field, ok := d.table.Field(name)
	if !ok {
		return fmt.Errorf("device: unknown property %q", name)
	}
	if field.ReadOnly {
		return ErrReadOnly
	}

	if d.overrides != nil {
		var handled bool
		var err error
		name, raw, handled, err = d.overrides.BeforeParse(d, name, raw)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
		field, ok = d.table.Field(name)
		if !ok {
			return fmt.Errorf("device: unknown property %q", name)
		}
		if field.ReadOnly {
			return ErrReadOnly
		}
	}

	value, err := field.ParseText(raw)
	if err != nil {
		return fmt.Errorf("device: parsing %q for %q: %w", raw, name, err)
	}

	if err := d.enqueueWrite(name, field, value); err != nil {
		return err
	}

	if d.overrides != nil {
		d.overrides.AfterSet(d, name, value)
	}
	return nil
}

func (d *Device) enqueueWrite(name string, field *schema.Field, value schema.Value) error {
	d.mu.Lock()
	useCV := d.usesControlValueLocked(name)
	d.mu.Unlock()

	if useCV {
		return d.enqueueControlValue(name, value)
	}
	return d.enqueueDirect(name, field, value)
}

func (d *Device) enqueueDirect(name string, field *schema.Field, value schema.Value) error {
	id, err := randomCommandID()
	if err != nil {
		return err
	}
	payload := map[string]interface{}{
		"properties": []interface{}{
			map[string]interface{}{
				"property": map[string]interface{}{
					"base_type": string(field.BaseType),
					"name":      name,
					"value":     field.EncodeWire(value),
					"id":        id,
				},
			},
		},
	}
	d.push(PrioritySet, payload, func() { d.update(name, value) })
	return nil
}

// enqueueControlValue rewrites a write to a control-value-backed
// property into a single t_control_value set-request: the new
// register is computed from the current one and
// the only thing enqueued is the register write.
func (d *Device) enqueueControlValue(name string, value schema.Value) error {
	d.mu.Lock()
	cv := d.mirror["t_control_value"]
	d.mu.Unlock()

	reg, err := setControlValueField(controlvalue.Register(cv.(int)), name, value)
	if err != nil {
		return err
	}

	field, _ := d.table.Field("t_control_value")
	return d.enqueueDirect("t_control_value", field, int(reg))
}

// setControlValueField dispatches to the Register setter for one of
// the ten control-value sub-fields.
func setControlValueField(reg controlvalue.Register, name string, value schema.Value) (controlvalue.Register, error) {
	switch name {
	case "t_fan_speed":
		return reg.SetFanSpeed(value.(schema.FanSpeed)), nil
	case "t_power":
		return reg.SetPower(value.(schema.OnOff)), nil
	case "t_work_mode":
		return reg.SetWorkMode(value.(schema.AcWorkMode)), nil
	case "t_temp_heatcold":
		return reg.SetHeatCold(value.(schema.OnOff)), nil
	case "t_eco":
		return reg.SetEco(value.(schema.OnOff)), nil
	case "t_temp":
		return reg.SetTemp(value.(int)), nil
	case "t_fan_power":
		return reg.SetFanPower(value.(schema.AirFlow)), nil
	case "t_fan_leftright":
		return reg.SetFanLR(value.(schema.AirFlow)), nil
	case "t_fan_mute":
		return reg.SetFanMute(value.(schema.Quiet)), nil
	case "t_temptype":
		return reg.SetTempType(value.(schema.TemperatureUnit)), nil
	}
	return reg, fmt.Errorf("device: %q has no control-value mapping", name)
}
