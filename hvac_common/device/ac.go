package device

import "github.com/deiger/aircon/hvac_common/schema"

// acOverrides implements the AC-model behavioral patches on top of the
// generic property-write and property-change pathways: the work_mode
// "OFF" rewrite, the fast heat/cool cascade, and the off-state
// work_mode notification.
type acOverrides struct{}

// BeforeParse rewrites t_work_mode writes: setting it to "OFF" is
// rewritten into t_power := OFF (and nothing else is written); any
// other mode additionally queues t_power := ON ahead of the mode write
// itself.
func (acOverrides) BeforeParse(d *Device, name, raw string) (string, string, bool, error) {
	if name != "t_work_mode" {
		return name, raw, false, nil
	}
	if raw == "OFF" {
		if err := d.SetProperty("t_power", "OFF"); err != nil {
			return "", "", false, err
		}
		return "", "", true, nil
	}
	if err := d.SetProperty("t_power", "ON"); err != nil {
		return "", "", false, err
	}
	return name, raw, false, nil
}

// AfterSet issues the fast heat/cool cascade exactly once per user
// request: setting t_temp_heatcold to ON
// additionally queues fan_speed=AUTO, fan_mute=OFF, sleep=STOP,
// temp_eight=OFF, in that order.
func (acOverrides) AfterSet(d *Device, name string, value schema.Value) {
	if name != "t_temp_heatcold" {
		return
	}
	if onoff, ok := value.(schema.OnOff); !ok || onoff != schema.On {
		return
	}
	for _, cmd := range [][2]string{
		{"t_fan_speed", "AUTO"},
		{"t_fan_mute", "OFF"},
		{"t_sleep", "STOP"},
		{"t_temp_eight", "OFF"},
	} {
		_ = d.SetProperty(cmd[0], cmd[1])
	}
}

// NotifyValue implements the off-state mode notification: publishing a
// change to t_work_mode while t_power is OFF notifies "off" instead of
// the stored mode name. Called with d.mu held.
func (acOverrides) NotifyValue(d *Device, name string, value schema.Value) schema.Value {
	if name != "t_work_mode" {
		return value
	}
	if power, ok := d.mirror["t_power"].(schema.OnOff); ok && power == schema.Off {
		return "off"
	}
	return value
}

// ExtraNotify implements the other half of the off-state mode
// notification: whenever t_power changes, additionally notify
// listeners on t_work_mode ("off" if now powered off, the stored mode
// otherwise). Called with d.mu held.
func (acOverrides) ExtraNotify(d *Device, name string, value schema.Value) []namedValue {
	if name != "t_power" {
		return nil
	}
	if power, ok := value.(schema.OnOff); ok && power == schema.Off {
		return []namedValue{{name: "t_work_mode", value: "off"}}
	}
	mode, ok := d.mirror["t_work_mode"]
	if !ok || mode == nil {
		return nil
	}
	return []namedValue{{name: "t_work_mode", value: mode}}
}
