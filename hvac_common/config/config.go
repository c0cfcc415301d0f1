// Package config loads the per-device persisted configuration blob:
// one JSON file per device under a directory, read at startup the way
// ap_common/device.DevicesLoad reads a JSON device database.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/deiger/aircon/hvac_common/device"
	"github.com/deiger/aircon/hvac_common/schema"
)

// Entry is the on-disk shape of one device's configuration file.
type Entry struct {
	Name       string `json:"name"`
	App        string `json:"app"`
	Model      string `json:"model"`
	SWVersion  string `json:"sw_version"`
	DSN        string `json:"dsn"`
	TempType   string `json:"temp_type"`
	MACAddress string `json:"mac_address"`
	IPAddress  string `json:"ip_address"`
	LanIPKey   string `json:"lanip_key"`
	LanIPKeyID int    `json:"lanip_key_id"`
}

// Load reads every "*.json" file directly under dir and constructs one
// *device.Device per entry. An unknown model is a load error (a
// non-zero exit on startup), matching schema.TableFor's error.
func Load(dir string) ([]*device.Device, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading device directory %s", dir)
	}

	var devices []*device.Device
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		d, err := loadOne(path)
		if err != nil {
			return nil, errors.Wrapf(err, "config: loading %s", path)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func loadOne(path string) (*device.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Wrap(err, "decoding device config")
	}

	model := schema.Model(entry.Model)
	table, err := schema.TableFor(model)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported model %q", entry.Model)
	}

	tempUnit, err := schema.ParseConfigTempType(entry.TempType)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid temp_type %q", entry.TempType)
	}

	id := device.Identity{
		Name:       entry.Name,
		Model:      model,
		App:        entry.App,
		SWVersion:  entry.SWVersion,
		MAC:        entry.MACAddress,
		IPAddress:  entry.IPAddress,
		TempUnit:   tempUnit,
		Secret:     entry.LanIPKey,
		LanipKeyID: entry.LanIPKeyID,
	}
	return device.New(id, table), nil
}
