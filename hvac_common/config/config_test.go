package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeEntry(t *testing.T, dir, filename string, e Entry) {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "living-room.json", Entry{
		Name:       "living-room",
		App:        "hisense-ac",
		Model:      "ac",
		SWVersion:  "1.0",
		DSN:        "dsn-1",
		TempType:   "F",
		MACAddress: "AA:BB:CC:DD:EE:FF",
		IPAddress:  "192.0.2.50",
		LanIPKey:   "secret",
		LanIPKeyID: 1234,
	})

	devices, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}
	d := devices[0]
	if d.Name != "living-room" || d.MAC != "AA:BB:CC:DD:EE:FF" || d.KeyID() != 1234 {
		t.Fatalf("unexpected device: %+v", d)
	}
}

func TestLoadUnknownModelFails(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "bad.json", Entry{Name: "x", Model: "not-a-model", TempType: "F"})

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected an error for an unknown model")
	}
}

func TestLoadSkipsNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	devices, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("got %d devices, want 0", len(devices))
	}
}
