package config

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestContractConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.json")

	cc := &ContractConfig{
		Address:    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		ABI:        json.RawMessage(`[{"type":"event","name":"VineyardRegistered","inputs":[]}]`),
		Network:    "chain-31337",
		DeployedAt: "2026-08-30T12:00:00Z",
	}
	if err := cc.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadContract(path)
	if err != nil {
		t.Fatalf("LoadContract: %v", err)
	}
	if loaded.Address != cc.Address || loaded.Network != cc.Network {
		t.Errorf("loaded = %+v", loaded)
	}
	if string(loaded.ABI) == "" {
		t.Error("ABI lost in round trip")
	}
}

func TestLoadContractRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()

	noAddr := &ContractConfig{ABI: json.RawMessage(`[]`)}
	path := filepath.Join(dir, "no_addr.json")
	if err := noAddr.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := LoadContract(path); err == nil {
		t.Error("expected error for config without address")
	}

	if _, err := LoadContract(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
