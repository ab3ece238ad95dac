package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ContractConfig is the address+ABI pair written by the deploy tool and
// consumed by every component that binds the contract.
type ContractConfig struct {
	Address    string          `json:"address"`
	ABI        json.RawMessage `json:"abi"`
	Network    string          `json:"network"`
	DeployedAt string          `json:"deployedAt"`
}

// LoadContract reads the contract configuration file
func LoadContract(path string) (*ContractConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract config %s: %w", path, err)
	}

	var cc ContractConfig
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("failed to parse contract config: %w", err)
	}
	if cc.Address == "" {
		return nil, fmt.Errorf("contract config has no address")
	}
	if len(cc.ABI) == 0 {
		return nil, fmt.Errorf("contract config has no ABI")
	}
	return &cc, nil
}

// Save writes the contract configuration file (deploy tool)
func (cc *ContractConfig) Save(path string) error {
	data, err := json.MarshalIndent(cc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal contract config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write contract config %s: %w", path, err)
	}
	return nil
}
