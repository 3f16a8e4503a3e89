// Package config loads a node's TOML configuration file (radio
// parameters, identity path, advertised metadata, admin credentials,
// airtime budget, logging, and group channel memberships), using
// BurntSushi/toml the way the reference codebase's server
// configuration packages do.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Radio holds the LoRa modem parameters. Defaults
// match examples/simple_repeater/main.cpp's
// LORA_FREQ/LORA_BW/LORA_SF/LORA_CR/LORA_TX_POWER.
type Radio struct {
	FreqMHz  float64 `toml:"freq_mhz"`
	BandwidthKHz float64 `toml:"bandwidth_khz"`
	SpreadingFactor int  `toml:"spreading_factor"`
	CodingRate      int  `toml:"coding_rate"`
	TXPowerDBm      int  `toml:"tx_power_dbm"`
}

// Channel is one configured group channel membership.
type Channel struct {
	Name string `toml:"name"`
	PSK  string `toml:"psk"` // base64
}

// Node is a node's full configuration.
type Node struct {
	IdentityPath string `toml:"identity_path"`

	Name string  `toml:"name"`
	Lat  float32 `toml:"lat"`
	Lon  float32 `toml:"lon"`

	AdminPassword string `toml:"admin_password"`

	AirtimeBudgetFactor float64 `toml:"airtime_budget_factor"`

	PoolCapacity  int `toml:"pool_capacity"`
	DedupCapacity int `toml:"dedup_capacity"`
	MaxContacts   int `toml:"max_contacts"`

	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`

	Radio    Radio     `toml:"radio"`
	Channels []Channel `toml:"channels"`
}

// Defaults returns a Node populated with the reference firmware's
// defaults, for callers that want to override just a few fields.
func Defaults() Node {
	return Node{
		IdentityPath:        "identity.bin",
		Name:                "repeater",
		AdminPassword:       "password",
		AirtimeBudgetFactor: 0.1,
		PoolCapacity:        16,
		DedupCapacity:       64,
		MaxContacts:         32,
		LogLevel:            "NOTICE",
		Radio: Radio{
			FreqMHz:         915.0,
			BandwidthKHz:    250,
			SpreadingFactor: 10,
			CodingRate:      5,
			TXPowerDBm:      20,
		},
	}
}

// Load reads and parses a TOML config file at path, starting from
// Defaults so unset fields keep their default value rather than
// zeroing out.
func Load(path string) (Node, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Node{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}
