package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/passvault/internal/flagx"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration
// files. Interval fields use timex.Duration, which accepts both string
// values such as "30m" and integer nanoseconds. After unmarshalling, its
// fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP              string         `json:"endpoint_addr_http"`
	DatabaseDSN                   string         `json:"database_dsn"`
	SecretKey                     string         `json:"secret_key"`
	EncryptionKey                 string         `json:"encryption_key"`
	HashCost                      int            `json:"hash_cost"`
	SessionTokenValidityDuration  timex.Duration `json:"session_token_validity_duration"`
	RecoveryTokenValidityDuration timex.Duration `json:"recovery_token_validity_duration"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flags; when
// neither is set, nothing is loaded. An unreadable file or invalid JSON
// panics, since the process cannot proceed on a half-applied config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.EncryptionKey = c.EncryptionKey
	config.HashCost = c.HashCost
	config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
	config.RecoveryTokenValidityDuration = time.Duration(c.RecoveryTokenValidityDuration.Duration)
}
