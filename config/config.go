package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DetectorKind selects which anomaly detection strategy is wired in.
type DetectorKind string

const (
	DetectorStatistical DetectorKind = "statistical"
	DetectorHybrid      DetectorKind = "hybrid"
)

type CampusConfig struct {
	Timezone       string  `json:"timezone"`       // e.g. "Europe/Rome"
	TariffPerKWH   float64 `json:"tariffPerKwh"`   // currency units per kWh
	CO2PerKWH      float64 `json:"co2PerKwh"`      // kg CO2 per kWh
	IdleThresholdW float64 `json:"idleThresholdW"` // zero means the built-in 50W default
}

type DetectorConfig struct {
	Kind DetectorKind `json:"kind"`
	// AnomalyCooldownSecs enables a cooldown window for ANOMALY alerts when
	// non-zero; by default every anomalous reading raises a new alert.
	AnomalyCooldownSecs int `json:"anomalyCooldownSecs"`
}

type AutomationConfig struct {
	IntervalSecs    int `json:"intervalSecs"`
	StaleAfterSecs  int `json:"staleAfterSecs"`
	PreCoolLeadSecs int `json:"preCoolLeadSecs"`
}

type SupabaseConfig struct {
	Url string `json:"url"`
	// key is specified via env var
	Schema string `json:"schema"`
}

type DataPlatformConfig struct {
	UploadIntervalSecs int            `json:"uploadIntervalSecs"`
	Supabase           SupabaseConfig `json:"supabase"`
}

type ForecastConfig struct {
	BaseUrl string `json:"baseUrl"`
}

type Config struct {
	DatabasePath string             `json:"databasePath"`
	Campus       CampusConfig       `json:"campus"`
	Detector     DetectorConfig     `json:"detector"`
	Automation   AutomationConfig   `json:"automation"`
	DataPlatform DataPlatformConfig `json:"dataPlatform"`
	Forecast     ForecastConfig     `json:"forecast"`
}

func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	err = json.Unmarshal(content, &config)
	if err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if config.Detector.Kind == "" {
		config.Detector.Kind = DetectorStatistical
	}
	if config.Detector.Kind != DetectorStatistical && config.Detector.Kind != DetectorHybrid {
		return Config{}, fmt.Errorf("unknown detector kind %q", config.Detector.Kind)
	}

	return config, nil
}
