package config

import "sort"

// BatchProfile bundles cache and concurrency presets tuned for a dataset
// size class.
type BatchProfile struct {
	Name                  string `json:"name"`
	BatchSize             int    `json:"batch_size"`
	CacheSize             int    `json:"cache_size"`
	CacheTTLHours         int    `json:"cache_ttl_hours"`
	MaxConcurrentRequests int    `json:"max_concurrent_requests"`
	ProgressInterval      int    `json:"progress_interval"`
}

// Profiles holds the predefined batch processing presets.
var Profiles = map[string]BatchProfile{
	"demo": {
		Name:                  "demo",
		BatchSize:             5,
		CacheSize:             50,
		CacheTTLHours:         2,
		MaxConcurrentRequests: 3,
		ProgressInterval:      1,
	},
	"small": {
		Name:                  "small",
		BatchSize:             10,
		CacheSize:             100,
		CacheTTLHours:         6,
		MaxConcurrentRequests: 5,
		ProgressInterval:      2,
	},
	"medium": {
		Name:                  "medium",
		BatchSize:             20,
		CacheSize:             200,
		CacheTTLHours:         12,
		MaxConcurrentRequests: 8,
		ProgressInterval:      5,
	},
	"large": {
		Name:                  "large",
		BatchSize:             50,
		CacheSize:             500,
		CacheTTLHours:         24,
		MaxConcurrentRequests: 10,
		ProgressInterval:      10,
	},
	"enterprise": {
		Name:                  "enterprise",
		BatchSize:             100,
		CacheSize:             1000,
		CacheTTLHours:         48,
		MaxConcurrentRequests: 15,
		ProgressInterval:      20,
	},
}

// ProfileByName looks up a preset by name.
func ProfileByName(name string) (BatchProfile, bool) {
	p, ok := Profiles[name]
	return p, ok
}

// ProfileFor picks the preset suited to a dataset of the given size.
func ProfileFor(datasetSize int) BatchProfile {
	switch {
	case datasetSize <= 25:
		return Profiles["demo"]
	case datasetSize <= 100:
		return Profiles["small"]
	case datasetSize <= 500:
		return Profiles["medium"]
	case datasetSize <= 2000:
		return Profiles["large"]
	default:
		return Profiles["enterprise"]
	}
}

// ProfileNames lists the preset names in stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
