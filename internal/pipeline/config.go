// Package pipeline orchestrates the batch flow for every configured site:
// load the raw export, clean it, derive solar metrics, run the cross-site
// statistical comparison, and persist the artifacts.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/solarcross/solarcross/internal/cleaning"
	"github.com/solarcross/solarcross/internal/solar"
	"github.com/solarcross/solarcross/internal/stats"
)

// SiteConfig identifies one measurement site and its raw export file.
type SiteConfig struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	File      string  `json:"file"`
}

// Config is the full pipeline configuration.
type Config struct {
	DataDir string `json:"data_dir"`
	OutDir  string `json:"out_dir"`

	Sites []SiteConfig `json:"sites"`

	Alpha float64 `json:"alpha"`
	// CompareColumns are the metrics compared across sites.
	CompareColumns []string `json:"compare_columns"`
	// CorrelationColumns feed the per-site correlation matrices.
	CorrelationColumns []string                `json:"correlation_columns"`
	CorrelationMethod  stats.CorrelationMethod `json:"correlation_method"`
	NormalityMethod    stats.NormalityMethod   `json:"normality_method"`

	Cleaning cleaning.Config `json:"cleaning"`
	Solar    solar.Config    `json:"solar"`
}

// DefaultConfig covers the three West African measurement campaigns the
// project ships with.
func DefaultConfig() Config {
	return Config{
		DataDir: "data",
		OutDir:  "processed",
		Sites: []SiteConfig{
			{ID: "benin", Name: "Malanville", Country: "Benin", Latitude: 11.87, Longitude: 3.38, File: "benin-malanville.csv"},
			{ID: "sierraleone", Name: "Bumbuna", Country: "Sierra Leone", Latitude: 9.05, Longitude: -11.73, File: "sierraleone-bumbuna.csv"},
			{ID: "togo", Name: "Dapaong", Country: "Togo", Latitude: 10.86, Longitude: 0.21, File: "togo-dapaong_qc.csv"},
		},
		Alpha:              0.05,
		CompareColumns:     []string{"GHI", "DNI", "DHI"},
		CorrelationColumns: []string{"GHI", "DNI", "DHI", "Tamb", "RH", "WS"},
		CorrelationMethod:  stats.MethodPearson,
		NormalityMethod:    stats.MethodAndersonDarling,
		Cleaning:           cleaning.DefaultConfig(),
		Solar:              solar.DefaultConfig(),
	}
}

// LoadConfig reads a JSON config file over the defaults. A missing path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every enum and threshold before any work starts.
func (c Config) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %g", c.Alpha)
	}
	if len(c.Sites) == 0 {
		return fmt.Errorf("no sites configured")
	}
	seen := make(map[string]bool)
	for _, s := range c.Sites {
		if s.ID == "" || s.File == "" {
			return fmt.Errorf("site %q: id and file are required", s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate site id %q", s.ID)
		}
		seen[s.ID] = true
	}
	if _, err := stats.ParseCorrelationMethod(string(c.CorrelationMethod)); err != nil {
		return err
	}
	if _, err := stats.ParseNormalityMethod(string(c.NormalityMethod)); err != nil {
		return err
	}
	return c.Cleaning.Validate()
}

// Site returns the config for one site id.
func (c Config) Site(id string) (SiteConfig, error) {
	for _, s := range c.Sites {
		if s.ID == id {
			return s, nil
		}
	}
	return SiteConfig{}, fmt.Errorf("unknown site %q", id)
}
