package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/serialmux"
)

// DefaultConfigPath is the path to the canonical scan defaults file.
const DefaultConfigPath = "config/scan.defaults.json"

// maxDistanceCode is the largest distance the 14-bit sample field can carry.
const maxDistanceCode = 0x3FFF

// ScanConfig is the runtime configuration for the decode pipeline and the
// serial link. Every field is optional; the Get* accessors supply defaults
// for anything omitted, so partial files are safe.
type ScanConfig struct {
	SensorID *string `json:"sensor_id,omitempty"`

	// Pipeline params
	StrictChecksum *bool `json:"strict_checksum,omitempty"`
	MinDistanceMM  *int  `json:"min_distance_mm,omitempty"`
	MaxDistanceMM  *int  `json:"max_distance_mm,omitempty"`
	RevolutionSize *int  `json:"revolution_size,omitempty"`

	// Serial params
	BaudRate    *int    `json:"baud_rate,omitempty"`
	DataBits    *int    `json:"data_bits,omitempty"`
	StopBits    *int    `json:"stop_bits,omitempty"`
	Parity      *string `json:"parity,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string like "10ms"
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyScanConfig returns a ScanConfig with all fields set to nil.
func EmptyScanConfig() *ScanConfig {
	return &ScanConfig{}
}

// DefaultScanConfig returns a ScanConfig with every field populated with
// its default value.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		SensorID:       ptrString("serial-0"),
		StrictChecksum: ptrBool(false),
		MinDistanceMM:  ptrInt(l2frames.DefaultMinDistanceMM),
		MaxDistanceMM:  ptrInt(l2frames.DefaultMaxDistanceMM),
		RevolutionSize: ptrInt(l2frames.DefaultRevolutionSize),
		BaudRate:       ptrInt(serialmux.DefaultBaudRate),
		DataBits:       ptrInt(8),
		StopBits:       ptrInt(1),
		Parity:         ptrString("N"),
		ReadTimeout:    ptrString(serialmux.DefaultReadTimeout.String()),
	}
}

// LoadScanConfig loads a ScanConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ScanConfig) Validate() error {
	if c.MinDistanceMM != nil && (*c.MinDistanceMM < 1 || *c.MinDistanceMM > maxDistanceCode) {
		return fmt.Errorf("min_distance_mm must be between 1 and %d, got %d", maxDistanceCode, *c.MinDistanceMM)
	}
	if c.MaxDistanceMM != nil && (*c.MaxDistanceMM < 1 || *c.MaxDistanceMM > maxDistanceCode) {
		return fmt.Errorf("max_distance_mm must be between 1 and %d, got %d", maxDistanceCode, *c.MaxDistanceMM)
	}
	if c.GetMinDistanceMM() > c.GetMaxDistanceMM() {
		return fmt.Errorf("min_distance_mm (%d) exceeds max_distance_mm (%d)", c.GetMinDistanceMM(), c.GetMaxDistanceMM())
	}

	if c.RevolutionSize != nil && *c.RevolutionSize < 1 {
		return fmt.Errorf("revolution_size must be positive, got %d", *c.RevolutionSize)
	}

	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		if _, err := time.ParseDuration(*c.ReadTimeout); err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
	}

	if _, err := c.PortOptions().Normalise(); err != nil {
		return fmt.Errorf("invalid serial options: %w", err)
	}

	return nil
}

// GetSensorID returns the sensor_id value or the default.
func (c *ScanConfig) GetSensorID() string {
	if c.SensorID == nil || *c.SensorID == "" {
		return "serial-0"
	}
	return *c.SensorID
}

// GetStrictChecksum returns the strict_checksum value or the default.
func (c *ScanConfig) GetStrictChecksum() bool {
	if c.StrictChecksum == nil {
		return false // default: pass readings through with the flag attached
	}
	return *c.StrictChecksum
}

// GetMinDistanceMM returns the min_distance_mm value or the default.
func (c *ScanConfig) GetMinDistanceMM() int {
	if c.MinDistanceMM == nil {
		return l2frames.DefaultMinDistanceMM
	}
	return *c.MinDistanceMM
}

// GetMaxDistanceMM returns the max_distance_mm value or the default.
func (c *ScanConfig) GetMaxDistanceMM() int {
	if c.MaxDistanceMM == nil {
		return l2frames.DefaultMaxDistanceMM
	}
	return *c.MaxDistanceMM
}

// GetRevolutionSize returns the revolution_size value or the default.
func (c *ScanConfig) GetRevolutionSize() int {
	if c.RevolutionSize == nil {
		return l2frames.DefaultRevolutionSize
	}
	return *c.RevolutionSize
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *ScanConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return serialmux.DefaultReadTimeout
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return serialmux.DefaultReadTimeout // default on parse error
	}
	return d
}

// PortOptions returns the serial settings as serialmux options. Unset
// fields are left zero so PortOptions.Normalise applies its defaults.
func (c *ScanConfig) PortOptions() serialmux.PortOptions {
	opts := serialmux.PortOptions{ReadTimeout: c.GetReadTimeout()}
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.DataBits != nil {
		opts.DataBits = *c.DataBits
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	if c.Parity != nil {
		opts.Parity = *c.Parity
	}
	return opts
}
