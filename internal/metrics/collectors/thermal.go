// Package collectors samples board state into Prometheus gauges.
package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/mxcamera/internal/logging"
	"github.com/smazurov/mxcamera/internal/metrics"
)

// ThermalCollector reads SoC temperatures from /sys/class/thermal.
type ThermalCollector struct {
	logger   logging.Logger
	root     string
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewThermalCollector creates a collector for the sysfs thermal zones.
func NewThermalCollector() *ThermalCollector {
	return &ThermalCollector{
		logger:   logging.GetLogger("metrics"),
		root:     "/sys/class/thermal",
		interval: 5 * time.Second,
	}
}

// Start begins collecting.
func (c *ThermalCollector) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run()
	return nil
}

// Stop stops the collector.
func (c *ThermalCollector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *ThermalCollector) run() {
	c.logger.Info("Starting thermal metrics collection", "path", c.root, "interval", c.interval)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

type thermalZone struct {
	Name    string
	Kind    string
	Celsius float64
}

func (c *ThermalCollector) collect() {
	zones, err := c.readZones()
	if err != nil {
		c.logger.Debug("Failed to read thermal zones", "error", err)
		return
	}
	for _, z := range zones {
		metrics.SetThermalZone(z.Name, z.Kind, z.Celsius)
	}
}

func (c *ThermalCollector) readZones() ([]thermalZone, error) {
	dirs, err := filepath.Glob(filepath.Join(c.root, "thermal_zone*"))
	if err != nil {
		return nil, err
	}

	var zones []thermalZone
	for _, dir := range dirs {
		raw, err := os.ReadFile(filepath.Join(dir, "temp"))
		if err != nil {
			continue
		}
		celsius, err := parseMilliCelsius(string(raw))
		if err != nil {
			continue
		}
		kind := "unknown"
		if t, err := os.ReadFile(filepath.Join(dir, "type")); err == nil {
			kind = strings.TrimSpace(string(t))
		}
		zones = append(zones, thermalZone{Name: filepath.Base(dir), Kind: kind, Celsius: celsius})
	}
	return zones, nil
}

// parseMilliCelsius converts the sysfs millidegree reading to degrees.
func parseMilliCelsius(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty reading")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000, nil
}
