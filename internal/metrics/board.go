package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var thermalZoneTemp = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "board",
	Name:      "thermal_zone_celsius",
	Help:      "SoC thermal zone temperature",
}, []string{"zone", "type"})

// SetThermalZone records the temperature of a thermal zone.
func SetThermalZone(zone, kind string, celsius float64) {
	thermalZoneTemp.WithLabelValues(zone, kind).Set(celsius)
}

// DeleteThermalZone removes the series for a zone that disappeared.
func DeleteThermalZone(zone, kind string) {
	thermalZoneTemp.DeleteLabelValues(zone, kind)
}
