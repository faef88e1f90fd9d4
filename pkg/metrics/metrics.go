// Package metrics holds the prometheus collectors of the plugin host.
// Counters touched from the audio thread carry no labels so incrementing
// them never allocates.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksProcessed counts audio blocks handed to plugins
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vst3host_blocks_processed_total",
		Help: "Total number of audio blocks processed by plugins",
	})

	// BlocksFailed counts blocks dropped because Process failed
	BlocksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vst3host_blocks_failed_total",
		Help: "Total number of audio blocks dropped after a processing failure",
	})

	// MIDIEventsIn counts MIDI messages translated into plugin events
	MIDIEventsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vst3host_midi_events_in_total",
		Help: "Total number of MIDI messages delivered to plugins",
	})

	// MIDIEventsOut counts plugin events translated back to MIDI
	MIDIEventsOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vst3host_midi_events_out_total",
		Help: "Total number of plugin events emitted as MIDI",
	})

	// MIDIEventsDropped counts events that could not be translated or queued
	MIDIEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vst3host_midi_events_dropped_total",
		Help: "Total number of MIDI messages or plugin events dropped",
	})

	// ParamChangesPublished counts output change sets claimed by the control thread
	ParamChangesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vst3host_param_changes_published_total",
		Help: "Total number of output parameter change sets handed to the control thread",
	})

	// ModulesLoaded tracks currently loaded plugin modules
	ModulesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vst3host_modules_loaded",
		Help: "Number of plugin modules currently loaded",
	})

	// InstancesOpen tracks currently open plugin instances
	InstancesOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vst3host_instances_open",
		Help: "Number of plugin instances currently open",
	})

	// PendingReleases tracks native releases queued for their owning thread
	PendingReleases = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vst3host_pending_releases",
		Help: "Number of native object releases waiting for their owning thread",
	})

	// ModuleOpenFailures counts module opens that yielded no module, by reason
	ModuleOpenFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vst3host_module_open_failures_total",
			Help: "Total number of plugin modules that could not be opened",
		},
		[]string{"reason"},
	)
)

// Snapshot returns the current value of every vst3host collector in g,
// keyed by metric name. Labelled series are keyed name{label="value"}.
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, "vst3host_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := name
			if labels := m.GetLabel(); len(labels) > 0 {
				pairs := make([]string, len(labels))
				for i, l := range labels {
					pairs[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
				}
				key += "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
