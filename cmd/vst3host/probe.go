package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/justyntemme/vst3host/pkg/framework/bus"
	"github.com/justyntemme/vst3host/pkg/framework/debug"
	"github.com/justyntemme/vst3host/pkg/framework/param"
	"github.com/justyntemme/vst3host/pkg/host"
	"github.com/justyntemme/vst3host/pkg/vst3"
)

var errNoEffect = errors.New("module has no audio effect class")

type probeReport struct {
	Path       string       `yaml:"path"`
	Class      classEntry   `yaml:"class"`
	Single     bool         `yaml:"single"`
	Latency    uint32       `yaml:"latency"`
	Tail       uint32       `yaml:"tail"`
	Buses      []busEntry   `yaml:"buses"`
	Parameters []paramEntry `yaml:"parameters"`
	Units      []unitEntry  `yaml:"units,omitempty"`
	Blocks     int          `yaml:"blocks"`
	Failures   int64        `yaml:"failures"`
	LastError  string       `yaml:"last_error,omitempty"`
	Output     signalEntry  `yaml:"output"`
	Timing     timingEntry  `yaml:"timing"`
}

type signalEntry struct {
	Frames   int     `yaml:"frames"`
	Peak     float32 `yaml:"peak"`
	RMS      float32 `yaml:"rms"`
	DC       float32 `yaml:"dc"`
	Clipped  int     `yaml:"clipped,omitempty"`
	NaN      int     `yaml:"nan,omitempty"`
	Inf      int     `yaml:"inf,omitempty"`
	Denormal int     `yaml:"denormal,omitempty"`
	Silent   bool    `yaml:"silent"`
}

type timingEntry struct {
	Budget   time.Duration `yaml:"budget"`
	Average  time.Duration `yaml:"average"`
	Max      time.Duration `yaml:"max"`
	P95      time.Duration `yaml:"p95"`
	Load     float64       `yaml:"load_percent"`
	Overruns int           `yaml:"overruns,omitempty"`
}

type busEntry struct {
	Media     string `yaml:"media"`
	Direction string `yaml:"direction"`
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Channels  int32  `yaml:"channels"`
	Active    bool   `yaml:"active"`
}

type paramEntry struct {
	ID       uint32  `yaml:"id"`
	Name     string  `yaml:"name"`
	Unit     string  `yaml:"unit,omitempty"`
	Kind     string  `yaml:"kind"`
	Steps    int32   `yaml:"steps,omitempty"`
	Default  float64 `yaml:"default"`
	Value    float64 `yaml:"value"`
	ReadOnly bool    `yaml:"read_only,omitempty"`
}

type unitEntry struct {
	ID     int32  `yaml:"id"`
	Parent int32  `yaml:"parent"`
	Name   string `yaml:"name"`
}

func newProbeCommand(a *app) *cobra.Command {
	var (
		blocks    int
		level     float32
		stateFile string
	)
	cmd := &cobra.Command{
		Use:   "probe <module> [class-id]",
		Short: "Instantiate a plugin and report its buses, parameters and units",
		Long: "Probe opens one class of a module, the first audio effect when no class id\n" +
			"is given, runs blocks of a constant input level through it and reports what\n" +
			"it exposes along with the output signal and block timing.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			h, err := a.newHost()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, h.Close()) }()

			path := args[0]
			var id vst3.TUID
			if len(args) == 2 {
				if id, err = vst3.ParseTUID(args[1]); err != nil {
					return err
				}
			} else {
				effects, err := h.Effects(cmd.Context(), path)
				if err != nil {
					return err
				}
				if len(effects) == 0 {
					return fmt.Errorf("%s: %w", path, errNoEffect)
				}
				id = effects[0].ID
			}

			inst, err := h.Open(cmd.Context(), path, id)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, inst.Close()) }()

			report, err := a.probe(cmd, inst, blocks, level)
			if err != nil {
				return err
			}
			if stateFile != "" {
				data, err := inst.GetState()
				if err != nil {
					return fmt.Errorf("save state: %w", err)
				}
				if err := os.WriteFile(stateFile, data, 0o644); err != nil {
					return err
				}
			}
			return a.emit(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&blocks, "blocks", 4, "blocks to process")
	cmd.Flags().Float32Var(&level, "level", 0, "constant sample value fed to every input channel")
	cmd.Flags().StringVar(&stateFile, "save-state", "", "write the plugin state to this file")
	return cmd
}

func (a *app) probe(cmd *cobra.Command, inst *host.Instance, blocks int, level float32) (probeReport, error) {
	report := probeReport{
		Path:    inst.Path(),
		Class:   newClassEntry(inst.Info()),
		Single:  inst.Single(),
		Latency: inst.Latency(),
	}
	tail, err := inst.TailSamples()
	if err != nil {
		return report, err
	}
	report.Tail = tail

	for _, media := range []bus.MediaType{bus.MediaTypeAudio, bus.MediaTypeEvent} {
		for _, dir := range []bus.Direction{bus.DirectionInput, bus.DirectionOutput} {
			for _, b := range inst.Buses().Buses(media, dir) {
				report.Buses = append(report.Buses, newBusEntry(b))
			}
		}
	}
	for _, p := range inst.Parameters() {
		report.Parameters = append(report.Parameters, paramEntry{
			ID:       p.ID,
			Name:     p.Name,
			Unit:     p.Unit,
			Kind:     p.Kind.String(),
			Steps:    p.StepCount,
			Default:  p.DefaultValue,
			Value:    p.Value,
			ReadOnly: p.Flags&param.IsReadOnly != 0,
		})
	}
	units, err := inst.Units()
	if err != nil {
		return report, err
	}
	for _, u := range units {
		report.Units = append(report.Units, unitEntry{ID: u.ID, Parent: u.ParentID, Name: u.Name})
	}

	n := a.cfg.Audio.MaxBlockSize
	in := channels(inst.Buses().MainChannels(bus.DirectionInput), n, level)
	out := channels(inst.Buses().MainChannels(bus.DirectionOutput), n, 0)
	timer := debug.NewBlockTimer(a.cfg.Audio.SampleRate, n, blocks)
	var output debug.Signal
	for k := 0; k < blocks; k++ {
		if err := cmd.Context().Err(); err != nil {
			return report, err
		}
		inst.PushAudioIn(in)
		stop := timer.Start()
		err := inst.ProcessBlock(cmd.Context(), n)
		stop()
		if err == nil {
			report.Blocks++
		}
		if got := inst.PullAudioOut(out); got > 0 {
			output = output.Merge(analyze(out, got))
		}
	}
	report.Failures = inst.Failures()
	if err := inst.LastError(); err != nil {
		report.LastError = err.Error()
	}
	report.Output = newSignalEntry(output)
	report.Timing = newTimingEntry(timer)
	return report, nil
}

func channels(count, frames int, level float32) [][]float32 {
	bufs := make([][]float32, count)
	for ch := range bufs {
		bufs[ch] = make([]float32, frames)
		for k := range bufs[ch] {
			bufs[ch][k] = level
		}
	}
	return bufs
}

func analyze(bufs [][]float32, frames int) debug.Signal {
	trimmed := make([][]float32, len(bufs))
	for ch, b := range bufs {
		trimmed[ch] = b[:frames]
	}
	return debug.Analyze(trimmed...)
}

func newSignalEntry(s debug.Signal) signalEntry {
	return signalEntry{
		Frames:   s.Frames,
		Peak:     s.Peak,
		RMS:      s.RMS,
		DC:       s.DC,
		Clipped:  s.Clipped,
		NaN:      s.NaN,
		Inf:      s.Inf,
		Denormal: s.Denormal,
		Silent:   s.Silent(),
	}
}

func newTimingEntry(t *debug.BlockTimer) timingEntry {
	s := t.Snapshot()
	return timingEntry{
		Budget:   t.Budget(),
		Average:  s.Average,
		Max:      s.Max,
		P95:      s.P95,
		Load:     s.Load,
		Overruns: s.Overruns,
	}
}

func newBusEntry(b *bus.Info) busEntry {
	e := busEntry{
		Media:     "audio",
		Direction: "in",
		Name:      b.Name,
		Type:      "main",
		Channels:  b.ChannelCount,
		Active:    b.IsActive,
	}
	if b.MediaType == bus.MediaTypeEvent {
		e.Media = "event"
	}
	if b.Direction == bus.DirectionOutput {
		e.Direction = "out"
	}
	if b.BusType == bus.TypeAux {
		e.Type = "aux"
	}
	return e
}
