package debug

import "math"

// Default thresholds used by Analyze.
const (
	ClipThreshold    float32 = 0.99
	SilenceThreshold float32 = 0.0001
)

// smallest normal float32
const minNormal32 = 0x1p-126

// Signal summarizes one or more channels of plugin output.
type Signal struct {
	Frames  int
	Peak    float32
	RMS     float32
	DC      float32
	Clipped int
	NaN     int
	Inf     int

	// Denormal counts subnormal samples.
	Denormal int
}

// Silent reports whether the analyzed audio carried no signal.
func (s Signal) Silent() bool { return s.RMS < SilenceThreshold }

// Healthy reports whether no sample was NaN or infinite.
func (s Signal) Healthy() bool { return s.NaN == 0 && s.Inf == 0 }

// Analyze measures the samples of every channel. NaN and infinite samples
// are counted but excluded from peak, RMS and DC.
func Analyze(channels ...[]float32) Signal {
	var (
		s        Signal
		sum, sq  float64
		measured int
	)
	for _, ch := range channels {
		s.Frames = max(s.Frames, len(ch))
		for _, v := range ch {
			f := float64(v)
			switch {
			case math.IsNaN(f):
				s.NaN++
				continue
			case math.IsInf(f, 0):
				s.Inf++
				continue
			}
			a := float32(math.Abs(f))
			if a != 0 && a < minNormal32 {
				s.Denormal++
			}
			if a > s.Peak {
				s.Peak = a
			}
			if a >= ClipThreshold {
				s.Clipped++
			}
			sum += f
			sq += f * f
			measured++
		}
	}
	if measured > 0 {
		s.RMS = float32(math.Sqrt(sq / float64(measured)))
		s.DC = float32(sum / float64(measured))
	}
	return s
}

// Merge folds o into s as if both had been analyzed together. RMS and DC
// are weighted by frame count.
func (s Signal) Merge(o Signal) Signal {
	total := s.Frames + o.Frames
	if total == 0 {
		return s
	}
	ws, wo := float64(s.Frames)/float64(total), float64(o.Frames)/float64(total)
	return Signal{
		Frames:   total,
		Peak:     max(s.Peak, o.Peak),
		RMS:      float32(math.Sqrt(ws*float64(s.RMS*s.RMS) + wo*float64(o.RMS*o.RMS))),
		DC:       float32(ws*float64(s.DC) + wo*float64(o.DC)),
		Clipped:  s.Clipped + o.Clipped,
		NaN:      s.NaN + o.NaN,
		Inf:      s.Inf + o.Inf,
		Denormal: s.Denormal + o.Denormal,
	}
}
