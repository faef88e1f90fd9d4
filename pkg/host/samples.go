package host

import (
	"encoding/binary"
	"math"

	"github.com/smallnest/ringbuffer"
)

const sampleBytes = 4

// writeSamples appends as many of samples to rb as fit and returns how
// many were written. scratch bounds each write.
func writeSamples(rb *ringbuffer.RingBuffer, samples []float32, scratch []byte) int {
	written := 0
	for written < len(samples) {
		n := min(len(samples)-written, rb.Free()/sampleBytes, len(scratch)/sampleBytes)
		if n == 0 {
			break
		}
		b := scratch[:n*sampleBytes]
		for k, s := range samples[written : written+n] {
			binary.LittleEndian.PutUint32(b[k*sampleBytes:], math.Float32bits(s))
		}
		w, _ := rb.Write(b)
		written += w / sampleBytes
		if w < len(b) {
			break
		}
	}
	return written
}

// readSamples fills dst from rb as far as it holds whole samples and
// returns how many were read.
func readSamples(rb *ringbuffer.RingBuffer, dst []float32, scratch []byte) int {
	read := 0
	for read < len(dst) {
		n := min(len(dst)-read, rb.Length()/sampleBytes, len(scratch)/sampleBytes)
		if n == 0 {
			break
		}
		b := scratch[:n*sampleBytes]
		r, _ := rb.Read(b)
		for k := 0; k < r/sampleBytes; k++ {
			dst[read+k] = math.Float32frombits(binary.LittleEndian.Uint32(b[k*sampleBytes:]))
		}
		read += r / sampleBytes
		if r < len(b) {
			break
		}
	}
	return read
}
