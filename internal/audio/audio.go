// Package audio provides the hardware-synchronized clock and the sound
// dispatch layer. The engine clock is the number of samples the audio
// stream has consumed, converted to seconds; it advances with the audio
// device and never with wall-clock timers. Tones are short decaying
// sine blips mixed at exact sample offsets.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/jdlr/tatum/internal/model"
)

const DefaultSampleRate = 48000

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// voice is one active blip.
type voice struct {
	start int64 // sample index of onset
	freq  float64
	amp   float64
	decay float64 // seconds to fall to ~37%
	life  int64   // samples until removal
}

// mixer renders all active voices into the output stream and tracks the
// consumed-sample count. Process runs on the audio thread; triggers
// arrive from the UI thread, hence the lock.
type mixer struct {
	mu         sync.Mutex
	sampleRate int
	pos        atomic.Int64 // samples consumed
	voices     []voice
}

func (m *mixer) now() float64 {
	return float64(m.pos.Load()) / float64(m.sampleRate)
}

// triggerAt schedules a blip at the given clock time. Times already in
// the past clamp to the current position so judgment feedback still
// sounds.
func (m *mixer) triggerAt(at, freq, amp, decay float64) {
	start := int64(at * float64(m.sampleRate))
	if p := m.pos.Load(); start < p {
		start = p
	}
	m.mu.Lock()
	m.voices = append(m.voices, voice{
		start: start,
		freq:  freq,
		amp:   amp,
		decay: decay,
		life:  int64(decay * 5 * float64(m.sampleRate)),
	})
	m.mu.Unlock()
}

// Process fills dst with interleaved stereo float32 samples.
func (m *mixer) Process(dst []float32) {
	frames := len(dst) / 2
	base := m.pos.Load()
	m.mu.Lock()
	voices := m.voices
	m.mu.Unlock()

	for i := range dst {
		dst[i] = 0
	}
	for f := 0; f < frames; f++ {
		sample := base + int64(f)
		var v float64
		for i := range voices {
			vo := &voices[i]
			rel := sample - vo.start
			if rel < 0 || rel >= vo.life {
				continue
			}
			t := float64(rel) / float64(m.sampleRate)
			v += vo.amp * math.Exp(-t/vo.decay) * math.Sin(2*math.Pi*vo.freq*t)
		}
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[f*2] = float32(v)
		dst[f*2+1] = float32(v)
	}
	m.pos.Store(base + int64(frames))

	// Drop finished voices.
	end := base + int64(frames)
	m.mu.Lock()
	kept := m.voices[:0]
	for _, vo := range m.voices {
		if vo.start+vo.life > end {
			kept = append(kept, vo)
		}
	}
	m.voices = kept
	m.mu.Unlock()
}

// streamReader adapts the mixer to the byte stream the audio context
// consumes (little-endian float32, interleaved stereo).
type streamReader struct {
	mu     sync.Mutex
	source *mixer
	buf    []float32
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	return frames * 8, nil
}

// Engine owns the audio output and implements both the engine clock and
// its sound dispatch.
type Engine struct {
	mixer   *mixer
	player  *ebitaudio.Player
	running bool
}

// New builds an Engine on the shared audio context.
func New(sampleRate int) (*Engine, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	m := &mixer{sampleRate: sampleRate}
	pl, err := ctx.NewPlayerF32(&streamReader{source: m})
	if err != nil {
		return nil, err
	}
	return &Engine{mixer: m, player: pl}, nil
}

// Start begins streaming; the clock starts advancing.
func (e *Engine) Start() {
	e.player.Play()
	e.running = true
}

// Pause suspends the stream; the clock freezes until Resume.
func (e *Engine) Pause() {
	e.player.Pause()
	e.running = false
}

// Resume continues streaming from where the clock stopped.
func (e *Engine) Resume() {
	e.player.Play()
	e.running = true
}

// Close stops playback and releases the player.
func (e *Engine) Close() error {
	e.running = false
	e.player.Pause()
	return e.player.Close()
}

// Now implements engine.Clock. The clock is invalid while suspended.
func (e *Engine) Now() (float64, bool) {
	if !e.running {
		return 0, false
	}
	return e.mixer.now(), true
}

// Tone frequencies. Left and right guide tones differ so the player can
// hear which drum a note wants.
const (
	metronomeFreq = 1800.0
	leftFreq      = 330.0
	rightFreq     = 440.0
	anyFreq       = 392.0
	feedbackGain  = 0.25
)

// Metronome implements engine.Sounder.
func (e *Engine) Metronome(at float64) {
	e.mixer.triggerAt(at, metronomeFreq, 0.18, 0.012)
}

// Guide implements engine.Sounder.
func (e *Engine) Guide(at float64, hand model.Hand) {
	e.mixer.triggerAt(at, guideFreq(hand), 0.3, 0.05)
}

// Feedback implements engine.Sounder. Better hits sound brighter.
func (e *Engine) Feedback(hand model.Hand, score int) {
	freq := guideFreq(hand) * 2
	if score == 0 {
		freq = 110
	}
	e.mixer.triggerAt(e.mixer.now(), freq, feedbackGain, 0.03)
}

func guideFreq(hand model.Hand) float64 {
	switch hand {
	case model.HandLeft:
		return leftFreq
	case model.HandRight:
		return rightFreq
	default:
		return anyFreq
	}
}
