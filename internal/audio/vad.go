package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/maxhawkins/go-webrtcvad"
)

var (
	_ Classifier = (*WebRTCClassifier)(nil)
	_ Classifier = (*EnergyClassifier)(nil)
)

type WebRTCClassifier struct {
	vad  *webrtcvad.VAD
	mode int
}

// NewWebRTCClassifier creates a WebRTC VAD instance. Mode is the
// aggressiveness (0-3, where 3 is most aggressive at flagging non-speech).
// The caller owns the instance; Close drops it.
func NewWebRTCClassifier(mode int) (*WebRTCClassifier, error) {
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("%w: vad_mode must be between 0 and 3, got %d", ErrConfiguration, mode)
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create webrtc vad: %w", err)
	}

	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set vad mode %d: %w", mode, err)
	}

	return &WebRTCClassifier{
		vad:  vad,
		mode: mode,
	}, nil
}

func (v *WebRTCClassifier) IsSpeech(frame []byte, sampleRate int) (bool, error) {
	if v.vad == nil {
		return false, errors.New("webrtc vad is closed")
	}
	isSpeech, err := v.vad.Process(sampleRate, frame)
	if err != nil {
		return false, fmt.Errorf("webrtc vad rejected %d byte frame at %d Hz: %w", len(frame), sampleRate, err)
	}
	return isSpeech, nil
}

// Close releases the reference to the detector. webrtcvad frees the C
// instance from a finalizer once it is unreachable.
func (v *WebRTCClassifier) Close() error {
	v.vad = nil
	return nil
}

// energyThresholds maps aggressiveness to the RMS level a frame must exceed
// to count as speech.
var energyThresholds = [4]float64{200, 350, 500, 800}

// EnergyClassifier is a pure-Go classifier that compares frame RMS against a
// fixed threshold. It holds no state between frames.
type EnergyClassifier struct {
	rmsThreshold float64
}

func NewEnergyClassifier(mode int) (*EnergyClassifier, error) {
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("%w: vad_mode must be between 0 and 3, got %d", ErrConfiguration, mode)
	}
	return &EnergyClassifier{rmsThreshold: energyThresholds[mode]}, nil
}

func (e *EnergyClassifier) IsSpeech(frame []byte, sampleRate int) (bool, error) {
	n := len(frame) / SampleWidth
	if n == 0 {
		return false, nil
	}

	var sum float64
	for i := 0; i < n; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(frame[i*2:])))
		sum += sample * sample
	}

	rms := math.Sqrt(sum / float64(n))
	return rms > e.rmsThreshold, nil
}

func (e *EnergyClassifier) Close() error {
	return nil
}
