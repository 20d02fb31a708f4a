package orchestration

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/koscakluka/tutor-core/core/audio"
)

// audioInput normalizes capture behavior over the optional input client. An
// unconfigured input is a deliberate no-microphone deployment, not a
// hardware failure; device failures surface from acquire.
type audioInput struct {
	// base stores the configured capture client.
	base AudioInput
	// fineCaptureControl is set when the client supports explicit capture
	// controls, which report device failures synchronously.
	fineCaptureControl AudioInputFine

	capturing atomic.Bool

	// cancelStream stops the fallback Stream goroutine for clients without
	// capture controls.
	cancelStream context.CancelFunc

	// onAudio is called for every captured frame. It runs on the capture
	// thread and must not block.
	onAudio func(audio []byte)
}

func newAudioInput(client AudioInput, onAudio func(audio []byte)) *audioInput {
	if onAudio == nil {
		onAudio = func(audio []byte) {}
	}

	input := audioInput{onAudio: onAudio}
	input.Set(client)
	return &input
}

func (a *audioInput) Set(client AudioInput) {
	if a == nil {
		return
	}

	a.base = client
	a.fineCaptureControl = nil
	a.capturing.Store(false)

	if client == nil {
		return
	}
	if fine, ok := client.(AudioInputFine); ok {
		a.fineCaptureControl = fine
	}
}

func (a *audioInput) isConfigured() bool { return a != nil && a.base != nil }

// acquire starts microphone capture. Device failures are returned to the
// caller; an unconfigured input acquires trivially.
func (a *audioInput) acquire(ctx context.Context) error {
	if !a.isConfigured() {
		return nil
	}

	if !a.capturing.CompareAndSwap(false, true) {
		return nil
	}

	if a.fineCaptureControl != nil {
		if err := a.fineCaptureControl.StartCapture(ctx, a.onAudio); err != nil {
			a.capturing.Store(false)
			return fmt.Errorf("failed to start audio capture: %w", err)
		}
		return nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	a.cancelStream = cancel
	go func() {
		if err := a.base.Stream(streamCtx, a.onAudio); err != nil {
			a.capturing.Store(false)
			log.Printf("Audio input stream failed: %v", err)
		}
	}()
	return nil
}

// release stops capture. It never fails; teardown errors are logged so that
// release can run unconditionally on every disconnect path.
func (a *audioInput) release() {
	if !a.isConfigured() {
		return
	}

	if !a.capturing.CompareAndSwap(true, false) {
		return
	}

	if a.fineCaptureControl != nil {
		if err := a.fineCaptureControl.StopCapture(); err != nil {
			log.Printf("Failed to stop audio capture: %v", err)
		}
		return
	}

	if a.cancelStream != nil {
		a.cancelStream()
		a.cancelStream = nil
	}
}

func (a *audioInput) Close() {
	if !a.isConfigured() {
		return
	}

	a.release()
	a.base.Close()
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}
	return a.base.EncodingInfo()
}
