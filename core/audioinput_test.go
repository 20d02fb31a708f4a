package orchestration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/tutor-core/core/audio"
)

type testAudioInputClient struct {
	streamCalls atomic.Int32
	closeCalls  atomic.Int32
}

func (c *testAudioInputClient) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (c *testAudioInputClient) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	c.streamCalls.Add(1)
	onAudio([]byte{1})
	onAudio([]byte{2})
	<-ctx.Done()
	return nil
}

func (c *testAudioInputClient) Close() {
	c.closeCalls.Add(1)
}

type testFineAudioInputClient struct {
	testAudioInputClient
	startCalls atomic.Int32
	stopCalls  atomic.Int32
	startErr   error
}

func (c *testFineAudioInputClient) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.startCalls.Add(1)
	if c.startErr != nil {
		return c.startErr
	}
	onAudio([]byte{1})
	return nil
}

func (c *testFineAudioInputClient) StopCapture() error {
	c.stopCalls.Add(1)
	return nil
}

func TestWithAudioInputConfiguresFacade(t *testing.T) {
	inputClient := &testAudioInputClient{}
	o := NewOrchestrator(WithAudioInput(inputClient))

	if !o.audioInput.isConfigured() {
		t.Fatalf("expected audio input facade to be configured")
	}
	if o.audioInput.base != inputClient {
		t.Fatalf("expected facade client to match configured audio input")
	}
}

func TestUnconfiguredFacadeAcquiresTrivially(t *testing.T) {
	facade := newAudioInput(nil, nil)

	if facade.isConfigured() {
		t.Fatalf("expected unset facade to be unconfigured")
	}
	if err := facade.acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire without a client to succeed, got %v", err)
	}
	if got, want := facade.EncodingInfo(), audio.GetDefaultEncodingInfo(); got != want {
		t.Fatalf("expected default encoding info %+v, got %+v", want, got)
	}
}

func TestAcquireForwardsCapturedAudio(t *testing.T) {
	inputClient := &testAudioInputClient{}
	var callbackCalls atomic.Int32
	facade := newAudioInput(inputClient, func([]byte) {
		callbackCalls.Add(1)
	})

	if err := facade.acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	defer facade.release()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if callbackCalls.Load() == 2 && inputClient.streamCalls.Load() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf(
		"expected 2 callback invocations and 1 stream call, got callback calls=%d stream calls=%d",
		callbackCalls.Load(), inputClient.streamCalls.Load(),
	)
}

func TestAcquireSurfacesCaptureControlFailures(t *testing.T) {
	inputClient := &testFineAudioInputClient{startErr: errors.New("device busy")}
	facade := newAudioInput(inputClient, nil)

	if err := facade.acquire(context.Background()); err == nil {
		t.Fatalf("expected the device failure to surface")
	}

	// A failed acquire leaves the facade re-acquirable.
	inputClient.startErr = nil
	if err := facade.acquire(context.Background()); err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	if calls := inputClient.startCalls.Load(); calls != 2 {
		t.Fatalf("expected 2 start calls, got %d", calls)
	}
}

func TestReleaseStopsCaptureOnce(t *testing.T) {
	inputClient := &testFineAudioInputClient{}
	facade := newAudioInput(inputClient, nil)

	if err := facade.acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	facade.release()
	facade.release()

	if calls := inputClient.stopCalls.Load(); calls != 1 {
		t.Fatalf("expected exactly 1 stop call, got %d", calls)
	}
}

func TestCloseClosesClient(t *testing.T) {
	inputClient := &testAudioInputClient{}
	facade := newAudioInput(inputClient, nil)

	facade.Close()

	if calls := inputClient.closeCalls.Load(); calls != 1 {
		t.Fatalf("expected the client to be closed once, got %d close calls", calls)
	}
}
