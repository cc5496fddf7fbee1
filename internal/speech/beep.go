package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
)

// BeepSink plays MP3 clips on the default audio device. The device is
// opened on first use at the sample rate of the first clip; later clips are
// resampled to it.
type BeepSink struct {
	once    sync.Once
	initErr error
	rate    beep.SampleRate
}

// NewBeepSink returns a sink that opens the speaker lazily.
func NewBeepSink() *BeepSink {
	return &BeepSink{}
}

func (s *BeepSink) init(rate beep.SampleRate) error {
	s.once.Do(func() {
		s.rate = rate
		s.initErr = speaker.Init(rate, rate.N(time.Second/10))
	})
	return s.initErr
}

// Play decodes clip and blocks until it has been played or ctx ends.
func (s *BeepSink) Play(ctx context.Context, clip *Clip) error {
	if clip == nil || len(clip.Data) == 0 {
		return ErrNotReady
	}
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(clip.Data)))
	if err != nil {
		return fmt.Errorf("decode %s: %w", clip.Key, err)
	}
	defer streamer.Close()

	if err := s.init(format.SampleRate); err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != s.rate {
		src = beep.Resample(4, format.SampleRate, s.rate, streamer)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Seq(src, beep.Callback(func() { close(done) }))}
	speaker.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}

// MuteSink discards every clip. It stands in for the speaker when audio is
// disabled.
type MuteSink struct{}

func (MuteSink) Play(ctx context.Context, clip *Clip) error {
	return ctx.Err()
}
