package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// execEngine plays audio through local command-line tools: ffplay for
// compressed payloads and the platform speech synthesizer for text.
type execEngine struct{}

// NewExecEngine returns the default playback engine.
func NewExecEngine() Engine {
	return &execEngine{}
}

// PlayAudio pipes the payload into ffplay. Canceling ctx kills the
// process, cutting playback immediately.
func (e *execEngine) PlayAudio(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, "ffplay",
		"-autoexit", "-nodisp", "-loglevel", "quiet", "-i", "-")
	cmd.Stdin = bytes.NewReader(audio)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech: playback: %w", err)
	}
	return nil
}

// SpeakText uses the platform's local speech synthesizer.
func (e *execEngine) SpeakText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.CommandContext(ctx, "say", text)
	} else {
		cmd = exec.CommandContext(ctx, "espeak", text)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech: local synthesis: %w", err)
	}
	return nil
}
