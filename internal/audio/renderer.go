package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tzhsiao/eew-go/internal/conf"
	"github.com/tzhsiao/eew-go/internal/errors"
	"github.com/tzhsiao/eew-go/internal/logging"
)

// tempExt is the temporary file extension used while ffmpeg writes output,
// so the final path appears atomically.
const tempExt = ".temp"

// clipExt is the file extension of the source clip set.
const clipExt = ".ogg"

// renderTimeout bounds a single ffmpeg invocation. Rendering longer than
// this would outlive the warning it announces.
const renderTimeout = 30 * time.Second

// Renderer concatenates named clips into one output file with ffmpeg.
type Renderer struct {
	settings conf.AudioSettings
	logger   *slog.Logger
}

// NewRenderer creates a renderer for the configured clip set and output.
func NewRenderer(settings conf.AudioSettings) *Renderer {
	return &Renderer{
		settings: settings,
		logger:   logging.ForService("audio"),
	}
}

// OutputPath returns the path the rendered file is written to.
func (r *Renderer) OutputPath() string {
	return r.settings.TargetPath
}

// Render concatenates the clip sequence into the configured target path.
// A non-zero ffmpeg exit propagates as an error and leaves no partial
// output at the target path.
func (r *Renderer) Render(ctx context.Context, clips []string) error {
	if len(clips) == 0 {
		return errors.NewStd("empty clip sequence")
	}

	tempPath := r.settings.TargetPath + tempExt
	args := buildConcatArgs(r.settings.SourcePath, clips, tempPath)

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.settings.FfmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Best effort removal of a partial temp file.
		_ = os.Remove(tempPath)
		return errors.New(fmt.Errorf("ffmpeg concat failed: %w", err)).
			Component("audio").
			Category(errors.CategoryCommandExecution).
			Context("clips", len(clips)).
			Context("output", truncateOutput(output)).
			Build()
	}

	if err := os.Rename(tempPath, r.settings.TargetPath); err != nil {
		return errors.New(fmt.Errorf("failed to finalize rendered audio: %w", err)).
			Component("audio").
			Category(errors.CategoryRendering).
			Build()
	}

	r.logger.Info("rendered countdown audio",
		"clips", len(clips),
		"target", r.settings.TargetPath,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Cleanup removes the rendered output file. Failure is non-fatal and only
// logged; a stale file is overwritten by the next render anyway.
func (r *Renderer) Cleanup() {
	if err := os.Remove(r.settings.TargetPath); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove rendered audio",
			"target", r.settings.TargetPath, "error", err)
	}
}

// buildConcatArgs constructs the ffmpeg arguments that concatenate the clip
// files into outPath using the concat filter.
func buildConcatArgs(sourceDir string, clips []string, outPath string) []string {
	args := make([]string, 0, 2*len(clips)+5)
	args = append(args, "-y")

	var mapping strings.Builder
	for i, clip := range clips {
		args = append(args, "-i", filepath.Join(sourceDir, clip+clipExt))
		fmt.Fprintf(&mapping, "[%d:a]", i)
	}

	fmt.Fprintf(&mapping, "concat=n=%d:v=0:a=1", len(clips))
	args = append(args, "-filter_complex", mapping.String(), "-f", "ogg", outPath)

	return args
}

// truncateOutput keeps error context readable when ffmpeg is verbose.
func truncateOutput(output []byte) string {
	const maxLen = 512
	s := string(output)
	if len(s) > maxLen {
		return s[len(s)-maxLen:]
	}
	return s
}
