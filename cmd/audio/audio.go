package audio

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tzhsiao/eew-go/internal/audio"
	"github.com/tzhsiao/eew-go/internal/conf"
	"github.com/tzhsiao/eew-go/internal/seismic"
)

// Command creates the audio command that renders one countdown file offline,
// without connecting to any feed. Useful for checking the clip set and
// ffmpeg installation.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "audio [level] [lead-seconds]",
		Short: "Render a countdown audio file offline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil || level < 0 || level > 9 {
				return fmt.Errorf("level must be an integer between 0 and 9, got %q", args[0])
			}

			lead, err := strconv.ParseFloat(args[1], 64)
			if err != nil || lead < 0 {
				return fmt.Errorf("lead-seconds must be a non-negative number, got %q", args[1])
			}

			clips := audio.BuildTimeline(seismic.Label(level), lead, settings.Delay.Countdown, settings.Delay.Playback)
			renderer := audio.NewRenderer(settings.Audio)
			if err := renderer.Render(cmd.Context(), clips); err != nil {
				return err
			}

			fmt.Printf("rendered %d clips to %s\n", len(clips), renderer.OutputPath())
			return nil
		},
	}
}
