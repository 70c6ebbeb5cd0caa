package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig sets viper defaults for every configuration key.
func setDefaultConfig() {
	viper.SetDefault("main.name", "eew-go")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.path", "logs")

	viper.SetDefault("ingress.username", "")
	viper.SetDefault("ingress.password", "")
	viper.SetDefault("ingress.infourl", "")
	viper.SetDefault("ingress.keepalive", 30)

	viper.SetDefault("egress.broker", "")
	viper.SetDefault("egress.username", "")
	viper.SetDefault("egress.password", "")

	viper.SetDefault("region.city", "臺北市")
	viper.SetDefault("region.district", "中正區")

	viper.SetDefault("audio.sourcepath", "audio")
	viper.SetDefault("audio.targetpath", "warning.ogg")
	viper.SetDefault("audio.ffmpegpath", "ffmpeg")

	viper.SetDefault("delay.countdown", 2)
	viper.SetDefault("delay.playback", 1)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")
}
