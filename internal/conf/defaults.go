// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "PlantID-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "plantid.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("ai.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("ai.model", "gpt-4o")
	viper.SetDefault("ai.customerid", "")
	viper.SetDefault("ai.timeout", 5*time.Minute)
	viper.SetDefault("ai.maxtokens", 2000)
	viper.SetDefault("ai.temperature", 0.3)
	viper.SetDefault("ai.cachettl", 15*time.Minute)

	viper.SetDefault("camera.source", "/dev/video0")
	viper.SetDefault("camera.width", 1280)
	viper.SetDefault("camera.height", 720)
	viper.SetDefault("camera.ffmpegpath", "ffmpeg")
	viper.SetDefault("camera.jpegquality", 0.9)
	viper.SetDefault("camera.maxwidth", 1200)
	viper.SetDefault("camera.optimquality", 0.8)

	viper.SetDefault("history.path", "plantid.db")
	viper.SetDefault("history.capacity", 100)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8090")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "plantid/identifications")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
}
