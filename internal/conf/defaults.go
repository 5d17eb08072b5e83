// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultDenylist holds signage words painted on the feeder buses that OCR picks up
// next to the plate.
var DefaultDenylist = []string{"BSD", "BSDCITY", "S11", "AEON", "ICE", "LOOP", "LINE"}

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.console.json", false)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/blink.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("scanner.throttle", 200*time.Millisecond)
	viper.SetDefault("scanner.threshold", 3)
	viper.SetDefault("scanner.candidatesperregion", 3)
	viper.SetDefault("scanner.roi.x", 0.1)
	viper.SetDefault("scanner.roi.y", 0.35)
	viper.SetDefault("scanner.roi.width", 0.8)
	viper.SetDefault("scanner.roi.height", 0.3)
	viper.SetDefault("scanner.seedpartial", true)
	viper.SetDefault("scanner.allowpartialcapture", false)
	viper.SetDefault("scanner.capturetimeout", 5*time.Second)
	viper.SetDefault("scanner.denylist", DefaultDenylist)
	viper.SetDefault("scanner.sightinginterval", 30*time.Second)

	viper.SetDefault("ocr.language", "eng")
	viper.SetDefault("ocr.quality", "accurate")
	viper.SetDefault("ocr.whitelist", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 ")
	viper.SetDefault("ocr.tessdataprefix", "")
	viper.SetDefault("ocr.pagesegmode", 6)
	viper.SetDefault("ocr.poolsize", 2)
	viper.SetDefault("ocr.upscale", 2.0)

	viper.SetDefault("camera.device", 0)
	viper.SetDefault("camera.width", 1920)
	viper.SetDefault("camera.height", 1080)
	viper.SetDefault("camera.fps", 30.0)

	viper.SetDefault("catalog.driver", "sqlite")
	viper.SetDefault("catalog.path", "blink.db")
	viper.SetDefault("catalog.mysql.host", "localhost")
	viper.SetDefault("catalog.mysql.port", 3306)
	viper.SetDefault("catalog.mysql.username", "")
	viper.SetDefault("catalog.mysql.password", "")
	viper.SetDefault("catalog.mysql.database", "blink")
	viper.SetDefault("catalog.seedfile", "")
	viper.SetDefault("catalog.autoseed", true)
	viper.SetDefault("catalog.cachettl", 10*time.Minute)
	viper.SetDefault("catalog.slowquery", 200*time.Millisecond)

	viper.SetDefault("geocode.enabled", true)
	viper.SetDefault("geocode.endpoint", "https://nominatim.openstreetmap.org/reverse")
	viper.SetDefault("geocode.useragent", "blink-go/1.0")
	viper.SetDefault("geocode.ratelimit", 1.0)
	viper.SetDefault("geocode.cachettl", time.Hour)
	viper.SetDefault("geocode.timeout", 10*time.Second)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topic", "blink")
	viper.SetDefault("mqtt.retain", false)
	viper.SetDefault("mqtt.qos", 1)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.captureratelimit", 2.0)
	viper.SetDefault("webserver.maxuploadmb", 10)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
