package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	LogLevel   string        `mapstructure:"log_level"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`

	ICEServers []string `mapstructure:"ice_servers"`
	Client     Client   `mapstructure:"client"`
}

// Client configures the headless meeting participant.
type Client struct {
	SignalURL       string        `mapstructure:"signal_url"`
	RoomURL         string        `mapstructure:"room_url"`
	BaseURL         string        `mapstructure:"base_url"`
	DeviceClass     string        `mapstructure:"device_class"`
	CameraFile      string        `mapstructure:"camera_file"`
	MicrophoneFile  string        `mapstructure:"microphone_file"`
	ScreenFile      string        `mapstructure:"screen_file"`
	ScreenAudioFile string        `mapstructure:"screen_audio_file"`
	LoopCamera      bool          `mapstructure:"loop_camera"`
	MediaTimeout    time.Duration `mapstructure:"media_timeout"`
	ReplaceTimeout  time.Duration `mapstructure:"replace_timeout"`
	AnswerTimeout   time.Duration `mapstructure:"answer_timeout"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	// Loopback lets two clients on one machine reach each other over 127.0.0.1.
	Loopback bool `mapstructure:"loopback"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "meet-dev-secret")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("rate_interval", "1m")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})

	v.SetDefault("client.signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("client.room_url", "")
	v.SetDefault("client.base_url", "http://localhost:8080/")
	v.SetDefault("client.device_class", "desktop")
	v.SetDefault("client.camera_file", "")
	v.SetDefault("client.microphone_file", "")
	v.SetDefault("client.screen_file", "")
	v.SetDefault("client.screen_audio_file", "")
	v.SetDefault("client.loop_camera", true)
	v.SetDefault("client.media_timeout", "10s")
	v.SetDefault("client.replace_timeout", "5s")
	v.SetDefault("client.answer_timeout", "15s")
	v.SetDefault("client.stale_after", "2s")
	v.SetDefault("client.loopback", false)
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Every key can
// be overridden from the environment with a MEET_ prefix, e.g.
// MEET_CLIENT_ROOM_URL.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("MEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config")
	return &cfg, nil
}
