package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DARLING"

// Config stores runtime configuration for every entry point.
type Config struct {
	Assistant AssistantConfig `mapstructure:"assistant"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Deepgram  DeepgramConfig  `mapstructure:"deepgram"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type AssistantConfig struct {
	WakePhrase string `mapstructure:"wake_phrase"`
	// Seed fixes the reply paraphrase choice; 0 picks a time-based seed.
	Seed int64 `mapstructure:"seed"`
}

type StorageConfig struct {
	// Driver is one of sqlite, file or memory.
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type RulesConfig struct {
	Path           string `mapstructure:"path"`
	IterationLimit int    `mapstructure:"iteration_limit"`
	Defaults       bool   `mapstructure:"defaults"`
}

type VoiceConfig struct {
	Watchdog          time.Duration `mapstructure:"watchdog"`
	WatchdogRestart   time.Duration `mapstructure:"watchdog_restart"`
	EndedRestart      time.Duration `mapstructure:"ended_restart"`
	ResumeAfterSpeech time.Duration `mapstructure:"resume_after_speech"`
	NoSpeechRestart   time.Duration `mapstructure:"no_speech_restart"`
	AbortedRestart    time.Duration `mapstructure:"aborted_restart"`
	ErrorRestart      time.Duration `mapstructure:"error_restart"`
	ReinitRetry       time.Duration `mapstructure:"reinit_retry"`
	StreakThreshold   int           `mapstructure:"streak_threshold"`
	IdleWakeListening bool          `mapstructure:"idle_wake_listening"`
}

type DeepgramConfig struct {
	APIKey      string `mapstructure:"api_key"`
	APIBaseURL  string `mapstructure:"api_base"`
	Model       string `mapstructure:"model"`
	Language    string `mapstructure:"language"`
	SmartFormat bool   `mapstructure:"smart_format"`
	Endpointing int    `mapstructure:"endpointing"`
}

type AudioConfig struct {
	RecorderCommand string `mapstructure:"recorder_command"`
	InputFormat     string `mapstructure:"input_format"`
	InputDevice     string `mapstructure:"input_device"`
	SampleRate      int    `mapstructure:"sample_rate"`
	Channels        int    `mapstructure:"channels"`
	ChunkSize       int    `mapstructure:"chunk_size"`
}

type SpeechConfig struct {
	Command string `mapstructure:"command"`
	Voice   string `mapstructure:"voice"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is auto, console or json.
	Format string `mapstructure:"format"`
}

// Dir returns the directory holding the config file and default data files.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".config", "darling"), nil
}

// Load resolves configuration from DARLING_* environment variables, the
// optional ~/.config/darling/config.yaml and defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path uses the
// default location, which may be absent.
func LoadFile(path string) (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("deepgram.api_key", envPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.sanitize(dir)
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	dir, err := Dir()
	if err != nil {
		dir = "."
	}
	v := viper.New()
	setDefaults(v, dir)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.sanitize(dir)
	return cfg
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("assistant.wake_phrase", "hey darling")
	v.SetDefault("assistant.seed", 0)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(dir, "tasks.db"))

	v.SetDefault("rules.path", filepath.Join(dir, "corrections.rules"))
	v.SetDefault("rules.iteration_limit", 30)
	v.SetDefault("rules.defaults", true)

	v.SetDefault("voice.watchdog", 30*time.Second)
	v.SetDefault("voice.watchdog_restart", 500*time.Millisecond)
	v.SetDefault("voice.ended_restart", 500*time.Millisecond)
	v.SetDefault("voice.resume_after_speech", 500*time.Millisecond)
	v.SetDefault("voice.no_speech_restart", 300*time.Millisecond)
	v.SetDefault("voice.aborted_restart", 500*time.Millisecond)
	v.SetDefault("voice.error_restart", time.Second)
	v.SetDefault("voice.reinit_retry", time.Second)
	v.SetDefault("voice.streak_threshold", 5)
	v.SetDefault("voice.idle_wake_listening", true)

	v.SetDefault("deepgram.api_key", "")
	v.SetDefault("deepgram.api_base", "https://api.deepgram.com/v1")
	v.SetDefault("deepgram.model", "nova-2")
	v.SetDefault("deepgram.language", "en-US")
	v.SetDefault("deepgram.smart_format", true)
	v.SetDefault("deepgram.endpointing", 300)

	v.SetDefault("audio.recorder_command", "ffmpeg")
	v.SetDefault("audio.input_format", "pulse")
	v.SetDefault("audio.input_device", "default")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.chunk_size", 4096)

	v.SetDefault("speech.command", "espeak")
	v.SetDefault("speech.voice", "")

	v.SetDefault("server.addr", "127.0.0.1:8765")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// sanitize replaces invalid values with their defaults.
func (c *Config) sanitize(dir string) {
	if strings.TrimSpace(c.Assistant.WakePhrase) == "" {
		c.Assistant.WakePhrase = "hey darling"
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "sqlite", "file", "memory":
		c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	default:
		c.Storage.Driver = "sqlite"
	}
	c.Storage.Path = expandHome(c.Storage.Path)
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(dir, "tasks.db")
	}
	c.Rules.Path = expandHome(c.Rules.Path)
	if c.Rules.IterationLimit <= 0 {
		c.Rules.IterationLimit = 30
	}

	if c.Voice.StreakThreshold <= 0 {
		c.Voice.StreakThreshold = 5
	}

	c.Deepgram.APIKey = strings.TrimSpace(c.Deepgram.APIKey)
	if c.Deepgram.Endpointing <= 0 {
		c.Deepgram.Endpointing = 300
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.ChunkSize < 256 {
		c.Audio.ChunkSize = 4096
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = "127.0.0.1:8765"
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json", "auto":
		c.Log.Format = strings.ToLower(c.Log.Format)
	default:
		c.Log.Format = "auto"
	}
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
