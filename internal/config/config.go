package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	OpenAI    OpenAIConfig
	Storage   StorageConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	GeneratePerHour int
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	ChatModel string // structured planning and narration
	CodeModel string // renderer code generation
	TTSModel  string
	Voice     string
	Timeout   int // seconds
}

type StorageConfig struct {
	VideosDir string
	AudioDir  string
	DebugDir  string
	DebugMode bool
}

type PipelineConfig struct {
	RenderRetries     int // per-scene retries after the first attempt
	SpeechRetries     int
	RenderConcurrency int
	StepPauseMs       int // pause after each progress checkpoint
	RendererBin       string
	RendererQuality   string // manim quality flag output dir segment, e.g. 720p30
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "GENERATE_PER_HOUR")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.chat_model", "OPENAI_CHAT_MODEL")
	_ = viper.BindEnv("openai.code_model", "OPENAI_CODE_MODEL")
	_ = viper.BindEnv("openai.tts_model", "OPENAI_TTS_MODEL")
	_ = viper.BindEnv("openai.voice", "OPENAI_VOICE")
	_ = viper.BindEnv("openai.timeout", "OPENAI_TIMEOUT")
	_ = viper.BindEnv("storage.videos_dir", "VIDEOS_DIR")
	_ = viper.BindEnv("storage.audio_dir", "AUDIO_DIR")
	_ = viper.BindEnv("storage.debug_dir", "DEBUG_DIR")
	_ = viper.BindEnv("storage.debug_mode", "DEBUG_MODE")
	_ = viper.BindEnv("pipeline.render_retries", "RENDER_RETRIES")
	_ = viper.BindEnv("pipeline.speech_retries", "SPEECH_RETRIES")
	_ = viper.BindEnv("pipeline.render_concurrency", "RENDER_CONCURRENCY")
	_ = viper.BindEnv("pipeline.step_pause_ms", "STEP_PAUSE_MS")
	_ = viper.BindEnv("pipeline.renderer_bin", "RENDERER_BIN")
	_ = viper.BindEnv("pipeline.renderer_quality", "RENDERER_QUALITY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("ratelimit.generate_per_hour", 10)

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.chat_model", "gpt-4o-2024-08-06")
	viper.SetDefault("openai.code_model", "o3-mini-2025-01-31")
	viper.SetDefault("openai.tts_model", "tts-1")
	viper.SetDefault("openai.voice", "alloy")
	viper.SetDefault("openai.timeout", 120)

	// Storage defaults
	viper.SetDefault("storage.videos_dir", "videos")
	viper.SetDefault("storage.audio_dir", "audio")
	viper.SetDefault("storage.debug_dir", "debug")
	viper.SetDefault("storage.debug_mode", false)

	// Pipeline defaults
	viper.SetDefault("pipeline.render_retries", 2)
	viper.SetDefault("pipeline.speech_retries", 2)
	viper.SetDefault("pipeline.render_concurrency", 2)
	viper.SetDefault("pipeline.step_pause_ms", 500)
	viper.SetDefault("pipeline.renderer_bin", "manim")
	viper.SetDefault("pipeline.renderer_quality", "720p30")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    viper.GetString("openai.api_key"),
			BaseURL:   viper.GetString("openai.base_url"),
			ChatModel: viper.GetString("openai.chat_model"),
			CodeModel: viper.GetString("openai.code_model"),
			TTSModel:  viper.GetString("openai.tts_model"),
			Voice:     viper.GetString("openai.voice"),
			Timeout:   viper.GetInt("openai.timeout"),
		},
		Storage: StorageConfig{
			VideosDir: viper.GetString("storage.videos_dir"),
			AudioDir:  viper.GetString("storage.audio_dir"),
			DebugDir:  viper.GetString("storage.debug_dir"),
			DebugMode: viper.GetBool("storage.debug_mode"),
		},
		Pipeline: PipelineConfig{
			RenderRetries:     viper.GetInt("pipeline.render_retries"),
			SpeechRetries:     viper.GetInt("pipeline.speech_retries"),
			RenderConcurrency: viper.GetInt("pipeline.render_concurrency"),
			StepPauseMs:       viper.GetInt("pipeline.step_pause_ms"),
			RendererBin:       viper.GetString("pipeline.renderer_bin"),
			RendererQuality:   viper.GetString("pipeline.renderer_quality"),
		},
	}

	return cfg, nil
}
