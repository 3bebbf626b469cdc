package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Redis       RedisConfig               `json:"redis"`
	Tools       ToolsConfig               `json:"tools"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	// ContextPath is the append-only context log backing question answering.
	ContextPath string `json:"context_path"`
	// CardsPath holds the single structured card record.
	CardsPath string `json:"cards_path"`
	// SeedDir optionally holds .txt documents appended to an empty context
	// store at startup.
	SeedDir string `json:"seed_dir"`
	// FileBaseDir is where request-scoped transient files are written.
	FileBaseDir string `json:"file_base_dir"`
	// TempFileTTL and TempCleanInterval are in minutes.
	TempFileTTL       int `json:"temp_file_ttl"`
	TempCleanInterval int `json:"temp_clean_interval"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// AnswerTTL bounds cached QA answers, in minutes. Zero disables caching.
	AnswerTTL int `json:"answer_ttl"`
}

// ToolsConfig names the external binaries and fixed parameters behind the
// recognition and audio capabilities.
type ToolsConfig struct {
	TesseractCommand string  `json:"tesseract_command"`
	FFmpegCommand    string  `json:"ffmpeg_command"`
	WhisperCommand   string  `json:"whisper_command"`
	TTSLanguage      string  `json:"tts_language"`
	GainDB           float64 `json:"gain_db"`
	QAProvider       string  `json:"qa_provider"`
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BasicConfig.ContextPath == "" {
		return nil, fmt.Errorf("context_path must be configured")
	}
	if cfg.BasicConfig.CardsPath == "" {
		return nil, fmt.Errorf("cards_path must be configured")
	}

	dir := filepath.Dir(absPath)
	for _, p := range []*string{
		&cfg.BasicConfig.ContextPath,
		&cfg.BasicConfig.CardsPath,
		&cfg.BasicConfig.SeedDir,
		&cfg.BasicConfig.FileBaseDir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	return &cfg, nil
}
