package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
	Data   Data   `yaml:"data"`
}

type Server struct {
	// Base URL of the calorie calculation service
	BaseURL string `yaml:"base_url" example:"http://localhost:8000/api" validate:"required,url"`
	// Base URL of the dish administration service
	AdminBaseURL string `yaml:"admin_base_url" example:"http://localhost:8001/api" validate:"required,url"`
	// Per-request timeout in seconds
	TimeoutSeconds int `yaml:"timeout_seconds" example:"30"`
}

func (s Server) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type Data struct {
	// Directory for the session file and the calculation history database
	Dir string `yaml:"dir" example:"data"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.BaseURL == "" {
		result.Server.BaseURL = "http://localhost:8000/api"
	}
	if result.Server.AdminBaseURL == "" {
		result.Server.AdminBaseURL = "http://localhost:8001/api"
	}
	if result.Server.TimeoutSeconds == 0 {
		result.Server.TimeoutSeconds = 30
	}
	if result.Data.Dir == "" {
		result.Data.Dir = "data"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
