package completion

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey       string `envconfig:"COMPLETION_API_KEY"`
	APIURL       string `envconfig:"COMPLETION_API_URL" default:"https://api.openai.com/v1/chat/completions"`
	Model        string `envconfig:"COMPLETION_MODEL" default:"gpt-3.5-turbo"`
	SystemPrompt string `envconfig:"COMPLETION_SYSTEM_PROMPT"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
