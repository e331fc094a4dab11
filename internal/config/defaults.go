package config

import "github.com/feitianbubu/jaaz/internal/constant"

// DefaultConfig returns a configuration populated with the stock provider
// table and default server settings.
func DefaultConfig() *Config {
	cfg := &Config{
		Port:       DefaultPort,
		BaseAPIURL: DefaultBaseAPIURL,
	}
	cfg.Providers = defaultProviders(cfg.BaseAPIURL)
	return cfg
}

// defaultProviders builds the stock provider entries. The jaaz provider URL
// tracks the configured backend so staging deployments route correctly.
func defaultProviders(baseAPIURL string) map[string]*Provider {
	return map[string]*Provider{
		constant.Jaaz: {
			URL:       baseAPIURL + "/v1/",
			MaxTokens: 8192,
			Models: map[string]*Model{
				"kimi-k2-0905-preview": {Type: "text"},
				"jimeng_i2v_first_v30_1080": {
					Type:        "video",
					DisplayName: "Jimeng3.0",
					Description: "Generate high-quality videos using jimeng_i2v_first_v30_1080 model. Supports image-to-video generation with advanced controls.",
				},
			},
		},
		constant.ComfyUI: {
			URL:    "http://127.0.0.1:8188",
			Models: map[string]*Model{},
		},
		constant.Ollama: {
			URL:       "http://localhost:11434",
			MaxTokens: 8192,
			Models:    map[string]*Model{},
		},
		constant.OpenAI: {
			URL:       "https://api.openai.com/v1/",
			MaxTokens: 8192,
			Models:    map[string]*Model{},
		},
	}
}
