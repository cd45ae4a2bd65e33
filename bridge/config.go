// Package bridge exposes voice sessions to browser clients over a websocket
// endpoint and loads the process configuration.
package bridge

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Agent backend selection.
const (
	ProviderNone    = "none"
	ProviderFoundry = "foundry"
	ProviderChat    = "chat"
)

type Settings struct {
	ListenAddr string
	LogLevel   string

	VoiceLiveEndpoint string
	VoiceLiveAPIKey   string
	VoiceLiveModel    string

	VoiceName         string
	Instructions      string
	InputLanguages    []string
	MaxResponseTokens int
	TurnBased         bool

	AvatarCharacter  string
	AvatarStyle      string
	AvatarBaseModel  string
	AvatarCustomized bool
	AvatarBitrate    int

	Provider string

	FoundryEndpoint string
	FoundryToken    string
	FoundryAgentID  string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIDeployment string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// LoadSettings reads configuration from a .env file (if present) and the
// environment, then validates the combination.
func LoadSettings(logger shared.LoggerAdapter) (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("loading .env file failed", zap.Error(err))
	}

	s := &Settings{
		ListenAddr:        envOr("LISTEN_ADDR", ":8080"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		VoiceLiveEndpoint: os.Getenv("AZURE_VOICELIVE_ENDPOINT"),
		VoiceLiveAPIKey:   os.Getenv("AZURE_VOICELIVE_API_KEY"),
		VoiceLiveModel:    envOr("VOICELIVE_MODEL", "gpt-4o-realtime-preview"),
		VoiceName:         envOr("VOICE_NAME", "en-US-AvaMultilingualNeural"),
		Instructions:      envOr("ASSISTANT_INSTRUCTIONS", "You are a helpful voice assistant. Keep answers short and conversational."),
		MaxResponseTokens: envInt("MAX_RESPONSE_TOKENS", 100),
		TurnBased:         envBool("TURN_BASED", false),
		AvatarCharacter:   envOr("AVATAR_CHARACTER", "lisa"),
		AvatarStyle:       os.Getenv("AVATAR_STYLE"),
		AvatarBaseModel:   os.Getenv("AVATAR_BASE_MODEL"),
		AvatarCustomized:  envBool("AVATAR_CUSTOMIZED", false),
		AvatarBitrate:     envInt("AVATAR_VIDEO_BITRATE", 2_000_000),
		Provider:          strings.ToLower(envOr("AGENT_PROVIDER", ProviderNone)),
		FoundryEndpoint:   os.Getenv("AI_FOUNDRY_ENDPOINT"),
		FoundryToken:      os.Getenv("AI_FOUNDRY_TOKEN"),
		FoundryAgentID:    os.Getenv("AI_FOUNDRY_AGENT_ID"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIDeployment:  envOr("OPENAI_DEPLOYMENT", "gpt-4o-mini"),
	}
	if langs := os.Getenv("INPUT_LANGUAGES"); langs != "" {
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				s.InputLanguages = append(s.InputLanguages, l)
			}
		}
	} else {
		s.InputLanguages = []string{"en", "zh", "ta", "ja", "ko"}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	logger.Info("settings loaded",
		zap.String("listen_addr", s.ListenAddr),
		zap.String("model", s.VoiceLiveModel),
		zap.String("voice", s.VoiceName),
		zap.String("provider", s.Provider),
		zap.Bool("turn_based", s.TurnBased),
		zap.String("avatar_character", s.AvatarCharacter))
	return s, nil
}

func (s *Settings) validate() error {
	if s.VoiceLiveEndpoint == "" {
		return fmt.Errorf("AZURE_VOICELIVE_ENDPOINT: %w", shared.ErrNoEndpoint)
	}
	if s.VoiceLiveAPIKey == "" {
		return fmt.Errorf("AZURE_VOICELIVE_API_KEY: %w", shared.ErrNoAPIKey)
	}
	switch s.Provider {
	case ProviderNone:
	case ProviderFoundry:
		if s.FoundryEndpoint == "" || s.FoundryToken == "" || s.FoundryAgentID == "" {
			return errors.New("foundry provider requires AI_FOUNDRY_ENDPOINT, AI_FOUNDRY_TOKEN and AI_FOUNDRY_AGENT_ID")
		}
	case ProviderChat:
		if s.OpenAIAPIKey == "" {
			return errors.New("chat provider requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown agent provider %q", s.Provider)
	}
	return nil
}
