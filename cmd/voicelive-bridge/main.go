package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	voicelive "github.com/bt-bridge/voicelive-avatar"
	"github.com/bt-bridge/voicelive-avatar/agents"
	"github.com/bt-bridge/voicelive-avatar/bridge"
	"github.com/bt-bridge/voicelive-avatar/shared"
	"go.uber.org/zap"
)

func main() {
	var logger shared.LoggerAdapter
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		logger = shared.NewFileLogger(logFile, 50, 5, 14, true)
	} else {
		logger = shared.NewStdLogger()
	}

	settings, err := bridge.LoadSettings(logger)
	if err != nil {
		logger.Error("invalid configuration", err)
		os.Exit(1)
	}

	factory, err := buildFactory(logger, settings)
	if err != nil {
		logger.Error("building session factory failed", err)
		os.Exit(1)
	}
	handler, err := bridge.NewHandler(logger, factory)
	if err != nil {
		logger.Error("building websocket handler failed", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/ws/voice-avatar", handler)

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", settings.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", err)
	}
}

// buildFactory wires the configured agent backend into per-connection
// sessions.
func buildFactory(logger shared.LoggerAdapter, settings *bridge.Settings) (bridge.SessionFactory, error) {
	var provider voicelive.ContextProvider
	var agent voicelive.ResponseAgent

	switch settings.Provider {
	case bridge.ProviderFoundry:
		foundry, err := agents.NewFoundry(logger, agents.FoundryConfig{
			Endpoint: settings.FoundryEndpoint,
			Token:    settings.FoundryToken,
			AgentID:  settings.FoundryAgentID,
		})
		if err != nil {
			return nil, err
		}
		provider, agent = foundry, foundry

	case bridge.ProviderChat:
		chat, err := agents.NewChat(logger, agents.ChatConfig{
			APIKey:     settings.OpenAIAPIKey,
			BaseURL:    settings.OpenAIBaseURL,
			Deployment: settings.OpenAIDeployment,
		})
		if err != nil {
			return nil, err
		}
		provider, agent = chat, chat
	}

	cfg := &voicelive.SessionConfig{
		Endpoint:          settings.VoiceLiveEndpoint,
		APIKey:            settings.VoiceLiveAPIKey,
		Model:             settings.VoiceLiveModel,
		Instructions:      settings.Instructions,
		VoiceName:         settings.VoiceName,
		InputLanguages:    strings.Join(settings.InputLanguages, ","),
		MaxResponseTokens: settings.MaxResponseTokens,
		TurnBased:         settings.TurnBased,
		Avatar: voicelive.AvatarConfig{
			Character:  settings.AvatarCharacter,
			Style:      settings.AvatarStyle,
			BaseModel:  settings.AvatarBaseModel,
			Customized: settings.AvatarCustomized,
			Bitrate:    settings.AvatarBitrate,
		},
	}

	return func(connLogger shared.LoggerAdapter) (*voicelive.Session, error) {
		session, err := voicelive.NewSession(connLogger, cfg)
		if err != nil {
			return nil, err
		}
		if provider != nil {
			if err := session.SetContextProvider(provider); err != nil {
				return nil, err
			}
		}
		if agent != nil {
			if err := session.SetResponseAgent(agent); err != nil {
				return nil, err
			}
		}
		return session, nil
	}, nil
}
