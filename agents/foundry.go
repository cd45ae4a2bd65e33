package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bt-bridge/voicelive-avatar/shared"
	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	foundryAPIVersion     = "v1"
	foundryPollInterval   = 500 * time.Millisecond
	foundryDefaultTimeout = 30 * time.Second
)

type FoundryConfig struct {
	Endpoint string // full project URL
	Token    string
	AgentID  string
}

// Foundry is a thread-based agent backend. Threads created per session give
// the retrieval calls conversation memory; ephemeral threads are used
// otherwise and always cleaned up.
type Foundry struct {
	logger shared.LoggerAdapter
	cfg    FoundryConfig
}

func NewFoundry(logger shared.LoggerAdapter, cfg FoundryConfig) (*Foundry, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if cfg.Endpoint == "" {
		return nil, shared.ErrNoEndpoint
	}
	if cfg.Token == "" {
		return nil, shared.ErrNoAPIKey
	}
	if cfg.AgentID == "" {
		return nil, errors.New("no agent id provided")
	}
	return &Foundry{logger: logger, cfg: cfg}, nil
}

type foundryThread struct {
	ID string `json:"id"`
}

type foundryRun struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type foundryMessage struct {
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
}

type foundryMessageList struct {
	Data []foundryMessage `json:"data"`
}

func (f *Foundry) doJSON(ctx context.Context, method, path string, body, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(f.cfg.Endpoint + path + "?api-version=" + foundryAPIVersion)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+f.cfg.Token)
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(foundryDefaultTimeout)
	}
	if err := fasthttp.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("performing HTTP request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}
	if out != nil {
		if err := sonic.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

func (f *Foundry) CreateThread(ctx context.Context) (string, error) {
	var thread foundryThread
	if err := f.doJSON(ctx, fasthttp.MethodPost, "/threads", map[string]any{}, &thread); err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	f.logger.Debug("created agent thread", zap.String("thread_id", thread.ID))
	return thread.ID, nil
}

func (f *Foundry) DeleteThread(ctx context.Context, threadID string) error {
	if err := f.doJSON(ctx, fasthttp.MethodDelete, "/threads/"+threadID, nil, nil); err != nil {
		return fmt.Errorf("deleting thread %s: %w", threadID, err)
	}
	return nil
}

// runAndCollect posts a user message, runs the agent on the thread, polls the
// run to completion, and returns the last assistant reply.
func (f *Foundry) runAndCollect(ctx context.Context, threadID, content string) (string, error) {
	msg := map[string]any{"role": "user", "content": content}
	if err := f.doJSON(ctx, fasthttp.MethodPost, "/threads/"+threadID+"/messages", msg, nil); err != nil {
		return "", fmt.Errorf("creating message: %w", err)
	}

	var run foundryRun
	body := map[string]any{"assistant_id": f.cfg.AgentID}
	if err := f.doJSON(ctx, fasthttp.MethodPost, "/threads/"+threadID+"/runs", body, &run); err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}

	for run.Status == "queued" || run.Status == "in_progress" || run.Status == "" {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(foundryPollInterval):
		}
		if err := f.doJSON(ctx, fasthttp.MethodGet, "/threads/"+threadID+"/runs/"+run.ID, nil, &run); err != nil {
			return "", fmt.Errorf("polling run: %w", err)
		}
	}
	if run.Status != "completed" {
		if run.LastError != nil {
			return "", fmt.Errorf("run %s: %s", run.Status, run.LastError.Message)
		}
		return "", fmt.Errorf("run ended with status %s", run.Status)
	}

	var messages foundryMessageList
	if err := f.doJSON(ctx, fasthttp.MethodGet, "/threads/"+threadID+"/messages", nil, &messages); err != nil {
		return "", fmt.Errorf("listing messages: %w", err)
	}
	for i := len(messages.Data) - 1; i >= 0; i-- {
		m := messages.Data[i]
		if m.Role != "assistant" {
			continue
		}
		for j := len(m.Content) - 1; j >= 0; j-- {
			if m.Content[j].Type == "text" && m.Content[j].Text.Value != "" {
				return m.Content[j].Text.Value, nil
			}
		}
	}
	return "", nil
}

// ProcessQuery runs the full agent (retrieval + generation) on an ephemeral
// thread.
func (f *Foundry) ProcessQuery(ctx context.Context, query string) (string, error) {
	threadID, err := f.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.DeleteThread(context.WithoutCancel(ctx), threadID); err != nil {
			f.logger.Warn("cleaning up ephemeral thread failed", zap.Error(err))
		}
	}()
	return f.runAndCollect(ctx, threadID, query)
}

// GetContext retrieves knowledge-base facts for a query. When threadID is
// set the session thread is reused (and kept); otherwise an ephemeral thread
// is created and deleted.
func (f *Foundry) GetContext(ctx context.Context, query, threadID string, priorUtterances []string) (string, error) {
	ephemeral := threadID == ""
	if ephemeral {
		var err error
		threadID, err = f.CreateThread(ctx)
		if err != nil {
			return "", err
		}
		defer func() {
			if err := f.DeleteThread(context.WithoutCancel(ctx), threadID); err != nil {
				f.logger.Warn("cleaning up ephemeral thread failed", zap.Error(err))
			}
		}()
	}

	reply, err := f.runAndCollect(ctx, threadID, retrievalPrompt(query, priorUtterances))
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", nil
	}
	return contextHeader + reply, nil
}
