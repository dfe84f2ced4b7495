package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

// LLMOracle generates scenarios through an OpenAI-compatible chat
// completions endpoint. The response must be a single JSON object;
// markdown fences are stripped, anything else malformed is an error.
type LLMOracle struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	language    string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewLLMOracle creates an LLM-backed oracle.
func NewLLMOracle(cfg config.OracleConfig, apiKey string) *LLMOracle {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-5-nano"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}
	timeout := cfg.GetTimeout()
	if timeout <= 0 || timeout > 15*time.Second {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	return &LLMOracle{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		maxRetries:  maxRetries,
		language:    cfg.Language,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      config.NewLogger("oracle"),
	}
}

// ChatMessage is one message in a chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completions request body
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatResponse is the chat completions response body
type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// ErrorResponse is the error body returned by the API
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze implements Oracle.
func (o *LLMOracle) Analyze(ctx context.Context, symbol, triggerType string, candidate trigger.Candidate) (Scenario, error) {
	messages := []ChatMessage{
		{Role: "system", Content: o.systemPrompt()},
		{Role: "user", Content: o.userPrompt(symbol, triggerType, candidate)},
	}

	content, err := o.complete(ctx, messages)
	if err != nil {
		return Scenario{}, err
	}

	scenario, err := ParseScenario([]byte(stripFences(content)))
	if err != nil {
		return Scenario{}, fmt.Errorf("malformed scenario for %s: %w", symbol, err)
	}

	scenario.Normalize(symbol, candidate)
	return scenario, nil
}

func (o *LLMOracle) complete(ctx context.Context, messages []ChatMessage) (string, error) {
	request := ChatRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		content, err := o.doRequest(ctx, requestBody)
		if err == nil {
			return content, nil
		}
		lastErr = err
		o.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("LLM request failed")
	}
	return "", lastErr
}

func (o *LLMOracle) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("LLM API error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("LLM API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	o.logger.Debug().
		Str("model", o.model).
		Dur("duration", time.Since(start)).
		Msg("LLM request complete")

	return chatResp.Choices[0].Message.Content, nil
}

func (o *LLMOracle) systemPrompt() string {
	if o.language == "ko" {
		return "당신은 보수적인 암호화폐 스윙 트레이딩 분석가입니다. " +
			"주어진 후보 데이터를 평가하고 매매 시나리오를 JSON 객체 하나로만 응답하세요. " +
			"decision은 entry 또는 no_entry, 숫자 필드는 숫자만 사용하세요."
	}
	return "You are a conservative crypto swing-trading analyst. " +
		"Evaluate the candidate and respond with exactly one JSON object. " +
		"decision must be entry or no_entry; numeric fields must be numbers."
}

func (o *LLMOracle) userPrompt(symbol, triggerType string, c trigger.Candidate) string {
	var b strings.Builder
	if o.language == "ko" {
		b.WriteString("다음 코인 후보에 대한 매매 시나리오 JSON을 생성하세요.\n\n")
	} else {
		b.WriteString("Generate a trading scenario JSON for the following candidate.\n\n")
	}
	fmt.Fprintf(&b, "[Candidate]\n")
	fmt.Fprintf(&b, "- Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "- Trigger: %s\n", triggerType)
	fmt.Fprintf(&b, "- Current Price: %g\n", c.CurrentPrice)
	fmt.Fprintf(&b, "- 1-bar Return (%%): %g\n", c.Ret1Pct)
	fmt.Fprintf(&b, "- 4-bar Return (%%): %g\n", c.Ret4Pct)
	fmt.Fprintf(&b, "- Volume Ratio(20): %g\n", c.VolumeRatio20)
	fmt.Fprintf(&b, "- ATR (%%): %g\n", c.ATRPct)
	fmt.Fprintf(&b, "- Phase1 Risk-Reward: %g\n", c.RiskRewardRatio)
	fmt.Fprintf(&b, "- Phase1 Target: %g\n", c.TargetPrice)
	fmt.Fprintf(&b, "- Phase1 Stop: %g\n", c.StopLossPrice)
	fmt.Fprintf(&b, "- Phase1 Final Score: %g\n", c.FinalScore)
	fmt.Fprintf(&b, "- Theme: %s\n", c.Theme)
	b.WriteString("\nFields: buy_score, min_score, decision, target_price, stop_loss, " +
		"risk_reward_ratio, expected_return_pct, expected_loss_pct, investment_period, " +
		"rationale, theme, market_condition, trading_scenarios\n")
	return b.String()
}

// stripFences removes a surrounding markdown code fence, with or without a
// json language tag.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "json") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}
