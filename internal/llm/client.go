package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cognicore/residue/pkg/residue/entities"
)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	// Temperature is sent with every request; zero asks for the most
	// deterministic reply.
	Temperature float64

	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const extractSystem = "You identify business entities, products and teams hidden in cloud resource name fragments. " +
	"Reply with JSON only."

// Extract asks the model which entities the chunks name. Transport and API
// failures are returned as errors; a reply that does not decode comes back
// as entities.Malformed.
func (c *Client) Extract(ctx context.Context, chunks []string) (entities.Outcome, error) {
	content, err := c.Chat(ctx, extractSystem, formatPrompt(chunks))
	if err != nil {
		return nil, err
	}
	return entities.ParseExtraction(content), nil
}

func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages, Temperature: c.Temperature})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("llm: decode response (status %d): %w", resp.StatusCode, err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func formatPrompt(chunks []string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Resource name fragments:\n")
	for idx, chunk := range chunks {
		fmt.Fprintf(&buf, "%d. %s\n", idx+1, chunk)
	}
	fmt.Fprintf(&buf, "\nFor every fragment list the entities it names, with any abbreviations used.\n")
	fmt.Fprintf(&buf, `Respond as {"results":[{"chunk":"...","entities":[{"entity_name":"...","abbreviations":["..."]}]}]}`)
	fmt.Fprintf(&buf, "\nOmit fragments that name nothing.\n")
	return buf.String()
}
