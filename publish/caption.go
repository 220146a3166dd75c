package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"reelpipe/types"
)

const captionSystemPrompt = `You are a social media strategist for Instagram creators.
Write a short, engaging caption for a spoken-word reel.

Rules:
- 1-2 sentences, warm and conversational
- End with a question or call to action
- Append 5-8 relevant hashtags on a new line
- Respond with ONLY the caption text, no quotes, no explanation`

// Captioner generates an Instagram caption for a topic via Groq, falling
// back to a canned caption when the API is unavailable.
type Captioner struct {
	model      string
	httpClient *http.Client
	endpoint   string
}

func NewCaptioner(model string) *Captioner {
	return &Captioner{
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   "https://api.groq.com/openai/v1/chat/completions",
	}
}

// Run never fails: any generation problem yields the fallback caption.
func (c *Captioner) Run(ctx context.Context, topic types.Topic) string {
	caption, err := c.generate(ctx, topic)
	if err != nil {
		log.Printf("[publish] ⚠️  caption generation failed, using fallback: %v", err)
		return FallbackCaption(topic)
	}
	return caption
}

func (c *Captioner) generate(ctx context.Context, topic types.Topic) (string, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GROQ_API_KEY not set")
	}

	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": captionSystemPrompt},
			{"role": "user", "content": fmt.Sprintf("Write a caption for a reel about: %s - %s", topic.Main, topic.Subtopic)},
		},
		"temperature": 0.8,
		"max_tokens":  200,
	}

	bodyBytes, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)
	var groqResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &groqResp); err != nil {
		return "", fmt.Errorf("parse groq response: %w", err)
	}
	if groqResp.Error != nil {
		return "", fmt.Errorf("groq error: %s", groqResp.Error.Message)
	}
	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	caption := strings.TrimSpace(groqResp.Choices[0].Message.Content)
	if caption == "" {
		return "", fmt.Errorf("groq returned an empty caption")
	}
	return caption, nil
}

// FallbackCaption is used when caption generation is unavailable.
func FallbackCaption(topic types.Topic) string {
	return fmt.Sprintf("Let's talk about %s today. What's your take?\n#%s #wellness #mindset #growth #dailyinspo",
		topic.Subtopic, hashtagify(topic.Subtopic))
}

func hashtagify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "reels"
	}
	return b.String()
}
