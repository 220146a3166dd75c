// Package script turns a topic into spoken-word text for the voice stage.
// Generation goes through the Groq chat-completions API; when the key is
// missing or the request fails, a canned script for the topic is used so the
// rest of the pipeline always has something to voice.
package script

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

	"reelpipe/config"
	"reelpipe/types"
)

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

const systemPromptTemplate = `You are a professional script writer for Instagram content creators.

Create a concise, engaging %d-second script (keep the script SHORT)
for an Instagram video about the topic: %s - %s.

The script should:
- Start with a BOLD HOOK.
- Be appropriate for spoken delivery on Instagram by a female creator
- Have a clear beginning, middle, and end
- Use natural conversational language with "bestie talk" style
- Include pauses, emphasis, and relatable examples
- Be informative yet engaging for social media audience
- Include a catchy hook in the first 3 seconds
- End with a question or call to action to encourage engagement
- Be in a %s tone

DO NOT include any stage directions, timings, or formatting notes.
Write ONLY the script text that would be spoken aloud on Instagram.
DO NOT include any headings either, only the script.`

// Writer generates scripts via Groq
type Writer struct {
	cfg        config.Script
	httpClient *http.Client
	endpoint   string
}

// New creates a script Writer
func New(cfg config.Script) *Writer {
	return &Writer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   groqEndpoint,
	}
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Run produces the script text for topic. The returned ScriptText records
// whether the canned fallback was used.
func (w *Writer) Run(ctx context.Context, topic types.Topic) types.ScriptText {
	body, err := w.generate(ctx, topic)
	if err != nil {
		log.Printf("[script] ⚠️  generation failed, using fallback: %v", err)
		return types.ScriptText{Body: Fallback(topic), Fallback: true}
	}
	log.Printf("[script] ✅ script ready (%d chars)", len(body))
	return types.ScriptText{Body: body}
}

func (w *Writer) generate(ctx context.Context, topic types.Topic) (string, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GROQ_API_KEY not set")
	}

	systemPrompt := fmt.Sprintf(systemPromptTemplate,
		topic.LengthSec, topic.Main, topic.Subtopic, topic.Tone)

	reqBody := groqRequest{
		Model: w.cfg.GroqModel,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Write a %d-second Instagram script about: %s - %s",
				topic.LengthSec, topic.Main, topic.Subtopic)},
		},
		Temperature: w.cfg.Temperature,
		MaxTokens:   w.cfg.MaxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var groqResp groqResponse
	if err := json.Unmarshal(respBytes, &groqResp); err != nil {
		return "", fmt.Errorf("parse groq response: %w", err)
	}
	if groqResp.Error != nil {
		return "", fmt.Errorf("groq error: %s", groqResp.Error.Message)
	}
	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	content := strings.TrimSpace(groqResp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("groq returned an empty script")
	}
	return content, nil
}

// Fallback is the canned script used when generation is unavailable.
func Fallback(topic types.Topic) string {
	return fmt.Sprintf(`Hey there beautiful souls! Today I want to talk to you about %[1]s in the realm of %[2]s.

Did you know that mastering this could be the difference between feeling stuck and experiencing true freedom? That's right.

The secret most people miss about %[1]s is that it's not about perfection, it's about consistency and intention.

When I first embraced this practice, I noticed three immediate shifts: my mindset became clearer, my relationships improved, and my daily energy doubled.

Drop a sparkle in the comments if you're ready to transform your approach to %[1]s and join our community of mindful creators.

Remember, you deserve a life that feels as good as it looks. See you tomorrow!`,
		topic.Subtopic, topic.Main)
}
