package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"reelpipe/audioconv"
	"reelpipe/browser"
	"reelpipe/captcha"
	"reelpipe/config"
	"reelpipe/publish"
	"reelpipe/research"
	"reelpipe/script"
	"reelpipe/status"
	"reelpipe/types"
	"reelpipe/voiceflow"
	"reelpipe/watcher"
)

func main() {
	// .env for local dev; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = config.Default()
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Processed} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.Paths.Output, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		log.Fatalf("Failed to create run dir: %v", err)
	}

	log.Printf("🎙️ Reel pipeline starting — Run ID: %s", runID)
	log.Printf("📁 Output dir: %s", runDir)

	ctx := context.Background()
	state := &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}

	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveJSON(filepath.Join(runDir, "state.json"), state)
		if state.Error != "" {
			log.Printf("❌ Pipeline failed: %s", state.Error)
			os.Exit(1)
		}
		log.Println("✅ Pipeline complete!")
	}()

	stdin := bufio.NewReader(os.Stdin)
	sink := status.ConsoleSink{}

	// ─────────────────────────────────────────────
	// STAGE 1: Topic
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Topic ━━━")
	topic := chooseTopic(ctx, cfg, stdin)
	state.Topic = &topic
	log.Printf("Topic: %s — %s", topic.Main, topic.Subtopic)

	// ─────────────────────────────────────────────
	// STAGE 2: Script
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Script ━━━")
	writer := script.New(cfg.Script)
	scriptText := writer.Run(ctx, topic)
	state.Script = &scriptText
	saveJSON(filepath.Join(runDir, "script.json"), scriptText)

	// ─────────────────────────────────────────────
	// STAGE 3: Voice generation
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Voice Generation ━━━")
	session, err := browser.Launch(ctx, browser.Options{
		Headless:    cfg.Voice.Headless,
		DownloadDir: cfg.Paths.Downloads,
	})
	if err != nil {
		state.Error = fmt.Sprintf("Stage 3 Voice: %v", err)
		return
	}

	downloads := watcher.New(cfg.Paths.Downloads,
		watcher.WithPollInterval(cfg.Watcher.PollInterval()),
		watcher.WithStabilityDelay(cfg.Watcher.StabilityDelay()),
		watcher.WithCeiling(cfg.Watcher.Ceiling()),
	)
	solver := captcha.New(cfg.Captcha.TesseractBin, cfg.Captcha.CodeDigits)
	orch := voiceflow.New(cfg.Voice, session, solver, downloads, nil, sink)

	candidate, err := orch.Run(ctx, scriptText.Body)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 3 Voice: %v", err)
		return
	}
	log.Printf("Audio downloaded: %s", candidate.Path)

	// ─────────────────────────────────────────────
	// STAGE 4: Audio normalization
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Audio Normalization ━━━")
	ffmpegPath, err := audioconv.FindFFmpeg(cfg.Audio.FFmpegPath)
	if err != nil {
		log.Printf("⚠️  ffmpeg not found, relying on the library fallback: %v", err)
	}
	converter := audioconv.New(cfg.Paths.Processed, cfg.Audio.SampleRate, ffmpegPath)

	artifact := &types.AudioArtifact{
		InputPath:  candidate.Path,
		SampleRate: cfg.Audio.SampleRate,
		Status:     "pending",
	}
	state.Artifact = artifact

	wavPath, err := converter.Normalize(ctx, candidate.Path)
	if err != nil {
		artifact.Status = "failed"
		state.Error = fmt.Sprintf("Stage 4 Audio: %v", err)
		return
	}
	artifact.OutputPath = wavPath
	artifact.Status = "converted"
	log.Printf("Normalized audio: %s", wavPath)

	// ─────────────────────────────────────────────
	// STAGE 5: Publish
	// ─────────────────────────────────────────────
	if cfg.Publish.Target == "none" {
		log.Println("\nPublishing disabled (publish.target: none)")
		return
	}
	log.Println("\n━━━ STAGE 5: Publish ━━━")

	post, err := runPublish(ctx, cfg, topic, wavPath, sink)
	if err != nil {
		state.Error = fmt.Sprintf("Stage 5 Publish: %v", err)
		return
	}
	state.Post = post
	if post.Confirmed {
		log.Printf("Published to %s: %s", post.Target, post.URL)
	} else {
		log.Printf("⚠️  Publish to %s not confirmed — check the account manually", post.Target)
	}
}

// chooseTopic walks the operator through the catalog, with a trending
// suggestion as the first option. Any input problem ends in the default
// topic so unattended runs still proceed.
func chooseTopic(ctx context.Context, cfg *config.Config, stdin *bufio.Reader) types.Topic {
	cats := research.Catalog()

	fmt.Println("Choose a topic category:")
	fmt.Println("  0) Suggest from trending")
	for i, cat := range cats {
		fmt.Printf("  %d) %s\n", i+1, cat.Name)
	}
	fmt.Print("> ")

	choice, err := readIndex(stdin, 0, len(cats))
	if err != nil {
		log.Printf("⚠️  no selection made, using the default topic")
		return research.DefaultTopic(cfg.Script.Tone, cfg.Script.LengthSec)
	}

	if choice == 0 {
		source, err := research.NewSource(cfg.Research)
		if err == nil {
			if topic, serr := source.Suggest(ctx, cfg.Script.Tone, cfg.Script.LengthSec); serr == nil {
				return topic
			} else {
				err = serr
			}
		}
		log.Printf("⚠️  trending lookup failed (%v), using the default topic", err)
		return research.DefaultTopic(cfg.Script.Tone, cfg.Script.LengthSec)
	}

	cat := cats[choice-1]
	fmt.Printf("Choose a subtopic for %q:\n", cat.Name)
	for i, sub := range cat.Subtopics {
		fmt.Printf("  %d) %s\n", i+1, sub)
	}
	fmt.Print("> ")

	subChoice, err := readIndex(stdin, 1, len(cat.Subtopics))
	if err != nil {
		subChoice = 1
	}

	topic, err := research.Pick(cat.Name, cat.Subtopics[subChoice-1], cfg.Script.Tone, cfg.Script.LengthSec)
	if err != nil {
		return research.DefaultTopic(cfg.Script.Tone, cfg.Script.LengthSec)
	}
	return topic
}

func readIndex(stdin *bufio.Reader, min, max int) (int, error) {
	line, err := stdin.ReadString('\n')
	if err != nil {
		// a final unterminated line at EOF still carries the answer;
		// any other read error does not
		if !errors.Is(err, io.EOF) || strings.TrimSpace(line) == "" {
			return 0, err
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, fmt.Errorf("choice %d out of range", n)
	}
	return n, nil
}

func runPublish(ctx context.Context, cfg *config.Config, topic types.Topic, mediaPath string, sink status.Sink) (*types.PostResult, error) {
	caption := cfg.Publish.Caption
	if caption == "" && cfg.Publish.GenerateCaption {
		caption = publish.NewCaptioner(cfg.Script.GroqModel).Run(ctx, topic)
	}
	if caption == "" {
		caption = publish.FallbackCaption(topic)
	}

	switch cfg.Publish.Target {
	case "instagram":
		session, err := browser.Launch(ctx, browser.Options{Headless: cfg.Voice.Headless})
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		defer session.Close()
		flow := publish.NewInstagram(cfg.Publish, session, sink)
		return flow.Run(ctx, mediaPath, caption)
	case "youtube":
		uploader := publish.NewYouTube(cfg.Publish)
		return uploader.Run(ctx, mediaPath, publish.VideoMetadata{
			Title:       fmt.Sprintf("%s — %s", topic.Main, topic.Subtopic),
			Description: caption,
			Tags:        []string{"wellness", "motivation", "shorts"},
		})
	default:
		return nil, fmt.Errorf("unknown publish target %q", cfg.Publish.Target)
	}
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
