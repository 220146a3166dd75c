package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Research Research `yaml:"research"`
	Script   Script   `yaml:"script"`
	Voice    Voice    `yaml:"voice"`
	Captcha  Captcha  `yaml:"captcha"`
	Watcher  Watcher  `yaml:"watcher"`
	Audio    Audio    `yaml:"audio"`
	Publish  Publish  `yaml:"publish"`
	Paths    Paths    `yaml:"paths"`
}

type Research struct {
	Subreddits  []string `yaml:"subreddits"`
	MaxTrending int      `yaml:"max_trending"`
}

type Script struct {
	GroqModel   string  `yaml:"groq_model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	LengthSec   int     `yaml:"length_sec"`
	Tone        string  `yaml:"tone"`
}

type Voice struct {
	SiteURL            string `yaml:"site_url"`
	VoiceName          string `yaml:"voice_name"`
	ElementTimeoutSec  int    `yaml:"element_timeout_sec"`
	GenerateTimeoutSec int    `yaml:"generate_timeout_sec"`
	PageSettleSec      int    `yaml:"page_settle_sec"`
	Headless           bool   `yaml:"headless"`
}

type Captcha struct {
	TesseractBin string `yaml:"tesseract_bin"`
	CodeDigits   int    `yaml:"code_digits"`
}

type Watcher struct {
	PollIntervalSec   int `yaml:"poll_interval_sec"`
	StabilityDelaySec int `yaml:"stability_delay_sec"`
	CeilingSec        int `yaml:"ceiling_sec"`
}

type Audio struct {
	SampleRate int    `yaml:"sample_rate"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

type Publish struct {
	Target           string `yaml:"target"` // instagram | youtube | none
	InstagramURL     string `yaml:"instagram_url"`
	WizardTimeoutSec int    `yaml:"wizard_timeout_sec"`
	Caption          string `yaml:"caption"`
	GenerateCaption  bool   `yaml:"generate_caption"`
	Visibility       string `yaml:"visibility"`
	CategoryID       string `yaml:"category_id"`
}

type Paths struct {
	Downloads string `yaml:"downloads"`
	Output    string `yaml:"output"`
	Processed string `yaml:"processed"`
}

// Load reads config.yaml and fills defaults for anything omitted
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a usable config without a config.yaml on disk
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (v Voice) ElementTimeout() time.Duration  { return time.Duration(v.ElementTimeoutSec) * time.Second }
func (v Voice) GenerateTimeout() time.Duration { return time.Duration(v.GenerateTimeoutSec) * time.Second }
func (v Voice) PageSettle() time.Duration      { return time.Duration(v.PageSettleSec) * time.Second }

func (w Watcher) PollInterval() time.Duration   { return time.Duration(w.PollIntervalSec) * time.Second }
func (w Watcher) StabilityDelay() time.Duration { return time.Duration(w.StabilityDelaySec) * time.Second }
func (w Watcher) Ceiling() time.Duration        { return time.Duration(w.CeilingSec) * time.Second }

func (p Publish) WizardTimeout() time.Duration { return time.Duration(p.WizardTimeoutSec) * time.Second }

func (c *Config) applyDefaults() {
	if c.Voice.SiteURL == "" {
		c.Voice.SiteURL = "https://speechma.com/"
	}
	if c.Voice.VoiceName == "" {
		c.Voice.VoiceName = "Emily"
	}
	if c.Voice.ElementTimeoutSec == 0 {
		c.Voice.ElementTimeoutSec = 15
	}
	if c.Voice.GenerateTimeoutSec == 0 {
		c.Voice.GenerateTimeoutSec = 60
	}
	if c.Voice.PageSettleSec == 0 {
		c.Voice.PageSettleSec = 5
	}
	if c.Captcha.TesseractBin == "" {
		c.Captcha.TesseractBin = "tesseract"
	}
	if c.Captcha.CodeDigits == 0 {
		c.Captcha.CodeDigits = 5
	}
	if c.Watcher.PollIntervalSec == 0 {
		c.Watcher.PollIntervalSec = 2
	}
	if c.Watcher.StabilityDelaySec == 0 {
		c.Watcher.StabilityDelaySec = 1
	}
	if c.Watcher.CeilingSec == 0 {
		c.Watcher.CeilingSec = 120
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Publish.Target == "" {
		c.Publish.Target = "none"
	}
	if c.Publish.InstagramURL == "" {
		c.Publish.InstagramURL = "https://www.instagram.com/"
	}
	if c.Publish.WizardTimeoutSec == 0 {
		c.Publish.WizardTimeoutSec = 30
	}
	if c.Publish.Visibility == "" {
		c.Publish.Visibility = "private"
	}
	if c.Publish.CategoryID == "" {
		c.Publish.CategoryID = "22" // People & Blogs
	}
	if c.Script.GroqModel == "" {
		c.Script.GroqModel = "llama-3.3-70b-versatile"
	}
	if c.Script.Temperature == 0 {
		c.Script.Temperature = 0.7
	}
	if c.Script.MaxTokens == 0 {
		c.Script.MaxTokens = 300
	}
	if c.Script.LengthSec == 0 {
		c.Script.LengthSec = 45
	}
	if c.Script.Tone == "" {
		c.Script.Tone = "conversational"
	}
	if c.Research.MaxTrending == 0 {
		c.Research.MaxTrending = 5
	}
	if len(c.Research.Subreddits) == 0 {
		c.Research.Subreddits = []string{"selfimprovement", "DecidingToBeBetter"}
	}
	if c.Paths.Downloads == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Paths.Downloads = filepath.Join(home, "Downloads")
		} else {
			c.Paths.Downloads = "downloads"
		}
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "output"
	}
	if c.Paths.Processed == "" {
		c.Paths.Processed = "processed_audio"
	}
}
