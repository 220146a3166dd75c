// Package voiceflow drives the TTS site end to end: voice selection, script
// entry, captcha, generation, and download capture. It owns the stage state
// machine and degrades recoverable automation failures into operator prompts
// instead of aborting the run.
package voiceflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelpipe/browser"
	"reelpipe/captcha"
	"reelpipe/config"
	"reelpipe/status"
	"reelpipe/watcher"
)

// Stage is a state of the automation run. Transitions are linear; Failed is
// reachable from every stage.
type Stage string

const (
	StageInit                Stage = "init"
	StageSessionStarted      Stage = "session-started"
	StageVoiceSelected       Stage = "voice-selected"
	StageScriptPasted        Stage = "script-pasted"
	StageCaptchaSolved       Stage = "captcha-solved"
	StageGenerationTriggered Stage = "generation-triggered"
	StageDownloadTriggered   Stage = "download-triggered"
	StageArtifactReady       Stage = "artifact-ready"
	StageSessionClosed       Stage = "session-closed"
	StageFailed              Stage = "failed"
)

// Page is the browser surface the orchestrator drives. *browser.Session
// satisfies it; tests use a scripted fake.
type Page interface {
	Navigate(ctx context.Context, url string, settle time.Duration) error
	Click(ctx context.Context, sel string, timeout time.Duration) error
	JSClick(ctx context.Context, sel string) error
	Type(ctx context.Context, sel, text string, timeout time.Duration) error
	PressEnter(ctx context.Context, sel string, timeout time.Duration) error
	ElementScreenshot(ctx context.Context, sel string, timeout time.Duration) ([]byte, error)
	HideElement(ctx context.Context, sel string) error
	EvalBool(ctx context.Context, js string) (bool, error)
	Close()
}

// Solver turns a captcha image into a code. *captcha.Solver satisfies it.
type Solver interface {
	Solve(ctx context.Context, imagePNG []byte) (string, error)
	Validate(code string) bool
}

// Downloads is the watcher surface the orchestrator needs.
// *watcher.Watcher satisfies it.
type Downloads interface {
	TakeSnapshot() (watcher.Snapshot, error)
	Await(ctx context.Context, baseline watcher.Snapshot) (*watcher.Candidate, error)
}

// Prompter asks the operator to intervene when automation cannot proceed on
// its own. The returned string is the operator's input, trimmed.
type Prompter interface {
	Ask(prompt string) (string, error)
}

// Orchestrator runs one voice-generation session against the TTS site.
type Orchestrator struct {
	cfg       config.Voice
	page      Page
	solver    Solver
	downloads Downloads
	prompt    Prompter
	sink      status.Sink
	stage     Stage

	// stage primitives, swappable in tests
	resolve     func(ctx context.Context, role browser.Role) (*browser.Element, error)
	resolveSlow func(ctx context.Context, role browser.Role) (*browser.Element, error)
	click       func(ctx context.Context, el *browser.Element) error
	sleep       func(ctx context.Context, d time.Duration) error
}

// New wires an Orchestrator over an already-launched page. A nil sink logs
// to the console; a nil prompter reads from stdin.
func New(cfg config.Voice, page Page, solver Solver, downloads Downloads, prompt Prompter, sink status.Sink) *Orchestrator {
	if sink == nil {
		sink = status.ConsoleSink{}
	}
	if prompt == nil {
		prompt = NewConsolePrompter()
	}
	roles := browser.VoiceSiteRoles(cfg.VoiceName)
	r := browser.NewResolver(page, roles, cfg.ElementTimeout())
	rSlow := browser.NewResolver(page, roles, cfg.GenerateTimeout())

	o := &Orchestrator{
		cfg:       cfg,
		page:      page,
		solver:    solver,
		downloads: downloads,
		prompt:    prompt,
		sink:      sink,
		stage:     StageInit,
	}
	o.resolve = r.Resolve
	o.resolveSlow = rSlow.Resolve
	o.click = func(ctx context.Context, el *browser.Element) error {
		return browser.SafeClick(ctx, page, r, el, cfg.ElementTimeout())
	}
	o.sleep = sleepCtx
	return o
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() Stage { return o.stage }

// Run executes the full flow and returns the downloaded artifact. The page
// is closed on every exit path.
func (o *Orchestrator) Run(ctx context.Context, script string) (cand *watcher.Candidate, err error) {
	defer func() {
		o.page.Close()
		if err != nil {
			o.stage = StageFailed
			o.emit(status.Error, string(StageFailed), err.Error())
		} else {
			o.transition(StageSessionClosed, "browser session closed")
		}
	}()

	if err = o.openSite(ctx); err != nil {
		return nil, err
	}
	if err = o.selectVoice(ctx); err != nil {
		return nil, err
	}
	if err = o.pasteScript(ctx, script); err != nil {
		return nil, err
	}
	if err = o.solveCaptcha(ctx); err != nil {
		return nil, err
	}
	cand, err = o.generateAndDownload(ctx)
	if err != nil {
		return nil, err
	}
	o.transition(StageArtifactReady, fmt.Sprintf("audio ready: %s (%d bytes)", cand.Name, cand.Size))
	return cand, nil
}

func (o *Orchestrator) openSite(ctx context.Context) error {
	if err := o.page.Navigate(ctx, o.cfg.SiteURL, o.cfg.PageSettle()); err != nil {
		return fmt.Errorf("open %s: %w", o.cfg.SiteURL, err)
	}
	o.transition(StageSessionStarted, "opened "+o.cfg.SiteURL)
	return nil
}

func (o *Orchestrator) selectVoice(ctx context.Context) error {
	search, err := o.resolve(ctx, browser.RoleVoiceSearch)
	switch {
	case err == nil:
		if err := o.page.Type(ctx, search.Selector, o.cfg.VoiceName, o.cfg.ElementTimeout()); err != nil {
			return fmt.Errorf("search voice %q: %w", o.cfg.VoiceName, err)
		}
		if err := o.page.PressEnter(ctx, search.Selector, o.cfg.ElementTimeout()); err != nil {
			return fmt.Errorf("apply voice search: %w", err)
		}
		// let the result list filter down before resolving a card
		if err := o.sleep(ctx, time.Second); err != nil {
			return err
		}
	case recoverable(err):
		o.emit(status.Warn, string(StageVoiceSelected), "voice search box not found, trying the voice list directly")
	default:
		return err
	}

	result, err := o.resolve(ctx, browser.RoleVoiceResult)
	if err != nil {
		if rerr := o.intervene(err, string(StageVoiceSelected),
			fmt.Sprintf("Select the voice %q in the browser, then press Enter: ", o.cfg.VoiceName)); rerr != nil {
			return rerr
		}
	} else if err := o.click(ctx, result); err != nil {
		return fmt.Errorf("select voice %q: %w", o.cfg.VoiceName, err)
	}
	o.transition(StageVoiceSelected, "voice selected: "+o.cfg.VoiceName)
	return nil
}

func (o *Orchestrator) pasteScript(ctx context.Context, script string) error {
	input, err := o.resolve(ctx, browser.RoleScriptInput)
	if err != nil {
		if rerr := o.intervene(err, string(StageScriptPasted),
			"Paste the script into the text area yourself, then press Enter: "); rerr != nil {
			return rerr
		}
	} else if err := o.page.Type(ctx, input.Selector, script, o.cfg.GenerateTimeout()); err != nil {
		return fmt.Errorf("paste script: %w", err)
	}
	o.transition(StageScriptPasted, fmt.Sprintf("script entered (%d chars)", len(script)))
	return nil
}

// solveCaptcha captures the challenge image and runs one OCR pass over it.
// Anything short of a clean read falls back to asking the operator; an empty
// operator answer means the page showed no captcha.
func (o *Orchestrator) solveCaptcha(ctx context.Context) error {
	var code string

	img, err := o.resolve(ctx, browser.RoleCaptchaImage)
	switch {
	case err == nil:
		png, serr := o.page.ElementScreenshot(ctx, img.Selector, o.cfg.ElementTimeout())
		if serr != nil {
			return fmt.Errorf("capture captcha: %w", serr)
		}
		code, serr = o.solver.Solve(ctx, png)
		if serr != nil {
			if !recoverable(serr) {
				return serr
			}
			o.emit(status.Manual, string(StageCaptchaSolved), "automatic captcha read failed")
			code, serr = o.prompt.Ask("Type the captcha code shown in the browser: ")
			if serr != nil {
				return serr
			}
		}
	case recoverable(err):
		o.emit(status.Manual, string(StageCaptchaSolved), "captcha image not found")
		code, err = o.prompt.Ask("Type the captcha code shown in the browser (leave empty if there is none): ")
		if err != nil {
			return err
		}
	default:
		return err
	}

	if code == "" {
		o.transition(StageCaptchaSolved, "no captcha code entered, continuing")
		return nil
	}
	if !o.solver.Validate(code) {
		o.emit(status.Warn, string(StageCaptchaSolved),
			fmt.Sprintf("code %q does not match the expected format, entering it anyway", code))
	}

	input, err := o.resolve(ctx, browser.RoleCaptchaInput)
	if err != nil {
		if rerr := o.intervene(err, string(StageCaptchaSolved),
			fmt.Sprintf("Type %q into the captcha box yourself, then press Enter: ", code)); rerr != nil {
			return rerr
		}
	} else if err := o.page.Type(ctx, input.Selector, code, o.cfg.ElementTimeout()); err != nil {
		return fmt.Errorf("enter captcha code: %w", err)
	}
	o.transition(StageCaptchaSolved, "captcha code entered")
	return nil
}

// generateAndDownload clicks generate, waits for the download control, and
// captures the resulting file. The download watcher is started before the
// download click so the arriving file can never slip between a click and a
// later snapshot.
func (o *Orchestrator) generateAndDownload(ctx context.Context) (*watcher.Candidate, error) {
	gen, err := o.resolve(ctx, browser.RoleGenerateButton)
	if err != nil {
		if rerr := o.intervene(err, string(StageGenerationTriggered),
			"Click the Generate button yourself, then press Enter: "); rerr != nil {
			return nil, rerr
		}
	} else if err := o.click(ctx, gen); err != nil {
		return nil, fmt.Errorf("click generate: %w", err)
	}
	o.transition(StageGenerationTriggered, "generation requested, waiting for the audio")

	baseline, err := o.downloads.TakeSnapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot download dir: %w", err)
	}

	// the watcher goroutine must not outlive this stage on any exit path
	awaitCtx, cancelAwait := context.WithCancel(ctx)
	defer cancelAwait()

	type awaited struct {
		cand *watcher.Candidate
		err  error
	}
	arrived := make(chan awaited, 1)
	go func() {
		c, e := o.downloads.Await(awaitCtx, baseline)
		arrived <- awaited{c, e}
	}()

	btn, err := o.resolveSlow(ctx, browser.RoleDownloadButton)
	if err != nil {
		if rerr := o.intervene(err, string(StageDownloadTriggered),
			"Click the Download button yourself, then press Enter: "); rerr != nil {
			return nil, rerr
		}
	} else if err := o.click(ctx, btn); err != nil {
		return nil, fmt.Errorf("click download: %w", err)
	}
	o.transition(StageDownloadTriggered, "download requested")

	res := <-arrived
	if res.err != nil {
		if rerr := o.intervene(res.err, string(StageDownloadTriggered),
			"No download arrived. Save the audio to the download folder yourself, then press Enter: "); rerr != nil {
			return nil, rerr
		}
		// one more window after the operator stepped in
		c, aerr := o.downloads.Await(ctx, baseline)
		if aerr != nil {
			return nil, fmt.Errorf("download never arrived: %w", aerr)
		}
		return c, nil
	}
	return res.cand, nil
}

// intervene turns a recoverable stage error into an operator prompt. It
// returns the original error unchanged when it is not recoverable, and the
// prompter's error if asking fails.
func (o *Orchestrator) intervene(err error, stage, instruction string) error {
	if !recoverable(err) {
		return err
	}
	o.emit(status.Manual, stage, err.Error())
	if _, perr := o.prompt.Ask(instruction); perr != nil {
		return perr
	}
	return nil
}

// recoverable reports whether err is one of the conditions the operator can
// fix by hand. Session-level failures are not among them.
func recoverable(err error) bool {
	return errors.Is(err, browser.ErrNotFound) ||
		errors.Is(err, captcha.ErrManualInput) ||
		errors.Is(err, watcher.ErrTimedOut)
}

func (o *Orchestrator) transition(next Stage, msg string) {
	o.stage = next
	o.emit(status.Info, string(next), msg)
}

func (o *Orchestrator) emit(level status.Level, stage, msg string) {
	o.sink.Emit(status.Event{Flow: "voiceflow", Stage: stage, Level: level, Message: msg})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
