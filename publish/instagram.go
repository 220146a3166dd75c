// Package publish pushes a finished video out: either through the Instagram
// web flow driven by the browser session, or through the YouTube Data API.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"reelpipe/browser"
	"reelpipe/config"
	"reelpipe/status"
	"reelpipe/types"
)

// ErrMissingCredentials is returned when the publish target's credentials
// are not present in the environment.
var ErrMissingCredentials = errors.New("publish: credentials not set")

// Instagram flow roles. The dismiss set covers both the save-login and the
// notifications dialog; Instagram renders the button as a div or a button
// depending on the experiment bucket.
const (
	roleLoginUsername browser.Role = "ig-login-username"
	roleLoginPassword browser.Role = "ig-login-password"
	roleLoginSubmit   browser.Role = "ig-login-submit"
	roleDismissDialog browser.Role = "ig-dismiss-dialog"
	roleHomeIcon      browser.Role = "ig-home-icon"
	roleCreateButton  browser.Role = "ig-create-button"
	roleFileInput     browser.Role = "ig-file-input"
	roleNextButton    browser.Role = "ig-next-button"
	roleCaptionArea   browser.Role = "ig-caption-area"
	roleShareButton   browser.Role = "ig-share-button"
	roleSharedNotice  browser.Role = "ig-shared-notice"
)

func instagramRoles() browser.RoleTable {
	return browser.RoleTable{
		roleLoginUsername: {
			browser.CSS(`input[name='username']`),
		},
		roleLoginPassword: {
			browser.CSS(`input[name='password']`),
		},
		roleLoginSubmit: {
			browser.CSS(`button[type='submit']`),
		},
		roleDismissDialog: {
			browser.XPath(`//div[@role='button' and contains(text(), 'Not now')]`),
			browser.XPath(`//div[@role='button' and contains(text(), 'Not Now')]`),
			browser.XPath(`//button[contains(text(), 'Not now')]`),
			browser.XPath(`//button[contains(text(), 'Not Now')]`),
		},
		roleHomeIcon: {
			browser.CSS(`svg[aria-label='Home']`),
		},
		roleCreateButton: {
			browser.CSS(`svg[aria-label='Create']`),
			browser.CSS(`svg[aria-label='New post']`),
			browser.XPath(`//div[@role='button' and contains(@aria-label, 'Create')]`),
			browser.XPath(`//div[contains(@aria-label, 'New post')]`),
		},
		roleFileInput: {
			browser.CSS(`input[type='file']`),
		},
		roleNextButton: {
			browser.XPath(`//button[contains(text(), 'Next')]`),
			browser.XPath(`//div[@role='button' and contains(text(), 'Next')]`),
		},
		roleCaptionArea: {
			browser.CSS(`textarea[aria-label='Write a caption...']`),
			browser.CSS(`div[aria-label='Write a caption...']`),
		},
		roleShareButton: {
			browser.XPath(`//button[contains(text(), 'Share')]`),
			browser.XPath(`//div[@role='button' and contains(text(), 'Share')]`),
			browser.XPath(`//button[contains(text(), 'Post')]`),
		},
		roleSharedNotice: {
			browser.XPath(`//*[contains(text(), 'Your post has been shared')]`),
		},
	}
}

// Page is the browser surface the Instagram flow drives. *browser.Session
// satisfies it. The session is owned by the caller; the flow never closes it.
type Page interface {
	Navigate(ctx context.Context, url string, settle time.Duration) error
	Click(ctx context.Context, sel string, timeout time.Duration) error
	JSClick(ctx context.Context, sel string) error
	Type(ctx context.Context, sel, text string, timeout time.Duration) error
	SendFile(ctx context.Context, sel, path string, timeout time.Duration) error
	HideElement(ctx context.Context, sel string) error
	EvalBool(ctx context.Context, js string) (bool, error)
	CurrentURL(ctx context.Context) (string, error)
}

// Instagram runs the web posting flow: login, dialog dismissal, create post,
// upload, wizard, share. Confirmation of the final share is best effort.
type Instagram struct {
	cfg  config.Publish
	page Page
	sink status.Sink

	resolve      func(ctx context.Context, role browser.Role) (*browser.Element, error)
	resolveShort func(ctx context.Context, role browser.Role) (*browser.Element, error)
	click        func(ctx context.Context, el *browser.Element) error
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewInstagram wires the flow over an already-launched page.
func NewInstagram(cfg config.Publish, page Page, sink status.Sink) *Instagram {
	if sink == nil {
		sink = status.ConsoleSink{}
	}
	roles := instagramRoles()
	r := browser.NewResolver(page, roles, cfg.WizardTimeout())
	rShort := browser.NewResolver(page, roles, 5*time.Second)

	ig := &Instagram{cfg: cfg, page: page, sink: sink}
	ig.resolve = r.Resolve
	ig.resolveShort = rShort.Resolve
	ig.click = func(ctx context.Context, el *browser.Element) error {
		return browser.SafeClick(ctx, page, r, el, cfg.WizardTimeout())
	}
	ig.sleep = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return ig
}

// Run posts videoPath with caption. Credentials come from IG_USERNAME and
// IG_PASSWORD. A post that was shared but never confirmed is returned with
// Confirmed=false and no error.
func (ig *Instagram) Run(ctx context.Context, videoPath, caption string) (*types.PostResult, error) {
	username := os.Getenv("IG_USERNAME")
	password := os.Getenv("IG_PASSWORD")
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: IG_USERNAME or IG_PASSWORD", ErrMissingCredentials)
	}

	if err := ig.login(ctx, username, password); err != nil {
		return nil, err
	}
	ig.dismissDialogs(ctx)

	if _, err := ig.resolve(ctx, roleHomeIcon); err != nil {
		if url, uerr := ig.page.CurrentURL(ctx); uerr == nil && strings.Contains(url, "/accounts/login") {
			return nil, fmt.Errorf("publish: still on the login page, credentials likely rejected")
		}
		ig.emit(status.Warn, "login", "home feed not detected, continuing anyway")
	} else {
		ig.emit(status.Info, "login", "logged in")
	}

	if err := ig.createPost(ctx, videoPath); err != nil {
		return nil, err
	}
	if err := ig.wizard(ctx, caption); err != nil {
		return nil, err
	}

	confirmed := ig.confirmShared(ctx)
	return &types.PostResult{Target: "instagram", URL: ig.cfg.InstagramURL, Confirmed: confirmed}, nil
}

func (ig *Instagram) login(ctx context.Context, username, password string) error {
	if err := ig.page.Navigate(ctx, ig.cfg.InstagramURL, 5*time.Second); err != nil {
		return fmt.Errorf("open instagram: %w", err)
	}

	user, err := ig.resolve(ctx, roleLoginUsername)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := ig.page.Type(ctx, user.Selector, username, ig.cfg.WizardTimeout()); err != nil {
		return fmt.Errorf("enter username: %w", err)
	}

	pass, err := ig.resolve(ctx, roleLoginPassword)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := ig.page.Type(ctx, pass.Selector, password, ig.cfg.WizardTimeout()); err != nil {
		return fmt.Errorf("enter password: %w", err)
	}

	submit, err := ig.resolve(ctx, roleLoginSubmit)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := ig.click(ctx, submit); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	ig.emit(status.Info, "login", "credentials submitted")
	return nil
}

// dismissDialogs clears the save-login and notifications prompts. Both are
// optional; the loop stops as soon as no dialog shows up.
func (ig *Instagram) dismissDialogs(ctx context.Context) {
	for i := 0; i < 2; i++ {
		dlg, err := ig.resolveShort(ctx, roleDismissDialog)
		if err != nil {
			return
		}
		if err := ig.page.JSClick(ctx, dlg.Selector); err != nil {
			ig.emit(status.Warn, "dialogs", "failed to dismiss dialog: "+err.Error())
			return
		}
		ig.emit(status.Info, "dialogs", "dismissed a dialog")
		_ = ig.sleep(ctx, time.Second)
	}
}

func (ig *Instagram) createPost(ctx context.Context, videoPath string) error {
	create, err := ig.resolve(ctx, roleCreateButton)
	if err != nil {
		return fmt.Errorf("create button: %w", err)
	}
	if err := ig.click(ctx, create); err != nil {
		return fmt.Errorf("open create dialog: %w", err)
	}

	// The file input is hidden; setting the file on it directly skips the
	// native picker the visible button would open.
	input, err := ig.resolve(ctx, roleFileInput)
	if err != nil {
		return fmt.Errorf("upload input: %w", err)
	}
	if err := ig.page.SendFile(ctx, input.Selector, videoPath, ig.cfg.WizardTimeout()); err != nil {
		return fmt.Errorf("attach video: %w", err)
	}
	ig.emit(status.Info, "upload", "video attached, processing")
	return nil
}

// wizard walks crop → filters → caption → share.
func (ig *Instagram) wizard(ctx context.Context, caption string) error {
	for step := 1; step <= 2; step++ {
		next, err := ig.resolve(ctx, roleNextButton)
		if err != nil {
			return fmt.Errorf("wizard step %d: %w", step, err)
		}
		if err := ig.click(ctx, next); err != nil {
			return fmt.Errorf("wizard step %d: %w", step, err)
		}
		_ = ig.sleep(ctx, time.Second)
	}

	if caption != "" {
		if area, err := ig.resolveShort(ctx, roleCaptionArea); err != nil {
			ig.emit(status.Warn, "caption", "caption box not found, posting without one")
		} else if err := ig.page.Type(ctx, area.Selector, caption, ig.cfg.WizardTimeout()); err != nil {
			ig.emit(status.Warn, "caption", "could not enter caption: "+err.Error())
		}
	}

	share, err := ig.resolve(ctx, roleShareButton)
	if err != nil {
		return fmt.Errorf("share button: %w", err)
	}
	if err := ig.click(ctx, share); err != nil {
		return fmt.Errorf("share post: %w", err)
	}
	ig.emit(status.Info, "share", "share clicked")
	return nil
}

func (ig *Instagram) confirmShared(ctx context.Context) bool {
	if _, err := ig.resolve(ctx, roleSharedNotice); err == nil {
		ig.emit(status.Info, "share", "✅ post confirmed shared")
		return true
	}
	// the notice is transient; seeing the home feed again is a weaker signal
	if _, err := ig.resolveShort(ctx, roleHomeIcon); err == nil {
		ig.emit(status.Warn, "share", "no share notice seen, but back on the home feed")
		return false
	}
	ig.emit(status.Warn, "share", "share not confirmed")
	return false
}

func (ig *Instagram) emit(level status.Level, stage, msg string) {
	ig.sink.Emit(status.Event{Flow: "instagram", Stage: stage, Level: level, Message: msg})
}
