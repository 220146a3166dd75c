package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpipe/browser"
	"reelpipe/config"
	"reelpipe/status"
	"reelpipe/types"
)

type fakePage struct {
	mu         sync.Mutex
	typed      map[string]string
	sentFiles  map[string]string
	jsClicked  []string
	currentURL string
}

func (p *fakePage) Navigate(ctx context.Context, url string, settle time.Duration) error { return nil }
func (p *fakePage) Click(ctx context.Context, sel string, timeout time.Duration) error   { return nil }
func (p *fakePage) JSClick(ctx context.Context, sel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jsClicked = append(p.jsClicked, sel)
	return nil
}
func (p *fakePage) Type(ctx context.Context, sel, text string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.typed == nil {
		p.typed = map[string]string{}
	}
	p.typed[sel] = text
	return nil
}
func (p *fakePage) SendFile(ctx context.Context, sel, path string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sentFiles == nil {
		p.sentFiles = map[string]string{}
	}
	p.sentFiles[sel] = path
	return nil
}
func (p *fakePage) HideElement(ctx context.Context, sel string) error     { return nil }
func (p *fakePage) EvalBool(ctx context.Context, js string) (bool, error) { return false, nil }
func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	if p.currentURL == "" {
		return "https://www.instagram.com/", nil
	}
	return p.currentURL, nil
}

type igFixture struct {
	ig      *Instagram
	page    *fakePage
	clicked []browser.Role
	missing map[browser.Role]bool
	events  []status.Event
	// dialogs left to show; each resolveShort of the dismiss role consumes one
	dialogs int
}

func newIGFixture(t *testing.T) *igFixture {
	t.Helper()
	t.Setenv("IG_USERNAME", "creator")
	t.Setenv("IG_PASSWORD", "hunter2")

	f := &igFixture{page: &fakePage{}, missing: map[browser.Role]bool{}}
	cfg := config.Publish{InstagramURL: "https://www.instagram.com/", WizardTimeoutSec: 1}
	sink := status.FuncSink(func(ev status.Event) { f.events = append(f.events, ev) })
	f.ig = NewInstagram(cfg, f.page, sink)

	f.ig.resolve = func(ctx context.Context, role browser.Role) (*browser.Element, error) {
		if f.missing[role] {
			return nil, browser.ErrNotFound
		}
		return &browser.Element{Role: role, Selector: `[data-rp-target="` + string(role) + `"]`}, nil
	}
	f.ig.resolveShort = func(ctx context.Context, role browser.Role) (*browser.Element, error) {
		if role == roleDismissDialog {
			if f.dialogs == 0 {
				return nil, browser.ErrNotFound
			}
			f.dialogs--
			return &browser.Element{Role: role, Selector: `[data-rp-target="dialog"]`}, nil
		}
		return f.ig.resolve(ctx, role)
	}
	f.ig.click = func(ctx context.Context, el *browser.Element) error {
		f.clicked = append(f.clicked, el.Role)
		return nil
	}
	f.ig.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return f
}

func TestInstagramRunHappyPath(t *testing.T) {
	f := newIGFixture(t)
	f.dialogs = 2

	res, err := f.ig.Run(context.Background(), "/videos/reel.mp4", "new reel!")
	require.NoError(t, err)
	assert.Equal(t, "instagram", res.Target)
	assert.True(t, res.Confirmed)

	assert.Equal(t, "creator", f.page.typed[`[data-rp-target="ig-login-username"]`])
	assert.Equal(t, "hunter2", f.page.typed[`[data-rp-target="ig-login-password"]`])
	assert.Equal(t, "/videos/reel.mp4", f.page.sentFiles[`[data-rp-target="ig-file-input"]`])
	assert.Equal(t, "new reel!", f.page.typed[`[data-rp-target="ig-caption-area"]`])
	assert.Len(t, f.page.jsClicked, 2, "both dialogs dismissed")

	assert.Equal(t, []browser.Role{
		roleLoginSubmit,
		roleCreateButton,
		roleNextButton, roleNextButton,
		roleShareButton,
	}, f.clicked)
}

func TestInstagramMissingCredentials(t *testing.T) {
	f := newIGFixture(t)
	t.Setenv("IG_PASSWORD", "")

	_, err := f.ig.Run(context.Background(), "/videos/reel.mp4", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestInstagramUnconfirmedShareIsNotAnError(t *testing.T) {
	f := newIGFixture(t)
	f.missing[roleSharedNotice] = true
	f.missing[roleHomeIcon] = true

	res, err := f.ig.Run(context.Background(), "/videos/reel.mp4", "caption")
	require.NoError(t, err)
	assert.False(t, res.Confirmed)
}

func TestInstagramRejectedLoginFails(t *testing.T) {
	f := newIGFixture(t)
	f.missing[roleHomeIcon] = true
	f.page.currentURL = "https://www.instagram.com/accounts/login/"

	_, err := f.ig.Run(context.Background(), "/videos/reel.mp4", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
}

func TestInstagramMissingLoginFormFails(t *testing.T) {
	f := newIGFixture(t)
	f.missing[roleLoginUsername] = true

	_, err := f.ig.Run(context.Background(), "/videos/reel.mp4", "")
	assert.ErrorIs(t, err, browser.ErrNotFound)
}

func TestInstagramCaptionBoxMissingStillShares(t *testing.T) {
	f := newIGFixture(t)
	f.missing[roleCaptionArea] = true

	res, err := f.ig.Run(context.Background(), "/videos/reel.mp4", "caption")
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.Contains(t, f.clicked, roleShareButton)
}

func TestYouTubeMissingCredentials(t *testing.T) {
	t.Setenv("YOUTUBE_CLIENT_ID", "")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "")

	y := NewYouTube(config.Publish{})
	_, err := y.oauthTransport(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCaptionerGenerates(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Soft mornings only. Who's with me?\n#softlife"}},
			},
		})
	}))
	defer srv.Close()

	c := NewCaptioner("llama-3.3-70b-versatile")
	c.endpoint = srv.URL

	caption := c.Run(context.Background(), types.Topic{Main: "Wellness", Subtopic: "Self-care rituals"})
	assert.Equal(t, "Soft mornings only. Who's with me?\n#softlife", caption)
}

func TestCaptionerFallsBackWithoutKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	c := NewCaptioner("llama-3.3-70b-versatile")

	caption := c.Run(context.Background(), types.Topic{Main: "Wellness", Subtopic: "Self-care rituals"})
	assert.Contains(t, caption, "Self-care rituals")
	assert.Contains(t, caption, "#selfcarerituals")
}

func TestHashtagify(t *testing.T) {
	assert.Equal(t, "selfcarerituals", hashtagify("Self-care rituals"))
	assert.Equal(t, "reels", hashtagify("---"))
}
