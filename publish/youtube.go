package publish

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"reelpipe/config"
	"reelpipe/types"
)

// VideoMetadata is what the YouTube upload needs beyond the file itself.
type VideoMetadata struct {
	Title       string
	Description string
	Tags        []string
}

// YouTube uploads through the Data API v3 instead of driving a browser.
type YouTube struct {
	cfg config.Publish
}

func NewYouTube(cfg config.Publish) *YouTube {
	return &YouTube{cfg: cfg}
}

// Run uploads videoFile and returns the watch URL. Credentials come from
// YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN.
func (y *YouTube) Run(ctx context.Context, videoFile string, meta VideoMetadata) (*types.PostResult, error) {
	log.Println("[publish] Authenticating with YouTube API...")

	client, err := y.oauthTransport(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  y.cfg.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: y.cfg.Visibility,
		},
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	log.Printf("[publish] Uploading %q...", meta.Title)
	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[publish] ✅ Uploaded: %s", url)
	return &types.PostResult{Target: "youtube", URL: url, Confirmed: true}, nil
}

func (y *YouTube) oauthTransport(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("%w: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN", ErrMissingCredentials)
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return &http.Client{Transport: &oauth2.Transport{Source: conf.TokenSource(ctx, token)}}, nil
}
