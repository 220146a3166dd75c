package research

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"reelpipe/config"
	"reelpipe/types"
)

// TrendingMain is the category assigned to topics sourced from Reddit.
const TrendingMain = "Community Trends"

// postLister is the slice of the Reddit client the source uses.
type postLister interface {
	HotPosts(ctx context.Context, subreddit string, opts *reddit.ListOptions) ([]*reddit.Post, *reddit.Response, error)
}

// Source suggests topics from what the configured subreddits are talking
// about right now.
type Source struct {
	subreddits []string
	max        int
	posts      postLister
}

// NewSource builds a read-only Reddit client; no credentials needed.
func NewSource(cfg config.Research) (*Source, error) {
	client, err := reddit.NewReadonlyClient()
	if err != nil {
		return nil, fmt.Errorf("research: reddit client: %w", err)
	}
	return &Source{
		subreddits: cfg.Subreddits,
		max:        cfg.MaxTrending,
		posts:      client.Subreddit,
	}, nil
}

// Trending returns up to max hot post titles across the configured
// subreddits, highest score first. Per-subreddit failures are logged and
// skipped; the call fails only when every subreddit does.
func (s *Source) Trending(ctx context.Context) ([]string, error) {
	type scored struct {
		title string
		score int
	}
	var all []scored
	var lastErr error

	for _, sub := range s.subreddits {
		posts, _, err := s.posts.HotPosts(ctx, sub, &reddit.ListOptions{Limit: 25})
		if err != nil {
			log.Printf("[research] r/%s: %v", sub, err)
			lastErr = err
			continue
		}
		for _, p := range posts {
			if p.Stickied || strings.TrimSpace(p.Title) == "" {
				continue
			}
			all = append(all, scored{title: p.Title, score: p.Score})
		}
	}
	if len(all) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("research: no trending posts: %w", lastErr)
		}
		return nil, fmt.Errorf("research: no trending posts found")
	}

	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })
	titles := make([]string, 0, s.max)
	for _, sc := range all {
		titles = append(titles, sc.title)
		if len(titles) == s.max {
			break
		}
	}
	return titles, nil
}

// Suggest turns the top trending title into a Topic. Callers fall back to
// the static catalog when this errors.
func (s *Source) Suggest(ctx context.Context, tone string, lengthSec int) (types.Topic, error) {
	titles, err := s.Trending(ctx)
	if err != nil {
		return types.Topic{}, err
	}
	log.Printf("[research] ✅ top trending: %q", titles[0])
	return types.Topic{Main: TrendingMain, Subtopic: titles[0], Tone: tone, LengthSec: lengthSec}, nil
}
