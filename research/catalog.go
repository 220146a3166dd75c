// Package research supplies content topics: a built-in catalog plus a
// Reddit-backed trending source that degrades to the catalog when offline.
package research

import (
	"fmt"

	"reelpipe/types"
)

// Category is one main topic with its subtopics.
type Category struct {
	Name      string
	Subtopics []string
}

// Catalog returns the built-in content categories, in menu order.
func Catalog() []Category {
	return []Category{
		{
			Name: "Soft Life Aesthetic + Wellness Advice",
			Subtopics: []string{
				"Daily affirmations", "Motivational rants", "Growth tips",
				"Mindfulness practices", "Self-care rituals",
			},
		},
		{
			Name: "AI + Life Tips",
			Subtopics: []string{
				"Productivity hacks", "Digital minimalism", "AI bestie talk",
				"Future tech trends", "AI-powered creativity",
			},
		},
		{
			Name: "Emotional Intelligence & Healing",
			Subtopics: []string{
				"Overthinking", "Toxic relationships", "Healing practices",
				"Authentic living", "Embracing vulnerability", "Setting boundaries",
			},
		},
		{
			Name: "Controversial but Classy Opinions",
			Subtopics: []string{
				"Unpopular opinion on self-discipline",
				"Controversial takes on modern productivity",
				"Unpopular opinions about social media",
				"Thought-provoking perspectives on digital culture",
			},
		},
		{
			Name: "AI + Fashion + Digital Aesthetics",
			Subtopics: []string{
				"Digital outfits showcase",
				"AI fashion collaborations",
				"Virtual fashion trends",
				"Digital fashion for social media",
				"AI tools in the fashion industry",
			},
		},
		{
			Name: "Weekly Series Ideas",
			Subtopics: []string{
				"Monday Mindset Check",
				"Talk to Me Tuesday (AI answers DMs)",
				"Thursday Therapy",
				"Sunday Reset Rituals",
				"Wellness Wednesday routines",
			},
		},
	}
}

// Pick validates a category/subtopic pair against the catalog and builds a
// Topic from it.
func Pick(category, subtopic, tone string, lengthSec int) (types.Topic, error) {
	for _, cat := range Catalog() {
		if cat.Name != category {
			continue
		}
		for _, sub := range cat.Subtopics {
			if sub == subtopic {
				return types.Topic{Main: category, Subtopic: subtopic, Tone: tone, LengthSec: lengthSec}, nil
			}
		}
		return types.Topic{}, fmt.Errorf("research: %q has no subtopic %q", category, subtopic)
	}
	return types.Topic{}, fmt.Errorf("research: unknown category %q", category)
}

// DefaultTopic is the catalog's first category/subtopic pair, used when the
// trending source is unavailable and the operator has no preference.
func DefaultTopic(tone string, lengthSec int) types.Topic {
	cat := Catalog()[0]
	return types.Topic{Main: cat.Name, Subtopic: cat.Subtopics[0], Tone: tone, LengthSec: lengthSec}
}
