package analyzer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"

	"github.com/marcus/bujo/internal/journal"
)

type keywordGroup struct {
	name  string
	words []string
}

// Order matters: ties resolve to the earlier group.
var emotionKeywords = []keywordGroup{
	{"happy", []string{"happy", "joy", "excited", "great", "wonderful"}},
	{"sad", []string{"sad", "unhappy", "depressed", "down", "miserable"}},
	{"angry", []string{"angry", "mad", "frustrated", "annoyed", "upset"}},
	{"anxious", []string{"anxious", "worried", "nervous", "stressed", "fear"}},
	{"grateful", []string{"grateful", "thankful", "appreciate", "blessed"}},
	{"motivated", []string{"motivated", "inspired", "energized", "determined"}},
}

var themeKeywords = []keywordGroup{
	{"work", []string{"work", "job", "career", "office", "boss", "colleague"}},
	{"family", []string{"family", "parent", "child", "mom", "dad", "brother", "sister"}},
	{"health", []string{"health", "exercise", "workout", "diet", "sleep", "sick"}},
	{"relationships", []string{"friend", "partner", "relationship", "date", "love"}},
	{"personal growth", []string{"goal", "learn", "improve", "growth", "develop", "progress"}},
	{"stress", []string{"stress", "overwhelm", "pressure", "burnout", "tired"}},
}

var keywordSuggestions = map[string][]string{
	"happy": {
		"Continue activities that bring you joy.",
		"Share your positive energy with others who might need it.",
		"Document what's working well so you can return to these practices.",
	},
	"sad": {
		"Be gentle with yourself during difficult times.",
		"Try a brief activity that has lifted your mood in the past.",
		"Consider reaching out to someone you trust about your feelings.",
	},
	"angry": {
		"Take a few deep breaths before responding to situations.",
		"Physical activity can help release tension from anger.",
		"Consider if there's a boundary you need to establish.",
	},
	"anxious": {
		"Practice a few minutes of mindful breathing.",
		"Break down overwhelming tasks into smaller steps.",
		"Try writing out your worries, then challenge each one.",
	},
	"grateful": {
		"Continue your gratitude practice regularly.",
		"Consider expressing your appreciation directly to others.",
		"Notice how gratitude shifts your perspective on challenges.",
	},
	"motivated": {
		"Capture your goals while you're feeling motivated.",
		"Break down your inspiration into actionable steps.",
		"Schedule time to work on what's exciting you.",
	},
	"neutral": {
		"Reflect on what would bring more meaning to your day.",
		"Try a new activity that interests you.",
		"Check in with your body: are you hungry, tired, or in need of movement?",
	},
}

var keywordAffirmations = map[string]string{
	"happy":     "Your joy is a gift, both to yourself and others around you.",
	"sad":       "It's okay to not be okay. Your feelings are valid and part of being human.",
	"angry":     "Your anger offers insight into what matters to you. Listen to it, then choose your response.",
	"anxious":   "You've moved through difficult feelings before, and you have that same strength today.",
	"grateful":  "Noticing the good in your life creates more space for positivity to grow.",
	"motivated": "Your energy and vision can create meaningful change in your life.",
	"neutral":   "Each day offers new opportunities for discovery and growth.",
}

var weeklyRecommendations = []string{
	"Consider journaling at the same time each day to build a consistent habit.",
	"Try adding more detail about your emotions in future entries.",
	"Reflect on patterns you notice in your journaling over time.",
	"Consider adding a gratitude section to your journal practice.",
	"Look back at entries from a month ago to see how things have changed.",
	"Try using different journaling prompts to explore new perspectives.",
}

// Keyword analyzes entries with local keyword heuristics. It needs no network.
type Keyword struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewKeyword creates a keyword analyzer. A nil rng uses a randomly seeded source.
func NewKeyword(rng *rand.Rand) *Keyword {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Keyword{rng: rng}
}

// Name implements Analyzer.
func (k *Keyword) Name() string { return "keyword" }

// Analyze implements Analyzer.
func (k *Keyword) Analyze(_ context.Context, text string) (journal.Analysis, error) {
	tokens := tokenize(text)
	lower := strings.ToLower(text)

	emotion, best := "neutral", 0
	for _, g := range emotionKeywords {
		n := 0
		for _, w := range g.words {
			if mentions(lower, tokens, w) {
				n++
			}
		}
		if n > best {
			emotion, best = g.name, n
		}
	}

	var themes []string
	for _, g := range themeKeywords {
		for _, w := range g.words {
			if mentions(lower, tokens, w) {
				themes = append(themes, g.name)
				break
			}
		}
		if len(themes) == 3 {
			break
		}
	}
	if len(themes) == 0 {
		themes = []string{"general"}
	}

	k.mu.Lock()
	suggestion := pick(k.rng, keywordSuggestions[emotion])
	intensity := 5 + k.rng.IntN(4)
	k.mu.Unlock()

	return journal.Analysis{
		PrimaryEmotion:   emotion,
		EmotionIntensity: intensity,
		EmotionalThemes:  themes,
		MoodSummary:      fmt.Sprintf("Your entry suggests you're feeling %s.", emotion),
		SuggestedActions: []string{suggestion},
		Affirmation:      keywordAffirmations[emotion],
	}, nil
}

// WeeklySummary implements Analyzer.
func (k *Keyword) WeeklySummary(_ context.Context, entries []*journal.Entry) (Summary, error) {
	if len(entries) == 0 {
		return Summary{Summary: NoEntriesSummary, Recommendations: []string{}}, nil
	}

	predominant := Predominant(EmotionCounts(entries))
	var b strings.Builder
	fmt.Fprintf(&b, "You made %d journal entries this week. ", len(entries))
	trend := "mixed"
	if predominant != "" {
		trend = predominant
		fmt.Fprintf(&b, "You predominantly felt %s. ", predominant)
	} else {
		b.WriteString("You experienced a mix of emotions. ")
	}
	if themes := CommonThemes(entries, 3); len(themes) > 0 {
		fmt.Fprintf(&b, "Common themes: %s.", strings.Join(themes, ", "))
	}

	k.mu.Lock()
	recs := sample(k.rng, weeklyRecommendations, 3)
	k.mu.Unlock()

	return Summary{
		Summary:         strings.TrimSpace(b.String()),
		EmotionTrend:    trend,
		Recommendations: recs,
	}, nil
}

var chatSuggestions = []string{
	"Try journaling at the same time each day to build a consistent habit.",
	"Consider using prompts when you're not sure what to write about.",
	"Adding a brief gratitude practice to your journaling can boost positive emotions.",
	"Reviewing past entries can help you notice patterns in your thoughts and feelings.",
	"Be honest in your journal. It's a private space for authentic reflection.",
	"Try different journaling formats: lists, narratives, or even drawings and diagrams.",
}

var chatEmotionSuggestions = map[string]string{
	"happy":     "Continue activities that bring you joy and document what's working well.",
	"sad":       "Be gentle with yourself and consider reaching out to someone you trust.",
	"angry":     "Physical activity can help release tension from anger.",
	"anxious":   "Try breaking down overwhelming tasks into smaller steps.",
	"grateful":  "Consider expressing your appreciation directly to others.",
	"motivated": "Capture your goals while you're feeling motivated.",
}

var chatReflections = []string{
	"Regular journaling helps you track your emotional patterns and growth over time.",
	"Your journal is a conversation with yourself. What would your future self want to know about today?",
	"Journaling can help externalize your thoughts, making them easier to examine and understand.",
	"The act of writing itself often brings clarity to situations that feel confusing.",
	"Looking for patterns in your journal can reveal what truly matters to you.",
}

var mentionedEmotions = []string{"happy", "sad", "angry", "anxious", "stressed", "grateful", "frustrated", "overwhelmed", "confused", "hopeful"}

var chatEmotionResponses = map[string]string{
	"happy":       "It's wonderful to experience happiness. Journaling about positive experiences can actually enhance their impact on your well-being.",
	"sad":         "When feeling sad, journaling can be a comforting way to process those emotions. Consider writing about both the feelings and any potential sources.",
	"angry":       "Anger often signals that a boundary has been crossed or a need isn't being met. Journaling can help identify the root cause.",
	"anxious":     "Writing about anxiety can help externalize your worries and see them more objectively. Consider listing what's in and outside of your control.",
	"stressed":    "Journaling can be an effective stress management tool. Try writing about your stressors and then brainstorming small steps to address them.",
	"grateful":    "Gratitude journaling has been shown to increase happiness and satisfaction. Even noting one thing you're grateful for can shift your perspective.",
	"frustrated":  "Frustration often comes from obstacles to our goals. Writing about the situation might reveal alternative paths forward.",
	"overwhelmed": "When feeling overwhelmed, try breaking down your thoughts on paper. This can make challenges feel more manageable.",
	"confused":    "Writing through confusion can help organize thoughts and bring clarity. Try exploring different perspectives in your writing.",
	"hopeful":     "Hope is powerful. Journaling about your hopes can help clarify your values and what you want to move toward.",
}

// Chat implements Analyzer with canned, context-aware replies.
func (k *Keyword) Chat(_ context.Context, message string, recent []*journal.Entry) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "Please type a message to chat with your journal assistant.", nil
	}
	lower := strings.ToLower(message)
	tokens := tokenize(message)
	has := func(words ...string) bool {
		for _, w := range words {
			if mentions(lower, tokens, w) {
				return true
			}
		}
		return false
	}

	predominant := Predominant(EmotionCounts(recent))

	switch {
	case has("how", "what", "pattern", "trend", "notice") && has("feel", "feeling", "emotion", "mood"):
		if predominant == "" {
			return "I don't have enough information about your recent journal entries to analyze emotional patterns. Try adding more journal entries with your feelings.", nil
		}
		return fmt.Sprintf("Based on your recent journal entries, you've been feeling predominantly %s. This emotion has appeared most frequently in your %d recent entries. Remember that acknowledging your emotions is an important step in understanding yourself better.", predominant, len(recent)), nil

	case has("suggest", "recommendation", "advice", "help", "tip"):
		pool := append([]string(nil), chatSuggestions...)
		if s, ok := chatEmotionSuggestions[predominant]; ok {
			pool = append(pool, s)
		}
		k.mu.Lock()
		picked := sample(k.rng, pool, 2)
		k.mu.Unlock()
		var b strings.Builder
		b.WriteString("Here are some suggestions for your journaling practice:\n")
		for _, s := range picked {
			b.WriteString("\n- ")
			b.WriteString(s)
		}
		return b.String(), nil

	case has("meaning", "purpose", "reflect", "insight"):
		k.mu.Lock()
		defer k.mu.Unlock()
		return pick(k.rng, chatReflections), nil

	case has("hi", "hello", "hey", "greetings"):
		return "Hello! I'm your journal assistant. How can I help with your journaling practice today?", nil

	case strings.Contains(lower, "who are you") || strings.Contains(lower, "what can you do"):
		return "I'm your journal assistant. I can help you reflect on your journal entries, provide suggestions for your journaling practice, and answer questions about journaling. What would you like to know?", nil

	case strings.Contains(lower, "thank"):
		return "You're welcome! I'm here to support your journaling journey.", nil

	case strings.Contains(lower, "why journal") || strings.Contains(lower, "why should i journal"):
		return "Journaling helps you process emotions, gain clarity, track personal growth, and preserve memories. It's a powerful tool for self-reflection.", nil

	case strings.Contains(lower, "how often") && strings.Contains(lower, "journal"):
		return "The ideal journaling frequency is whatever works best for you. Consistency matters more than frequency, so find a rhythm you can sustain.", nil
	}

	if len(message) > 10 {
		for _, em := range mentionedEmotions {
			if mentions(lower, tokens, em) {
				return chatEmotionResponses[em], nil
			}
		}
		for _, phrase := range []string{"today i", "i feel", "i felt", "i am", "i'm feeling", "right now i"} {
			if strings.Contains(lower, phrase) {
				return "Thank you for sharing your thoughts. If you'd like to save this as a journal entry, you can use the Text Journal tab. What would you like to explore about what you've shared?", nil
			}
		}
	}

	if len(recent) > 0 {
		return fmt.Sprintf("You have %d recent journal entries. What specific aspect of your journaling practice would you like to discuss or explore?", len(recent)), nil
	}
	return "What specific aspect of journaling would you like to explore today? I can offer suggestions, reflections, or answer questions about journaling practices.", nil
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit, or apostrophe.
func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// mentions reports whether keyword occurs in text. Phrases match as
// substrings; single words match whole tokens, and words of four or more
// letters also match as a token prefix ("stress" matches "stressed").
func mentions(lower string, tokens map[string]bool, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(lower, keyword)
	}
	if tokens[keyword] {
		return true
	}
	if len(keyword) < 4 {
		return false
	}
	for t := range tokens {
		if strings.HasPrefix(t, keyword) {
			return true
		}
	}
	return false
}

func pick(rng *rand.Rand, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[rng.IntN(len(items))]
}

func sample(rng *rand.Rand, items []string, n int) []string {
	idx := rng.Perm(len(items))
	n = min(n, len(items))
	out := make([]string, n)
	for i := range n {
		out[i] = items[idx[i]]
	}
	return out
}
