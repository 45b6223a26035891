// Package vision reads photos for facial emotion and a short description.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/marcus/bujo/internal/llm"
)

// ErrNotImage means the file content is not a recognized image type.
var ErrNotImage = errors.New("file is not an image")

// Labels are the emotion classes scored per face.
var Labels = []string{"angry", "disgust", "fear", "happy", "sad", "surprise", "neutral"}

// Emotions are per-face scores and their average.
type Emotions struct {
	Faces         []map[string]float64 `json:"faces"`
	Average       map[string]float64   `json:"average"`
	Dominant      string               `json:"dominant"`
	DominantScore float64              `json:"dominant_score"`
	Simulated     bool                 `json:"simulated"`
}

// Result combines emotion scores and a description of one image.
type Result struct {
	Emotions             Emotions
	Description          string
	DescriptionSimulated bool
}

// Processor analyzes images. A nil client always simulates.
type Processor struct {
	client llm.Client
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Processor.
type Option func(*Processor)

// WithRand sets the source used for simulated results.
func WithRand(rng *rand.Rand) Option {
	return func(p *Processor) { p.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// New creates a Processor.
func New(client llm.Client, opts ...Option) *Processor {
	p := &Processor{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p
}

// Analyze runs emotion scoring and description concurrently.
func (p *Processor) Analyze(ctx context.Context, path string) (*Result, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, err
	}
	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Emotions = p.emotions(gctx, img)
		return gctx.Err()
	})
	g.Go(func() error {
		res.Description, res.DescriptionSimulated = p.describe(gctx, img)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

// AnalyzeEmotions scores facial emotion in the image at path.
func (p *Processor) AnalyzeEmotions(ctx context.Context, path string) (Emotions, error) {
	img, err := readImage(path)
	if err != nil {
		return Emotions{}, err
	}
	return p.emotions(ctx, img), nil
}

// Describe returns a short description of the image at path.
func (p *Processor) Describe(ctx context.Context, path string) (string, error) {
	img, err := readImage(path)
	if err != nil {
		return "", err
	}
	desc, _ := p.describe(ctx, img)
	return desc, nil
}

type picture struct {
	mime string
	data []byte
}

func readImage(path string) (picture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return picture{}, fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return picture{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	return picture{mime: mime, data: data}, nil
}

var faceSchema = func() *genai.Schema {
	scores := map[string]*genai.Schema{}
	for _, l := range Labels {
		scores[l] = &genai.Schema{Type: genai.TypeNumber}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"faces": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeObject, Properties: scores, Required: Labels},
			},
		},
		Required: []string{"faces"},
	}
}()

const emotionPrompt = `Find every human face in this image. For each face, score how strongly it
expresses each of these emotions: angry, disgust, fear, happy, sad, surprise, neutral.
Scores are between 0 and 1 and sum to 1 per face. Return {"faces": []} if there are no faces.`

const describePrompt = `Describe this photo in two or three sentences for a personal journal.
Mention the main subject, the overall mood or atmosphere, and any notable elements.`

func (p *Processor) emotions(ctx context.Context, img picture) Emotions {
	if p.client == nil {
		return p.simulateEmotions()
	}
	out, err := p.client.Generate(ctx, llm.Request{
		Prompt:      emotionPrompt,
		Media:       []llm.Media{{MIMEType: img.mime, Data: img.data}},
		Schema:      faceSchema,
		Temperature: llm.Float32(0.2),
	})
	var parsed struct {
		Faces []map[string]float64 `json:"faces"`
	}
	if err == nil {
		err = llm.ParseJSON(out, &parsed)
	}
	if err != nil {
		p.logger.Warn("face emotion analysis failed, simulating", "err", err)
		return p.simulateEmotions()
	}
	return Summarize(parsed.Faces)
}

func (p *Processor) describe(ctx context.Context, img picture) (string, bool) {
	if p.client != nil {
		out, err := p.client.Generate(ctx, llm.Request{
			Prompt:      describePrompt,
			Media:       []llm.Media{{MIMEType: img.mime, Data: img.data}},
			Temperature: llm.Float32(0.4),
		})
		out = strings.TrimSpace(out)
		if err == nil && out != "" {
			return out, false
		}
		if err == nil {
			err = llm.ErrEmptyResponse
		}
		p.logger.Warn("image description failed, simulating", "err", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return simulatedDescriptions[p.rng.IntN(len(simulatedDescriptions))], true
}

// Summarize averages per-face scores over Labels and picks the dominant one.
// Missing labels count as 0. No faces gives an empty result.
func Summarize(faces []map[string]float64) Emotions {
	e := Emotions{Faces: faces, Average: map[string]float64{}}
	if len(faces) == 0 {
		e.Faces = []map[string]float64{}
		return e
	}
	for _, l := range Labels {
		var sum float64
		for _, f := range faces {
			sum += f[l]
		}
		e.Average[l] = sum / float64(len(faces))
	}
	e.Dominant, e.DominantScore = dominant(e.Average)
	return e
}

func dominant(scores map[string]float64) (string, float64) {
	best, bestScore := "", -1.0
	for _, l := range Labels {
		if s, ok := scores[l]; ok && s > bestScore {
			best, bestScore = l, s
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestScore
}

// Top returns labels with positive scores, highest first.
func (e Emotions) Top(n int) []string {
	var labels []string
	for _, l := range Labels {
		if e.Average[l] > 0 {
			labels = append(labels, l)
		}
	}
	sort.SliceStable(labels, func(i, j int) bool { return e.Average[labels[i]] > e.Average[labels[j]] })
	if len(labels) > n {
		labels = labels[:n]
	}
	return labels
}

func (p *Processor) simulateEmotions() Emotions {
	p.mu.Lock()
	peak := Labels[p.rng.IntN(len(Labels))]
	raw := make(map[string]float64, len(Labels))
	var total float64
	for _, l := range Labels {
		v := 0.05 + p.rng.Float64()*0.25
		if l == peak {
			v = 0.5 + p.rng.Float64()*0.3
		}
		raw[l] = v
		total += v
	}
	p.mu.Unlock()

	for l, v := range raw {
		raw[l] = v / total
	}
	e := Summarize([]map[string]float64{raw})
	e.Simulated = true
	return e
}

var simulatedDescriptions = []string{
	"A candid moment captured in natural light, with a calm and reflective atmosphere.",
	"An everyday scene with warm tones that suggests a relaxed, comfortable mood.",
	"A photo with a clear central subject and a quiet, thoughtful feeling.",
	"A bright image with vivid colors that conveys energy and cheerfulness.",
	"A softly lit scene that feels peaceful and a little nostalgic.",
	"An outdoor view with open space that gives a sense of freedom and ease.",
}
