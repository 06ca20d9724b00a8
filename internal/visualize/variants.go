package visualize

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/scripture-companion/internal/domain"
)

var (
	// HeroSteps labels the story banner run.
	HeroSteps = Steps{Video: "Creating scene...", Audio: "Preparing audio..."}
	// CompanionSteps labels the insight run.
	CompanionSteps = Steps{Video: "Dreaming up the scene...", Audio: "Preparing narration..."}
)

const visualContextLimit = 100

// HeroPrompt is the video prompt for a story banner.
func HeroPrompt(story domain.Story) string {
	return fmt.Sprintf("Cinematic, photorealistic shot of %s in the bible. %s. 4k, atmospheric lighting, slow motion movement.",
		story.Title(), story.Theme)
}

// CompanionPrompt is the video prompt for a companion insight.
func CompanionPrompt(story domain.Story, text string) string {
	return fmt.Sprintf("Cinematic, photorealistic biblical scene. Theme: %s. Mood: %s. Visual context: %s. 4k, dramatic lighting.",
		story.Title(), story.Theme, truncate(text, visualContextLimit))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Hero visualizes the current story behind its banner.
type Hero struct {
	pipeline *Pipeline

	mu      sync.Mutex
	running bool
	state   domain.VisualizationState
	gen     uint64
}

// NewHero creates an idle banner visualizer.
func NewHero(p *Pipeline) *Hero {
	return &Hero{pipeline: p}
}

// Visualize runs the pipeline for story. It refuses while a run is active.
func (h *Hero) Visualize(ctx context.Context, story domain.Story, progress Progress) (domain.VisualizationState, error) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return domain.VisualizationState{}, ErrInFlight
	}
	h.running = true
	gen := h.gen
	h.mu.Unlock()

	state, err := h.pipeline.Run(ctx, HeroSteps, HeroPrompt(story), story.Text, h.guard(gen, progress))

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gen != gen {
		return domain.VisualizationState{}, ErrDiscarded
	}
	h.running = false
	h.state = state
	return state, err
}

// guard updates the stored state and forwards progress while gen is current.
func (h *Hero) guard(gen uint64, progress Progress) Progress {
	return func(s domain.VisualizationState) {
		h.mu.Lock()
		current := h.gen == gen
		if current {
			h.state = s
		}
		h.mu.Unlock()
		if current && progress != nil {
			progress(s)
		}
	}
}

// State returns the banner's current state.
func (h *Hero) State() domain.VisualizationState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Reset clears the banner video and drops any run in flight.
func (h *Hero) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	h.running = false
	h.state = domain.VisualizationState{}
}

// Companion visualizes a single companion insight in a modal.
type Companion struct {
	pipeline *Pipeline

	mu      sync.Mutex
	current *domain.VisualizationState
	// run identifies the run that owns current. Close and every new run
	// advance it, so a finished run only touches state it still owns.
	run uint64
}

// NewCompanion creates a closed insight visualizer.
func NewCompanion(p *Pipeline) *Companion {
	return &Companion{pipeline: p}
}

// Visualize runs the pipeline for text. It refuses while a visualization
// is loading or showing.
func (c *Companion) Visualize(ctx context.Context, story domain.Story, text string, progress Progress) (domain.VisualizationState, error) {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return domain.VisualizationState{}, ErrInFlight
	}
	c.run++
	run := c.run
	c.current = &domain.VisualizationState{Text: text, IsLoading: true, LoadingStep: CompanionSteps.Video}
	c.mu.Unlock()

	guarded := func(s domain.VisualizationState) {
		c.mu.Lock()
		owned := c.run == run
		if owned && (s.IsLoading || s.VideoURL != "") {
			snap := s
			c.current = &snap
		}
		c.mu.Unlock()
		if owned && progress != nil {
			progress(s)
		}
	}

	state, err := c.pipeline.Run(ctx, CompanionSteps, CompanionPrompt(story, text), text, guarded)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		if err != nil {
			return domain.VisualizationState{}, err
		}
		return domain.VisualizationState{}, ErrDiscarded
	}
	if err != nil {
		c.current = nil
		return domain.VisualizationState{}, err
	}
	c.current = &state
	return state, nil
}

// State returns the visualization being shown, if any.
func (c *Companion) State() (domain.VisualizationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.VisualizationState{}, false
	}
	return *c.current, true
}

// Close discards the visualization, including one still loading.
func (c *Companion) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run++
	c.current = nil
}
