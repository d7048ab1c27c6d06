package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/compose"

	"room-designer/internal/domain"
)

// Stage names the pipeline state a run is in.
type Stage string

const (
	StageComposing  Stage = "composing"
	StageSuggesting Stage = "suggesting"
	StageRendering  Stage = "rendering"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

const (
	nodeCompose = "compose"
	nodeSuggest = "suggest"
	nodeRender  = "render"
)

// RunInput is the resolved input of one pipeline run.
type RunInput struct {
	ThreadToken string
	Preferences domain.Preferences
	Image       []byte
	Filename    string
}

// RunOutput holds the stage outputs merged into the session on success.
type RunOutput struct {
	Prompt    string
	Items     []domain.Item
	Generated domain.ImageRef
}

// run is the record threaded through the graph nodes.
type run struct {
	in    RunInput
	stage Stage
	out   RunOutput
	err   error
}

// Pipeline runs compose -> suggest -> render with no branching or retry.
type Pipeline struct {
	runnable compose.Runnable[*run, *run]
}

func NewPipeline(ctx context.Context, composer PromptComposer, suggest *SuggestionStage, render *RenderStage) (*Pipeline, error) {
	if composer == nil {
		return nil, errors.New("usecase: prompt composer must not be nil")
	}
	if suggest == nil {
		return nil, errors.New("usecase: suggestion stage must not be nil")
	}
	if render == nil {
		return nil, errors.New("usecase: render stage must not be nil")
	}

	g := compose.NewGraph[*run, *run]()

	if err := g.AddLambdaNode(nodeCompose, compose.InvokableLambda(func(_ context.Context, r *run) (*run, error) {
		r.stage = StageComposing
		r.out.Prompt = composer.Compose(r.in.Preferences)
		return r, nil
	})); err != nil {
		return nil, fmt.Errorf("usecase: add %s node: %w", nodeCompose, err)
	}

	if err := g.AddLambdaNode(nodeSuggest, compose.InvokableLambda(func(ctx context.Context, r *run) (*run, error) {
		r.stage = StageSuggesting
		r.out.Items = suggest.SuggestItems(ctx, r.out.Prompt)
		return r, nil
	})); err != nil {
		return nil, fmt.Errorf("usecase: add %s node: %w", nodeSuggest, err)
	}

	if err := g.AddLambdaNode(nodeRender, compose.InvokableLambda(func(ctx context.Context, r *run) (*run, error) {
		r.stage = StageRendering
		ref, err := render.Render(ctx, RenderInput{
			ThreadToken: r.in.ThreadToken,
			Prompt:      r.out.Prompt,
			Items:       r.out.Items,
			Image:       r.in.Image,
			Filename:    r.in.Filename,
		})
		if err != nil {
			r.err = err
			return nil, err
		}
		r.out.Generated = ref
		r.stage = StageDone
		return r, nil
	})); err != nil {
		return nil, fmt.Errorf("usecase: add %s node: %w", nodeRender, err)
	}

	for _, edge := range [][2]string{
		{compose.START, nodeCompose},
		{nodeCompose, nodeSuggest},
		{nodeSuggest, nodeRender},
		{nodeRender, compose.END},
	} {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("usecase: add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("room_design"))
	if err != nil {
		return nil, fmt.Errorf("usecase: compile pipeline: %w", err)
	}
	return &Pipeline{runnable: runnable}, nil
}

// Invoke executes every stage. On failure the stage's own error is returned
// and no partial output escapes.
func (p *Pipeline) Invoke(ctx context.Context, in RunInput) (RunOutput, error) {
	r := &run{in: in}
	done, err := p.runnable.Invoke(ctx, r)
	if err != nil {
		slog.Error("pipeline: run failed", "threadId", in.ThreadToken, "failedIn", r.stage, "state", StageFailed, "err", err)
		if r.err != nil {
			return RunOutput{}, r.err
		}
		return RunOutput{}, err
	}
	if done == nil || done.stage != StageDone {
		return RunOutput{}, errors.New("usecase: pipeline finished without reaching done")
	}
	return done.out, nil
}
