package judge

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"kaieval/internal/kailogs"
	"kaieval/internal/logging"
	"kaieval/internal/sections"
)

// ErrNoFix marks a record whose result has no reasoning or no updated file.
var ErrNoFix = errors.New("no fix for file")

// Model is a chat model that answers one system + user exchange.
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Task is one fix queued for review.
type Task struct {
	Vars        PromptVars
	Rationale   string
	UpdatedFile string
}

// Result is the review outcome for the Task at the same index.
type Result struct {
	Filename string
	Card     *ReportCard
	Err      error
}

// Skipped reports whether the task was never sent to the model.
func (r Result) Skipped() bool { return errors.Is(r.Err, ErrNoFix) }

// Defaults fill in PromptVars fields a record does not carry.
type Defaults struct {
	Language string
	Source   string
	Target   string
}

// TaskFromRecord builds a review task from a parsed log record. The record's
// own language wins over the default.
func TaskFromRecord(r kailogs.Record, d Defaults) Task {
	lang := r.Metadata.Language
	if lang == "" {
		lang = d.Language
	}
	return Task{
		Vars: PromptVars{
			Model:         r.Location.Model,
			Language:      lang,
			Source:        d.Source,
			Target:        d.Target,
			Filename:      r.Metadata.FileName,
			UnchangedFile: r.Metadata.FileContents,
			Incidents:     r.Metadata.Incidents,
		},
		Rationale:   r.Result[sections.ReasoningKey],
		UpdatedFile: r.Result[sections.UpdatedFileKey],
	}
}

// Evaluator sends fixes to a Model and extracts report cards.
type Evaluator struct {
	model       Model
	concurrency int
}

// NewEvaluator creates an evaluator running at most concurrency reviews at
// once; values below one mean one.
func NewEvaluator(model Model, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Evaluator{model: model, concurrency: concurrency}
}

// Evaluate reviews a single fix and stamps the report card with its filename.
func (e *Evaluator) Evaluate(ctx context.Context, pv PromptVars, rationale, updatedFile string) (*ReportCard, error) {
	system, err := RenderSystem(pv)
	if err != nil {
		return nil, err
	}
	user, err := RenderUser(pv, rationale, updatedFile)
	if err != nil {
		return nil, err
	}

	logging.JudgeDebug("reviewing %s (%d bytes of prompt)", pv.Filename, len(system)+len(user))
	reply, err := e.model.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("judge %s: %w", pv.Filename, err)
	}
	card, err := Extract(reply)
	if err != nil {
		logging.JudgeDebug("unusable reply for %s:\n%s", pv.Filename, reply)
		return nil, fmt.Errorf("judge %s: %w", pv.Filename, err)
	}
	card.Filename = pv.Filename
	return card, nil
}

// EvaluateAll reviews every task and returns one Result per task, in input
// order. Tasks without a fix are not sent to the model. A failed review is
// recorded in its Result and does not stop the others.
func (e *Evaluator) EvaluateAll(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i, t := range tasks {
		results[i].Filename = t.Vars.Filename
		if t.Rationale == "" || t.UpdatedFile == "" {
			logging.Judge("no fix for file: %s", t.Vars.Filename)
			results[i].Err = ErrNoFix
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			card, err := e.Evaluate(ctx, t.Vars, t.Rationale, t.UpdatedFile)
			if err != nil {
				logging.JudgeError("couldn't evaluate %s: %v", t.Vars.Filename, err)
			}
			results[i].Card, results[i].Err = card, err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Cards returns the report cards of the successful results.
func Cards(results []Result) []ReportCard {
	var out []ReportCard
	for _, r := range results {
		if r.Card != nil {
			out = append(out, *r.Card)
		}
	}
	return out
}
