// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/jobs"
	"github.com/nlpodyssey/account-research/tracing"
	"github.com/nlpodyssey/account-research/usage"
	"golang.org/x/sync/errgroup"
)

// DefaultReviewRounds is the number of follow-up research rounds used by
// the API binary when none is configured.
const DefaultReviewRounds = 1

// Config configures a Crew.
type Config struct {
	// Model used by every agent of the crew. Required.
	Model agents.Model

	// ModelSettings overrides the model settings of every agent.
	ModelSettings agents.ModelSettings

	// Searcher backs the researcher's tools. Required.
	Searcher Searcher

	// Number of results returned by search tools. Zero means the Exa default.
	NumResults int

	// Maximum number of turns of each agent run. Zero means agents.DefaultMaxTurns.
	MaxTurns uint64

	// Number of times the gaps found by the reviewer are researched again.
	// Zero means the reviewer runs once and its gaps are only reported.
	ReviewRounds int

	// Exporter receives one trace per job. Nil disables tracing.
	Exporter tracing.Exporter

	Logger *slog.Logger
}

// Crew runs the account research pipeline:
// search, review, manage and write.
type Crew struct {
	model         agents.Model
	modelSettings agents.ModelSettings
	maxTurns      uint64
	reviewRounds  int
	exporter      tracing.Exporter
	logger        *slog.Logger

	researcher *agents.Agent
	reviewer   *agents.Agent
	manager    *agents.Agent
	writer     *agents.Agent
}

func NewCrew(cfg Config) (*Crew, error) {
	if cfg.Model == nil {
		return nil, errors.New("research crew: model is required")
	}
	if cfg.Searcher == nil {
		return nil, errors.New("research crew: searcher is required")
	}
	c := &Crew{
		model:         cfg.Model,
		modelSettings: cfg.ModelSettings,
		maxTurns:      cfg.MaxTurns,
		reviewRounds:  max(cfg.ReviewRounds, 0),
		exporter:      cfg.Exporter,
		logger:        cfg.Logger,
		researcher:    newResearcher(Tools(cfg.Searcher, cfg.NumResults)),
		reviewer:      newReviewer(),
		manager:       newManager(),
		writer:        newWriter(),
	}
	if c.exporter == nil {
		c.exporter = tracing.NoopExporter{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Pipeline returns a jobs.Pipeline running the crew on req.
// The Report becomes the job's structured result.
func (c *Crew) Pipeline(req Request) jobs.Pipeline {
	return func(ctx context.Context, progress jobs.Progress) (jobs.Result, error) {
		report, err := c.Run(ctx, req, progress)
		if err != nil {
			return jobs.Result{}, err
		}
		return jobs.StructuredResultOf(report)
	}
}

// Run executes the whole pipeline, reporting progress events along the way.
func (c *Crew) Run(ctx context.Context, req Request, progress jobs.Progress) (_ *Report, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalize()

	jobID, _ := jobs.JobIDFromContext(ctx)
	trace := c.exporter.StartJob(ctx, tracing.JobInfo{
		JobID:         jobID,
		TargetAccount: req.TargetAccount,
		Topics:        req.Topics,
	})
	defer func() { trace.End(err) }()

	r := &crewRun{
		crew:     c,
		req:      req,
		progress: progress,
		logger:   c.logger.With("job_id", jobID),
	}
	r.hooks = agents.MultiRunHooks{trace, progressHooks{progress: progress}}

	report, err := r.run(ctx)
	progress.Event("Token usage: " + r.totalUsage().String())
	return report, err
}

type crewRun struct {
	crew     *Crew
	req      Request
	progress jobs.Progress
	hooks    agents.RunHooks
	logger   *slog.Logger

	usageMu sync.Mutex
	usage   usage.Usage
}

func (r *crewRun) run(ctx context.Context) (*Report, error) {
	var topics []TopicInfo
	err := r.stage("search", func() (err error) {
		topics, err = r.researchAll(ctx, r.initialQueries())
		return err
	})
	if err != nil {
		return nil, err
	}

	err = r.stage("review", func() (err error) {
		topics, err = r.review(ctx, topics)
		return err
	})
	if err != nil {
		return nil, err
	}

	var list TopicInfoList
	err = r.stage("manage", func() (err error) {
		list, err = runAgent[TopicInfoList](ctx, r, r.crew.manager, r.managerInput(topics))
		return err
	})
	if err != nil {
		return nil, err
	}

	var report Report
	err = r.stage("write", func() (err error) {
		report, err = runAgent[Report](ctx, r, r.crew.writer, r.writerInput(list))
		return err
	})
	if err != nil {
		return nil, err
	}
	if report.TargetAccount == "" {
		report.TargetAccount = r.req.TargetAccount
	}
	return &report, nil
}

func (r *crewRun) stage(name string, fn func() error) error {
	r.progress.Event(fmt.Sprintf("Stage %s started", name))
	r.logger.Debug("Crew stage started", slog.String("stage", name))
	if err := fn(); err != nil {
		r.logger.Warn("Crew stage failed", slog.String("stage", name), slog.String("error", err.Error()))
		return fmt.Errorf("%s stage: %w", name, err)
	}
	r.progress.Event(fmt.Sprintf("Stage %s finished", name))
	return nil
}

// query is one researcher assignment. Focus is an optional follow-up query
// from the reviewer.
type query struct {
	Topic string
	Focus string
}

func (r *crewRun) initialQueries() []query {
	qs := make([]query, len(r.req.Topics))
	for i, t := range r.req.Topics {
		qs[i] = query{Topic: t}
	}
	return qs
}

// researchAll runs one researcher per query concurrently. Results keep the
// order of queries. The first failure cancels the other runs.
func (r *crewRun) researchAll(ctx context.Context, queries []query) ([]TopicInfo, error) {
	results := make([]TopicInfo, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			info, err := runAgent[TopicInfo](gctx, r, r.crew.researcher, r.researcherInput(q))
			if err != nil {
				return fmt.Errorf("research topic %q: %w", q.Topic, err)
			}
			if info.Title == "" {
				info.Title = q.Topic
			}
			results[i] = info
			r.emitJSON(info)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// review asks the reviewer to validate topics. Gaps are researched again
// and merged, up to reviewRounds times.
func (r *crewRun) review(ctx context.Context, topics []TopicInfo) ([]TopicInfo, error) {
	for round := 0; ; round++ {
		feedback, err := runAgent[ReviewFeedback](ctx, r, r.crew.reviewer, r.reviewerInput(topics))
		if err != nil {
			return nil, err
		}
		r.emitJSON(feedback)

		if feedback.Approved || len(feedback.Gaps) == 0 || round >= r.crew.reviewRounds {
			return topics, nil
		}

		queries := make([]query, len(feedback.Gaps))
		for i, gap := range feedback.Gaps {
			queries[i] = query{Topic: gap.Topic, Focus: gap.Query}
		}
		extra, err := r.researchAll(ctx, queries)
		if err != nil {
			return nil, err
		}
		for i, info := range extra {
			topics = mergeTopic(topics, queries[i].Topic, info)
		}
	}
}

// mergeTopic adds the findings and sources of extra to the entry of topics
// titled topic, or appends extra when there is none. Entries already present
// (same source URL) are skipped.
func mergeTopic(topics []TopicInfo, topic string, extra TopicInfo) []TopicInfo {
	idx := -1
	for i, t := range topics {
		if strings.EqualFold(t.Title, topic) {
			idx = i
			break
		}
	}
	if idx < 0 {
		extra.Title = topic
		return append(topics, extra)
	}

	dst := &topics[idx]
	seen := make(map[string]struct{})
	for _, f := range dst.Topic {
		seen[f.Source.URL] = struct{}{}
	}
	for _, f := range extra.Topic {
		if _, ok := seen[f.Source.URL]; ok && f.Source.URL != "" {
			continue
		}
		seen[f.Source.URL] = struct{}{}
		dst.Topic = append(dst.Topic, f)
	}

	seen = make(map[string]struct{})
	for _, s := range dst.AdditionalSources {
		seen[s.URL] = struct{}{}
	}
	for _, s := range extra.AdditionalSources {
		if _, ok := seen[s.URL]; ok {
			continue
		}
		seen[s.URL] = struct{}{}
		dst.AdditionalSources = append(dst.AdditionalSources, s)
	}
	return topics
}

func (r *crewRun) researcherInput(q query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target account: %s\nResearch topic: %s\n", r.req.TargetAccount, q.Topic)
	if q.Focus != "" {
		fmt.Fprintf(&b, "Focus your research on: %s\n", q.Focus)
	}
	return b.String()
}

func (r *crewRun) reviewerInput(topics []TopicInfo) string {
	return fmt.Sprintf("Target account: %s\nRequested topics: %s\n\nFindings:\n%s",
		r.req.TargetAccount, strings.Join(r.req.Topics, ", "), mustJSON(topics))
}

func (r *crewRun) managerInput(topics []TopicInfo) string {
	return fmt.Sprintf("Target account: %s\nRequested topics: %s\n\nReviewed findings:\n%s",
		r.req.TargetAccount, strings.Join(r.req.Topics, ", "), mustJSON(topics))
}

func (r *crewRun) writerInput(list TopicInfoList) string {
	return fmt.Sprintf("Target account: %s\n\nConsolidated research:\n%s",
		r.req.TargetAccount, mustJSON(list))
}

func (r *crewRun) emitJSON(v any) {
	r.progress.Event(mustJSON(v))
}

func (r *crewRun) addUsage(u usage.Usage) {
	r.usageMu.Lock()
	defer r.usageMu.Unlock()
	r.usage.Add(u)
}

func (r *crewRun) totalUsage() usage.Usage {
	r.usageMu.Lock()
	defer r.usageMu.Unlock()
	return r.usage
}

// runAgent runs agent with the crew's model and hooks, accounting its usage
// and converting its final output to T.
func runAgent[T any](ctx context.Context, r *crewRun, agent *agents.Agent, input string) (T, error) {
	runner := agents.Runner{Config: agents.RunConfig{
		Model:         r.crew.model,
		ModelSettings: r.crew.modelSettings,
		MaxTurns:      r.crew.maxTurns,
		Hooks:         r.hooks,
	}}
	result, err := runner.Run(ctx, agent, input)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", agent.Name, err)
	}
	r.addUsage(result.Usage)
	return agents.FinalOutputAs[T](result)
}

// mustJSON marshals values built from the crew's own types, which cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("research: marshal %T: %w", v, err))
	}
	return string(b)
}

// progressHooks reports tool invocations as job events.
type progressHooks struct {
	agents.NoOpRunHooks
	progress jobs.Progress
}

func (h progressHooks) OnToolStart(_ context.Context, run agents.RunInfo, tool agents.FunctionTool, _ agents.ToolCall) error {
	h.progress.Event(fmt.Sprintf("%s used tool %s", run.Agent.Name, tool.Name))
	return nil
}
