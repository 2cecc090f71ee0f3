// Package pipeline sequences the career-planning stages, judges each attempt with the
// quality gate, retries with feedback and degrades gracefully when retries run out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/agent"
	"github.com/jonathan/career-agent/internal/gate"
	"github.com/jonathan/career-agent/internal/metrics"
	"github.com/jonathan/career-agent/internal/observability"
	"github.com/jonathan/career-agent/internal/report"
	"github.com/jonathan/career-agent/internal/types"
)

// DefaultTargetRole is used when neither the caller nor the resume names a role.
const DefaultTargetRole = "Software Engineer"

// ErrNoProfile is returned when Run is called without a resume profile.
var ErrNoProfile = errors.New("resume profile is required")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	RunID   string            `json:"run_id"`
	Stage   types.StageID     `json:"stage"`
	Status  types.StageStatus `json:"status"`
	Attempt int               `json:"attempt,omitempty"`
	Message string            `json:"message"`
	Content any               `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Archive persists runs and their stage attempts. Failures are logged, never fatal.
type Archive interface {
	CreateRun(ctx context.Context, runID uuid.UUID, targetRole string, profile *types.ResumeProfile) error
	SaveAttempt(ctx context.Context, runID uuid.UUID, attempt types.StageAttempt) error
	CompleteRun(ctx context.Context, runID uuid.UUID, rep *types.Report) error
}

// Config bounds one run.
type Config struct {
	TargetRole    string
	MaxCompanies  int
	MaxRetries    map[types.StageID]int
	StepBudgets   map[types.StageID]int
	MaxTotalSteps int
	MaxWallClock  time.Duration
}

// DefaultConfig returns the stock bounds: the Market-Analyst gets the tightest budget.
func DefaultConfig() Config {
	return Config{
		MaxCompanies: 3,
		MaxRetries: map[types.StageID]int{
			types.StageMarketAnalyst: 1,
			types.StageListingFinder: 1,
			types.StageGapCoach:      1,
		},
		StepBudgets: map[types.StageID]int{
			types.StageMarketAnalyst: 8,
			types.StageListingFinder: 16,
			types.StageGapCoach:      20,
		},
		MaxTotalSteps: 100,
		MaxWallClock:  10 * time.Minute,
	}
}

func (c Config) retries(stage types.StageID) int {
	if r, ok := c.MaxRetries[stage]; ok && r >= 0 {
		return r
	}
	return DefaultConfig().MaxRetries[stage]
}

func (c Config) budget(stage types.StageID) int {
	if b, ok := c.StepBudgets[stage]; ok && b > 0 {
		return b
	}
	return DefaultConfig().StepBudgets[stage]
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArchive persists every run to a.
func WithArchive(a Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) { o.onProgress = cb }
}

// WithPrinter enables verbose boxes for stage verdicts and the run summary.
func WithPrinter(p *observability.Printer) Option {
	return func(o *Orchestrator) { o.printer = p }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs the stages of one or more runs. It holds no per-run state and
// may be shared by concurrent runs.
type Orchestrator struct {
	cfg        Config
	workers    map[types.StageID]agent.Worker
	gate       *gate.Gate
	log        *zap.Logger
	archive    Archive
	printer    *observability.Printer
	onProgress ProgressCallback
	now        func() time.Time
}

// New creates an Orchestrator. workers must contain one worker per stage.
func New(cfg Config, workers map[types.StageID]agent.Worker, log *zap.Logger, opts ...Option) (*Orchestrator, error) {
	for _, stage := range types.StageOrder {
		if workers[stage] == nil {
			return nil, fmt.Errorf("no worker registered for %s", stage.DisplayName())
		}
	}
	if cfg.MaxCompanies <= 0 {
		cfg.MaxCompanies = DefaultConfig().MaxCompanies
	}
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:     cfg,
		workers: workers,
		gate:    gate.New(cfg.MaxCompanies),
		log:     log.Named("orchestrator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunOption adjusts a single Run call.
type RunOption func(*runOptions)

type runOptions struct {
	targetRole string
	onProgress ProgressCallback
}

// ForRole plans for role instead of the configured target role. A blank role is ignored.
func ForRole(role string) RunOption {
	return func(ro *runOptions) {
		if strings.TrimSpace(role) != "" {
			ro.targetRole = role
		}
	}
}

// Observe receives the progress events of this run only, after any Orchestrator-wide callback.
func Observe(cb ProgressCallback) RunOption {
	return func(ro *runOptions) { ro.onProgress = cb }
}

// ResolveTargetRole picks the role a run plans for.
func ResolveTargetRole(explicit string, profile *types.ResumeProfile) string {
	if role := strings.TrimSpace(explicit); role != "" {
		return role
	}
	if profile != nil {
		for _, r := range profile.PriorRoles {
			if role := strings.TrimSpace(r); role != "" {
				return role
			}
		}
	}
	return DefaultTargetRole
}

// run is the state of one Run call.
type run struct {
	id         uuid.UUID
	profile    *types.ResumeProfile
	targetRole string
	deadline   time.Time
	machine    *stageMachine
	artifacts  map[types.StageID]types.Artifact
	meta       types.RunMetadata
	onProgress ProgressCallback
}

func (r *run) addCondition(c string) {
	for _, existing := range r.meta.Conditions {
		if existing == c {
			return
		}
	}
	r.meta.Conditions = append(r.meta.Conditions, c)
}

// Run executes every stage in order and assembles the report. The report is always
// returned, annotated with any degradation; the error is reserved for misuse.
// Cancelling ctx stops the run at the next stage boundary.
func (o *Orchestrator) Run(ctx context.Context, profile *types.ResumeProfile, opts ...RunOption) (*types.Report, error) {
	if profile == nil {
		return nil, ErrNoProfile
	}
	ro := runOptions{targetRole: o.cfg.TargetRole}
	for _, opt := range opts {
		opt(&ro)
	}

	started := o.now()
	r := &run{
		id:         uuid.New(),
		profile:    profile.Clone(),
		targetRole: ResolveTargetRole(ro.targetRole, profile),
		machine:    newStageMachine(),
		artifacts:  make(map[types.StageID]types.Artifact, len(types.StageOrder)),
		onProgress: ro.onProgress,
	}
	r.meta = types.RunMetadata{
		TargetRole: r.targetRole,
		Status:     types.RunCompleted,
		StartedAt:  started,
	}
	r.meta.RunID = r.id.String()
	if o.cfg.MaxWallClock > 0 {
		r.deadline = started.Add(o.cfg.MaxWallClock)
	}
	log := o.log.With(zap.String("run_id", r.meta.RunID), zap.String("target_role", r.targetRole))

	metrics.RunsInProgress.Inc()
	defer metrics.RunsInProgress.Dec()

	if o.archive != nil {
		if err := o.archive.CreateRun(context.WithoutCancel(ctx), r.id, r.targetRole, r.profile); err != nil {
			log.Warn("failed to archive run start", zap.Error(err))
		}
	}
	log.Info("run started")

	for i, stage := range types.StageOrder {
		if err := ctx.Err(); err != nil {
			r.meta.Status = types.RunAborted
			r.meta.AbortReason = fmt.Sprintf("cancelled before %s: %v", stage.DisplayName(), err)
			o.truncate(r, types.StageOrder[i:])
			break
		}
		if reason := o.ceiling(r); reason != "" {
			r.addCondition(reason)
			o.truncate(r, types.StageOrder[i:])
			break
		}
		if err := r.machine.ValidateDependencies(stage); err != nil {
			r.meta.Status = types.RunAborted
			r.meta.AbortReason = fmt.Sprintf("%s produced no artifact", types.StageOrder[i-1].DisplayName())
			log.Error("aborting run", zap.Error(err))
			o.truncate(r, types.StageOrder[i:])
			break
		}
		if err := o.runStage(ctx, r, stage, log); err != nil {
			return nil, err
		}
	}

	if r.meta.Status != types.RunAborted {
		// Nothing downstream is meaningful without a ranking.
		if _, ok := r.artifacts[types.StageMarketAnalyst]; !ok {
			r.meta.Status = types.RunAborted
			r.meta.AbortReason = fmt.Sprintf("%s produced no artifact", types.StageMarketAnalyst.DisplayName())
		} else if len(r.meta.DegradedStages()) > 0 {
			r.meta.Status = types.RunCompletedWithDegradation
		}
	}
	r.meta.CompletedAt = o.now()

	rep := o.assemble(r)
	metrics.RunOutcomes.WithLabelValues(string(r.meta.Status)).Inc()
	if o.archive != nil {
		if err := o.archive.CompleteRun(context.WithoutCancel(ctx), r.id, rep); err != nil {
			log.Warn("failed to archive run result", zap.Error(err))
		}
	}
	if o.printer != nil {
		o.printer.PrintRunSummary(&rep.Metadata)
	}
	log.Info("run finished",
		zap.String("status", string(r.meta.Status)),
		zap.Int("total_steps", r.meta.TotalSteps),
		zap.Duration("elapsed", r.meta.CompletedAt.Sub(started)),
	)
	return rep, nil
}

// ceiling reports which run-level bound, if any, has been reached.
func (o *Orchestrator) ceiling(r *run) string {
	if o.cfg.MaxTotalSteps > 0 && r.meta.TotalSteps >= o.cfg.MaxTotalSteps {
		return fmt.Sprintf("total step ceiling reached (%d/%d)", r.meta.TotalSteps, o.cfg.MaxTotalSteps)
	}
	if !r.deadline.IsZero() && !o.now().Before(r.deadline) {
		return fmt.Sprintf("wall-clock ceiling reached (%s)", o.cfg.MaxWallClock)
	}
	return ""
}

// truncate marks stages that will not run.
func (o *Orchestrator) truncate(r *run, stages []types.StageID) {
	for _, stage := range stages {
		if err := r.machine.To(stage, types.StageTruncated); err != nil {
			continue
		}
		r.meta.Stages = append(r.meta.Stages, types.StageSummary{
			Stage:    stage,
			Status:   types.StageTruncated,
			Degraded: true,
		})
		metrics.StageOutcomes.WithLabelValues(string(stage), string(types.StageTruncated)).Inc()
		o.emit(r, ProgressEvent{Stage: stage, Status: types.StageTruncated, Message: stage.DisplayName() + " skipped"})
	}
}

// input builds the worker input from the artifacts accepted so far.
func (o *Orchestrator) input(r *run, stage types.StageID) types.StageInput {
	in := types.StageInput{
		Profile:      r.profile.Clone(),
		TargetRole:   r.targetRole,
		MaxCompanies: o.cfg.MaxCompanies,
	}
	switch stage {
	case types.StageListingFinder:
		if m, ok := r.artifacts[types.StageMarketAnalyst].(*types.MarketProfile); ok {
			in.Candidates = m.Top(o.cfg.MaxCompanies)
		}
	case types.StageGapCoach:
		if s, ok := r.artifacts[types.StageListingFinder].(*types.ListingSet); ok {
			in.Listings = s.Clone().Listings
		}
	}
	return in
}

// runStage drives one stage through its lifecycle. Only invalid state transitions are
// returned as errors.
func (o *Orchestrator) runStage(ctx context.Context, r *run, stage types.StageID, log *zap.Logger) error {
	log = log.With(zap.String("stage", string(stage)))
	worker := o.workers[stage]
	maxAttempts := o.cfg.retries(stage) + 1
	summary := types.StageSummary{Stage: stage}

	var (
		last     types.Artifact
		feedback []types.Rejection
		accepted bool
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				log.Warn("retries stopped by cancellation", zap.Error(err))
				break
			}
			if reason := o.ceiling(r); reason != "" {
				r.addCondition(reason)
				log.Warn("retries stopped by run ceiling", zap.String("reason", reason))
				break
			}
		}
		if err := r.machine.To(stage, types.StageRunning); err != nil {
			return err
		}

		budget := o.cfg.budget(stage)
		if o.cfg.MaxTotalSteps > 0 {
			budget = min(budget, o.cfg.MaxTotalSteps-r.meta.TotalSteps)
		}
		in := o.input(r, stage)
		in.Attempt = attempt
		in.Feedback = feedback

		o.emit(r, ProgressEvent{
			Stage:   stage,
			Status:  types.StageRunning,
			Attempt: attempt,
			Message: fmt.Sprintf("%s attempt %d/%d (budget %d steps)", stage.DisplayName(), attempt, maxAttempts, budget),
		})
		metrics.StageAttempts.WithLabelValues(string(stage)).Inc()

		// The stage finishes even if the caller cancels meanwhile.
		res, err := worker.Execute(context.WithoutCancel(ctx), in, budget)
		r.meta.TotalSteps += res.StepsUsed
		summary.Steps += res.StepsUsed
		summary.Attempts = attempt
		for _, c := range res.Conditions {
			r.addCondition(c)
		}
		if res.Artifact != nil && res.Artifact.ArtifactStage() == stage {
			last = res.Artifact
		}

		verdict := o.judge(stage, res.Artifact, err)
		o.record(ctx, r, types.StageAttempt{
			Stage:     stage,
			Attempt:   attempt,
			StepsUsed: res.StepsUsed,
			Artifact:  res.Artifact,
			Verdict:   verdict,
			Error:     errorString(err),
		}, log)

		if verdict.Pass {
			accepted = true
			summary.Reasons = nil
			break
		}
		summary.Reasons = verdict.Reasons
		feedback = verdict.Reasons
		for _, reason := range verdict.Reasons {
			metrics.GateRejections.WithLabelValues(string(stage), reason.Code).Inc()
		}
		log.Info("attempt rejected",
			zap.Int("attempt", attempt),
			zap.Int("steps", res.StepsUsed),
			zap.String("reasons", agent.FormatFeedback(verdict.Reasons)),
		)
		if attempt < maxAttempts {
			if err := r.machine.To(stage, types.StageRetrying); err != nil {
				return err
			}
			o.emit(r, ProgressEvent{Stage: stage, Status: types.StageRetrying, Attempt: attempt, Message: "retrying with feedback", Content: verdict.Reasons})
		}
	}

	if accepted {
		summary.Status = types.StageAccepted
	} else {
		summary.Status = types.StageFailed
		summary.Degraded = true
		if last == nil && stage != types.StageMarketAnalyst {
			last = emptyArtifact(stage)
		}
	}
	if err := r.machine.To(stage, summary.Status); err != nil {
		return err
	}
	if last != nil {
		r.artifacts[stage] = cloneArtifact(last)
		r.machine.MarkProduced(stage)
	}
	r.meta.Stages = append(r.meta.Stages, summary)
	metrics.StageOutcomes.WithLabelValues(string(stage), string(summary.Status)).Inc()

	if o.printer != nil {
		o.printer.PrintStageSummary(&summary)
	}
	msg := fmt.Sprintf("%s accepted after %d attempt(s)", stage.DisplayName(), summary.Attempts)
	if summary.Degraded {
		msg = fmt.Sprintf("%s degraded after %d attempt(s)", stage.DisplayName(), summary.Attempts)
		log.Warn("stage degraded", zap.Int("attempts", summary.Attempts), zap.Bool("artifact", last != nil))
	}
	o.emit(r, ProgressEvent{Stage: stage, Status: summary.Status, Attempt: summary.Attempts, Message: msg, Content: r.artifacts[stage]})
	return nil
}

// judge combines the worker error and the gate verdict.
func (o *Orchestrator) judge(stage types.StageID, artifact types.Artifact, err error) types.Verdict {
	if err == nil {
		return o.gate.Validate(stage, artifact)
	}

	var reasons []types.Rejection
	var ef *agent.ExecutionFailure
	if errors.As(err, &ef) {
		reasons = append(reasons, ef.Rejection())
	} else {
		reasons = append(reasons, types.Rejection{Code: types.ReasonExecutionFailed, Details: err.Error()})
	}
	if artifact != nil {
		if v := o.gate.Validate(stage, artifact); !v.Pass {
			reasons = append(reasons, v.Reasons...)
		}
	}
	return types.Verdict{Pass: false, Reasons: reasons}
}

func (o *Orchestrator) record(ctx context.Context, r *run, attempt types.StageAttempt, log *zap.Logger) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveAttempt(context.WithoutCancel(ctx), r.id, attempt); err != nil {
		log.Warn("failed to archive attempt", zap.Int("attempt", attempt.Attempt), zap.Error(err))
	}
}

func (o *Orchestrator) assemble(r *run) *types.Report {
	var (
		candidates []types.CompanyCandidate
		listings   []types.JobListing
		gaps       []types.SkillGap
	)
	if m, ok := r.artifacts[types.StageMarketAnalyst].(*types.MarketProfile); ok {
		candidates = m.Top(o.cfg.MaxCompanies)
	}
	if s, ok := r.artifacts[types.StageListingFinder].(*types.ListingSet); ok {
		listings = s.Listings
	}
	if g, ok := r.artifacts[types.StageGapCoach].(*types.GapAnalysis); ok {
		gaps = g.Gaps
	}
	return report.Assemble(r.profile, candidates, listings, gaps, r.meta)
}

// emit calls the progress callbacks if configured
func (o *Orchestrator) emit(r *run, event ProgressEvent) {
	event.RunID = r.meta.RunID
	if o.onProgress != nil {
		o.onProgress(event)
	}
	if r.onProgress != nil {
		r.onProgress(event)
	}
}

func emptyArtifact(stage types.StageID) types.Artifact {
	switch stage {
	case types.StageListingFinder:
		return &types.ListingSet{}
	case types.StageGapCoach:
		return &types.GapAnalysis{}
	default:
		return nil
	}
}

func cloneArtifact(a types.Artifact) types.Artifact {
	switch v := a.(type) {
	case *types.MarketProfile:
		return v.Clone()
	case *types.ListingSet:
		return v.Clone()
	case *types.GapAnalysis:
		return v.Clone()
	default:
		return a
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
