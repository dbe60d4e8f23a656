package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgallion1/docmerge/internal/assembler"
	"github.com/dgallion1/docmerge/internal/collector"
	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/doctree"
	"github.com/dgallion1/docmerge/internal/links"
	"github.com/dgallion1/docmerge/internal/metrics"
	"github.com/dgallion1/docmerge/internal/parser"
	"github.com/dgallion1/docmerge/internal/project"
	"github.com/dgallion1/docmerge/internal/render"
	"github.com/dgallion1/docmerge/internal/styles"
	"github.com/dgallion1/docmerge/internal/transform"
)

// Result is the outcome of a successful build.
type Result struct {
	HTML        string
	BasePackage string
	Pages       []doctree.Page
	TOC         []assembler.TOCEntry
	Outputs     []string
	BuiltAt     time.Time
}

// Orchestrator runs merge builds, either synchronously through Run or from a
// queue served by a single worker.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	log     *slog.Logger
	cfg     config.Config
	metrics *metrics.Recorder

	mu     sync.RWMutex
	latest *Result

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewOrchestrator(cfg config.Config, rec *metrics.Recorder, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, max(cfg.MaxQueueSize, 1)),
		log:     log,
		cfg:     cfg,
		metrics: rec,
	}
}

// Run executes a whole build: collect, order, transform, assemble and render
// each requested format. The first failing stage aborts the build.
func (o *Orchestrator) Run(ctx context.Context, job *Job) (*Result, error) {
	log := o.log.With("job_id", job.ID, "input", job.Input)
	o.jobs.Put(job)
	start := time.Now()

	res, err := o.run(ctx, job, log)
	if err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		o.metrics.IncBuildOutcome(metrics.OutcomeFailed)
		log.Error("build failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	job.SetStatus(StatusCompleted, "done")
	o.metrics.IncBuildOutcome(metrics.OutcomeSuccess)
	o.mu.Lock()
	o.latest = res
	o.mu.Unlock()
	log.Info("build completed",
		"base_package", res.BasePackage,
		"pages", len(res.Pages),
		"outputs", res.Outputs,
		"duration", time.Since(start),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, job *Job, log *slog.Logger) (*Result, error) {
	// Phase 1: Collect
	job.SetStatus(StatusCollecting, "collecting")
	var (
		root  *doctree.PackageNode
		stats collector.Stats
	)
	err := o.stage(ctx, "collect", func() error {
		var err error
		root, stats, err = collector.New(o.cfg.ClassSuffixes, log).Collect(job.Input)
		return err
	})
	if err != nil {
		return nil, err
	}
	job.SetTree(stats.Packages, stats.Classes, len(stats.Skipped))
	o.metrics.AddSkipped(len(stats.Skipped))

	// Phase 2: Order
	job.SetStatus(StatusOrdering, "ordering")
	var (
		proj  *project.Project
		pages []doctree.Page
	)
	err = o.stage(ctx, "order", func() error {
		var err error
		if proj, err = project.New(root); err != nil {
			return err
		}
		pages = proj.OrderedNodes()
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("resolved base package", "base_package", proj.BasePackage, "pages", len(pages))

	// Phase 3: Transform, strictly in document order.
	job.SetStatus(StatusTransforming, "transforming")
	reg := styles.NewRegistry()
	var sections []transform.Section
	err = o.stage(ctx, "transform", func() error {
		tr := transform.New(proj.BasePackage, reg, links.New(o.cfg.ClassSuffixes), o.cfg.Charset, log)
		for _, page := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := tr.Transform(page)
			if err != nil {
				return fmt.Errorf("transform %s: %w", page.ID, err)
			}
			sections = append(sections, s)
			job.IncrPagesDone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.SetStyles(reg.Len())
	o.metrics.SetStyles(reg.Len())
	o.metrics.AddPages(doctree.KindPackage.String(), proj.NumPackages())
	o.metrics.AddPages(doctree.KindClass.String(), proj.NumClasses())

	// Phase 4: Assemble
	job.SetStatus(StatusAssembling, "assembling")
	var html string
	err = o.stage(ctx, "assemble", func() error {
		a := assembler.New(o.assemblerOptions())
		if o.cfg.Overview != "" {
			overview, err := parser.LoadOverview(o.cfg.Overview, o.cfg.Charset)
			if err != nil {
				return fmt.Errorf("overview: %w", err)
			}
			a.SetOverview(overview)
		}
		for _, s := range sections {
			a.Append(s)
		}
		var err error
		html, err = a.Finish(proj.BasePackage, reg)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		HTML:        html,
		BasePackage: proj.BasePackage,
		Pages:       pages,
		TOC:         assembler.TOCEntries(proj.BasePackage, pages),
		BuiltAt:     time.Now(),
	}

	// Phase 5: Render
	formats := o.formats(job)
	if len(formats) == 0 {
		return res, nil
	}
	job.SetStatus(StatusRendering, "rendering")
	err = o.stage(ctx, "render", func() error {
		for _, name := range formats {
			r, err := render.ForFormat(name, o.cfg, log)
			if err != nil {
				return err
			}
			rctx, cancel := context.WithTimeout(ctx, o.cfg.RenderTimeout)
			path, err := r.Render(rctx, html, job.OutputBase)
			cancel()
			if err != nil {
				return fmt.Errorf("render %s: %w", name, err)
			}
			res.Outputs = append(res.Outputs, path)
			job.AddOutput(path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// stage times fn and reports it under name.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	o.metrics.ObserveStage(name, time.Since(start))
	return err
}

// formats lists the job's output formats, with the HTML dump added when
// configured.
func (o *Orchestrator) formats(job *Job) []string {
	formats := slices.Clone(job.Formats)
	if o.cfg.WriteHTML && len(formats) > 0 && !slices.Contains(formats, "html") {
		formats = append([]string{"html"}, formats...)
	}
	return formats
}

func (o *Orchestrator) assemblerOptions() assembler.Options {
	return assembler.Options{
		PageSize:    o.cfg.PageSize,
		PageMargins: o.cfg.PageMargins,
		PageNumbers: o.cfg.PageNumbers,
		LinkColor:   o.cfg.LinkColor,
		IndentUnit:  o.cfg.IndentUnit,
	}
}

// Latest returns the most recent successful build, or nil.
func (o *Orchestrator) Latest() *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest
}

// Start launches the build worker. Builds run one at a time.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job := <-o.queue:
				// Errors are recorded on the job.
				_, _ = o.Run(workerCtx, job)
			}
		}
	}()

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop shuts down the worker and waits for a running build to return.
// Jobs still queued are dropped.
func (o *Orchestrator) Stop() {
	if !o.stopped.CompareAndSwap(false, true) {
		return
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a job for the worker.
func (o *Orchestrator) Submit(job *Job) error {
	if o.stopped.Load() {
		return errors.New("orchestrator stopped")
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("build queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
