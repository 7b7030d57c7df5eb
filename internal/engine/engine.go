package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/logging"
	"github.com/metalagman/vigil/internal/tool"
)

// Engine executes quality tool runs. The configuration is read-only for the
// engine's lifetime; an Engine is safe for concurrent invocations.
type Engine struct {
	cfg      config.Config
	registry *tool.Registry
	resolver *Resolver
}

// New constructs an engine over a validated configuration and a tool
// registry. Referential integrity violations in the configuration fail
// construction.
func New(cfg config.Config, registry *tool.Registry) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		resolver: NewResolver(cfg),
	}, nil
}

// RegisterPredicate attaches a smart-mode applicability rule for a tool.
func (e *Engine) RegisterPredicate(toolName string, p Predicate) {
	e.resolver.RegisterPredicate(toolName, p)
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Resolve computes the tool list for a mode without running anything.
func (e *Engine) Resolve(mode string, files []string) ([]string, error) {
	return e.resolver.Resolve(mode, files)
}

// Execute runs all tools resolved for the mode concurrently and merges their
// outputs. It fails only for an unresolvable mode; individual tool failures
// are downgraded to failure records in the output summary.
func (e *Engine) Execute(ctx context.Context, mode string, files []string) (*Output, error) {
	resolved, err := e.resolver.Resolve(mode, files)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	log.Info().
		Str("mode", mode).
		Strs("tools", resolved).
		Int("files", len(files)).
		Msg("engine start")

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		summary = make(map[string]Entry, len(resolved))
	)
	for _, name := range resolved {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			entry := e.runOne(ctx, name, files)
			mu.Lock()
			summary[name] = entry
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	ceilings := make(map[string]int, len(resolved))
	for _, name := range resolved {
		ceilings[name] = e.cfg.Tools[name].MaxIssues
	}
	success, total := reduce(summary, ceilings)

	out := &Output{
		Mode:                 mode,
		ResolvedTools:        resolved,
		Success:              success,
		Summary:              summary,
		AggregatedIssueCount: total,
		StartedAt:            startedAt,
		Duration:             time.Since(startedAt),
	}
	log.Info().
		Str("mode", mode).
		Bool("success", success).
		Int("issues", total).
		Dur("duration", out.Duration).
		Msg("engine finished")
	return out, nil
}

// runOne executes a single tool under its own deadline. Panics, errors,
// timeouts, and cancellations all collapse into a failure record so that
// sibling tools are never affected.
func (e *Engine) runOne(ctx context.Context, name string, files []string) (entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			entry = failure(name, ErrorKindExecution, fmt.Sprintf("panic: %v", r))
		}
	}()

	impl, ok := e.registry.Get(name)
	if !ok {
		return failure(name, ErrorKindExecution, "tool is not registered")
	}

	toolCfg := e.cfg.Tools[name]
	toolCtx, cancel := context.WithTimeout(ctx, toolCfg.Timeout())
	defer cancel()

	start := time.Now()
	res, err := impl.Run(toolCtx, files, toolCfg)

	if err == nil && res != nil && res.HasIssues() && e.cfg.FixAndRescan && toolCfg.AutoFixEnabled() {
		res, err = e.rescan(toolCtx, impl, files, toolCfg)
	}

	duration := time.Since(start)
	logger := logging.ForTool(name)
	if err != nil {
		kind := classify(ctx, toolCtx, err)
		logger.Warn().
			Str("error_kind", kind).
			Dur("duration", duration).
			Err(err).
			Msg("tool failed")
		return failure(name, kind, err.Error())
	}

	logger.Debug().
		Int("issues", res.Count()).
		Dur("duration", duration).
		Msg("tool finished")
	return Entry{Result: res}
}

// rescan re-runs a tool after its auto-fix pass and keeps the second result.
func (e *Engine) rescan(ctx context.Context, impl tool.Tool, files []string, toolCfg config.ToolConfig) (*tool.Result, error) {
	res, err := impl.Run(ctx, files, toolCfg)
	if err != nil {
		return nil, err
	}
	if res.Metadata == nil {
		res.Metadata = make(map[string]any)
	}
	res.Metadata["rescan"] = true
	return res, nil
}

// classify maps a tool error to a failure kind. The per-tool deadline wins
// over a generic execution failure; a cancelled parent context marks the
// whole invocation as aborted by the caller.
func classify(parent, toolCtx context.Context, err error) string {
	if errors.Is(parent.Err(), context.Canceled) {
		return ErrorKindCancelled
	}
	if errors.Is(toolCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	return ErrorKindExecution
}

func failure(name, kind, message string) Entry {
	return Entry{Failure: &FailureRecord{
		ToolName:  name,
		ErrorKind: kind,
		Message:   message,
	}}
}
