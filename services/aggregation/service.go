package aggregation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/upb/llm-arena/internal/observability"
	"github.com/upb/llm-arena/models"
	"github.com/upb/llm-arena/services"
	"github.com/upb/llm-arena/services/providers"
)

const (
	DispatchParallel   = "parallel"
	DispatchSequential = "sequential"
)

// Result is the outcome of one aggregation.
type Result struct {
	Question           string                   `json:"question"`
	Responses          models.ProviderResponses `json:"responses"`
	PreconditionErrors []string                 `json:"errors"`
}

// Options tunes dispatch. Zero values select parallel dispatch, no extra
// per-call deadline, no metrics and no tracing.
type Options struct {
	DispatchMode   string
	RequestTimeout time.Duration
	Metrics        observability.Metrics
	Tracer         trace.Tracer
}

// Service fans one question out to the selected providers
type Service struct {
	registry    *providers.Registry
	credentials providers.Credentials
	opts        Options
	logger      *zap.Logger
}

// NewService creates a new aggregation service
func NewService(registry *providers.Registry, credentials providers.Credentials, opts Options, logger *zap.Logger) *Service {
	if opts.DispatchMode == "" {
		opts.DispatchMode = DispatchParallel
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NopMetrics{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.NoopTracing().Tracer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:    registry,
		credentials: credentials,
		opts:        opts,
		logger:      logger,
	}
}

// slot holds what happened to one requested provider.
type slot struct {
	name     string
	entry    providers.Entry
	dispatch bool
	record   providers.ResponseRecord
	err      string
}

// Aggregate dispatches question to every requested provider and collects the
// answers in selection order.
func (s *Service) Aggregate(ctx context.Context, question string, requested []string) (*Result, error) {
	if len(requested) == 0 {
		return nil, services.ErrNoProvidersSelected
	}
	if strings.TrimSpace(question) == "" {
		return nil, services.ErrEmptyQuestion
	}

	ctx, span := s.opts.Tracer.Start(ctx, "aggregation.Aggregate",
		trace.WithAttributes(
			attribute.Int("arena.requested", len(requested)),
			attribute.String("arena.dispatch_mode", s.opts.DispatchMode),
		))
	defer span.End()

	logger := observability.LoggerFromContext(ctx, s.logger)
	slots := s.plan(requested, logger)

	if s.opts.DispatchMode == DispatchSequential {
		for i := range slots {
			if slots[i].dispatch {
				s.invoke(ctx, &slots[i], question)
			}
		}
	} else {
		var wg sync.WaitGroup
		for i := range slots {
			if !slots[i].dispatch {
				continue
			}
			wg.Add(1)
			go func(sl *slot) {
				defer wg.Done()
				s.invoke(ctx, sl, question)
			}(&slots[i])
		}
		wg.Wait()
	}

	result := &Result{
		Question:           question,
		Responses:          models.ProviderResponses{},
		PreconditionErrors: []string{},
	}
	for _, sl := range slots {
		if sl.err != "" {
			result.PreconditionErrors = append(result.PreconditionErrors, sl.err)
			continue
		}
		if sl.dispatch {
			result.Responses = append(result.Responses, models.ProviderResponse{Provider: sl.name, Record: sl.record})
		}
	}

	span.SetAttributes(
		attribute.Int("arena.responses", len(result.Responses)),
		attribute.Int("arena.precondition_errors", len(result.PreconditionErrors)),
	)
	logger.Info("aggregation completed",
		zap.Int("requested", len(requested)),
		zap.Int("responses", len(result.Responses)),
		zap.Int("errors", len(result.PreconditionErrors)))

	return result, nil
}

// plan resolves names and checks credentials without calling anything.
func (s *Service) plan(requested []string, logger *zap.Logger) []slot {
	seen := make(map[string]struct{}, len(requested))
	slots := make([]slot, 0, len(requested))

	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		entry, ok := s.registry.Lookup(name)
		if !ok {
			logger.Debug("skipping unknown provider", zap.String("provider", name))
			s.opts.Metrics.RecordSkip(observability.LabelUnregistered, "unknown")
			continue
		}

		sl := slot{name: name, entry: entry}
		if cred := entry.Descriptor.Credential; cred != "" && !s.credentials.Has(cred) {
			sl.err = cred.RequiresMessage(name)
			s.opts.Metrics.RecordSkip(name, string(providers.OutcomeCredentialMissing))
		} else {
			sl.dispatch = true
		}
		slots = append(slots, sl)
	}
	return slots
}

func (s *Service) invoke(ctx context.Context, sl *slot, question string) {
	ctx, span := s.opts.Tracer.Start(ctx, "provider.Invoke",
		trace.WithAttributes(attribute.String("arena.provider", sl.name)))
	defer span.End()

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			sl.dispatch = false
			sl.err = fmt.Sprintf("Error with %s: %v", sl.name, r)
			span.SetStatus(codes.Error, sl.err)
			s.opts.Metrics.RecordSkip(sl.name, "panic")
			s.logger.Error("provider adapter panicked",
				zap.String("provider", sl.name),
				zap.Any("panic", r))
		}
	}()

	sl.record = sl.entry.Adapter.Invoke(ctx, question)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("arena.outcome", string(sl.record.Outcome)),
		attribute.Float64("arena.confidence", sl.record.Confidence),
	)
	if !sl.record.Usable() {
		span.SetStatus(codes.Error, string(sl.record.Outcome))
	}
	s.opts.Metrics.RecordDispatch(sl.name, string(sl.record.Outcome), elapsed)
}
