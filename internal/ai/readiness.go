package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
)

type ReadyState int32

const (
	StateUnloaded ReadyState = iota
	StateLoading
	StateReady
)

func (s ReadyState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "unloaded"
}

const warmupPrompt = "ok"

// ReadyGate tracks generator warm-up as an explicit state machine:
// unloaded -> loading -> ready, falling back to unloaded when the warm-up
// probe fails. Ready is permanent for the process lifetime. At most one
// warm-up is in flight; concurrent callers during loading get ErrGenLoading
// and are expected to serve the retrieval-only path instead of waiting.
type ReadyGate struct {
	mu    sync.Mutex
	state ReadyState
	gen   IGenerator
}

func NewReadyGate(gen IGenerator) *ReadyGate {
	return &ReadyGate{gen: gen}
}

func (g *ReadyGate) State() ReadyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *ReadyGate) IsReady() bool {
	return g.State() == StateReady
}

// EnsureReady runs the one-time warm-up probe on first demand. The lock is
// released while the probe runs so searches are never blocked behind it.
func (g *ReadyGate) EnsureReady(ctx context.Context) error {
	if g.gen == nil {
		return errs.ErrGenerator
	}
	g.mu.Lock()
	switch g.state {
	case StateReady:
		g.mu.Unlock()
		return nil
	case StateLoading:
		g.mu.Unlock()
		return errs.ErrGenLoading
	}
	g.state = StateLoading
	g.mu.Unlock()

	logutil.GetLogger(ctx).Info("warming up generator")
	_, err := g.gen.Generate(ctx, warmupPrompt, 8)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = StateUnloaded
		logutil.GetLogger(ctx).Error("generator warm-up failed", zap.Error(err))
		return fmt.Errorf("%w: %v", errs.ErrGenerator, err)
	}
	g.state = StateReady
	logutil.GetLogger(ctx).Info("generator ready")
	return nil
}
