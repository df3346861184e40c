package ingest

import (
	"context"
	"log/slog"

	"github.com/justyntemme/librarian/internal/apperr"
)

// Stage names a step of an ingestion request.
type Stage string

const (
	StageStart        Stage = "start"
	StageResolve      Stage = "resolve"
	StageInfer        Stage = "infer"
	StageAcquireImage Stage = "acquire_image"
	StageValidate     Stage = "validate"
	StagePersist      Stage = "persist"
	StageDone         Stage = "done"
	StageAborted      Stage = "aborted"
)

// tracker logs stage transitions for one request.
type tracker struct {
	ctx    context.Context
	logger *slog.Logger
	flow   string
	stage  Stage
}

func (s *Service) track(ctx context.Context, flow string) *tracker {
	t := &tracker{ctx: ctx, logger: s.logger, flow: flow}
	t.enter(StageStart)
	return t
}

func (t *tracker) enter(stage Stage) {
	t.stage = stage
	t.logger.DebugContext(t.ctx, "Ingest stage", "flow", t.flow, "stage", string(stage))
}

func (t *tracker) finish(err error) {
	if err == nil {
		t.enter(StageDone)
		return
	}
	failed := t.stage
	t.stage = StageAborted
	t.logger.DebugContext(t.ctx, "Ingest stage", "flow", t.flow, "stage", string(StageAborted),
		"failed_stage", string(failed), "kind", apperr.KindOf(err).String(), "error", err)
}
