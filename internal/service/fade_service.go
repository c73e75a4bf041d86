package service

import (
	"context"

	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/model"
)

// FadeService exposes the volume fade operation.
type FadeService struct {
	dispatcher *dispatch.Dispatcher
}

func NewFadeService(dispatcher *dispatch.Dispatcher) *FadeService {
	return &FadeService{dispatcher: dispatcher}
}

// Fade ramps the user's playback volume. A fade enqueued while a prior fade
// for the same user is in flight supersedes it.
func (s *FadeService) Fade(ctx context.Context, userID, username string, req *model.FadeRequest) (*model.EnqueueResponse, error) {
	payload := model.FadePayload{
		UserID:   userID,
		Username: username,
		Device:   req.Device,
		FadeSpec: model.FadeSpec{
			Start:   req.Start,
			Limit:   req.Limit,
			Seconds: req.Seconds,
			Step:    req.Step,
			Force:   req.Force,
		},
	}

	if req.ReturnEarly {
		jobID, err := s.dispatcher.Enqueue(ctx, dispatch.TaskTypeFade, userID, payload)
		if err != nil {
			return nil, err
		}
		return &model.EnqueueResponse{JobID: jobID, Status: model.JobStatusQueued}, nil
	}

	_, err := s.dispatcher.RunNow(ctx, dispatch.TaskTypeFade, payload)
	return nil, err
}
