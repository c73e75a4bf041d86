package service

import (
	"context"

	"github.com/driftblend/api/internal/blend"
	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/model"
)

// RadioService exposes the seeded radio operation.
type RadioService struct {
	dispatcher *dispatch.Dispatcher
}

func NewRadioService(dispatcher *dispatch.Dispatcher) *RadioService {
	return &RadioService{dispatcher: dispatcher}
}

// Radio resolves the named seeds and starts a recommendation stream. The
// synchronous path returns the resolved seeds alongside the track ids.
func (s *RadioService) Radio(ctx context.Context, userID, username string, req *model.RadioRequest) (*model.EnqueueResponse, *blend.RadioResult, error) {
	payload := model.RadioPayload{
		UserID:         userID,
		Username:       username,
		ArtistNames:    req.ArtistNames,
		GenreNames:     req.GenreNames,
		TrackNames:     req.TrackNames,
		Limit:          req.Limit,
		Attributes:     req.Attributes,
		Device:         req.Device,
		Volume:         req.Volume,
		FilterExplicit: req.FilterExplicit,
	}

	if req.ReturnEarly {
		jobID, err := s.dispatcher.Enqueue(ctx, dispatch.TaskTypeRadio, userID, payload)
		if err != nil {
			return nil, nil, err
		}
		return &model.EnqueueResponse{JobID: jobID, Status: model.JobStatusQueued}, nil, nil
	}

	result, err := s.dispatcher.RunNow(ctx, dispatch.TaskTypeRadio, payload)
	if err != nil {
		return nil, nil, err
	}
	radioResult, _ := result.(*blend.RadioResult)
	return nil, radioResult, nil
}
