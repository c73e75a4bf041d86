package service

import (
	"context"

	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/model"
)

// BlendService exposes the blend operation.
type BlendService struct {
	dispatcher *dispatch.Dispatcher
}

func NewBlendService(dispatcher *dispatch.Dispatcher) *BlendService {
	return &BlendService{dispatcher: dispatcher}
}

// Blend generates the profile's track mix into the placeholder playlist.
// The synchronous path returns the generated tracks and playlist.
func (s *BlendService) Blend(ctx context.Context, userID, username string, req *model.BlendRequest) (*model.EnqueueResponse, *model.BlendResult, error) {
	payload := model.BlendPayload{
		UserID:         userID,
		Username:       username,
		BlendID:        req.BlendID,
		Device:         req.Device,
		DeviceID:       req.DeviceID,
		Volume:         req.Volume,
		FilterExplicit: req.FilterExplicit,
		Fade:           req.Fade,
		Play:           req.Play,
		Attributes:     req.Attributes,
		Order:          req.Order,
	}

	if req.ReturnEarly {
		jobID, err := s.dispatcher.Enqueue(ctx, dispatch.TaskTypeBlend, userID, payload)
		if err != nil {
			return nil, nil, err
		}
		return &model.EnqueueResponse{JobID: jobID, Status: model.JobStatusQueued}, nil, nil
	}

	result, err := s.dispatcher.RunNow(ctx, dispatch.TaskTypeBlend, payload)
	if err != nil {
		return nil, nil, err
	}
	blendResult, _ := result.(*model.BlendResult)
	return nil, blendResult, nil
}
