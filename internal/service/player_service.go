// Package service binds the HTTP layer to the dispatcher: each operation is
// either enqueued (return-early) or run synchronously, per caller choice.
package service

import (
	"context"

	"github.com/driftblend/api/internal/dispatch"
	"github.com/driftblend/api/internal/model"
)

// PlayerService exposes the play operation.
type PlayerService struct {
	dispatcher *dispatch.Dispatcher
}

func NewPlayerService(dispatcher *dispatch.Dispatcher) *PlayerService {
	return &PlayerService{dispatcher: dispatcher}
}

// Play starts playback for the user. With ReturnEarly the job is queued and
// a job id returned; otherwise the call blocks until playback started.
func (s *PlayerService) Play(ctx context.Context, userID, username string, req *model.PlayRequest) (*model.EnqueueResponse, error) {
	payload := model.PlayPayload{
		UserID:   userID,
		Username: username,
		Device:   req.Device,
		DeviceID: req.DeviceID,
		Artist:   req.Artist,
		Album:    req.Album,
		Playlist: req.Playlist,
		Tracks:   req.Tracks,
		Volume:   req.Volume,
		Fade:     req.Fade,
	}

	if req.ReturnEarly {
		jobID, err := s.dispatcher.Enqueue(ctx, dispatch.TaskTypePlay, userID, payload)
		if err != nil {
			return nil, err
		}
		return &model.EnqueueResponse{JobID: jobID, Status: model.JobStatusQueued}, nil
	}

	_, err := s.dispatcher.RunNow(ctx, dispatch.TaskTypePlay, payload)
	return nil, err
}
