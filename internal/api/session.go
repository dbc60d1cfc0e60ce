package api

import (
	"context"
	"net/http"
	"time"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/danielgtaylor/huma/v2"
)

// sessionData assembles the current session snapshot. Geometry and
// device fields are populated only while a graph is live.
func (s *Server) sessionData() models.SessionData {
	data := models.SessionData{
		State:      string(s.session.State()),
		Connected:  s.driver.Connected(),
		RecordPath: s.session.RecordPath(),
		Codec:      s.driver.Codec(),
		FileFormat: s.driver.FileFormat(),
	}

	if device, err := s.session.Device(); err == nil {
		data.Device = device.Name
	}
	if geometry, err := s.session.Geometry(); err == nil {
		data.Width = geometry.Width
		data.Height = geometry.Height
		data.BitDepth = geometry.BitDepth
		data.FPS = geometry.FPS
	}
	if at := s.session.LastFrameAt(); !at.IsZero() {
		data.LastFrame = at.Format(time.RFC3339)
	}
	if lastErr := s.session.LastError(); lastErr != nil {
		data.LastError = lastErr.Error()
	}

	return data
}

// registerSessionRoutes registers session lifecycle endpoints
func (s *Server) registerSessionRoutes() {
	// Get current session state
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Session",
		Description: "Get the current capture session state",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	// Connect or disconnect the capture graph
	huma.Register(s.api, huma.Operation{
		OperationID: "set-connected",
		Method:      http.MethodPost,
		Path:        "/api/session/connected",
		Summary:     "Connect",
		Description: "Connect or disconnect the capture graph. Repeating the current state is a no-op.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, input *models.ConnectedInput) (*models.SessionResponse, error) {
		if err := s.driver.SetConnected(input.Body.Connected); err != nil {
			return nil, mapDriverError(err, "Failed to change connection state")
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	// Start recording
	huma.Register(s.api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/api/recording",
		Summary:     "Start Recording",
		Description: "Switch the running session into a file-writing topology. The target path must not exist yet.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, input *models.RecordingInput) (*models.SessionResponse, error) {
		if err := s.driver.StartRecording(input.Body.Path); err != nil {
			return nil, mapDriverError(err, "Failed to start recording")
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	// Stop recording
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodDelete,
		Path:        "/api/recording",
		Summary:     "Stop Recording",
		Description: "End the active recording and restore the preview topology",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 409, 500},
	}, func(ctx context.Context, input *struct{}) (*models.SessionResponse, error) {
		if err := s.driver.StopRecording(); err != nil {
			return nil, mapDriverError(err, "Failed to stop recording")
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})
}
