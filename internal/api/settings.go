package api

import (
	"context"
	"net/http"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/danielgtaylor/huma/v2"
)

// registerSettingsRoutes registers settings endpoints
func (s *Server) registerSettingsRoutes() {
	// Get current settings
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Settings",
		Description: "Get the persisted driver settings",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SettingsResponse, error) {
		return &models.SettingsResponse{Body: s.settings.Get()}, nil
	})

	// Replace settings
	huma.Register(s.api, huma.Operation{
		OperationID: "put-settings",
		Method:      http.MethodPut,
		Path:        "/api/settings",
		Summary:     "Update Settings",
		Description: "Replace the persisted driver settings. A live session rebinds to the new preferences; rebinding is deferred while recording.",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *models.SettingsInput) (*models.SettingsResponse, error) {
		if err := s.settings.Update(input.Body); err != nil {
			return nil, huma.Error500InternalServerError("Failed to persist settings", err)
		}
		if err := s.session.ReloadConfiguration(); err != nil {
			return nil, huma.Error500InternalServerError("Settings saved but rebinding failed", err)
		}
		return &models.SettingsResponse{Body: s.settings.Get()}, nil
	})
}
