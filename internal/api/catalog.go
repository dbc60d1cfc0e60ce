package api

import (
	"context"
	"net/http"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/danielgtaylor/huma/v2"
)

// registerCatalogRoutes registers device and compressor enumeration endpoints
func (s *Server) registerCatalogRoutes() {
	// List all capture devices
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List all available capture devices",
		Tags:        []string{"catalog"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.DevicesResponse, error) {
		devices := s.catalog.EnumerateCaptureDevices()
		return &models.DevicesResponse{
			Body: models.DevicesData{
				Devices: devices,
				Count:   len(devices),
			},
		}, nil
	})

	// List all compressors
	huma.Register(s.api, huma.Operation{
		OperationID: "list-compressors",
		Method:      http.MethodGet,
		Path:        "/api/compressors",
		Summary:     "List Compressors",
		Description: "List known compressors and whether each is installed on this host",
		Tags:        []string{"catalog"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.CompressorsResponse, error) {
		compressors := s.catalog.EnumerateCompressors()
		return &models.CompressorsResponse{
			Body: models.CompressorsData{
				Compressors: compressors,
				Count:       len(compressors),
			},
		}, nil
	})
}
