package api

import (
	"bytes"
	"context"
	"image/png"
	"net/http"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/danielgtaylor/huma/v2"
)

// registerFrameRoutes registers frame polling endpoints
func (s *Server) registerFrameRoutes() {
	// Poll the latest frame in typed encoding
	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame",
		Method:      http.MethodGet,
		Path:        "/api/frame",
		Summary:     "Frame",
		Description: "Poll the most recent translated frame as typed pixel rows",
		Tags:        []string{"frames"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 501},
	}, func(ctx context.Context, input *struct{}) (*models.FrameResponse, error) {
		frame, err := s.driver.LatestFrame()
		if err != nil {
			return nil, mapDriverError(err, "Failed to poll frame")
		}
		return &models.FrameResponse{
			Body: models.FrameData{
				Seq:      frame.Seq,
				Width:    frame.Width,
				Height:   frame.Height,
				Channels: frame.Channels,
				Pixels:   frame.Pixels,
			},
		}, nil
	})

	// Poll the latest frame in the loosely-typed encoding
	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame-variant",
		Method:      http.MethodGet,
		Path:        "/api/frame/variant",
		Summary:     "Frame Variant",
		Description: "Poll the most recent translated frame as loosely-typed cells",
		Tags:        []string{"frames"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 501},
	}, func(ctx context.Context, input *struct{}) (*models.VariantFrameResponse, error) {
		pixels, seq, err := s.driver.LatestVariant()
		if err != nil {
			return nil, mapDriverError(err, "Failed to poll frame")
		}
		return &models.VariantFrameResponse{
			Body: models.VariantFrameData{
				Seq:    seq,
				Pixels: pixels,
			},
		}, nil
	})

	// Poll the latest frame as a PNG thumbnail
	huma.Register(s.api, huma.Operation{
		OperationID: "get-frame-thumbnail",
		Method:      http.MethodGet,
		Path:        "/api/frame/thumbnail",
		Summary:     "Thumbnail",
		Description: "Poll the most recent frame downscaled to fit the given bounds, as PNG",
		Tags:        []string{"frames"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 501},
	}, func(ctx context.Context, input *models.ThumbnailInput) (*models.ThumbnailResponse, error) {
		img, _, err := s.driver.LatestThumbnail(input.MaxWidth, input.MaxHeight)
		if err != nil {
			return nil, mapDriverError(err, "Failed to derive thumbnail")
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, huma.Error500InternalServerError("Failed to encode thumbnail", err)
		}

		return &models.ThumbnailResponse{
			ContentType: "image/png",
			Body:        buf.Bytes(),
		}, nil
	})
}
