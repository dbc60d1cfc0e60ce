package api

import (
	"context"
	"net/http"
	"time"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/logging"
	"github.com/danielgtaylor/huma/v2"
)

// LogsInput selects how many buffered entries to return
type LogsInput struct {
	Limit int `query:"limit" default:"100" example:"100" doc:"Maximum number of entries, newest last"`
}

// registerLogRoutes registers log retrieval endpoints
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Logs",
		Description: "Get recent log entries from the in-memory ring buffer",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *LogsInput) (*models.LogsResponse, error) {
		var all []logging.LogEntry
		if buffer := logging.GetBuffer(); buffer != nil {
			all = buffer.ReadAll()
		}
		if input.Limit > 0 && len(all) > input.Limit {
			all = all[len(all)-input.Limit:]
		}

		entries := make([]models.LogEntry, len(all))
		for i, entry := range all {
			entries[i] = models.LogEntry{
				Timestamp: entry.Timestamp.Format(time.RFC3339),
				Level:     entry.Level,
				Module:    entry.Module,
				Message:   entry.Message,
				Attrs:     entry.Attributes,
			}
		}

		return &models.LogsResponse{
			Body: models.LogsData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}
