package ivk

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetra-ai/interviewkit/pkg/core"
	"github.com/vetra-ai/interviewkit/pkg/core/upload"
)

// MediaSlot is a pre-signed upload destination issued by the service. The
// URL accepts the byte-range PUTs of the upload package until it expires.
type MediaSlot struct {
	FileID    string    `json:"fileId"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MediaService issues upload slots for interview attachments.
type MediaService struct {
	client *Client
}

// CreateSlot registers the file with the service and returns its slot.
// Full pre-upload validation (MIME allow-list, size and name limits) is
// the upload manager's job; this only rejects requests the service could
// never accept.
func (s *MediaService) CreateSlot(ctx context.Context, meta upload.FileMeta) (*MediaSlot, error) {
	if meta.Name == "" {
		return nil, core.NewInvalidRequestError("file name must not be empty")
	}
	if meta.Size <= 0 {
		return nil, core.NewInvalidRequestError("file size must be positive")
	}

	ctx, span := s.client.tracer.Start(ctx, "ivk.media.create_slot",
		trace.WithAttributes(
			attribute.String("file.name", meta.Name),
			attribute.Int64("file.size", meta.Size),
			attribute.String("file.mime_type", meta.MIMEType),
		))
	defer span.End()

	var slot MediaSlot
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/media/slots", meta, &slot); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot creation failed")
		return nil, err
	}
	if slot.UploadURL == "" {
		return nil, core.NewAPIError("service returned a slot without an upload url")
	}
	return &slot, nil
}
