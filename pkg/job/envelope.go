package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/Sternrassler/inpost-airmap/pkg/client"
)

// Envelope headers and content types.
const (
	HeaderContentType    = "Content-Type"
	HeaderProcessingInfo = "X-Processing-Info"

	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Envelope is the status answer returned to the invoking platform.
type Envelope struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
}

type successBody struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details successDetails `json:"details"`
}

type successDetails struct {
	PointsAdded           int     `json:"points_added"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	Bucket                string  `json:"bucket"`
	Key                   string  `json:"key"`
}

type errorBody struct {
	Error string `json:"error"`
}

// NewEnvelope maps a run outcome to a status envelope with a JSON body.
func NewEnvelope(result *Result, err error) Envelope {
	if err != nil {
		return errorEnvelope(err)
	}

	bucket, key := "", ""
	if result.Reference != nil {
		bucket, key = result.Reference.Bucket, result.Reference.Key
	}

	body := marshalBody(successBody{
		Status:  "success",
		Message: fmt.Sprintf("%s was successfully uploaded to %s bucket: %s", key, result.Storage, bucket),
		Details: successDetails{
			PointsAdded:           result.PointsAdded,
			ProcessingTimeSeconds: math.Round(result.Elapsed.Seconds()*100) / 100,
			Bucket:                bucket,
			Key:                   key,
		},
	})

	return Envelope{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			HeaderContentType:    ContentTypeJSON,
			HeaderProcessingInfo: processingInfo(result),
		},
		Body: body,
	}
}

// NewDocumentEnvelope answers a successful run with the rendered map itself.
// Failures produce the same envelope as NewEnvelope.
func NewDocumentEnvelope(result *Result, err error) Envelope {
	if err != nil {
		return errorEnvelope(err)
	}
	return Envelope{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			HeaderContentType:    ContentTypeHTML,
			HeaderProcessingInfo: processingInfo(result),
		},
		Body: string(result.Document),
	}
}

func processingInfo(result *Result) string {
	return fmt.Sprintf("Processed %d pages with %d points in %.2f seconds.",
		result.TotalPages, result.Items, result.Elapsed.Seconds())
}

// errorEnvelope renders failures. Configuration and probe failures carry a
// plain message; upload and unexpected failures carry a JSON error object.
func errorEnvelope(err error) Envelope {
	var (
		apiErr *client.APIError
		pubErr *PublishError
	)

	switch {
	case errors.Is(err, client.ErrMissingToken):
		return textEnvelope("Error: INPOST_API_TOKEN environment variable not set.")
	case errors.Is(err, client.ErrUpstreamFormat):
		return textEnvelope(`Error: API response format unexpected. "total_pages" not found.`)
	case errors.As(err, &apiErr):
		return textEnvelope(apiErr.Message)
	case errors.As(err, &pubErr):
		return jsonErrorEnvelope(fmt.Sprintf("An error occurred during %s upload: %v", pubErr.Backend, pubErr.Err))
	default:
		return jsonErrorEnvelope(fmt.Sprintf("An unexpected error occurred: %v", err))
	}
}

func textEnvelope(message string) Envelope {
	return Envelope{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{HeaderContentType: ContentTypeText},
		Body:       message,
	}
}

func jsonErrorEnvelope(message string) Envelope {
	return Envelope{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{HeaderContentType: ContentTypeJSON},
		Body:       marshalBody(errorBody{Error: message}),
	}
}

// marshalBody encodes v without HTML escaping so upstream error texts keep
// their <, > and & characters.
func marshalBody(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
