package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"askview/internal/app/askview"
	"askview/internal/domain/ask"
	askerrors "askview/internal/shared/errors"
	jsonx "askview/internal/shared/json"
)

type batchRequest struct {
	Items []askview.Request `json:"items"`
}

type batchResponse struct {
	Records []ask.Record `json:"records"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleDecode(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := validateBody(decodeRequestSchema, body); err != nil {
		s.writeError(c, err)
		return
	}
	var req askview.Request
	if err := jsonx.Unmarshal(body, &req); err != nil {
		s.writeError(c, askerrors.NewValidationError(err, "request body does not match schema"))
		return
	}

	rec, err := s.decoder.Decode(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDecodeBatch(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := validateBody(batchRequestSchema, body); err != nil {
		s.writeError(c, err)
		return
	}
	var req batchRequest
	if err := jsonx.Unmarshal(body, &req); err != nil {
		s.writeError(c, askerrors.NewValidationError(err, "request body does not match schema"))
		return
	}
	if len(req.Items) > s.maxBatch {
		s.writeError(c, &askerrors.PermanentError{
			Err:        fmt.Errorf("batch of %d items exceeds limit %d", len(req.Items), s.maxBatch),
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("batch exceeds the limit of %d items", s.maxBatch),
		})
		return
	}
	s.metrics.RecordBatchSize(c.Request.Context(), len(req.Items))

	records, err := s.decoder.DecodeBatch(c.Request.Context(), req.Items)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, batchResponse{Records: records})
}

func (s *Server) readBody(c *gin.Context) ([]byte, error) {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &askerrors.PermanentError{
				Err:        err,
				StatusCode: http.StatusRequestEntityTooLarge,
				Message:    "request body too large",
			}
		}
		return nil, askerrors.NewValidationError(err, "failed to read request body")
	}
	return body, nil
}
