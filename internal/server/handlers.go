package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
}

// createImport runs an uploaded file through the pipeline and returns the report.
// 200 means the run finished (issues are in the report), 422 an unreadable
// file, 503 an infrastructure failure.
func (s *Server) createImport(c *gin.Context) {
	logger := loggerFrom(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "multipart field \"file\" is required"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	defer f.Close()

	in := pipeline.Input{
		Source: header.Filename,
		Decode: func() ([]model.RawRow, error) { return s.registry.Decode(header.Filename, f) },
	}
	report, err := s.runner.Run(c.Request.Context(), in)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, apperrors.ErrCorruptInput) {
			status = http.StatusUnprocessableEntity
			logger.Warn("upload could not be decoded", zap.String("file", header.Filename), zap.Error(err))
		} else {
			logger.Error("import failed", zap.String("file", header.Filename), zap.Error(err))
		}
		if report != nil {
			c.JSON(status, report)
			return
		}
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}

	logger.Info("import finished",
		zap.String("run_id", report.RunID),
		zap.String("status", string(report.Status)),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
	)
	c.JSON(http.StatusOK, report)
}

func (s *Server) reportSchema(c *gin.Context) {
	c.JSON(http.StatusOK, ReportSchema())
}

// ReportSchema returns the JSON schema of an import report.
func ReportSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(&model.Report{})
}
