package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/spimexpulse/internal/domain/dto"
	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/ingestion"
	"github.com/guttosm/spimexpulse/internal/middleware"
)

const ingestionDoneMessage = "ingestion completed"

// Ingestor runs one ingestion over the window ending at targetDate.
type Ingestor interface {
	Run(ctx context.Context, targetDate time.Time, opts ingestion.RunOptions) (*ingestion.Summary, error)
}

// IngestionHandler exposes the ingestion pipeline over HTTP.
type IngestionHandler struct {
	ingestor Ingestor
}

func NewIngestionHandler(ingestor Ingestor) *IngestionHandler {
	return &IngestionHandler{ingestor: ingestor}
}

// Ingest handles GET /api/v1/.
//
// Failures are reported to the client as one generic message; the coordinator logs the cause.
//
// Ingest godoc
// @Summary      Ingest bulletins
// @Description  Downloads, parses and stores every daily bulletin from today back to target_date
// @Tags         ingestion
// @Produce      json
// @Param        target_date  query     string  true   "Oldest date to ingest (YYYY-MM-DD)" example(2024-01-01)
// @Param        force        query     bool    false  "Re-ingest dates that are already stored"
// @Success      200          {object}  dto.IngestionResponse  "Success"
// @Failure      400          {object}  dto.ErrorResponse      "Bad Request"
// @Router       /api/v1/ [get]
func (h *IngestionHandler) Ingest(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("target_date"))
	if raw == "" {
		middleware.AbortWithError(c, http.StatusBadRequest, "target_date is required", nil)
		return
	}
	target, err := models.ParseDate(raw)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid target_date format, expected YYYY-MM-DD", err)
		return
	}

	var opts ingestion.RunOptions
	if s := c.Query("force"); s != "" {
		force, err := strconv.ParseBool(s)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, "invalid force, expected true or false", err)
			return
		}
		opts.Force = force
	}

	sum, err := h.ingestor.Run(c.Request.Context(), target, opts)
	if err != nil {
		// the coordinator has already logged the cause
		middleware.AbortWithError(c, http.StatusBadRequest, ingestion.ErrIngestionFailed.Error(), nil)
		return
	}

	c.JSON(http.StatusOK, dto.IngestionResponse{
		ResponseMessage:     ingestionDoneMessage,
		WindowStart:         sum.WindowStart.Format(models.DateLayout),
		WindowEnd:           sum.WindowEnd.Format(models.DateLayout),
		DatesRequested:      sum.DatesRequested,
		DatesSkipped:        sum.DatesSkipped,
		BulletinsDownloaded: sum.BulletinsDownloaded,
		BulletinsMissing:    sum.BulletinsMissing,
		RecordsInserted:     sum.RecordsInserted,
	})
}
