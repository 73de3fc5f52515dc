package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/service"
)

type ForecastHandler struct {
	forecastService *service.ForecastService
	uploadDir       string
}

func NewForecastHandler(forecastService *service.ForecastService, uploadDir string) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService, uploadDir: uploadDir}
}

// Upload ingests a CSV sales export into the stored history
func (h *ForecastHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	path := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	count, err := h.forecastService.IngestCSV(c.Request.Context(), path)
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("failed to ingest upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "file ingested",
		"rows":    count,
	})
}

// RunBatch kicks off a whole-catalog forecast in the background
func (h *ForecastHandler) RunBatch(c *gin.Context) {
	// Detached context: the batch outlives the request
	go func() {
		batch, runID, err := h.forecastService.RunBatch(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("forecast batch failed")
			return
		}
		log.Info().
			Int64("run_id", runID).
			Int("predicted", len(batch.Predictions)).
			Int("skipped", len(batch.Skipped)).
			Msg("forecast batch persisted")
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "forecast batch started"})
}

// GetResults returns the latest run's recommendations, filtered by query
func (h *ForecastHandler) GetResults(c *gin.Context) {
	filter := domain.ResultsFilter{
		Category: c.Query("category"),
		StoreID:  c.Query("store_id"),
	}
	if raw := c.Query("product_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.ProductIDs = append(filter.ProductIDs, id)
			}
		}
	}
	if raw := c.Query("needs_reorder"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "needs_reorder must be a boolean"})
			return
		}
		filter.NeedsReorder = &v
	}

	records, err := h.forecastService.GetResults(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch results"})
		return
	}
	if records == nil {
		records = []domain.ForecastRecord{}
	}

	c.JSON(http.StatusOK, records)
}

// GetProductResult returns the latest recommendation for one product
func (h *ForecastHandler) GetProductResult(c *gin.Context) {
	productID := c.Param("product")
	record, err := h.forecastService.GetProductResult(c.Request.Context(), productID, c.Query("store_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch result"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast for product " + productID})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetReorders returns the products to reorder now, most urgent first
func (h *ForecastHandler) GetReorders(c *gin.Context) {
	records, err := h.forecastService.GetReorderList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reorder list"})
		return
	}
	if records == nil {
		records = []domain.ForecastRecord{}
	}

	c.JSON(http.StatusOK, records)
}

// GetSkipped returns the skip entries of the latest run
func (h *ForecastHandler) GetSkipped(c *gin.Context) {
	skips, err := h.forecastService.GetSkipped(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch skip entries"})
		return
	}
	if skips == nil {
		skips = []domain.SkipEntry{}
	}

	c.JSON(http.StatusOK, skips)
}
