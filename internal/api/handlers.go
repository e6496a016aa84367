package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"propvalue/server/internal/database"
	"propvalue/server/internal/models"
)

// Analyzer produces an analysis for a property. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, p *models.Property) models.Analysis
}

type Handler struct {
	store    database.PropertyStore
	analyzer Analyzer
	logger   *logrus.Logger
}

type AnalysisResponse struct {
	Property *models.Property `json:"property"`
	Analysis models.Analysis  `json:"analysis"`
}

func NewHandler(store database.PropertyStore, analyzer Analyzer, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Handler{
		store:    store,
		analyzer: analyzer,
		logger:   logger,
	}
}

func (h *Handler) GetAllProperties(c *gin.Context) {
	properties, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get properties"})
		return
	}

	c.JSON(http.StatusOK, properties)
}

func (h *Handler) GetProperty(c *gin.Context) {
	property, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var input models.PropertyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.WithError(err).Debug("Rejected malformed property body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, err := h.store.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}

	h.logger.WithField("property_id", property.ID).Info("Property created")
	c.JSON(http.StatusCreated, property)
}

func (h *Handler) UpdateProperty(c *gin.Context) {
	var patch models.PropertyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.logger.WithError(err).Debug("Rejected malformed property body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, err := h.store.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err, "Failed to update property")
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *Handler) DeleteProperty(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete property")
		return
	}

	h.logger.WithField("property_id", id).Info("Property deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

// AnalyzeProperty runs the gateway on a stored property and persists the
// result, replacing any earlier analysis.
func (h *Handler) AnalyzeProperty(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	property, err := h.store.Get(ctx, id)
	if err != nil {
		h.respondError(c, err, "Failed to analyze property")
		return
	}

	analysis := h.analyzer.Analyze(ctx, property)

	saved, err := h.store.SaveAnalysis(ctx, id, analysis)
	if err != nil {
		h.respondError(c, err, "Failed to save analysis")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"property_id": id,
		"confidence":  analysis.Confidence,
	}).Info("Property analyzed")
	c.JSON(http.StatusOK, AnalysisResponse{Property: saved, Analysis: analysis})
}

func (h *Handler) GetComparative(c *gin.Context) {
	properties, err := h.store.ListAnalyzed(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get analyzed properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get comparative analysis"})
		return
	}

	c.JSON(http.StatusOK, models.Comparative(properties))
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DEGRADED",
			"message": "Storage is unreachable",
			"storage": "unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "Server is running",
		"storage": "connected",
	})
}

func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property data", "fields": verr.Fields})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
	default:
		h.logger.WithError(err).WithField("property_id", c.Param("id")).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
