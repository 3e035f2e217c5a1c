package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"example.com/backstage/services/interactions/internal/models"
	"example.com/backstage/services/interactions/internal/repository"
	"example.com/backstage/services/interactions/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultSkip  = 0
	defaultLimit = 100
)

// InteractionHandler handles interaction-related requests
type InteractionHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewInteractionHandler creates a new InteractionHandler instance
func NewInteractionHandler(svc service.Service, log *logrus.Logger) *InteractionHandler {
	return &InteractionHandler{
		service: svc,
		log:     log,
	}
}

// ListInteractions handles GET /interactions/?skip=&limit=
func (h *InteractionHandler) ListInteractions(c *gin.Context) {
	skip, ok := h.queryInt(c, "skip", defaultSkip)
	if !ok {
		return
	}
	limit, ok := h.queryInt(c, "limit", defaultLimit)
	if !ok {
		return
	}

	interactions, err := h.service.ListInteractions(c.Request.Context(), skip, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list interactions")
		respondError(c, http.StatusInternalServerError, "Failed to list interactions", nil)
		return
	}

	c.JSON(http.StatusOK, interactions)
}

// CreateInteraction handles POST /interactions/
func (h *InteractionHandler) CreateInteraction(c *gin.Context) {
	var in models.InteractionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.WithError(err).Warn("Invalid interaction format")
		respondError(c, http.StatusUnprocessableEntity, "Invalid interaction format", bindingDetails(err))
		return
	}

	interaction, err := h.service.CreateInteraction(c.Request.Context(), &in)
	if err != nil {
		h.log.WithError(err).Error("Failed to create interaction")
		respondError(c, http.StatusInternalServerError, "Failed to create interaction", nil)
		return
	}

	c.JSON(http.StatusCreated, interaction)
}

// GetInteraction handles GET /interactions/:id
func (h *InteractionHandler) GetInteraction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	interaction, err := h.service.GetInteraction(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, id, "Failed to get interaction")
		return
	}

	c.JSON(http.StatusOK, interaction)
}

// UpdateInteraction handles PUT /interactions/:id as a full replace
func (h *InteractionHandler) UpdateInteraction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var in models.InteractionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.log.WithError(err).Warn("Invalid interaction format")
		respondError(c, http.StatusUnprocessableEntity, "Invalid interaction format", bindingDetails(err))
		return
	}

	interaction, err := h.service.UpdateInteraction(c.Request.Context(), id, &in)
	if err != nil {
		h.storeError(c, err, id, "Failed to update interaction")
		return
	}

	c.JSON(http.StatusOK, interaction)
}

// DeleteInteraction handles DELETE /interactions/:id
func (h *InteractionHandler) DeleteInteraction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteInteraction(c.Request.Context(), id); err != nil {
		h.storeError(c, err, id, "Failed to delete interaction")
		return
	}

	c.Status(http.StatusNoContent)
}

// pathID parses :id. A well-formed id beyond the bigserial range cannot
// exist and is answered with 404 without touching the store.
func (h *InteractionHandler) pathID(c *gin.Context) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 63)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			respondError(c, http.StatusNotFound, "Interaction not found", nil)
			return 0, false
		}
		respondError(c, http.StatusUnprocessableEntity, "Invalid interaction ID", []FieldError{
			{Field: "id", Message: "must be a non-negative integer"},
		})
		return 0, false
	}
	return uint(id), true
}

func (h *InteractionHandler) queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present {
		return def, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, http.StatusUnprocessableEntity, "Invalid query parameter", []FieldError{
			{Field: name, Message: "must be a non-negative integer"},
		})
		return 0, false
	}
	return n, true
}

func (h *InteractionHandler) storeError(c *gin.Context, err error, id uint, message string) {
	if errors.Is(err, repository.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Interaction not found", nil)
		return
	}

	h.log.WithError(err).WithField("interaction_id", id).Error(message)
	respondError(c, http.StatusInternalServerError, message, nil)
}
