package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/middleware"
	"github.com/shopmind/shopmind-backend/internal/services"
)

type LayoutHandler struct {
	log     *logger.Logger
	service *services.LayoutService
}

func NewLayoutHandler(log *logger.Logger, service *services.LayoutService) *LayoutHandler {
	return &LayoutHandler{log: log.With("Handler", "LayoutHandler"), service: service}
}

// Get handles GET /api/layout/:pageType. The draft is the editor's view;
// ?status=published returns the active published version instead.
func (h *LayoutHandler) Get(c *gin.Context) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Errorf("missing store context"))
		return
	}
	pageType := c.Param("pageType")

	if c.Query("status") == "published" {
		doc, err := h.service.GetPublished(c.Request.Context(), storeID, pageType)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "NOT_PUBLISHED", fmt.Errorf("page %q has no published version", pageType))
			return
		}
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "LAYOUT_LOAD_FAILED", err)
			return
		}
		RespondOK(c, doc)
		return
	}

	doc, err := h.service.GetOrCreateDraft(c.Request.Context(), storeID, pageType)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "LAYOUT_LOAD_FAILED", err)
		return
	}
	RespondOK(c, doc)
}

// Publish handles POST /api/layout/:pageType/publish.
func (h *LayoutHandler) Publish(c *gin.Context) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Errorf("missing store context"))
		return
	}
	pageType := c.Param("pageType")

	doc, err := h.service.Publish(c.Request.Context(), storeID, pageType)
	if err != nil {
		h.log.Error("publish failed", "page_type", pageType, "error", err)
		RespondError(c, http.StatusConflict, "PUBLISH_FAILED", err)
		return
	}
	RespondOK(c, doc)
}
