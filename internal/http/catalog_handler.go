package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cohabisafe/internal/catalog"
)

// CatalogHandler serves catalog sections as JSON for the external
// rendering layer.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// GetSection handles GET /catalog/sections/:id.
func (h *CatalogHandler) GetSection(c *gin.Context) {
	sec, err := h.catalog.Section(c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownSection) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown section"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load section"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version": h.catalog.Version,
		"section": sec,
	})
}
