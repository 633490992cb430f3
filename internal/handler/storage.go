package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"capbudget/internal/client/ibm"
)

// StorageHandler exposes read-only views of the solver bucket, mostly for
// operators checking what the last run left behind.
type StorageHandler struct {
	Store *ibm.ObjectStore
}

func (h *StorageHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/storage")
	group.GET("/objects", h.list)
	group.GET("/objects/:name", h.download)
	group.GET("/objects/:name/exists", h.exists)
}

// @Summary List bucket objects
// @Tags storage
// @Param prefix query string false "key prefix filter"
// @Success 200 {object} apiResponse
// @Router /api/v1/storage/objects [get]
func (h *StorageHandler) list(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "object store unavailable", nil)
		return
	}
	items, err := h.Store.List(c.Request.Context(), strings.TrimSpace(c.Query("prefix")))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *StorageHandler) download(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "object store unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	content, err := h.Store.Download(c.Request.Context(), name)
	if err != nil {
		var notFound *ibm.NotFoundError
		if errors.As(err, &notFound) {
			Error(c, http.StatusNotFound, "object not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	c.Data(http.StatusOK, "text/csv", content)
}

func (h *StorageHandler) exists(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "object store unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	Ok(c, gin.H{"name": name, "exists": h.Store.Exists(c.Request.Context(), name)}, nil)
}
