package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autoassist/backend/internal/manual"
)

// @Summary Upload a service manual
// @Description Replaces the currently indexed manual with the uploaded text document
// @Tags manual
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "manual.txt or manual.md"
// @Success 200 {object} manual.Status
// @Failure 400 {object} map[string]any
// @Router /api/manual/upload [post]
func (h *Handler) ManualUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".txt" && ext != ".md" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .txt or .md", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "failed to open file", err.Error())
		return
	}
	defer f.Close()

	text, err := io.ReadAll(f)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL", "failed to read file", err.Error())
		return
	}
	if len(strings.TrimSpace(string(text))) == 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is empty", nil)
		return
	}

	idx := manual.NewIndex(fileHeader.Filename, string(text))

	h.manualMu.Lock()
	h.manualIndex = idx
	h.manualMu.Unlock()

	h.Logger.Info().Str("file", fileHeader.Filename).Int("chunks", idx.Status().TotalChunks).Msg("manual indexed")
	c.JSON(http.StatusOK, idx.Status())
}

func (h *Handler) ManualSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "q is required", nil)
		return
	}
	topK, _ := strconv.Atoi(c.DefaultQuery("top_k", "5"))

	h.manualMu.RLock()
	idx := h.manualIndex
	h.manualMu.RUnlock()
	if idx == nil {
		writeError(c, http.StatusBadRequest, "NO_MANUAL", "No manual has been uploaded", nil)
		return
	}

	results := idx.Search(query, topK)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) ManualStatus(c *gin.Context) {
	h.manualMu.RLock()
	idx := h.manualIndex
	h.manualMu.RUnlock()
	if idx == nil {
		c.JSON(http.StatusOK, gin.H{"indexed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": true, "status": idx.Status()})
}
