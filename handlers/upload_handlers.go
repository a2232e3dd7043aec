package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"yieldboard/models"
)

type UploadHandlers struct {
	Dir      string
	MaxBytes int64
}

func NewUploadHandlers(dir string, maxBytes int64) *UploadHandlers {
	return &UploadHandlers{Dir: dir, MaxBytes: maxBytes}
}

// CatchFile stores the multipart field "file" as <uuid>_<basename>.
func (h *UploadHandlers) CatchFile(c *gin.Context) {
	if h.MaxBytes > 0 {
		if c.Request.ContentLength > h.MaxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds the %d byte limit", h.MaxBytes)})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds the %d byte limit", h.MaxBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "A multipart field named 'file' is required"})
		return
	}

	base := filepath.Base(filepath.Clean("/" + fh.Filename))
	if base == "/" || base == "." {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File name is empty"})
		return
	}
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		log.Errorf("Error creating upload dir %s: %v", h.Dir, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	dst := filepath.Join(h.Dir, uuid.New().String()+"_"+base)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		log.Errorf("Error saving upload %s: %v", dst, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	log.WithFields(log.Fields{"file": base, "size": fh.Size, "user": c.GetString("user_email")}).Info("File uploaded")
	c.JSON(http.StatusOK, models.UploadResponse{
		Message:   "File uploaded successfully",
		Filename:  base,
		Size:      fh.Size,
		SavedTo:   dst,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
