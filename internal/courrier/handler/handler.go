package handler

import (
	"errors"
	"net/http"

	"github.com/courrier-mf/courrier/internal/courrier"
	"github.com/courrier-mf/courrier/internal/courrier/service"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/gin-gonic/gin"
)

// courrierRequest is the editable part of a courrier. Identity, num,
// timestamps and the attachment key are owned by the server; DraftID links the
// file of an upload or scan draft on create.
type courrierRequest struct {
	Subject         string            `json:"subject"`
	Type            courrier.Type     `json:"type"`
	DateArrive      string            `json:"dateArrive"`
	DateEnregistrer string            `json:"dateEnregistrer"`
	DateRetour      string            `json:"dateRetour"`
	Status          courrier.Status   `json:"status"`
	Priority        courrier.Priority `json:"priority"`
	From            courrier.Endpoint `json:"from"`
	To              courrier.Endpoint `json:"to"`
	DraftID         string            `json:"draftId"`
}

func (r courrierRequest) document() *courrier.Document {
	return &courrier.Document{
		Subject:         r.Subject,
		Type:            r.Type,
		DateArrive:      r.DateArrive,
		DateEnregistrer: r.DateEnregistrer,
		DateRetour:      r.DateRetour,
		Status:          r.Status,
		Priority:        r.Priority,
		From:            r.From,
		To:              r.To,
	}
}

type courrierView struct {
	*courrier.Document
	PriorityIndicator courrier.Indicator `json:"priorityIndicator"`
}

func view(d *courrier.Document) courrierView {
	return courrierView{Document: d, PriorityIndicator: courrier.PriorityIndicator(d.Type, d.Status, d.Priority)}
}

// writeError maps service errors onto the API error body.
func writeError(c *gin.Context, err error) {
	var ve *courrier.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": ve.Problems})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrNoAttachment):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownDraft):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrScannerUnsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": service.ScannerFallbackMessage})
	default:
		logger.Errorf("courrier request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// RegisterCourrierRoutes mounts the register API on r.
func RegisterCourrierRoutes(r gin.IRouter, svc service.Service) {
	r.GET("/api/catalog", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Catalog())
	})

	r.GET("/api/courriers", func(c *gin.Context) {
		f := courrier.Filter{
			Search:    c.Query("search"),
			Type:      c.Query("type"),
			Status:    c.Query("status"),
			DateStart: c.Query("dateStart"),
			DateEnd:   c.Query("dateEnd"),
		}
		if err := f.Check(); err != nil {
			var ve *courrier.ValidationError
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter", "fields": ve.Problems})
				return
			}
		}
		list, err := svc.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]courrierView, 0, len(list))
		for _, d := range list {
			out = append(out, view(d))
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/api/courriers/stats", func(c *gin.Context) {
		st, err := svc.Stats(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	})

	r.GET("/api/courriers/form", func(c *gin.Context) {
		t := c.Query("type")
		if t == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type query parameter is required"})
			return
		}
		form, err := svc.Form(courrier.Type(t))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, form)
	})

	r.POST("/api/courriers", func(c *gin.Context) {
		var req courrierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var d *courrier.Document
		var err error
		if req.DraftID != "" {
			d, err = svc.CreateFromDraft(c.Request.Context(), req.document(), req.DraftID)
		} else {
			d, err = svc.Create(c.Request.Context(), req.document())
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view(d))
	})

	r.GET("/api/courriers/:id", func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view(d))
	})

	r.PUT("/api/courriers/:id", func(c *gin.Context) {
		var req courrierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Update(c.Request.Context(), c.Param("id"), req.document())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view(d))
	})

	r.PATCH("/api/courriers/:id/type", func(c *gin.Context) {
		var req struct {
			Type courrier.Type `json:"type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.ChangeType(c.Request.Context(), c.Param("id"), req.Type)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view(d))
	})

	r.POST("/api/courriers/:id/archive", func(c *gin.Context) {
		d, err := svc.Archive(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view(d))
	})

	r.GET("/api/courriers/:id/download", func(c *gin.Context) {
		dl, err := svc.Download(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dl)
	})

	r.PUT("/api/courriers/:id/attachment", func(c *gin.Context) {
		var req struct {
			DraftID string `json:"draftId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Attach(c.Request.Context(), c.Param("id"), req.DraftID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view(d))
	})

	r.DELETE("/api/courriers/:id/attachment", func(c *gin.Context) {
		d, err := svc.Detach(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view(d))
	})

	r.DELETE("/api/courriers/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.POST("/api/courriers/drafts/upload", func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(c, err)
			return
		}
		defer f.Close()
		draft, err := svc.DraftFromUpload(c.Request.Context(), fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, draft)
	})

	r.POST("/api/courriers/drafts/scan", func(c *gin.Context) {
		draft, err := svc.DraftFromScan(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, draft)
	})
}
