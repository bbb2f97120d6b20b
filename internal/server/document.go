package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	"github.com/smallbiznis/repairdesk/internal/document/render"
)

func (s *Server) CreateQuote(c *gin.Context) {
	s.createDocument(c, s.documentSvc.CreateQuote)
}

func (s *Server) CreateInvoice(c *gin.Context) {
	s.createDocument(c, s.documentSvc.CreateInvoice)
}

func (s *Server) createDocument(c *gin.Context, create func(ctx context.Context, req documentdomain.CreateRequest) (*documentdomain.View, error)) {
	var req documentdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		req.RepairID = id
	}

	view, err := create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) GetDocument(c *gin.Context) {
	view, err := s.documentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) RegenerateDocument(c *gin.Context) {
	view, err := s.documentSvc.Regenerate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) UpdateQuoteStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.documentSvc.UpdateQuoteStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req documentdomain.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	view, err := s.documentSvc.RecordPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) DownloadDocumentPDF(c *gin.Context) {
	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	view, err := s.documentSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := s.documentSvc.RenderPDF(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", render.FileName(view.Document)))
	c.Data(http.StatusOK, "application/pdf", body)
}
