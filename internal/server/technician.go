package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	techniciandomain "github.com/smallbiznis/repairdesk/internal/technician/domain"
)

func (s *Server) CreateTechnician(c *gin.Context) {
	var req techniciandomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tech, err := s.technicianSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tech})
}

func (s *Server) ListTechnicians(c *gin.Context) {
	activeOnly, err := queryFlag(c, "active")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	techs, err := s.technicianSvc.List(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": techs})
}

func (s *Server) GetTechnicianByID(c *gin.Context) {
	tech, err := s.technicianSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tech})
}

func (s *Server) DeactivateTechnician(c *gin.Context) {
	if err := s.technicianSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
