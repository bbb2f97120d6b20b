package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
)

func (s *Server) CreateRepair(c *gin.Context) {
	var req repairdomain.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.repairSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) ListRepairs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status       string `form:"status"`
		TechnicianID string `form:"technician_id"`
		CustomerID   string `form:"customer_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := queryFlag(c, "active")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.repairSvc.List(c.Request.Context(), repairdomain.ListRequest{
		Status:       strings.TrimSpace(query.Status),
		TechnicianID: strings.TrimSpace(query.TechnicianID),
		CustomerID:   strings.TrimSpace(query.CustomerID),
		ActiveOnly:   active,
		PageToken:    query.PageToken,
		PageSize:     int32(query.PageSize),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRepair(c *gin.Context) {
	ticket, err := s.repairSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) UpdateRepair(c *gin.Context) {
	var req repairdomain.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	ticket, err := s.repairSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": repairdomain.NewTicketView(*ticket)})
}

func (s *Server) UpdateRepairStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.repairSvc.UpdateStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": repairdomain.NewTicketView(*ticket)})
}

func (s *Server) ListUrgentRepairs(c *gin.Context) {
	tickets, err := s.repairSvc.ListUrgent(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]repairdomain.TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, repairdomain.NewTicketView(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) RepairSummary(c *gin.Context) {
	summary, err := s.repairSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) AddRepairItem(c *gin.Context) {
	var req repairdomain.LineItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.repairSvc.AddItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateRepairItem(c *gin.Context) {
	var req repairdomain.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.RepairID = strings.TrimSpace(c.Param("id"))
	req.ItemID = strings.TrimSpace(c.Param("item_id"))

	item, err := s.repairSvc.UpdateItem(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) RemoveRepairItem(c *gin.Context) {
	err := s.repairSvc.RemoveItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("item_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CompleteRepairItem(c *gin.Context) {
	item, err := s.repairSvc.CompleteItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("item_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ListRepairDocuments(c *gin.Context) {
	docs, err := s.documentSvc.ListByRepair(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}
