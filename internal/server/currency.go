package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/repairdesk/internal/currency"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
)

func (s *Server) ListCurrencies(c *gin.Context) {
	refresh, err := queryFlag(c, "refresh")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.currencySvc.List(c.Request.Context(), currencydomain.ListRequest{
		Refresh: refresh,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateCurrency(c *gin.Context) {
	var req currencydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.currencySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) SetDefaultCurrency(c *gin.Context) {
	item, err := s.currencySvc.SetDefault(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// ResolveCurrency answers "which currency applies": ?code= is optional.
func (s *Server) ResolveCurrency(c *gin.Context) {
	refresh, err := queryFlag(c, "refresh")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.currencySvc.Resolve(c.Request.Context(), currencydomain.ResolveRequest{
		Code:    c.Query("code"),
		Refresh: refresh,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

// CurrencySymbol returns the display symbol for a code; unknown codes echo back.
func (s *Server) CurrencySymbol(c *gin.Context) {
	items, err := s.currencySvc.List(c.Request.Context(), currencydomain.ListRequest{})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	code := currencydomain.NormalizeCode(c.Param("code"))
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"code":   code,
		"symbol": currency.ResolveCurrencySymbol(items, code),
	}})
}
