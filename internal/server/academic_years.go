package server

import (
	"net/http"
	"strings"

	academicyeardomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/domain"
	"github.com/gin-gonic/gin"
)

type createAcademicYearRequest struct {
	Year     int  `json:"year"`
	IsActive bool `json:"is_active"`
}

func (s *Server) CreateAcademicYear(c *gin.Context) {
	var req createAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.academicYearSvc.Create(c.Request.Context(), academicyeardomain.CreateAcademicYearRequest{
		Year:     req.Year,
		IsActive: req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAcademicYears(c *gin.Context) {
	resp, err := s.academicYearSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAcademicYear(c *gin.Context) {
	resp, err := s.academicYearSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateAcademicYear(c *gin.Context) {
	resp, err := s.academicYearSvc.Activate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteAcademicYear(c *gin.Context) {
	if err := s.academicYearSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
