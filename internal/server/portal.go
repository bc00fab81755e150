package server

import (
	"net/http"
	"strings"

	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	obscontext "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/context"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

// PortalStudentFees lists a student's fees with the effective status a parent should see.
func (s *Server) PortalStudentFees(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("id"))
	ctx := obscontext.WithActor(c.Request.Context(), actorPortal, studentID)

	if _, err := s.studentSvc.Get(ctx, studentID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.feeSvc.StudentFees(ctx, studentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PortalStudentOtherPayments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	studentID := strings.TrimSpace(c.Param("id"))
	ctx := obscontext.WithActor(c.Request.Context(), actorPortal, studentID)

	if _, err := s.studentSvc.Get(ctx, studentID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.otherPaymentSvc.List(ctx, otherpaymentdomain.ListOtherPaymentRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		StudentID: studentID,
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
