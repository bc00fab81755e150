package server

import (
	"net/http"
	"strings"

	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListNotifications(c *gin.Context) {
	var query struct {
		pagination.Pagination
		StudentID string `form:"student_id"`
		Type      string `form:"type"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListNotificationRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		StudentID: strings.TrimSpace(query.StudentID),
		Type:      strings.TrimSpace(query.Type),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
