package server

import (
	"encoding/json"
	"net/http"
	"strings"

	importerdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/domain"
	studentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

const maxImportUpload = 8 << 20

type createStudentRequest struct {
	Name           string  `json:"name"`
	ClassLabel     string  `json:"class_label"`
	EnrollmentYear int     `json:"enrollment_year"`
	ParentName     string  `json:"parent_name"`
	ParentPhone    string  `json:"parent_phone"`
	ParentEmail    *string `json:"parent_email"`
	LoginID        string  `json:"login_id"`
	Password       string  `json:"password"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.studentSvc.Create(c.Request.Context(), studentdomain.CreateStudentRequest{
		Name:           strings.TrimSpace(req.Name),
		ClassLabel:     strings.TrimSpace(req.ClassLabel),
		EnrollmentYear: req.EnrollmentYear,
		ParentName:     strings.TrimSpace(req.ParentName),
		ParentPhone:    strings.TrimSpace(req.ParentPhone),
		ParentEmail:    req.ParentEmail,
		LoginID:        strings.TrimSpace(req.LoginID),
		Password:       req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListStudents(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClassLabel string `form:"class_label"`
		Name       string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.studentSvc.List(c.Request.Context(), studentdomain.ListStudentRequest{
		PageToken:  query.PageToken,
		PageSize:   query.PageSize,
		ClassLabel: strings.TrimSpace(query.ClassLabel),
		Name:       strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudent(c *gin.Context) {
	resp, err := s.studentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateStudent(c *gin.Context) {
	var req studentdomain.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.studentSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteStudent(c *gin.Context) {
	if err := s.studentSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ResetStudentPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.studentSvc.ResetPassword(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Password); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) PreviewStudentImport(c *gin.Context) {
	req, closeFn, err := bindImportRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer closeFn()

	resp, err := s.importSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CommitStudentImport(c *gin.Context) {
	req, closeFn, err := bindImportRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer closeFn()

	resp, err := s.importSvc.Commit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// bindImportRequest reads the multipart "file" part plus the optional "format" and
// "mapping" (a JSON object of header to field) form values.
func bindImportRequest(c *gin.Context) (importerdomain.Request, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportUpload)

	header, err := c.FormFile("file")
	if err != nil {
		return importerdomain.Request{}, nil, newValidationError("file", "file_required", "file is required")
	}

	var mapping map[string]string
	if raw := strings.TrimSpace(c.PostForm("mapping")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			return importerdomain.Request{}, nil, newValidationError("mapping", "invalid_mapping", "mapping must be a JSON object")
		}
	}

	file, err := header.Open()
	if err != nil {
		return importerdomain.Request{}, nil, invalidRequestError()
	}

	return importerdomain.Request{
		Filename: header.Filename,
		Format:   importerdomain.Format(strings.ToLower(strings.TrimSpace(c.PostForm("format")))),
		Content:  file,
		Mapping:  mapping,
	}, func() { _ = file.Close() }, nil
}
