package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regdesk/internal/auth"
	"regdesk/internal/metrics"
	"regdesk/internal/registry"
)

func (s *Server) fail(c *gin.Context, err error) {
	cat := registry.CategoryOf(err)
	if cat == registry.CategoryGeneral {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(cat.Status(), gin.H{"success": false, "message": registry.PublicMessage(err)})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
}

func (s *Server) adminLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	admin, err := s.svc.AdminLogin(c.Request.Context(), req.Email, req.Password)
	s.metrics.Logins.WithLabelValues(auth.RoleAdmin, metrics.Outcome(err == nil)).Inc()
	if err != nil {
		s.fail(c, err)
		return
	}

	tok, err := s.issuer.Issue(admin.Email, auth.Claims{Role: auth.RoleAdmin, Email: admin.Email})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok.AccessToken})
}

func (s *Server) adminDashboard(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	admin, err := s.svc.AdminByEmail(claims.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": admin})
}

func (s *Server) listDepartments(c *gin.Context) {
	departments, err := s.svc.Departments(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"departments": departments})
}

func (s *Server) createDepartment(c *gin.Context) {
	var req registry.NewDepartment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	dept, err := s.svc.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.Departments.Inc()
	c.JSON(http.StatusCreated, gin.H{"success": true, "department": dept})
}

func (s *Server) departmentLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"dept_email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	dept, err := s.svc.DepartmentLogin(c.Request.Context(), req.Email, req.Password)
	s.metrics.Logins.WithLabelValues(auth.RoleDepartment, metrics.Outcome(err == nil)).Inc()
	if err != nil {
		s.fail(c, err)
		return
	}

	tok, err := s.issuer.Issue(strconv.FormatInt(dept.ID, 10), auth.Claims{Role: auth.RoleDepartment, Email: dept.Email, DeptID: dept.ID})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": tok.AccessToken})
}

func (s *Server) departmentProfile(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	dept, err := s.svc.Department(c.Request.Context(), claims.DeptID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "department": dept})
}

func (s *Server) listStudents(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	students, err := s.svc.Students(c.Request.Context(), claims.DeptID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) addStudent(c *gin.Context) {
	var req registry.NewStudent
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	student, err := s.svc.AddStudent(c.Request.Context(), claims.DeptID, req)
	s.metrics.Enrollments.WithLabelValues(metrics.Outcome(err == nil)).Inc()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "student": student})
}
