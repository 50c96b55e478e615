package dto

import (
	"time"

	"github.com/noah-isme/unigrading-api/internal/models"
)

// RoleShare is one slice of the role distribution.
type RoleShare struct {
	Role       models.Role `json:"role"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
}

// AdminMetrics aggregates system-wide counters for administrators.
type AdminMetrics struct {
	TotalUsers          int         `json:"totalUsers"`
	TotalTeachers       int         `json:"totalTeachers"`
	TotalStudents       int         `json:"totalStudents"`
	TotalAdmins         int         `json:"totalAdmins"`
	TotalClassrooms     int         `json:"totalClassrooms"`
	TotalGrades         int         `json:"totalGrades"`
	ActiveUsers         int         `json:"activeUsers"`
	RecentRegistrations int         `json:"recentRegistrations"`
	RoleDistribution    []RoleShare `json:"roleDistribution"`
	GeneratedAt         time.Time   `json:"generatedAt"`
}

// ClassroomSummary carries per-classroom counters.
type ClassroomSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Course       string `json:"course"`
	StudentCount int    `json:"studentCount"`
	CreatedAt    int64  `json:"createdAt"`
}

// TeacherStats summarises one teacher's footprint.
type TeacherStats struct {
	ClassroomCount      int `json:"classroomCount"`
	TotalStudents       int `json:"totalStudents"`
	GradesAssignedCount int `json:"gradesAssignedCount"`
}

// TeacherDashboard is the teacher landing view.
type TeacherDashboard struct {
	WalletAddress string             `json:"walletAddress"`
	Stats         TeacherStats       `json:"stats"`
	Classrooms    []ClassroomSummary `json:"classrooms"`
	GeneratedAt   time.Time          `json:"generatedAt"`
}

// StudentGrade decorates a grade with its display band.
type StudentGrade struct {
	models.Grade
	Band models.GradeBand `json:"band"`
}

// StudentDashboard is the student landing view.
type StudentDashboard struct {
	WalletAddress  string         `json:"walletAddress"`
	Grades         []StudentGrade `json:"grades"`
	GradeCount     int            `json:"gradeCount"`
	Average        int            `json:"average"`
	ExcellentCount int            `json:"excellentCount"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// UserStats holds the role-specific counters on the user detail view. Fields not relevant to the
// user's role are omitted. Times are milliseconds since epoch.
type UserStats struct {
	Classrooms     *int   `json:"classrooms,omitempty"`
	GradesAssigned *int   `json:"gradesAssigned,omitempty"`
	TotalStudents  *int   `json:"totalStudents,omitempty"`
	GradesReceived *int   `json:"gradesReceived,omitempty"`
	AverageGrade   *int   `json:"averageGrade,omitempty"`
	LastActivity   *int64 `json:"lastActivity,omitempty"`
	AdminSince     *int64 `json:"adminSince,omitempty"`
	SystemAccess   string `json:"systemAccess,omitempty"`
}

// Activity kinds on the user timeline.
const (
	ActivityRegistration     = "registration"
	ActivityClassroomCreated = "classroom_created"
	ActivityGradeReceived    = "grade_received"
	ActivityGradeAssigned    = "grade_assigned"
)

// Activity is one timeline entry; Timestamp is milliseconds since epoch.
type Activity struct {
	Type        string                 `json:"type"`
	Timestamp   int64                  `json:"timestamp"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// UserDetail is the administrator's view of one account.
type UserDetail struct {
	User     models.User `json:"user"`
	Stats    UserStats   `json:"stats"`
	Activity []Activity  `json:"activity"`
}
