package dto

import "github.com/noah-isme/unigrading-api/internal/models"

// StoreSnapshot is the raw store view for the debug console.
type StoreSnapshot struct {
	Entries        []models.StoreEntry `json:"entries"`
	TotalSize      int                 `json:"totalSize"`
	UserCount      int                 `json:"userCount"`
	ClassroomCount int                 `json:"classroomCount"`
	GradeCount     int                 `json:"gradeCount"`
	Errors         []string            `json:"errors,omitempty"`
}

// ClearResult reports what a debug deletion removed.
type ClearResult struct {
	RemovedKeys []string `json:"removedKeys"`
}
