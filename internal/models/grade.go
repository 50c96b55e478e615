package models

// Grade is one assignment outcome. Timestamp is milliseconds since epoch, unlike the
// second-based CreatedAt on users and classrooms.
type Grade struct {
	ID             string `json:"id"`
	StudentWallet  string `json:"studentWallet"`
	TeacherWallet  string `json:"teacherWallet"`
	TeacherName    string `json:"teacherName"`
	AssignmentName string `json:"assignmentName"`
	Grade          int    `json:"grade"`
	MaxGrade       int    `json:"maxGrade"`
	Percentage     int    `json:"percentage"`
	Timestamp      int64  `json:"timestamp"`
}

// GradeBand buckets a percentage for display.
type GradeBand string

const (
	BandExcellent GradeBand = "excellent"
	BandGood      GradeBand = "good"
	BandFair      GradeBand = "fair"
	BandPoor      GradeBand = "poor"
)

// BandFor returns the band a percentage falls into.
func BandFor(percentage int) GradeBand {
	switch {
	case percentage >= 90:
		return BandExcellent
	case percentage >= 80:
		return BandGood
	case percentage >= 70:
		return BandFair
	default:
		return BandPoor
	}
}
