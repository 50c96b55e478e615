// Package stats derives counters and averages from in-memory collections. Every function is
// pure: callers pass the clock, and empty input yields zero values.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/unigrading-api/internal/dto"
	"github.com/noah-isme/unigrading-api/internal/models"
)

// DefaultRecentWindowMs is the "last 24h" window.
const DefaultRecentWindowMs int64 = 24 * 60 * 60 * 1000

// ExcellentThreshold is the percentage at which a grade counts as excellent.
const ExcellentThreshold = 90

// RoleCounts holds per-role user counts.
type RoleCounts map[models.Role]int

// Total sums every role.
func (c RoleCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// PercentageOf returns count(role)/count(all)*100, or 0 when there are no users.
func (c RoleCounts) PercentageOf(role models.Role) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c[role]) / float64(total) * 100
}

// RoleDistribution counts users per role. Every known role is present in the result.
func RoleDistribution(users []models.User) RoleCounts {
	counts := RoleCounts{}
	for _, r := range models.Roles {
		counts[r] = 0
	}
	for _, u := range users {
		counts[u.Role]++
	}
	return counts
}

// Shares expands counts into ordered role shares rounded to one decimal.
func Shares(counts RoleCounts) []dto.RoleShare {
	shares := make([]dto.RoleShare, 0, len(models.Roles))
	for _, r := range models.Roles {
		shares = append(shares, dto.RoleShare{
			Role:       r,
			Count:      counts[r],
			Percentage: math.Round(counts.PercentageOf(r)*10) / 10,
		})
	}
	return shares
}

// GradesForStudent filters grades received by one wallet, preserving order.
func GradesForStudent(grades []models.Grade, wallet string) []models.Grade {
	out := make([]models.Grade, 0)
	for _, g := range grades {
		if g.StudentWallet == wallet {
			out = append(out, g)
		}
	}
	return out
}

// GradesByTeacher filters grades assigned by one wallet, preserving order.
func GradesByTeacher(grades []models.Grade, wallet string) []models.Grade {
	out := make([]models.Grade, 0)
	for _, g := range grades {
		if g.TeacherWallet == wallet {
			out = append(out, g)
		}
	}
	return out
}

// StudentAverage is the rounded mean of stored percentages, 0 for no grades.
func StudentAverage(grades []models.Grade) int {
	if len(grades) == 0 {
		return 0
	}
	sum := 0
	for _, g := range grades {
		sum += g.Percentage
	}
	return int(math.Round(float64(sum) / float64(len(grades))))
}

// CountAtLeast counts grades whose percentage is >= threshold.
func CountAtLeast(grades []models.Grade, threshold int) int {
	n := 0
	for _, g := range grades {
		if g.Percentage >= threshold {
			n++
		}
	}
	return n
}

// ClassroomStats summarises one classroom.
func ClassroomStats(c models.Classroom) dto.ClassroomSummary {
	return dto.ClassroomSummary{
		ID:           c.ID,
		Name:         c.Name,
		Course:       c.Course,
		StudentCount: len(c.Students),
		CreatedAt:    c.CreatedAt,
	}
}

// ClassroomsOwnedBy filters classrooms whose teacher is the wallet.
func ClassroomsOwnedBy(classrooms []models.Classroom, wallet string) []models.Classroom {
	out := make([]models.Classroom, 0)
	for _, c := range classrooms {
		if c.Teacher == wallet {
			out = append(out, c)
		}
	}
	return out
}

// TeacherStats counts a teacher's classrooms, enrolled students and assigned grades.
func TeacherStats(teacher string, classrooms []models.Classroom, grades []models.Grade) dto.TeacherStats {
	owned := ClassroomsOwnedBy(classrooms, teacher)
	students := 0
	for _, c := range owned {
		students += ClassroomStats(c).StudentCount
	}
	return dto.TeacherStats{
		ClassroomCount:      len(owned),
		TotalStudents:       students,
		GradesAssignedCount: len(GradesByTeacher(grades, teacher)),
	}
}

// RecentCount counts timestamps within [now-window, now]. All values are milliseconds.
func RecentCount(timestamps []int64, windowMs, nowMs int64) int {
	from := nowMs - windowMs
	n := 0
	for _, ts := range timestamps {
		if ts >= from && ts <= nowMs {
			n++
		}
	}
	return n
}

// RecentRegistrations applies RecentCount to user creation times, converting seconds to milliseconds.
func RecentRegistrations(users []models.User, windowMs, nowMs int64) int {
	ts := make([]int64, len(users))
	for i, u := range users {
		ts[i] = u.CreatedAt * 1000
	}
	return RecentCount(ts, windowMs, nowMs)
}

// ActiveUsers counts users flagged active.
func ActiveUsers(users []models.User) int {
	n := 0
	for _, u := range users {
		if u.IsActive {
			n++
		}
	}
	return n
}

// AdminMetrics builds the system-wide admin counters.
func AdminMetrics(users []models.User, classrooms []models.Classroom, grades []models.Grade, windowMs, nowMs int64) dto.AdminMetrics {
	counts := RoleDistribution(users)
	return dto.AdminMetrics{
		TotalUsers:          len(users),
		TotalTeachers:       counts[models.RoleTeacher],
		TotalStudents:       counts[models.RoleStudent],
		TotalAdmins:         counts[models.RoleAdmin],
		TotalClassrooms:     len(classrooms),
		TotalGrades:         len(grades),
		ActiveUsers:         ActiveUsers(users),
		RecentRegistrations: RecentRegistrations(users, windowMs, nowMs),
		RoleDistribution:    Shares(counts),
	}
}

// UserStats returns the role-specific counters for one user.
func UserStats(user models.User, classrooms []models.Classroom, grades []models.Grade) dto.UserStats {
	switch user.Role {
	case models.RoleTeacher:
		ts := TeacherStats(user.WalletAddress, classrooms, grades)
		return dto.UserStats{
			Classrooms:     intPtr(ts.ClassroomCount),
			GradesAssigned: intPtr(ts.GradesAssignedCount),
			TotalStudents:  intPtr(ts.TotalStudents),
		}
	case models.RoleStudent:
		received := GradesForStudent(grades, user.WalletAddress)
		last := user.CreatedAt * 1000
		if len(received) > 0 {
			last = received[0].Timestamp
			for _, g := range received[1:] {
				if g.Timestamp > last {
					last = g.Timestamp
				}
			}
		}
		return dto.UserStats{
			GradesReceived: intPtr(len(received)),
			AverageGrade:   intPtr(StudentAverage(received)),
			LastActivity:   &last,
		}
	default:
		since := user.CreatedAt * 1000
		return dto.UserStats{AdminSince: &since, SystemAccess: "Full"}
	}
}

// UserActivity builds the user's timeline, newest first. Second-based creation times are
// converted to milliseconds so they sort alongside grade timestamps.
func UserActivity(user models.User, classrooms []models.Classroom, grades []models.Grade) []dto.Activity {
	activity := []dto.Activity{{
		Type:        dto.ActivityRegistration,
		Timestamp:   user.CreatedAt * 1000,
		Description: fmt.Sprintf("Registered as %s", user.Role),
		Details:     map[string]interface{}{"role": user.Role, "wallet": user.WalletAddress},
	}}

	if user.Role == models.RoleTeacher {
		for _, c := range ClassroomsOwnedBy(classrooms, user.WalletAddress) {
			activity = append(activity, dto.Activity{
				Type:        dto.ActivityClassroomCreated,
				Timestamp:   c.CreatedAt * 1000,
				Description: fmt.Sprintf("Created classroom %q", c.Name),
				Details:     map[string]interface{}{"classroom": c.Name, "course": c.Course},
			})
		}
	}

	for _, g := range grades {
		details := map[string]interface{}{"grade": g.Grade, "maxGrade": g.MaxGrade, "assignment": g.AssignmentName}
		switch user.WalletAddress {
		case g.StudentWallet:
			activity = append(activity, dto.Activity{
				Type:        dto.ActivityGradeReceived,
				Timestamp:   g.Timestamp,
				Description: fmt.Sprintf("Received grade %d/%d for %q", g.Grade, g.MaxGrade, g.AssignmentName),
				Details:     details,
			})
		case g.TeacherWallet:
			activity = append(activity, dto.Activity{
				Type:        dto.ActivityGradeAssigned,
				Timestamp:   g.Timestamp,
				Description: fmt.Sprintf("Assigned grade %d/%d for %q", g.Grade, g.MaxGrade, g.AssignmentName),
				Details:     details,
			})
		}
	}

	sort.SliceStable(activity, func(i, j int) bool { return activity[i].Timestamp > activity[j].Timestamp })
	return activity
}

func intPtr(v int) *int { return &v }
