package models

// StudentRef identifies an enrolled student by display name and wallet key.
type StudentRef struct {
	Name   string `json:"name"`
	Pubkey string `json:"pubkey"`
}

// Classroom is owned by one teacher. TeacherName is a snapshot taken at creation and never resynchronised.
type Classroom struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Course      string       `json:"course"`
	Teacher     string       `json:"teacher"`
	TeacherName string       `json:"teacherName"`
	Students    []StudentRef `json:"students"`
	CreatedAt   int64        `json:"createdAt"`
}

// HasStudent reports whether the wallet is already enrolled.
func (c Classroom) HasStudent(pubkey string) bool {
	for _, s := range c.Students {
		if s.Pubkey == pubkey {
			return true
		}
	}
	return false
}
