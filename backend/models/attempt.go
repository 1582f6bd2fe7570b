package models

import (
	"time"

	"gorm.io/gorm"
)

// Attempt outcomes
const (
	AttemptPassed = "passed"
	AttemptFailed = "failed"
)

// Attempt is one trainee's graded submission against one session. Attempts
// are immutable; a resubmission creates a new record with the next
// attemptNumber. The compound unique index backs the atomic numbering
// guarantee under concurrent submissions.
type Attempt struct {
	gorm.Model
	TraineeID      uint            `json:"trainee" gorm:"not null;index;uniqueIndex:idx_trainee_session_attempt"`
	SessionID      uint            `json:"session" gorm:"not null;index;uniqueIndex:idx_trainee_session_attempt"`
	Answers        []AttemptAnswer `json:"answers" gorm:"foreignKey:AttemptID"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	Status         string          `json:"status" gorm:"not null"`
	AttemptNumber  int             `json:"attemptNumber" gorm:"not null;uniqueIndex:idx_trainee_session_attempt"`
	SubmittedAt    time.Time       `json:"submittedAt"`
}

// AttemptAnswer records the trainee's choice for one question together with
// the correctness computed at grading time.
type AttemptAnswer struct {
	ID             uint `json:"-" gorm:"primaryKey"`
	AttemptID      uint `json:"-" gorm:"not null;index"`
	QuestionID     uint `json:"question"`
	SelectedAnswer bool `json:"selectedAnswer"`
	IsCorrect      bool `json:"isCorrect"`
}
