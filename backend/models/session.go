package models

import (
	"time"

	"gorm.io/gorm"
)

// Session lifecycle states. Transitions are strictly forward:
// scheduled -> active -> completed.
const (
	SessionScheduled = "scheduled"
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// Session is one scheduled delivery of a training by a facilitator. It
// freezes the training's question set and version at creation time so later
// publishes never change what an in-flight session grades against.
type Session struct {
	gorm.Model
	TrainingID         uint       `json:"training" gorm:"not null;index"`
	FacilitatorID      uint       `json:"facilitator" gorm:"not null;index"`
	QuestionSetID      uint       `json:"questionSet" gorm:"not null"`
	QuestionSetVersion int        `json:"questionSetVersion" gorm:"not null"`
	Status             string     `json:"status" gorm:"not null;default:scheduled;index"`
	StartTime          *time.Time `json:"startTime,omitempty"`
	EndTime            *time.Time `json:"endTime,omitempty"`
	QRCodeToken        *string    `json:"qrCodeToken,omitempty"`

	Trainees []User `json:"trainees" gorm:"many2many:session_trainees;joinForeignKey:SessionID;joinReferences:TraineeID"`
}

// SessionTrainee is the enrollment join row. The composite unique index makes
// the enroll operation an idempotent set union at the store level.
type SessionTrainee struct {
	ID        uint `gorm:"primaryKey"`
	SessionID uint `gorm:"not null;uniqueIndex:idx_session_trainee"`
	TraineeID uint `gorm:"not null;uniqueIndex:idx_session_trainee"`
}
