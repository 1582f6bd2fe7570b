package models

import "gorm.io/gorm"

// Training is an assessment definition. Question content is published as
// immutable QuestionSet versions; CurrentVersion always equals the version of
// the set referenced by CurrentQuestionSetID.
type Training struct {
	gorm.Model
	Title                string `json:"title" gorm:"not null"`
	Description          string `json:"description"`
	Department           string `json:"department"`
	PassMark             int    `json:"passMark"` // minimum correct-answer count
	CreatedByID          uint   `json:"createdBy"`
	CurrentVersion       int    `json:"currentVersion" gorm:"default:1"`
	CurrentQuestionSetID uint   `json:"currentQuestionSet"`
}

// Question is an immutable true/false fact owned by one training and
// referenced by exactly the question set it was published into.
type Question struct {
	gorm.Model
	TrainingID    uint   `json:"training" gorm:"not null;index"`
	QuestionSetID uint   `json:"questionSet" gorm:"not null;index"`
	QuestionText  string `json:"questionText" gorm:"not null"`
	CorrectAnswer bool   `json:"correctAnswer"`
}

// QuestionSet is a versioned snapshot of a training's questions. Sets are
// never mutated after creation, which keeps session grading stable across
// later publishes.
type QuestionSet struct {
	gorm.Model
	TrainingID  uint       `json:"training" gorm:"not null;index;uniqueIndex:idx_training_version"`
	Version     int        `json:"version" gorm:"not null;uniqueIndex:idx_training_version"`
	CreatedByID uint       `json:"createdBy"`
	Questions   []Question `json:"questions" gorm:"foreignKey:QuestionSetID"`
}
