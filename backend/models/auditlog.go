package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records who did what. Written best-effort on mutating operations;
// a failed write never fails the request that triggered it.
type AuditLog struct {
	gorm.Model
	ActorID uint           `json:"actor" gorm:"index"`
	Action  string         `json:"action" gorm:"not null"`
	Details datatypes.JSON `json:"details"`
}
