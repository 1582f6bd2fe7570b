package utils

import (
	"encoding/json"

	"traintrack/backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit writes an audit log entry. Best effort: a failed write is dropped so
// it never fails the operation being audited.
func Audit(db *gorm.DB, actorID uint, action string, details interface{}) {
	entry := models.AuditLog{ActorID: actorID, Action: action}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	db.Create(&entry)
}
