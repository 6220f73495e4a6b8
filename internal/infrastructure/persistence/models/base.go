package models

import (
	"encoding/json"
	"time"
)

// TimestampModel provides the bigserial key and audit timestamps shared by mutable tables
type TimestampModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// rawToPtr turns a raw JSON payload into a nullable jsonb value
func rawToPtr(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

// ptrToRaw is the inverse of rawToPtr
func ptrToRaw(s *string) json.RawMessage {
	if s == nil || *s == "" {
		return nil
	}
	return json.RawMessage(*s)
}
