package models

import "gorm.io/gorm"

// ProgressEntry is one completion flag in the store of record.
type ProgressEntry struct {
	gorm.Model
	Email       string `gorm:"not null;uniqueIndex:idx_progress_email_key"`
	ProgressKey string `gorm:"not null;uniqueIndex:idx_progress_email_key"`
	Done        bool   `gorm:"not null;default:false"`
}

// ModuleOverride is an administrator's manual unlock of one module.
type ModuleOverride struct {
	gorm.Model
	Email     string `gorm:"not null;uniqueIndex:idx_override_email_module"`
	ModuloNum int    `gorm:"not null;uniqueIndex:idx_override_email_module"`
	Unlocked  bool   `gorm:"not null;default:false"`
	SetBy     string
}

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Enrollment{},
		&ProgressEntry{},
		&ModuleOverride{},
	}
}
