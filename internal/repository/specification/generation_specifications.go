package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

type ByModuleID struct {
	ModuleID uuid.UUID
}

func (s ByModuleID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("module_id = ?", s.ModuleID)
}

type ByCourseID struct {
	CourseID uuid.UUID
}

func (s ByCourseID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("course_id = ?", s.CourseID)
}

type ByKey struct {
	Key string
}

func (s ByKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("key = ?", s.Key)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type OrderByCreatedDesc struct{}

func (s OrderByCreatedDesc) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

type OrderByStartSec struct{}

func (s OrderByStartSec) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("start_sec ASC NULLS LAST")
}

type WithLimit struct {
	Limit int
}

func (s WithLimit) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit)
}
