package models

import "time"

// ProjectGroup encodes a must-take-one group: business rules require picking
// one project out of each group.
type ProjectGroup struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	OptimizationID uint64    `gorm:"not null;uniqueIndex:uq_project_groups,priority:1;constraint:OnDelete:CASCADE"`
	GroupID        int       `gorm:"not null;uniqueIndex:uq_project_groups,priority:2"`
	ProjectName    string    `gorm:"type:text;not null;uniqueIndex:uq_project_groups,priority:3"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null"`
}

func (ProjectGroup) TableName() string {
	return "project_groups"
}
