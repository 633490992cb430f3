package db

import (
	"capbudget/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Optimization{},
		&models.ProjectInput{},
		&models.BalanceConstraint{},
		&models.ProjectGroup{},
		&models.OptimizationResult{},
		&models.SelectedProject{},
		&models.PeriodBalance{},
		&models.PeriodCashFlow{},
	)
}
