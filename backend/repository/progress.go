package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"selfpaced/backend/models"
	"selfpaced/backend/progress"
)

var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ProgressRepository is the store of record for completion maps, module
// overrides and enrollments, keyed by normalized email.
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Fetch returns the completion map for email; unknown emails get an empty map.
func (r *ProgressRepository) Fetch(ctx context.Context, email string) (progress.CompletionMap, error) {
	var entries []models.ProgressEntry
	if err := r.DB.WithContext(ctx).Where("email = ?", email).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}

	m := make(progress.CompletionMap, len(entries))
	for _, e := range entries {
		m[e.ProgressKey] = e.Done
	}
	return m, nil
}

// Merge upserts m for email. Stored flags are OR-ed with incoming ones, so a
// stale or partial push can never clear a completion.
func (r *ProgressRepository) Merge(ctx context.Context, email string, m progress.CompletionMap) error {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]models.ProgressEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, models.ProgressEntry{Email: email, ProgressKey: k, Done: m[k]})
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}, {Name: "progress_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"done":       gorm.Expr("progress_entries.done OR excluded.done"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&entries).Error
	})
	if err != nil {
		return fmt.Errorf("merge progress: %w", err)
	}
	return nil
}

// Overrides returns the module overrides set for email.
func (r *ProgressRepository) Overrides(ctx context.Context, email string) (map[int]bool, error) {
	var rows []models.ModuleOverride
	if err := r.DB.WithContext(ctx).Where("email = ?", email).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch overrides: %w", err)
	}

	out := make(map[int]bool, len(rows))
	for _, o := range rows {
		out[o.ModuloNum] = o.Unlocked
	}
	return out, nil
}

// SetOverride records an administrator's unlock (or re-lock) of a module.
func (r *ProgressRepository) SetOverride(ctx context.Context, email string, module int, unlock bool, setBy string) error {
	row := models.ModuleOverride{Email: email, ModuloNum: module, Unlocked: unlock, SetBy: setBy}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "modulo_num"}},
		DoUpdates: clause.AssignmentColumns([]string{"unlocked", "set_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	return nil
}

// Enrollment returns the enrollment for email or ErrEnrollmentNotFound.
func (r *ProgressRepository) Enrollment(ctx context.Context, email string) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &e, nil
}

// SetEnrollment creates or moves the enrollment date for email.
func (r *ProgressRepository) SetEnrollment(ctx context.Context, email string, at time.Time) error {
	row := models.Enrollment{Email: email, EnrolledAt: at.UTC()}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"enrolled_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set enrollment: %w", err)
	}
	return nil
}
