package progress

import "time"

const day = 24 * time.Hour

// UnlockPolicy is the cadence at which modules open after enrollment.
// Module 0 is always free; FreeModules may name more.
type UnlockPolicy struct {
	CadenceDays int
	FreeModules map[int]bool
}

// DefaultUnlockPolicy opens one module a week.
func DefaultUnlockPolicy() UnlockPolicy {
	return UnlockPolicy{CadenceDays: 7}
}

// ModuleUnlockStatus is derived per module and never stored.
type ModuleUnlockStatus struct {
	Unlocked      bool      `json:"unlocked"`
	AvailableDate time.Time `json:"availableDate"`
	DaysRemaining int       `json:"daysRemaining"`
}

// IsFree reports whether module is open regardless of enrollment date.
func (p UnlockPolicy) IsFree(module int) bool {
	return module == 0 || p.FreeModules[module]
}

// AvailableDate is when module opens under the cadence alone.
func (p UnlockPolicy) AvailableDate(enrolledAt time.Time, module int) time.Time {
	return enrolledAt.Add(time.Duration(module*p.CadenceDays) * day)
}

// Status computes whether module is open at now. An override set to true
// wins over everything else.
func (p UnlockPolicy) Status(enrolledAt time.Time, module int, overrides map[int]bool, now time.Time) ModuleUnlockStatus {
	if overrides[module] || p.IsFree(module) {
		return ModuleUnlockStatus{Unlocked: true, AvailableDate: enrolledAt, DaysRemaining: 0}
	}

	available := p.AvailableDate(enrolledAt, module)
	return ModuleUnlockStatus{
		Unlocked:      !now.Before(available),
		AvailableDate: available,
		DaysRemaining: daysUntil(now, available),
	}
}

// Schedule returns the status of modules 0..count-1.
func (p UnlockPolicy) Schedule(enrolledAt time.Time, count int, overrides map[int]bool, now time.Time) map[int]ModuleUnlockStatus {
	out := make(map[int]ModuleUnlockStatus, count)
	for i := 0; i < count; i++ {
		out[i] = p.Status(enrolledAt, i, overrides, now)
	}
	return out
}

// daysUntil rounds the remaining time up to whole days, never below zero.
func daysUntil(now, t time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + day - 1) / day)
}
