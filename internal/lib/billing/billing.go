// Package billing содержит чистые функции пересчёта стоимости подписки
// между периодами списания и календарную арифметику дат продления.
// Функции не имеют побочных эффектов и не возвращают ошибок:
// значение Cycle проверяется на входе в систему, здесь оно считается корректным.
package billing

import (
	"time"

	"github.com/subwatch/subtracker/internal/models"
)

// MonthlyEquivalent приводит стоимость за один цикл к стоимости за месяц.
func MonthlyEquivalent(cost float64, cycle models.Cycle) float64 {
	switch cycle {
	case models.CycleWeekly:
		return cost * 4
	case models.CycleQuarterly:
		return cost / 3
	case models.CycleYearly:
		return cost / 12
	default:
		return cost
	}
}

// YearlyEquivalent приводит стоимость за один цикл к стоимости за год.
func YearlyEquivalent(cost float64, cycle models.Cycle) float64 {
	switch cycle {
	case models.CycleWeekly:
		return cost * 52
	case models.CycleMonthly:
		return cost * 12
	case models.CycleQuarterly:
		return cost * 4
	default:
		return cost
	}
}

// NextRenewal сдвигает дату списания вперёд ровно на один цикл.
// Для недельного цикла это всегда 7 дней. Для месячных, квартальных и
// годовых циклов сдвиг календарный: число месяца сохраняется, а если в
// целевом месяце такого числа нет, берётся его последний день
// (31 января + месяц = 28/29 февраля, без перелива в март).
func NextRenewal(date time.Time, cycle models.Cycle) time.Time {
	if cycle == models.CycleWeekly {
		return date.AddDate(0, 0, 7)
	}

	months := 1
	switch cycle {
	case models.CycleQuarterly:
		months = 3
	case models.CycleYearly:
		months = 12
	}

	year, month, day := date.Date()
	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := daysIn(year, month); day > last {
		day = last
	}
	h, m, s := date.Clock()
	return time.Date(year, month, day, h, m, s, date.Nanosecond(), date.Location())
}

// DaysUntil возвращает количество полных календарных дней от today до renewal.
// Обе даты предварительно усекаются до полуночи, поэтому время суток
// на результат не влияет. Для прошедших дат результат отрицательный.
func DaysUntil(renewal, today time.Time) int {
	return int(midnight(renewal).Sub(midnight(today)).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	// Нулевой день следующего месяца — последний день текущего.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
