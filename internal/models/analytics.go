package models

import "math"

// CategoryStat агрегирует подписки одной категории:
// количество и суммарная стоимость в пересчёте на месяц.
type CategoryStat struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// AnalyticsSummary содержит сводку по активным подпискам пользователя.
// Значения хранятся без округления, округление выполняется
// только при отдаче наружу через Rounded.
type AnalyticsSummary struct {
	TotalSubscriptions int                       `json:"totalSubscriptions"`
	MonthlyTotal       float64                   `json:"monthlyTotal"`
	YearlyTotal        float64                   `json:"yearlyTotal"`
	ByCategory         map[Category]CategoryStat `json:"byCategory"`
	UpcomingRenewals   int                       `json:"upcomingRenewals"`
}

// Rounded возвращает копию сводки с денежными значениями,
// округлёнными до двух знаков.
func (s AnalyticsSummary) Rounded() AnalyticsSummary {
	out := AnalyticsSummary{
		TotalSubscriptions: s.TotalSubscriptions,
		MonthlyTotal:       round2(s.MonthlyTotal),
		YearlyTotal:        round2(s.YearlyTotal),
		ByCategory:         make(map[Category]CategoryStat, len(s.ByCategory)),
		UpcomingRenewals:   s.UpcomingRenewals,
	}
	for cat, stat := range s.ByCategory {
		out.ByCategory[cat] = CategoryStat{Count: stat.Count, Total: round2(stat.Total)}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
