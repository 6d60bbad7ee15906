package sla

import (
	"math"
	"time"

	"socdash/internal/models"
)

// DayBucket is the per-weekday rollup shown in the SLA trend chart.
type DayBucket struct {
	Label         string  `json:"label"`
	Up            int     `json:"up"`
	Down          int     `json:"down"`
	Total         int     `json:"total"`
	UptimePercent float64 `json:"uptimePercent"`
}

type Report struct {
	Days          []DayBucket `json:"days"`
	UptimePercent float64     `json:"uptimePercent"`
}

// Labels maps weekdays to display names. The dashboard was built for an
// Indonesian audience, so "id" is the default locale.
type Labels map[time.Weekday]string

var locales = map[string]Labels{
	"id": {
		time.Sunday:    "Minggu",
		time.Monday:    "Senin",
		time.Tuesday:   "Selasa",
		time.Wednesday: "Rabu",
		time.Thursday:  "Kamis",
		time.Friday:    "Jumat",
		time.Saturday:  "Sabtu",
	},
	"en": {
		time.Sunday:    "Sunday",
		time.Monday:    "Monday",
		time.Tuesday:   "Tuesday",
		time.Wednesday: "Wednesday",
		time.Thursday:  "Thursday",
		time.Friday:    "Friday",
		time.Saturday:  "Saturday",
	},
}

func LabelsForLocale(locale string) Labels {
	if l, ok := locales[locale]; ok {
		return l
	}
	return locales["id"]
}

// Aggregate buckets samples by weekday label in first-seen order and derives
// per-day and overall uptime percentages. Days without samples produce no
// bucket, so no division by zero can occur. The overall figure is the mean of
// the per-day percentages: every day weighs the same regardless of how many
// samples it holds. Empty input yields no buckets and 0 overall.
func Aggregate(samples []models.StatusSample, labels Labels) Report {
	order := make([]string, 0, 7)
	counts := map[string]*DayBucket{}

	for _, s := range samples {
		label := labels[s.RecordedAt.Weekday()]
		b, ok := counts[label]
		if !ok {
			b = &DayBucket{Label: label}
			counts[label] = b
			order = append(order, label)
		}
		if s.Status == models.StatusUp {
			b.Up++
		} else {
			b.Down++
		}
	}

	report := Report{Days: make([]DayBucket, 0, len(order))}
	sum := 0.0
	for _, label := range order {
		b := counts[label]
		b.Total = b.Up + b.Down
		b.UptimePercent = round2(float64(b.Up) / float64(b.Total) * 100)
		sum += b.UptimePercent
		report.Days = append(report.Days, *b)
	}
	if len(report.Days) > 0 {
		report.UptimePercent = round2(sum / float64(len(report.Days)))
	}
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
