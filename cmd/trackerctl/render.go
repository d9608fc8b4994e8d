package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"alcyxob/strength-tracker/internal/domain"
	"alcyxob/strength-tracker/internal/plan"
	"alcyxob/strength-tracker/internal/service"
	"alcyxob/strength-tracker/internal/stats"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(20)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	startedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func renderKeyValues(w io.Writer, title string, rows [][2]string) {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), row[1]))
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderSummary(w io.Writer, s stats.Summary) {
	rows := [][2]string{
		{"Sessions", fmt.Sprint(s.TotalSessions)},
		{"Completed", fmt.Sprint(s.CompletedWorkouts)},
		{"Tonnage", fmt.Sprintf("%.1f kg", s.TotalTonnage)},
		{"Streak", fmt.Sprintf("%d day(s)", s.Streak)},
		{"Plan progress", fmt.Sprintf("%d/%d (%d%%)", s.Progress.Completed, s.Progress.Total, s.Progress.Percent)},
	}
	if s.BestLift != nil {
		rows = append(rows, [2]string{"Best lift", fmt.Sprintf("%s %.1f kg", s.BestLift.Name, s.BestLift.Weight)})
	}
	if s.LatestMeasurement != nil {
		rows = append(rows, [2]string{"Last measured", s.LatestMeasurement.Date})
		if s.LatestMeasurement.Weight != nil {
			rows = append(rows, [2]string{"Body weight", fmt.Sprintf("%.1f kg", *s.LatestMeasurement.Weight)})
		}
	}
	renderKeyValues(w, "Summary", rows)
}

func renderSchedule(w io.Writer, schedule []plan.ScheduledWorkout, workouts []domain.WorkoutSession) {
	status := make(map[string]string)
	for _, s := range workouts {
		key := s.DayID + "|" + s.Date
		if s.Completed {
			status[key] = "done"
		} else if status[key] == "" {
			status[key] = "started"
		}
	}

	fmt.Fprintln(w, titleStyle.Render("Schedule"))
	for _, entry := range schedule {
		name := entry.DayID
		if day, ok := plan.LookupDay(entry.DayID); ok {
			name = day.DayName + " - " + day.Focus
		}
		line := fmt.Sprintf("week %2d  %s  %s", entry.Week, entry.Date, name)
		switch status[entry.DayID+"|"+entry.Date] {
		case "done":
			line += "  " + doneStyle.Render("done")
		case "started":
			line += "  " + startedStyle.Render("started")
		}
		fmt.Fprintln(w, line)
	}
}

func renderImportReport(w io.Writer, report *service.ImportReport) {
	renderKeyValues(w, "Import", [][2]string{
		{"Workouts", fmt.Sprint(report.Workouts)},
		{"Measurements", fmt.Sprint(report.Measurements)},
		{"Failed", fmt.Sprint(len(report.Failed))},
	})
	if len(report.Failed) == 0 {
		return
	}
	failed := append([]string(nil), report.Failed...)
	sort.Strings(failed)
	fmt.Fprintln(w, failedStyle.Render(strings.Join(failed, "\n")))
}
