package appointments

import (
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type email struct {
	subject string
	html    string
}

// sessionLabel turns "life-coaching" into "Life Coaching".
func sessionLabel(sessionType string) string {
	label := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(sessionType))
	if label == "" {
		return "Coaching Session"
	}
	return cases.Title(language.English).String(label)
}

// humanSchedule renders "Monday, March 3, 2025 at 10:00 AM", falling back to the raw values.
func humanSchedule(s Schedule) string {
	day, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return s.String()
	}
	clock, err := time.Parse("15:04", s.Time)
	if err != nil {
		return day.Format("Monday, January 2, 2006") + " at " + s.Time
	}
	return day.Format("Monday, January 2, 2006") + " at " + clock.Format("3:04 PM")
}

func esc(s string) string { return html.EscapeString(s) }

func detailRows(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<table cellpadding="4" style="border-collapse:collapse">`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td style="font-weight:bold">%s</td><td>%s</td></tr>`, esc(row[0]), esc(row[1]))
	}
	b.WriteString(`</table>`)
	return b.String()
}

func rescheduleClientEmail(appt Appointment, previous Schedule) email {
	label := sessionLabel(appt.SessionType)
	return email{
		subject: fmt.Sprintf("Your %s has been rescheduled", label),
		html: fmt.Sprintf(`<p>Hi %s,</p><p>Your %s has been moved to a new time.</p>%s<p>If the new time does not work for you, just reply to this email.</p>`,
			esc(appt.FullName), esc(label),
			detailRows(
				[2]string{"Previously", humanSchedule(previous)},
				[2]string{"Now", humanSchedule(appt.Schedule())},
			)),
	}
}

func rescheduleOperatorEmail(appt Appointment, previous Schedule) email {
	label := sessionLabel(appt.SessionType)
	return email{
		subject: fmt.Sprintf("Rescheduled: %s with %s", label, appt.FullName),
		html: fmt.Sprintf(`<p>An appointment was rescheduled.</p>%s`,
			detailRows(
				[2]string{"Client", appt.FullName},
				[2]string{"Email", appt.Email},
				[2]string{"Session", label},
				[2]string{"Previously", humanSchedule(previous)},
				[2]string{"Now", humanSchedule(appt.Schedule())},
				[2]string{"Appointment ID", appt.ID},
			)),
	}
}

func cancelClientEmail(appt Appointment) email {
	label := sessionLabel(appt.SessionType)
	return email{
		subject: fmt.Sprintf("Your %s has been cancelled", label),
		html: fmt.Sprintf(`<p>Hi %s,</p><p>Your %s on %s has been cancelled.</p><p>You are welcome to book a new session at any time.</p>`,
			esc(appt.FullName), esc(label), esc(humanSchedule(appt.Schedule()))),
	}
}

func cancelOperatorEmail(appt Appointment) email {
	label := sessionLabel(appt.SessionType)
	return email{
		subject: fmt.Sprintf("Cancelled: %s with %s", label, appt.FullName),
		html: fmt.Sprintf(`<p>An appointment was cancelled.</p>%s`,
			detailRows(
				[2]string{"Client", appt.FullName},
				[2]string{"Email", appt.Email},
				[2]string{"Session", label},
				[2]string{"Was scheduled", humanSchedule(appt.Schedule())},
				[2]string{"Appointment ID", appt.ID},
			)),
	}
}

func bookingClientEmail(appt Appointment) email {
	label := sessionLabel(appt.SessionType)
	return email{
		subject: fmt.Sprintf("We received your %s request", label),
		html: fmt.Sprintf(`<p>Hi %s,</p><p>Thanks for booking a %s. Your request for %s is pending confirmation.</p>`,
			esc(appt.FullName), esc(label), esc(humanSchedule(appt.Schedule()))),
	}
}

func bookingOperatorEmail(appt Appointment) email {
	label := sessionLabel(appt.SessionType)
	return email{
		subject: fmt.Sprintf("New booking: %s with %s", label, appt.FullName),
		html: fmt.Sprintf(`<p>A new appointment was requested.</p>%s`,
			detailRows(
				[2]string{"Client", appt.FullName},
				[2]string{"Email", appt.Email},
				[2]string{"Session", label},
				[2]string{"Requested", humanSchedule(appt.Schedule())},
				[2]string{"Appointment ID", appt.ID},
			)),
	}
}
