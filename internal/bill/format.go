package bill

import (
	"fmt"
	"time"
)

// French month abbreviations, three letters, capitalized
var frMonths = [...]string{"Jan", "Fév", "Mar", "Avr", "Mai", "Jui", "Jui", "Aoû", "Sep", "Oct", "Nov", "Déc"}

// FormatDate renders a YYYY-MM-DD date as e.g. "25 Avr. 23"
func FormatDate(date string) (string, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parsing date: %w", err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), frMonths[t.Month()-1], t.Year()%100), nil
}

// FormatStatus returns the display label for a status
func FormatStatus(s Status) string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refused"
	default:
		return string(s)
	}
}
