package clinic

import "time"

// ScheduledDose is one entry of the national childhood vaccination calendar.
type ScheduledDose struct {
	Vaccine string
	Due     time.Time
}

// calendar lists the national schedule as month offsets from birth.
var calendar = []struct {
	vaccine string
	months  int
}{
	{"DTP-1", 2},
	{"OPV-1", 2},
	{"HIB-1", 2},
	{"DTP-2", 4},
	{"OPV-2", 4},
	{"HIB-2", 4},
	{"DTP-3", 6},
	{"OPV-3", 6},
	{"HIB-3", 6},
	{"MMR-1", 9},
	{"DTP-4", 18},
	{"OPV-4", 18},
	{"MMR-2", 24},
}

// Schedule expands a birth date into the full dose calendar. Offsets use
// AddDate, so end-of-month birth dates roll forward the way the civil
// calendar does.
func Schedule(birth time.Time) []ScheduledDose {
	doses := make([]ScheduledDose, 0, len(calendar))
	for _, entry := range calendar {
		doses = append(doses, ScheduledDose{
			Vaccine: entry.vaccine,
			Due:     birth.AddDate(0, entry.months, 0),
		})
	}
	return doses
}
