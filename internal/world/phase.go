package world

import "fmt"

// Phase is the active segment of the day/night cycle.
type Phase int

const (
	PhaseDay Phase = iota
	PhaseNight
	PhaseBloodMoon
)

// Phases lists every phase in cycle order.
var Phases = []Phase{PhaseDay, PhaseNight, PhaseBloodMoon}

func (p Phase) String() string {
	switch p {
	case PhaseDay:
		return "day"
	case PhaseNight:
		return "night"
	case PhaseBloodMoon:
		return "blood_moon"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// IsNight reports whether p is timed by the night duration.
func (p Phase) IsNight() bool { return p == PhaseNight || p == PhaseBloodMoon }

// ParsePhase accepts the text form produced by String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "day":
		return PhaseDay, nil
	case "night":
		return PhaseNight, nil
	case "blood_moon", "bloodmoon":
		return PhaseBloodMoon, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
