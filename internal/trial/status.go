package trial

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// State is the coarse usability state.
type State string

const (
	StateLicensed State = "licensed"
	StateActive   State = "active"
	StateExpired  State = "expired"
)

// Reasons explain how a Status was reached. They are diagnostic only.
const (
	ReasonLicensed      = "licensed"
	ReasonTrialActive   = "trial_active"
	ReasonTrialElapsed  = "trial_elapsed"
	ReasonClockTampered = "clock_tampered"
	ReasonRecordCorrupt = "record_corrupt"

	ReasonStorageUnavailable = "storage_unavailable"
)

const day = 24 * time.Hour

// Status is the evaluated trial/license state.
type Status struct {
	State         State  `json:"state"`
	DaysRemaining int    `json:"days_remaining"`
	Reason        string `json:"reason"`
}

// CanUseApp reports whether the app may be used in this state.
func (s Status) CanUseApp() bool {
	return s.State == StateActive || s.State == StateLicensed
}

func (s Status) String() string {
	if s.State == StateActive {
		return fmt.Sprintf("active (%d days remaining)", s.DaysRemaining)
	}
	return string(s.State)
}

// Record is the persisted trial timeline.
type Record struct {
	StartDate    time.Time
	LastUsedDate time.Time
	HasLastUsed  bool
}

// ComputeStatus derives the state from the trial record. The license is
// checked first, then clock tampering, then elapsed days. A nil record means
// the trial has not started.
func ComputeStatus(now time.Time, rec *Record, hasLicense bool, trialLength int) Status {
	if hasLicense {
		return Status{State: StateLicensed, Reason: ReasonLicensed}
	}
	if rec == nil {
		return Status{State: StateActive, DaysRemaining: max(trialLength, 0), Reason: ReasonTrialActive}
	}
	if rec.HasLastUsed && now.Before(rec.LastUsedDate) {
		return Status{State: StateExpired, Reason: ReasonClockTampered}
	}
	if now.Before(rec.StartDate) {
		return Status{State: StateExpired, Reason: ReasonRecordCorrupt}
	}

	elapsed := elapsedDays(rec.StartDate, now)
	if elapsed >= trialLength {
		return Status{State: StateExpired, Reason: ReasonTrialElapsed}
	}
	return Status{State: StateActive, DaysRemaining: max(trialLength-elapsed, 0), Reason: ReasonTrialActive}
}

// elapsedDays counts whole 24h periods from start to now. start must not be
// after now.
func elapsedDays(start, now time.Time) int {
	return int(now.Sub(start) / day)
}

var errBadTimestamp = errors.New("invalid timestamp")

// FormatTimestamp encodes t as Unix seconds with an optional fractional part.
func FormatTimestamp(t time.Time) string {
	sec := t.Unix()
	nsec := t.Nanosecond()
	if nsec == 0 {
		return strconv.FormatInt(sec, 10) + ".0"
	}
	sign := ""
	if sec < 0 {
		// Unix floors; the text form truncates toward zero.
		sec, nsec = -(sec + 1), 1e9-nsec
		sign = "-"
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nsec), "0")
	return sign + strconv.FormatInt(sec, 10) + "." + frac
}

// ParseTimestamp decodes a value written by FormatTimestamp, or any decimal
// Unix-seconds string.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, s)
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || strings.ContainsAny(fracPart, "eExXpP") {
		whole := math.Floor(f)
		return time.Unix(int64(whole), int64((f-whole)*1e9)).UTC(), nil
	}

	var nsec int64
	if hasFrac && fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nsec, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, s)
		}
		if strings.HasPrefix(intPart, "-") {
			nsec = -nsec
		}
	}
	return time.Unix(sec, nsec).UTC(), nil
}
