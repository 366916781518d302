package domain

// DateRange is an inclusive calendar-date window, both ends formatted as
// "2006-01-02".
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SleepRecord is one night of sleep staging for a calendar date.
// Durations are in seconds as reported by the provider.
type SleepRecord struct {
	Date         string `json:"date"`
	Score        *int   `json:"score,omitempty"`
	TotalSeconds int    `json:"total_seconds"`
	DeepSeconds  int    `json:"deep_seconds"`
	LightSeconds int    `json:"light_seconds"`
	RemSeconds   int    `json:"rem_seconds"`
	AwakeSeconds int    `json:"awake_seconds"`
}

// StressRecord is the average and peak stress level for a calendar date.
type StressRecord struct {
	Date      string `json:"date"`
	AvgStress int    `json:"avg_stress"`
	MaxStress *int   `json:"max_stress,omitempty"`
}

// BodyBatteryRecord summarises the body battery charge trace for a date.
type BodyBatteryRecord struct {
	Date    string `json:"date"`
	Charged int    `json:"charged"`
	Drained int    `json:"drained"`
	Highest int    `json:"highest"`
	Lowest  int    `json:"lowest"`
}

// ActivityRecord is one recorded workout.
type ActivityRecord struct {
	ID              int64   `json:"id"`
	Date            string  `json:"date"`
	StartTimeLocal  string  `json:"start_time_local"`
	ActivityType    string  `json:"activity_type"`
	Name            string  `json:"name"`
	DurationSeconds float64 `json:"duration_seconds"`
	DistanceMeters  float64 `json:"distance_meters"`
	Calories        float64 `json:"calories"`
}

// HeartRateRecord is the daily heart rate summary for a date.
type HeartRateRecord struct {
	Date       string `json:"date"`
	RestingHR  int    `json:"resting_hr"`
	MinHR      *int   `json:"min_hr,omitempty"`
	MaxHR      *int   `json:"max_hr,omitempty"`
	AvgHR      *int   `json:"avg_hr,omitempty"`
	LastSevenD *int   `json:"last_seven_days_avg,omitempty"`
}

// HealthSnapshot is the normalized result of one data-acquisition call.
// Each family is sorted ascending by date with no duplicate dates; a family
// with no data after all fallbacks is an empty slice, never nil semantics
// beyond that and never an error. Immutable once returned.
type HealthSnapshot struct {
	DateRange   DateRange           `json:"date_range"`
	Sleep       []SleepRecord       `json:"sleep"`
	Stress      []StressRecord      `json:"stress"`
	BodyBattery []BodyBatteryRecord `json:"body_battery"`
	Activities  []ActivityRecord    `json:"activities"`
	HeartRate   []HeartRateRecord   `json:"heart_rate"`
}
