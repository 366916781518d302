package provider

import "encoding/json"

// Credentials are the two opaque token blobs issued by the provider at
// sign-in. Primary is the long-lived token used to re-establish a session;
// Secondary is the short-lived grant that authorizes API calls. Both are
// stored and replayed verbatim.
type Credentials struct {
	Primary   []byte
	Secondary []byte
}

// Profile is the provider's view of the account owner.
type Profile struct {
	UserName    string `json:"userName"`
	DisplayName string `json:"displayName"`
}

// BodyBatteryPoint is one sample of the charge trace embedded in a sleep
// payload.
type BodyBatteryPoint struct {
	Timestamp int64 `json:"timestamp"`
	Level     int   `json:"level"`
}

// DailySleep is the per-date sleep payload. It is the primary source for
// three independent metrics: sleep staging, stress (embedded average) and
// body battery (embedded charge trace). Any of the optional fields may be
// absent for a given date; extraction degrades per metric, not per payload.
type DailySleep struct {
	CalendarDate    string             `json:"calendarDate"`
	SleepTimeSecs   *int               `json:"sleepTimeSeconds"`
	DeepSecs        *int               `json:"deepSleepSeconds"`
	LightSecs       *int               `json:"lightSleepSeconds"`
	RemSecs         *int               `json:"remSleepSeconds"`
	AwakeSecs       *int               `json:"awakeSleepSeconds"`
	SleepScore      *int               `json:"sleepScore"`
	AvgSleepStress  *int               `json:"avgSleepStress"`
	BodyBatteryData []BodyBatteryPoint `json:"sleepBodyBattery"`
}

// StressDetail is the dedicated per-date stress endpoint payload, used as
// the fallback when the sleep payload carries no stress average.
type StressDetail struct {
	CalendarDate   string `json:"calendarDate"`
	AvgStressLevel *int   `json:"avgStressLevel"`
	MaxStressLevel *int   `json:"maxStressLevel"`
}

// BodyBatteryDay is one entry of the batched date-range body battery
// endpoint.
type BodyBatteryDay struct {
	Date    string `json:"date"`
	Charged *int   `json:"charged"`
	Drained *int   `json:"drained"`
	Highest *int   `json:"highestLevel"`
	Lowest  *int   `json:"lowestLevel"`
}

// BodyBatteryEvent is one entry of the per-date events endpoint, the last
// fallback tier for body battery.
type BodyBatteryEvent struct {
	EventType      string `json:"eventType"`
	StartLevel     *int   `json:"bodyBatteryLevel"`
	DeltaLevel     *int   `json:"deltaLevel"`
	EventStartTime string `json:"eventStartTimeLocal"`
}

// Activity is one recorded workout from the paginated activities endpoint.
type Activity struct {
	ActivityID     int64        `json:"activityId"`
	ActivityName   string       `json:"activityName"`
	ActivityType   ActivityType `json:"activityType"`
	StartTimeLocal string       `json:"startTimeLocal"` // "2006-01-02 15:04:05"
	Duration       float64      `json:"duration"`
	Distance       float64      `json:"distance"`
	Calories       float64      `json:"calories"`
}

type ActivityType struct {
	TypeKey string `json:"typeKey"`
}

// HeartRateDay is the daily heart rate summary payload.
type HeartRateDay struct {
	CalendarDate    string `json:"calendarDate"`
	RestingHR       *int   `json:"restingHeartRate"`
	MinHR           *int   `json:"minHeartRate"`
	MaxHR           *int   `json:"maxHeartRate"`
	AvgHR           *int   `json:"averageHeartRate"`
	LastSevenDaysHR *int   `json:"lastSevenDaysAvgRestingHeartRate"`
}

// tokenGrant is the body of a successful sign-in, code verification or
// token exchange. Token payloads are kept as raw JSON; only the access
// token inside the secondary grant is ever parsed out.
type tokenGrant struct {
	OAuth1Token json.RawMessage `json:"oauth1Token"`
	OAuth2Token json.RawMessage `json:"oauth2Token"`
}

type oauth2Token struct {
	AccessToken string `json:"access_token"`
}
