package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akosolapov/wearsync/internal/domain"
	"github.com/akosolapov/wearsync/internal/provider"
	"go.uber.org/zap"
)

const (
	dateLayout         = "2006-01-02"
	activityTimeLayout = "2006-01-02 15:04:05"
	defaultFetchDays   = 7
	activityPageFactor = 3
)

// healthService implements HealthService. One Fetch pulls five metric
// families from the provider: the sleep payload doubles as the primary
// source for stress and body battery, with dedicated endpoints as
// range-level fallbacks. Families run concurrently; per-date calls within a
// family stay sequential because the provider throttles per-account bursts.
type healthService struct {
	registry *SessionRegistry
	logger   *zap.Logger
	now      func() time.Time
}

// NewHealthService creates a new health data service
func NewHealthService(registry *SessionRegistry, logger *zap.Logger) HealthService {
	return &healthService{
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// familyOutcome tracks how one metric family fared so Fetch can tell
// partial data (fine) from total provider unavailability (an error).
type familyOutcome struct {
	succeeded bool // at least one call came back
	authErr   error
	lastErr   error
}

func (o *familyOutcome) record(err error) {
	if err == nil {
		o.succeeded = true
		return
	}
	if errors.Is(err, provider.ErrUnauthorized) && o.authErr == nil {
		o.authErr = err
		return
	}
	o.lastErr = err
}

// Fetch assembles a health snapshot for the last `days` days. Per-metric
// failures degrade to empty sequences; only a dead session or a provider
// that answers nothing at all aborts the call.
func (s *healthService) Fetch(ctx context.Context, sessionHandle string, days int) (*domain.HealthSnapshot, error) {
	session, ok := s.registry.Get(sessionHandle)
	if !ok {
		return nil, fmt.Errorf("unknown session handle: %w", domain.ErrNotAuthenticated)
	}

	if days <= 0 {
		days = defaultFetchDays
	}

	end := s.now()
	start := end.AddDate(0, 0, -days)
	dates := make([]string, 0, days+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}

	client := session.Client

	var (
		wg sync.WaitGroup

		sleep       []domain.SleepRecord
		stress      []domain.StressRecord
		bodyBattery []domain.BodyBatteryRecord
		activities  []domain.ActivityRecord
		heartRate   []domain.HeartRateRecord

		sleepOutcome    familyOutcome
		activityOutcome familyOutcome
		hrOutcome       familyOutcome
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		sleep, stress, bodyBattery = s.fetchSleepFamily(ctx, client, dates, &sleepOutcome)
	}()
	go func() {
		defer wg.Done()
		activities = s.fetchActivities(ctx, client, start, days, &activityOutcome)
	}()
	go func() {
		defer wg.Done()
		heartRate = s.fetchHeartRate(ctx, client, dates, &hrOutcome)
	}()
	wg.Wait()

	for _, outcome := range []*familyOutcome{&sleepOutcome, &activityOutcome, &hrOutcome} {
		if outcome.authErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, outcome.authErr)
		}
	}
	if !sleepOutcome.succeeded && !activityOutcome.succeeded && !hrOutcome.succeeded {
		err := errors.Join(sleepOutcome.lastErr, activityOutcome.lastErr, hrOutcome.lastErr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
	}

	return &domain.HealthSnapshot{
		DateRange: domain.DateRange{
			Start: start.Format(dateLayout),
			End:   end.Format(dateLayout),
		},
		Sleep:       sortSleep(sleep),
		Stress:      sortStress(stress),
		BodyBattery: sortBodyBattery(bodyBattery),
		Activities:  sortActivities(activities),
		HeartRate:   sortHeartRate(heartRate),
	}, nil
}

// fetchSleepFamily walks the date range once over the sleep endpoint and
// extracts three metrics independently from each payload. Stress and body
// battery fall back to their dedicated endpoints only when the sleep
// payloads yielded nothing for the whole range, keeping request volume down.
func (s *healthService) fetchSleepFamily(
	ctx context.Context,
	client provider.Client,
	dates []string,
	outcome *familyOutcome,
) ([]domain.SleepRecord, []domain.StressRecord, []domain.BodyBatteryRecord) {
	var (
		sleep       []domain.SleepRecord
		stress      []domain.StressRecord
		bodyBattery []domain.BodyBatteryRecord
	)

	for _, date := range dates {
		payload, err := client.DailySleep(ctx, date)
		outcome.record(err)
		if err != nil {
			s.logger.Warn("sleep fetch failed", zap.String("date", date), zap.Error(err))
			continue
		}
		if payload == nil {
			continue
		}

		if rec, ok := extractSleep(payload, date); ok {
			sleep = append(sleep, rec)
		}
		if rec, ok := extractEmbeddedStress(payload, date); ok {
			stress = append(stress, rec)
		}
		if rec, ok := extractEmbeddedBodyBattery(payload, date); ok {
			bodyBattery = append(bodyBattery, rec)
		}
	}

	if len(stress) == 0 {
		stress = s.fetchStressFallback(ctx, client, dates, outcome)
	}
	if len(bodyBattery) == 0 {
		bodyBattery = s.fetchBodyBatteryFallback(ctx, client, dates, outcome)
	}

	return sleep, stress, bodyBattery
}

// fetchStressFallback queries the dedicated per-date stress endpoint.
func (s *healthService) fetchStressFallback(
	ctx context.Context,
	client provider.Client,
	dates []string,
	outcome *familyOutcome,
) []domain.StressRecord {
	var records []domain.StressRecord

	for _, date := range dates {
		detail, err := client.StressDetail(ctx, date)
		outcome.record(err)
		if err != nil {
			s.logger.Warn("stress fetch failed", zap.String("date", date), zap.Error(err))
			continue
		}
		if detail == nil || detail.AvgStressLevel == nil || *detail.AvgStressLevel < 0 {
			continue
		}
		records = append(records, domain.StressRecord{
			Date:      date,
			AvgStress: *detail.AvgStressLevel,
			MaxStress: detail.MaxStressLevel,
		})
	}

	return records
}

// fetchBodyBatteryFallback tries the batched range endpoint first and the
// per-date events endpoint only when the batch yields nothing.
func (s *healthService) fetchBodyBatteryFallback(
	ctx context.Context,
	client provider.Client,
	dates []string,
	outcome *familyOutcome,
) []domain.BodyBatteryRecord {
	var records []domain.BodyBatteryRecord

	days, err := client.BodyBatteryRange(ctx, dates[0], dates[len(dates)-1])
	outcome.record(err)
	if err != nil {
		s.logger.Warn("body battery range fetch failed", zap.Error(err))
	}
	for _, day := range days {
		if rec, ok := extractBodyBatteryDay(day); ok {
			records = append(records, rec)
		}
	}
	if len(records) > 0 {
		return records
	}

	for _, date := range dates {
		events, err := client.BodyBatteryEvents(ctx, date)
		outcome.record(err)
		if err != nil {
			s.logger.Warn("body battery events fetch failed", zap.String("date", date), zap.Error(err))
			continue
		}
		if rec, ok := extractBodyBatteryEvents(events, date); ok {
			records = append(records, rec)
		}
	}

	return records
}

// fetchActivities pulls one generously sized page and filters by start time
// client-side; the provider's own date filtering is unreliable.
func (s *healthService) fetchActivities(
	ctx context.Context,
	client provider.Client,
	cutoff time.Time,
	days int,
	outcome *familyOutcome,
) []domain.ActivityRecord {
	activities, err := client.Activities(ctx, 0, days*activityPageFactor)
	outcome.record(err)
	if err != nil {
		s.logger.Warn("activities fetch failed", zap.Error(err))
		return nil
	}

	cutoffDay := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())

	var records []domain.ActivityRecord
	for _, act := range activities {
		started, err := time.ParseInLocation(activityTimeLayout, act.StartTimeLocal, cutoff.Location())
		if err != nil {
			s.logger.Warn("skipping activity with unparseable start time",
				zap.Int64("activity_id", act.ActivityID),
				zap.String("start_time", act.StartTimeLocal))
			continue
		}
		if started.Before(cutoffDay) {
			continue
		}
		records = append(records, domain.ActivityRecord{
			ID:              act.ActivityID,
			Date:            started.Format(dateLayout),
			StartTimeLocal:  act.StartTimeLocal,
			ActivityType:    act.ActivityType.TypeKey,
			Name:            act.ActivityName,
			DurationSeconds: act.Duration,
			DistanceMeters:  act.Distance,
			Calories:        act.Calories,
		})
	}

	return records
}

// fetchHeartRate queries the daily summary per date; dates without data are
// simply omitted.
func (s *healthService) fetchHeartRate(
	ctx context.Context,
	client provider.Client,
	dates []string,
	outcome *familyOutcome,
) []domain.HeartRateRecord {
	var records []domain.HeartRateRecord

	for _, date := range dates {
		day, err := client.HeartRateDaily(ctx, date)
		outcome.record(err)
		if err != nil {
			s.logger.Warn("heart rate fetch failed", zap.String("date", date), zap.Error(err))
			continue
		}
		if day == nil || day.RestingHR == nil {
			continue
		}
		records = append(records, domain.HeartRateRecord{
			Date:       date,
			RestingHR:  *day.RestingHR,
			MinHR:      day.MinHR,
			MaxHR:      day.MaxHR,
			AvgHR:      day.AvgHR,
			LastSevenD: day.LastSevenDaysHR,
		})
	}

	return records
}

// extractSleep pulls the staging record out of a sleep payload. A payload
// without a total duration carries no usable sleep data for the date.
func extractSleep(payload *provider.DailySleep, date string) (domain.SleepRecord, bool) {
	if payload.SleepTimeSecs == nil || *payload.SleepTimeSecs <= 0 {
		return domain.SleepRecord{}, false
	}
	rec := domain.SleepRecord{
		Date:         date,
		Score:        payload.SleepScore,
		TotalSeconds: *payload.SleepTimeSecs,
	}
	if payload.DeepSecs != nil {
		rec.DeepSeconds = *payload.DeepSecs
	}
	if payload.LightSecs != nil {
		rec.LightSeconds = *payload.LightSecs
	}
	if payload.RemSecs != nil {
		rec.RemSeconds = *payload.RemSecs
	}
	if payload.AwakeSecs != nil {
		rec.AwakeSeconds = *payload.AwakeSecs
	}
	return rec, true
}

// extractEmbeddedStress reads the stress average embedded in a sleep
// payload.
func extractEmbeddedStress(payload *provider.DailySleep, date string) (domain.StressRecord, bool) {
	if payload.AvgSleepStress == nil || *payload.AvgSleepStress < 0 {
		return domain.StressRecord{}, false
	}
	return domain.StressRecord{Date: date, AvgStress: *payload.AvgSleepStress}, true
}

// extractEmbeddedBodyBattery summarises the charge trace embedded in a
// sleep payload.
func extractEmbeddedBodyBattery(payload *provider.DailySleep, date string) (domain.BodyBatteryRecord, bool) {
	points := payload.BodyBatteryData
	if len(points) == 0 {
		return domain.BodyBatteryRecord{}, false
	}

	rec := domain.BodyBatteryRecord{
		Date:    date,
		Highest: points[0].Level,
		Lowest:  points[0].Level,
	}
	for i, p := range points {
		if p.Level > rec.Highest {
			rec.Highest = p.Level
		}
		if p.Level < rec.Lowest {
			rec.Lowest = p.Level
		}
		if i > 0 {
			delta := p.Level - points[i-1].Level
			if delta > 0 {
				rec.Charged += delta
			} else {
				rec.Drained -= delta
			}
		}
	}
	return rec, true
}

// extractBodyBatteryDay maps one entry of the batched range endpoint; a day
// with no populated fields is unusable.
func extractBodyBatteryDay(day provider.BodyBatteryDay) (domain.BodyBatteryRecord, bool) {
	if day.Charged == nil && day.Drained == nil && day.Highest == nil && day.Lowest == nil {
		return domain.BodyBatteryRecord{}, false
	}
	rec := domain.BodyBatteryRecord{Date: day.Date}
	if day.Charged != nil {
		rec.Charged = *day.Charged
	}
	if day.Drained != nil {
		rec.Drained = *day.Drained
	}
	if day.Highest != nil {
		rec.Highest = *day.Highest
	}
	if day.Lowest != nil {
		rec.Lowest = *day.Lowest
	}
	return rec, true
}

// extractBodyBatteryEvents summarises the per-date events feed, the last
// fallback tier.
func extractBodyBatteryEvents(events []provider.BodyBatteryEvent, date string) (domain.BodyBatteryRecord, bool) {
	rec := domain.BodyBatteryRecord{Date: date}
	seen := false

	for _, ev := range events {
		if ev.StartLevel != nil {
			level := *ev.StartLevel
			if !seen || level > rec.Highest {
				rec.Highest = level
			}
			if !seen || level < rec.Lowest {
				rec.Lowest = level
			}
			seen = true
		}
		if ev.DeltaLevel != nil {
			if *ev.DeltaLevel > 0 {
				rec.Charged += *ev.DeltaLevel
			} else {
				rec.Drained -= *ev.DeltaLevel
			}
			seen = true
		}
	}

	if !seen {
		return domain.BodyBatteryRecord{}, false
	}
	return rec, true
}

func sortSleep(records []domain.SleepRecord) []domain.SleepRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	out := records[:0]
	for i, rec := range records {
		if i > 0 && rec.Date == records[i-1].Date {
			continue
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []domain.SleepRecord{}
	}
	return out
}

func sortStress(records []domain.StressRecord) []domain.StressRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	out := records[:0]
	for i, rec := range records {
		if i > 0 && rec.Date == records[i-1].Date {
			continue
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []domain.StressRecord{}
	}
	return out
}

func sortBodyBattery(records []domain.BodyBatteryRecord) []domain.BodyBatteryRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	out := records[:0]
	for i, rec := range records {
		if i > 0 && rec.Date == records[i-1].Date {
			continue
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []domain.BodyBatteryRecord{}
	}
	return out
}

func sortActivities(records []domain.ActivityRecord) []domain.ActivityRecord {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].StartTimeLocal < records[j].StartTimeLocal
	})
	if records == nil {
		records = []domain.ActivityRecord{}
	}
	return records
}

func sortHeartRate(records []domain.HeartRateRecord) []domain.HeartRateRecord {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	out := records[:0]
	for i, rec := range records {
		if i > 0 && rec.Date == records[i-1].Date {
			continue
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []domain.HeartRateRecord{}
	}
	return out
}
