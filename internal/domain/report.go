package domain

import (
	"fmt"
	"time"
)

// latestSnapshotMaxAge bounds how stale the fallback model snapshot may be.
const latestSnapshotMaxAge = 6 * time.Hour

// ReportMeta describes how a report was assembled.
type ReportMeta struct {
	SeasonStart              string       `json:"season_start"`
	Today                    string       `json:"today"`
	HistoryEnd               string       `json:"history_end"`
	DisplayStart             string       `json:"display_start"`
	DisplayEnd               string       `json:"display_end"`
	HistoryRange             HistoryRange `json:"history_range"`
	HistorySource            string       `json:"history_source"`
	HistoryIncludesSnowDepth bool         `json:"history_includes_snow_depth"`
	Timezone                 string       `json:"timezone"`
	ElevationFt              *float64     `json:"elevation_ft"`
	DataMode                 DataMode     `json:"data_mode"`
	StationNote              string       `json:"station_note,omitempty"`
	ArchiveTodaySnowIn       *float64     `json:"archive_today_snow_in"`
	ArchiveTodayThrough      string       `json:"archive_today_through,omitempty"`
	Degradations             []string     `json:"degradations"`
}

// ForecastView is the forward forecast block of a report.
type ForecastView struct {
	Hourly   []HourlyRecord      `json:"hourly"`
	Daily    []PowderScoreRecord `json:"daily"`
	Events   []Event             `json:"events"`
	ModelNow *ModelSnapshot      `json:"model_now"`
	Summary  *ForwardSummary     `json:"summary"`
}

// SeasonReport is the output of one season load.
type SeasonReport struct {
	RunID         string              `json:"run_id"`
	Token         uint64              `json:"token"`
	RequestID     string              `json:"request_id,omitempty"`
	LocationKey   string              `json:"location_key"`
	Lat           float64             `json:"lat"`
	Lon           float64             `json:"lon"`
	GeneratedAt   time.Time           `json:"generated_at"`
	Meta          ReportMeta          `json:"meta"`
	Hourly        []HourlyRecord      `json:"hourly"`
	Daily         []PowderScoreRecord `json:"daily"`
	Events        []Event             `json:"events"`
	RuleMatches   RuleMatches         `json:"rule_matches"`
	MetricSources MetricSourceStats   `json:"metric_sources"`
	ChartSources  map[string]string   `json:"chart_sources"`
	StationCheck  StationCheck        `json:"station_check"`
	Summary       Summary             `json:"summary"`
	Forecast      *ForecastView       `json:"forecast,omitempty"`
	Thermochron   []ThermochronPoint  `json:"thermochron"`
}

// StationHistory is the observation history of the station merged into a
// station-mode run.
type StationHistory struct {
	StationID string
	Features  []ObservationFeature
}

// SeasonInputs is everything a report is computed from. History and Archive
// are mandatory; the rest may be absent.
type SeasonInputs struct {
	Request    LoadRequest
	RunID      string
	Token      uint64
	Now        time.Time
	Window     SeasonWindow
	Thresholds Thresholds

	History Acquired
	Archive ArchiveSnowHistory
	Today   *ModelPayload
	Forward *ModelPayload

	Station           *StationHistory
	StationHistoryErr error

	StationObs    *StationObservation
	StationObsErr error

	Degradations []string
}

// BuildSeasonReport runs the analytics over acquired payloads.
func BuildSeasonReport(in SeasonInputs) SeasonReport {
	hp := in.History.Payload
	loc := LoadLocation(hp.Timezone)
	currentHour := HourKey(in.Now, loc)
	today := in.Now.In(loc).Format(DayKeyLayout)

	hourly := MapHourlyPayload(hp.Hourly, hp.HourlyUnits)
	if in.Today != nil {
		hourly = MergeHourlyRecords(hourly, MapHourlyPayload(in.Today.Hourly, in.Today.HourlyUnits), today, currentHour)
	}
	hourly = ClipThroughHour(hourly, currentHour)

	meta := ReportMeta{
		SeasonStart:              in.Window.Start,
		Today:                    today,
		HistoryEnd:               in.Window.HistoryEnd,
		HistoryRange:             in.Request.HistoryRange,
		HistorySource:            in.History.Source,
		HistoryIncludesSnowDepth: in.History.IncludesSnowDepth,
		Timezone:                 loc.String(),
		ElevationFt:              roundPtr(MetersToFeet(hp.Elevation), 0),
		DataMode:                 in.Request.DataMode,
		Degradations:             append([]string{}, in.Degradations...),
	}

	stats := ModelOnlyStats()
	if in.Request.DataMode == DataModeStation {
		var stationHourly []HourlyRecord
		stationHourly, meta.StationNote = stationBins(in.Station, in.StationHistoryErr, loc)
		hourly, stats = MergeModelAndStation(hourly, stationHourly)
	}

	applied := ApplyArchiveSnowfall(AggregateDaily(hourly), in.Archive, currentHour)
	meta.ArchiveTodaySnowIn = applied.TodaySnowSumIn
	meta.ArchiveTodayThrough = applied.TodaySnowThrough

	scored := DerivePowderScores(applied.Daily)
	analysis := AnalyzeRules(scored, in.Thresholds)

	var forward ForwardWindow
	if in.Forward != nil {
		forward = DeriveForwardWindow(*in.Forward)
	}
	modelNow := forward.ModelNow
	if modelNow == nil {
		modelNow = LatestHourlySnapshot(hourly, loc, latestSnapshotMaxAge)
	}

	var check StationCheck
	switch {
	case in.StationObs != nil:
		payload := ScoreStationConfidence(*in.StationObs, modelNow, hp.Elevation)
		check = StationCheck{Payload: &payload}
	case in.StationObsErr != nil:
		check = StationCheckFailed(in.StationObsErr.Error())
	default:
		check = StationCheckFailed("no station observation available")
	}

	forwardSummary := SummarizeForwardWindow(forward.Hourly)
	window := ApplyDisplayWindow(hourly, scored, analysis, DisplayStart(scored, in.Window.Start, in.Request.HistoryRange))
	meta.DisplayStart, meta.DisplayEnd = window.Start, window.End

	report := SeasonReport{
		RunID:         in.RunID,
		Token:         in.Token,
		RequestID:     in.Request.RequestID,
		LocationKey:   in.Request.LocationKey(),
		Lat:           in.Request.Lat,
		Lon:           in.Request.Lon,
		GeneratedAt:   in.Now.UTC(),
		Meta:          meta,
		Hourly:        nonNilHourly(window.Hourly),
		Daily:         nonNilScored(window.Daily),
		Events:        window.Events,
		RuleMatches:   window.Matches,
		MetricSources: stats,
		ChartSources:  ChartSources(in.Request.DataMode, stats),
		StationCheck:  check,
		Summary:       BuildSummary(hourly, scored, analysis.Matches, forwardSummary),
		Thermochron:   Thermochron(SeasonHighs(scored)...),
	}
	if in.Request.WantsForecast() && len(forward.Hourly) > 0 {
		days, events := ScoreForecastDays(applied.Daily, forward.Hourly, in.Thresholds)
		report.Forecast = &ForecastView{
			Hourly:   forward.Hourly,
			Daily:    days,
			Events:   events,
			ModelNow: forward.ModelNow,
			Summary:  forwardSummary,
		}
	}
	return report
}

// stationBins maps station history into hourly bins and describes the
// outcome for the report metadata. A nil result falls back to model data.
func stationBins(h *StationHistory, err error, loc *time.Location) ([]HourlyRecord, string) {
	switch {
	case err != nil:
		return nil, fmt.Sprintf("fallback to model (%v)", err)
	case h == nil || len(h.Features) == 0:
		return nil, "fallback to model (no station observations)"
	}
	bins := MapStationObservations(h.Features, loc)
	if len(bins) == 0 {
		return nil, "fallback to model (no usable station observations)"
	}
	return bins, fmt.Sprintf("%d station hourly bins from %d obs", len(bins), len(h.Features))
}

func nonNilHourly(r []HourlyRecord) []HourlyRecord {
	if r == nil {
		return []HourlyRecord{}
	}
	return r
}

func nonNilScored(r []PowderScoreRecord) []PowderScoreRecord {
	if r == nil {
		return []PowderScoreRecord{}
	}
	return r
}
