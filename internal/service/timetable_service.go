package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/export"
)

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	ListBySchoolTerm(ctx context.Context, schoolID, termID string) ([]models.TimetableRun, error)
	FindByID(ctx context.Context, id string) (*models.TimetableRun, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, schoolID, termID, exceptID string) error
}

type timetableBlockRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.TimetableBlock) error
	ListByRun(ctx context.Context, runID string) ([]models.TimetableBlock, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type archiveScheduler interface {
	Schedule(ctx context.Context, record *models.TimetableRun) error
}

type timetableCSVRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type timetablePDFRenderer interface {
	Render(data export.Dataset, opts export.PDFOptions) ([]byte, error)
}

// TimetableConfig governs run retention and engine defaults.
type TimetableConfig struct {
	RunTTL        time.Duration
	PeriodMinutes int
	SchoolDays    int
	CacheTTL      time.Duration
}

// ExportedTimetable is a rendered class week.
type ExportedTimetable struct {
	Filename    string
	ContentType string
	Body        []byte
}

const (
	runOutcomeComplete = "complete"
	runOutcomeShort    = "short"
	runOutcomeInvalid  = "invalid"
)

// TimetableService runs the scheduling engine and manages the lifecycle of
// generated and saved timetables.
type TimetableService struct {
	runs      timetableRepository
	blocks    timetableBlockRepository
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	csv       timetableCSVRenderer
	pdf       timetablePDFRenderer
	validator *validator.Validate
	logger    *zap.Logger
	store     *runStore
	archive   archiveScheduler
	cfg       TimetableConfig
}

// NewTimetableService wires timetable dependencies. Persistence is optional:
// with nil repositories only in-process runs are available.
func NewTimetableService(
	runs timetableRepository,
	blocks timetableBlockRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 30 * time.Minute
	}
	if cfg.PeriodMinutes <= 0 {
		cfg.PeriodMinutes = timetable.DefaultPeriodLength
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cfg.RunTTL
	}
	svc := &TimetableService{
		runs:      runs,
		blocks:    blocks,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		store:     newRunStore(cfg.RunTTL),
		cfg:       cfg,
	}
	svc.validator.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timetable.IsValidHHMM(fl.Field().String())
	})
	return svc
}

// UseArchive makes Publish schedule archiving of the published version.
func (s *TimetableService) UseArchive(archive archiveScheduler) {
	s.archive = archive
}

func runCacheKey(id string) string {
	return "timetable:run:" + id
}

// Classify annotates subjects with their weekly period counts.
func (s *TimetableService) Classify(ctx context.Context, req dto.ClassifySubjectsRequest) (*dto.ClassifySubjectsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classify payload")
	}
	return &dto.ClassifySubjectsResponse{Subjects: timetable.ClassifySubjects(toSubjectLoads(req.Subjects), req.ExamTerm)}, nil
}

// DefaultConfig returns the standard school week of 5 or 6 days.
func (s *TimetableService) DefaultConfig(days int) timetable.SchoolTimeConfig {
	if days == 0 {
		days = s.cfg.SchoolDays
	}
	return timetable.DefaultSchoolWeek(days)
}

// Generate runs the whole scheduling pipeline for a school and keeps the result
// under a new run id. Engine diagnostics are part of the response, not errors.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	periodMinutes := req.PeriodMinutes
	if periodMinutes == 0 {
		periodMinutes = s.cfg.PeriodMinutes
	}
	in, err := toRunInput(req, periodMinutes, s.cfg.SchoolDays)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	start := time.Now()
	result := timetable.Run(in)
	elapsed := time.Since(start)

	run := timetableRun{
		ID:            uuid.NewString(),
		SchoolID:      req.SchoolID,
		TermID:        req.TermID,
		ExamTerm:      req.ExamTerm,
		PeriodMinutes: periodMinutes,
		Subjects:      result.Subjects,
		Schedules:     result.Schedules,
		Forbidden:     in.Forbidden,
		Diagnostics:   result.Diagnostics,
		CreatedAt:     time.Now().UTC(),
	}
	s.store.Save(run)
	s.cacheRun(ctx, run)

	summary := summarize(run)
	outcome := runOutcomeComplete
	switch {
	case summary.ValidationFailures > 0:
		outcome = runOutcomeInvalid
	case summary.ShortPeriods > 0:
		outcome = runOutcomeShort
	}
	s.metrics.ObserveTimetableRun(outcome, summary.ScheduledPeriods, shortByReason(run.Diagnostics), elapsed)
	s.logger.Info("timetable run completed",
		zap.String("run_id", run.ID),
		zap.String("school_id", run.SchoolID),
		zap.Int("classes", summary.Classes),
		zap.Int("scheduled_periods", summary.ScheduledPeriods),
		zap.Int("short_periods", summary.ShortPeriods),
		zap.Int("validation_failures", summary.ValidationFailures),
		zap.Duration("duration", elapsed),
	)
	return toRunResponse(run, s.cfg.RunTTL), nil
}

// GetRun returns a generated run that has not expired.
func (s *TimetableService) GetRun(ctx context.Context, runID string) (*dto.TimetableRunResponse, error) {
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return toRunResponse(run, s.cfg.RunTTL), nil
}

// DiscardRun drops an unsaved run from the process store and the shared cache.
func (s *TimetableService) DiscardRun(ctx context.Context, runID string) error {
	if _, err := s.loadRun(ctx, runID); err != nil {
		return err
	}
	s.store.Delete(runID)
	if err := s.cache.Forget(ctx, runCacheKey(runID)); err != nil {
		return appErrors.Internal(err, "failed to evict cached run")
	}
	s.logger.Info("timetable run discarded", zap.String("run_id", runID))
	return nil
}

// Rebalance rebuilds one class day of a run after its anchors changed. The
// teacher calendar is reconstructed from every class of the run so the day
// cannot double-book a teacher elsewhere. Rebalances of one run are serialized.
func (s *TimetableService) Rebalance(ctx context.Context, runID string, req dto.RebalanceTimetableRequest) (*dto.RebalanceTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rebalance payload")
	}
	dayCfg, err := toDayConfig(req.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	forbidden, err := toForbidden(req.Forbidden)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	pinned := make([]timetable.Clock, 0, len(req.Pinned))
	for _, raw := range req.Pinned {
		clock, err := timetable.ParseClock(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		pinned = append(pinned, clock)
	}
	if _, err := s.loadRun(ctx, runID); err != nil {
		return nil, err
	}

	weekday := timetable.Weekday(req.Weekday)
	var result timetable.RebalanceResult
	updated, ok, err := s.store.Update(runID, func(run *timetableRun) error {
		idx := run.scheduleIndex(req.ClassID)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("class %s is not part of run", req.ClassID))
		}
		calendar, err := timetable.CalendarFromSchedules(run.Schedules)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "stored run double-books a teacher")
		}
		windows := make([]timetable.ForbiddenWindow, 0, len(run.Forbidden)+len(forbidden))
		windows = append(windows, run.Forbidden...)
		windows = append(windows, forbidden...)
		result, err = timetable.NewRebalancer(calendar).Rebalance(timetable.RebalanceRequest{
			Schedule:     run.Schedules[idx],
			Weekday:      weekday,
			Config:       dayCfg,
			Forbidden:    windows,
			Pinned:       pinned,
			PeriodLength: run.PeriodMinutes,
		})
		if err != nil {
			var invalid *timetable.ValidationError
			if errors.As(err, &invalid) {
				return appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, invalid.Error())
			}
			return appErrors.Internal(err, "failed to rebalance day")
		}
		run.Schedules[idx] = result.Schedule
		run.Diagnostics.UnderAllocation = append(run.Diagnostics.UnderAllocation, result.Shortfalls...)
		run.SavedID = ""
		return nil
	})
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found or expired")
	}
	if err != nil {
		s.metrics.ObserveRebalance(runOutcomeInvalid)
		return nil, err
	}
	outcome := runOutcomeComplete
	if len(result.Shortfalls) > 0 {
		outcome = runOutcomeShort
	}
	s.metrics.ObserveRebalance(outcome)
	s.cacheRun(ctx, updated)
	s.logger.Info("timetable day rebalanced",
		zap.String("run_id", runID),
		zap.String("class_id", req.ClassID),
		zap.Stringer("weekday", weekday),
		zap.Int("shortfalls", len(result.Shortfalls)),
	)
	return &dto.RebalanceTimetableResponse{
		RunID:      runID,
		ClassID:    req.ClassID,
		Day:        result.Day,
		Shortfalls: result.Shortfalls,
	}, nil
}

// Save persists a run as the next draft version of its school-term pair.
func (s *TimetableService) Save(ctx context.Context, runID string, req dto.SaveTimetableRequest) (*dto.SavedTimetableResponse, error) {
	if s.runs == nil || s.blocks == nil || s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "timetable persistence is disabled")
	}
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(run.Diagnostics.Validation) > 0 {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable, "run has validation errors and cannot be saved").WithDetails(run.Diagnostics.Validation)
	}
	if run.SavedID != "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "run already saved as "+run.SavedID)
	}

	metaBytes, marshalErr := json.Marshal(map[string]any{
		"runId":       run.ID,
		"summary":     summarize(run),
		"diagnostics": run.Diagnostics,
		"subjects":    run.Subjects,
		"generated":   run.CreatedAt,
		"extra":       req.Meta,
	})
	if marshalErr != nil {
		return nil, appErrors.Internal(marshalErr, "failed to encode timetable metadata")
	}

	start := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.TimetableRun{
		SchoolID:      run.SchoolID,
		TermID:        run.TermID,
		Status:        models.TimetableStatusDraft,
		ExamTerm:      run.ExamTerm,
		PeriodMinutes: run.PeriodMinutes,
		Meta:          types.JSONText(metaBytes),
	}
	if err = s.runs.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Internal(err, "failed to create timetable version")
		return nil, err
	}
	blocks := toBlockModels(record.ID, run.Schedules)
	if err = s.blocks.InsertBatch(ctx, tx, blocks); err != nil {
		err = appErrors.Internal(err, "failed to persist timetable blocks")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit timetable transaction")
		return nil, err
	}
	s.metrics.ObserveDBQuery("timetable_save", time.Since(start))

	if updated, ok, _ := s.store.Update(runID, func(r *timetableRun) error {
		r.SavedID = record.ID
		return nil
	}); ok {
		s.cacheRun(ctx, updated)
	}
	return &dto.SavedTimetableResponse{
		ID:       record.ID,
		Version:  record.Version,
		Status:   string(record.Status),
		Blocks:   len(blocks),
		SchoolID: record.SchoolID,
		TermID:   record.TermID,
	}, nil
}

// List returns saved versions for a school-term pair.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableRun, error) {
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "timetable persistence is disabled")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "schoolId and termId are required")
	}
	start := time.Now()
	list, err := s.runs.ListBySchoolTerm(ctx, query.SchoolID, query.TermID)
	s.metrics.ObserveDBQuery("timetable_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list timetables")
	}
	return list, nil
}

// Blocks returns the stored blocks of a saved version.
func (s *TimetableService) Blocks(ctx context.Context, id string) ([]models.TimetableBlock, error) {
	if s.runs == nil || s.blocks == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "timetable persistence is disabled")
	}
	if _, err := s.findSaved(ctx, id); err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListByRun(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list timetable blocks")
	}
	return blocks, nil
}

// Delete removes a draft version.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if s.runs == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "timetable persistence is disabled")
	}
	record, err := s.findSaved(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft timetables can be deleted")
	}
	if err := s.runs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Internal(err, "failed to delete timetable")
	}
	return nil
}

// Publish marks a version as the published timetable of its school-term pair
// and archives the previously published one.
func (s *TimetableService) Publish(ctx context.Context, id string) (*models.TimetableRun, error) {
	if s.runs == nil || s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "timetable persistence is disabled")
	}
	record, err := s.findSaved(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == models.TimetableStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrConflict, "archived timetables cannot be published")
	}
	if record.Status == models.TimetableStatusPublished {
		return record, nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.runs.ArchivePublished(ctx, tx, record.SchoolID, record.TermID, record.ID); err != nil {
		err = appErrors.Internal(err, "failed to archive published timetable")
		return nil, err
	}
	if err = s.runs.UpdateStatus(ctx, tx, record.ID, models.TimetableStatusPublished); err != nil {
		err = appErrors.Internal(err, "failed to publish timetable")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Internal(err, "failed to commit timetable transaction")
		return nil, err
	}
	record.Status = models.TimetableStatusPublished
	s.logger.Info("timetable published",
		zap.String("timetable_id", record.ID),
		zap.String("school_id", record.SchoolID),
		zap.String("term_id", record.TermID),
		zap.Int("version", record.Version),
	)
	if s.archive != nil {
		if archiveErr := s.archive.Schedule(ctx, record); archiveErr != nil {
			s.logger.Warn("timetable archive not scheduled", zap.String("timetable_id", record.ID), zap.Error(archiveErr))
		}
	}
	return record, nil
}

// Export renders one class week of a run as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, runID string, query dto.ExportTimetableQuery) (*ExportedTimetable, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	run, err := s.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	idx := run.scheduleIndex(query.ClassID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("class %s is not part of run", query.ClassID))
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format "+query.Format)
	}
	return renderWeek(run.Schedules[idx], format, s.csv, s.pdf, "Run "+run.ID)
}

// renderWeek renders a class week with the given renderers.
func renderWeek(week timetable.WeeklySchedule, format export.Format, csv timetableCSVRenderer, pdf timetablePDFRenderer, subtitle string) (*ExportedTimetable, error) {
	data := weekDataset(week)
	var (
		body []byte
		err  error
	)
	switch format {
	case export.FormatPDF:
		body, err = pdf.Render(data, export.PDFOptions{Title: "Timetable " + week.ClassID, Subtitle: subtitle, Landscape: true})
	case export.FormatCSV:
		body, err = csv.Render(data)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+string(format))
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render timetable")
	}
	return &ExportedTimetable{
		Filename:    format.Filename("timetable-" + week.ClassID),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *TimetableService) findSaved(ctx context.Context, id string) (*models.TimetableRun, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Internal(err, "failed to load timetable")
	}
	return record, nil
}

// loadRun reads a run from the process store, falling back to the shared
// cache so runs survive across instances.
func (s *TimetableService) loadRun(ctx context.Context, runID string) (timetableRun, error) {
	if runID == "" {
		return timetableRun{}, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	if run, ok := s.store.Get(runID); ok {
		return run, nil
	}
	var cached timetableRun
	hit, err := s.cache.Get(ctx, runCacheKey(runID), &cached)
	if err == nil && hit && time.Since(cached.CreatedAt) <= s.cfg.RunTTL {
		return s.store.Restore(cached), nil
	}
	return timetableRun{}, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found or expired")
}

func (s *TimetableService) cacheRun(ctx context.Context, run timetableRun) {
	if !s.cache.Enabled() {
		return
	}
	_ = s.cache.Set(ctx, runCacheKey(run.ID), run, s.cfg.CacheTTL)
}
