package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/export"
	"github.com/noah-isme/sma-timetable/pkg/jobs"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

// ArchiveJobKind tags render jobs on the archive queue.
const ArchiveJobKind = "timetable_archive"

type archiveFiles interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Stat(name string) (fs.FileInfo, error)
}

type archiveQueue interface {
	Enqueue(job jobs.Job) error
}

// ArchiveSettings tunes link generation.
type ArchiveSettings struct {
	APIPrefix string
}

// ArchivedFile is an open archive entry ready to stream.
type ArchivedFile struct {
	Name string
	Size int64
	File *os.File
}

// TimetableArchive renders published versions to one PDF per class and hands
// out signed download links for them.
type TimetableArchive struct {
	runs    timetableRepository
	blocks  timetableBlockRepository
	files   archiveFiles
	signer  *storage.SignedURLSigner
	pdf     timetablePDFRenderer
	queue   archiveQueue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ArchiveSettings
}

// NewTimetableArchive wires the archive. Jobs are rendered inline until
// UseQueue attaches a worker pool.
func NewTimetableArchive(
	runs timetableRepository,
	blocks timetableBlockRepository,
	files archiveFiles,
	signer *storage.SignedURLSigner,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ArchiveSettings,
) *TimetableArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &TimetableArchive{
		runs:    runs,
		blocks:  blocks,
		files:   files,
		signer:  signer,
		pdf:     export.NewPDFExporter(),
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// UseQueue routes Schedule through q.
func (a *TimetableArchive) UseQueue(q archiveQueue) {
	a.queue = q
}

// Schedule requests rendering of a published version.
func (a *TimetableArchive) Schedule(ctx context.Context, record *models.TimetableRun) error {
	job := jobs.Job{ID: record.ID, Kind: ArchiveJobKind}
	if a.queue == nil {
		return a.Handle(ctx, job)
	}
	return a.queue.Enqueue(job)
}

// Handle is the queue handler for archive jobs.
func (a *TimetableArchive) Handle(ctx context.Context, job jobs.Job) error {
	start := time.Now()
	written, err := a.render(ctx, job.ID)
	outcome := "rendered"
	if err != nil {
		outcome = "failed"
	}
	a.metrics.ObserveArchive(outcome, written)
	if err != nil {
		return err
	}
	a.logger.Info("timetable archived",
		zap.String("timetable_id", job.ID),
		zap.Int("files", written),
		zap.Int("attempt", job.Attempt),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// GiveUp records a job the queue stopped retrying.
func (a *TimetableArchive) GiveUp(job jobs.Job, err error) {
	a.metrics.ObserveArchive("abandoned", 0)
	a.logger.Error("timetable archive abandoned", zap.String("timetable_id", job.ID), zap.Error(err))
}

func (a *TimetableArchive) render(ctx context.Context, id string) (int, error) {
	record, err := a.runs.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load timetable %s: %w", id, err)
	}
	rows, err := a.blocks.ListByRun(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load blocks of %s: %w", id, err)
	}
	weeks, err := weeksFromBlocks(rows)
	if err != nil {
		return 0, err
	}
	subtitle := fmt.Sprintf("%s / %s / version %d", record.SchoolID, record.TermID, record.Version)
	written := 0
	for _, week := range weeks {
		body, err := a.pdf.Render(weekDataset(week), export.PDFOptions{
			Title:     "Timetable " + week.ClassID,
			Subtitle:  subtitle,
			Landscape: true,
		})
		if err != nil {
			return written, fmt.Errorf("render %s: %w", week.ClassID, err)
		}
		if _, err := a.files.Save(archivePath(record, week.ClassID), body); err != nil {
			return written, fmt.Errorf("store %s: %w", week.ClassID, err)
		}
		written++
	}
	return written, nil
}

// Links lists one entry per class of a published or archived version. Classes
// whose file has not been rendered yet are reported with Ready false.
func (a *TimetableArchive) Links(ctx context.Context, id string) ([]dto.ArchiveLink, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := a.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Internal(err, "failed to load timetable")
	}
	if record.Status == models.TimetableStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "draft timetables are not archived")
	}
	rows, err := a.blocks.ListByRun(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list timetable blocks")
	}

	seen := make(map[string]bool)
	var classes []string
	for _, row := range rows {
		if !seen[row.ClassID] {
			seen[row.ClassID] = true
			classes = append(classes, row.ClassID)
		}
	}
	sort.Strings(classes)

	links := make([]dto.ArchiveLink, 0, len(classes))
	prefix := strings.TrimRight(a.cfg.APIPrefix, "/")
	for _, classID := range classes {
		link := dto.ArchiveLink{ClassID: classID}
		path := archivePath(record, classID)
		if _, err := a.files.Stat(path); err == nil {
			token, grant, err := a.signer.Sign(record.ID, path)
			if err != nil {
				return nil, appErrors.Internal(err, "failed to sign archive link")
			}
			link.Ready = true
			link.URL = prefix + "/timetables/archive/" + token
			link.ExpiresAt = &grant.ExpiresAt
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Internal(err, "failed to inspect archive")
		}
		links = append(links, link)
	}
	return links, nil
}

// Open resolves a download token to its archived file. The caller closes it.
func (a *TimetableArchive) Open(token string) (*ArchivedFile, error) {
	grant, err := a.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := a.files.Open(grant.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archived timetable not found")
		}
		return nil, appErrors.Internal(err, "failed to open archive")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Internal(err, "failed to open archive")
	}
	name := grant.Path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return &ArchivedFile{Name: name, Size: info.Size(), File: file}, nil
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func pathSegment(raw string) string {
	cleaned := unsafePathChars.ReplaceAllString(raw, "_")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

// archivePath is school/term/vN/class.pdf with unsafe characters replaced.
func archivePath(record *models.TimetableRun, classID string) string {
	return fmt.Sprintf("%s/%s/v%d/%s.pdf", pathSegment(record.SchoolID), pathSegment(record.TermID), record.Version, pathSegment(classID))
}

// weeksFromBlocks rebuilds class weeks from stored rows ordered by class,
// weekday and position.
func weeksFromBlocks(rows []models.TimetableBlock) ([]timetable.WeeklySchedule, error) {
	var weeks []timetable.WeeklySchedule
	for _, row := range rows {
		start, err := timetable.ParseClock(row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", row.ID, err)
		}
		block := timetable.Block{
			Kind:         timetable.BlockKind(row.Kind),
			TimeInterval: timetable.TimeInterval{Start: start, Duration: row.DurationMinutes},
			SubjectID:    derefString(row.SubjectID),
			TeacherID:    derefString(row.TeacherID),
			Label:        derefString(row.Label),
			Pinned:       row.Pinned,
			Order:        row.Position,
		}
		if n := len(weeks); n == 0 || weeks[n-1].ClassID != row.ClassID {
			weeks = append(weeks, timetable.WeeklySchedule{ClassID: row.ClassID})
		}
		week := &weeks[len(weeks)-1]
		weekday := timetable.Weekday(row.DayOfWeek)
		if n := len(week.Days); n == 0 || week.Days[n-1].Weekday != weekday {
			week.Days = append(week.Days, timetable.DaySchedule{Weekday: weekday, Start: start})
		}
		day := &week.Days[len(week.Days)-1]
		day.Blocks = append(day.Blocks, block)
		day.End = block.End()
	}
	return weeks, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
