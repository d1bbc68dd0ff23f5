package creators

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/creatordesk/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates that the creator does not exist locally.
	ErrNotFound = errors.New("creators: creator not found")
	// ErrForbidden indicates that the requester does not own the creator.
	ErrForbidden = errors.New("creators: requester does not own creator")
	// ErrMissingOwner indicates that no owner username could be determined.
	ErrMissingOwner = errors.New("creators: owner username required")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opList      = "creators.list"
	opCreate    = "creators.create"
	opUpdate    = "creators.update"
	opDelete    = "creators.delete"
	opDeleteAll = "creators.delete_all"
	opSummary   = "creators.summary"

	mirrorOperationAppend  = "append"
	mirrorOperationReplace = "replace"
	mirrorOperationRemove  = "remove"

	orderNewestFirst = "created_at DESC, id DESC"
)

// Mirror is the best-effort spreadsheet copy of creator records.
// Replace and Remove report false when no row matches the record's id and owner.
type Mirror interface {
	Append(ctx context.Context, creator Creator) error
	Replace(ctx context.Context, creator Creator) (bool, error)
	Remove(ctx context.Context, creator Creator) (bool, error)
}

// MirrorObserver receives the status of every mirror attempt.
type MirrorObserver interface {
	ObserveMirrorWrite(operation, status string)
}

// ServiceConfig describes the dependencies of the creator service. Mirror and
// Observer are optional.
type ServiceConfig struct {
	Database *gorm.DB
	Mirror   Mirror
	Observer MirrorObserver
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service writes creator records to the local store and mirrors them to the spreadsheet.
type Service struct {
	db       *gorm.DB
	mirror   Mirror
	observer MirrorObserver
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService constructs the creator service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New("creators.service.new", "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:       cfg.Database,
		mirror:   cfg.Mirror,
		observer: cfg.Observer,
		clock:    clock,
		logger:   logger,
	}, nil
}

// List returns the owner's creators, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]Creator, error) {
	if s.db == nil {
		s.logError(opList, "missing_database", errMissingDatabase)
		return nil, serviceerr.New(opList, "missing_database", errMissingDatabase)
	}
	owner = normalize(owner)
	if owner == "" {
		return nil, serviceerr.New(opList, "missing_owner", ErrMissingOwner)
	}

	var records []Creator
	if err := s.db.WithContext(ctx).
		Where("username = ?", owner).
		Order(orderNewestFirst).
		Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("username", owner))
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	return records, nil
}

// Create inserts a creator and then appends it to the mirror. The owner is
// fields.Username when set, otherwise the requester.
func (s *Service) Create(ctx context.Context, requester string, fields Fields) (WriteOutcome, error) {
	if s.db == nil {
		s.logError(opCreate, "missing_database", errMissingDatabase)
		return WriteOutcome{}, serviceerr.New(opCreate, "missing_database", errMissingDatabase)
	}
	owner := normalize(fields.Username)
	if owner == "" {
		owner = normalize(requester)
	}
	if owner == "" {
		return WriteOutcome{}, serviceerr.New(opCreate, "missing_owner", ErrMissingOwner)
	}

	record := fields.applyTo(Creator{
		Username:  owner,
		CreatedAt: s.clock().Truncate(time.Second),
	})
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("username", owner))
		return WriteOutcome{}, serviceerr.New(opCreate, "insert_failed", err)
	}

	var stored Creator
	if err := s.db.WithContext(ctx).Take(&stored, record.ID).Error; err != nil {
		s.logError(opCreate, "readback_failed", err, zap.Int64("creator_id", record.ID))
		return WriteOutcome{}, serviceerr.New(opCreate, "readback_failed", err)
	}

	mirror := s.syncMirror(ctx, mirrorOperationAppend, stored, func(ctx context.Context, creator Creator) (bool, error) {
		return true, s.mirror.Append(ctx, creator)
	})
	return WriteOutcome{Creator: stored, Mirror: mirror}, nil
}

// Update rewrites the creator's fields when the requester owns it, then
// rewrites the matching mirror row.
func (s *Service) Update(ctx context.Context, requester string, id int64, fields Fields) (WriteOutcome, error) {
	if s.db == nil {
		s.logError(opUpdate, "missing_database", errMissingDatabase)
		return WriteOutcome{}, serviceerr.New(opUpdate, "missing_database", errMissingDatabase)
	}
	record, err := s.loadOwned(ctx, opUpdate, requester, id)
	if err != nil {
		return WriteOutcome{}, err
	}

	if err := s.db.WithContext(ctx).
		Model(&Creator{}).
		Where("id = ?", record.ID).
		Updates(fields.columns()).Error; err != nil {
		s.logError(opUpdate, "local_update_failed", err, zap.Int64("creator_id", record.ID))
		return WriteOutcome{}, serviceerr.New(opUpdate, "local_update_failed", err)
	}

	var updated Creator
	if err := s.db.WithContext(ctx).Take(&updated, record.ID).Error; err != nil {
		s.logError(opUpdate, "readback_failed", err, zap.Int64("creator_id", record.ID))
		updated = fields.applyTo(record)
	}

	mirror := s.syncMirror(ctx, mirrorOperationReplace, updated, func(ctx context.Context, creator Creator) (bool, error) {
		return s.mirror.Replace(ctx, creator)
	})
	return WriteOutcome{Creator: updated, Mirror: mirror}, nil
}

// Delete removes the matching mirror row and then the local creator, when the
// requester owns it.
func (s *Service) Delete(ctx context.Context, requester string, id int64) (WriteOutcome, error) {
	if s.db == nil {
		s.logError(opDelete, "missing_database", errMissingDatabase)
		return WriteOutcome{}, serviceerr.New(opDelete, "missing_database", errMissingDatabase)
	}
	record, err := s.loadOwned(ctx, opDelete, requester, id)
	if err != nil {
		return WriteOutcome{}, err
	}

	mirror := s.syncMirror(ctx, mirrorOperationRemove, record, func(ctx context.Context, creator Creator) (bool, error) {
		return s.mirror.Remove(ctx, creator)
	})

	if err := s.db.WithContext(ctx).Delete(&Creator{}, record.ID).Error; err != nil {
		s.logError(opDelete, "local_delete_failed", err, zap.Int64("creator_id", record.ID))
		return WriteOutcome{}, serviceerr.New(opDelete, "local_delete_failed", err)
	}
	return WriteOutcome{Creator: record, Mirror: mirror}, nil
}

// DeleteAll removes every local creator of the owner. The mirror is not touched.
func (s *Service) DeleteAll(ctx context.Context, owner string) (int64, error) {
	if s.db == nil {
		s.logError(opDeleteAll, "missing_database", errMissingDatabase)
		return 0, serviceerr.New(opDeleteAll, "missing_database", errMissingDatabase)
	}
	owner = normalize(owner)
	if owner == "" {
		return 0, serviceerr.New(opDeleteAll, "missing_owner", ErrMissingOwner)
	}
	result := s.db.WithContext(ctx).Where("username = ?", owner).Delete(&Creator{})
	if result.Error != nil {
		s.logError(opDeleteAll, "delete_failed", result.Error, zap.String("username", owner))
		return 0, serviceerr.New(opDeleteAll, "delete_failed", result.Error)
	}
	return result.RowsAffected, nil
}

// Summary counts every creator and returns the most recent limit records across owners.
func (s *Service) Summary(ctx context.Context, limit int) (Summary, error) {
	if s.db == nil {
		return Summary{}, serviceerr.New(opSummary, "missing_database", errMissingDatabase)
	}
	var summary Summary
	if err := s.db.WithContext(ctx).Model(&Creator{}).Count(&summary.Total).Error; err != nil {
		return Summary{}, serviceerr.New(opSummary, "count_failed", err)
	}
	if limit > 0 {
		if err := s.db.WithContext(ctx).Order(orderNewestFirst).Limit(limit).Find(&summary.Recent).Error; err != nil {
			return Summary{}, serviceerr.New(opSummary, "query_failed", err)
		}
	}
	return summary, nil
}

func (s *Service) loadOwned(ctx context.Context, operation, requester string, id int64) (Creator, error) {
	var record Creator
	err := s.db.WithContext(ctx).Take(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Creator{}, serviceerr.New(operation, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.Int64("creator_id", id))
		return Creator{}, serviceerr.New(operation, "select_failed", err)
	}
	if record.Username != normalize(requester) {
		return Creator{}, serviceerr.New(operation, "forbidden", ErrForbidden)
	}
	return record, nil
}

func (s *Service) syncMirror(ctx context.Context, operation string, creator Creator, write func(context.Context, Creator) (bool, error)) MirrorResult {
	result := MirrorResult{Status: MirrorSynced}
	fields := []zap.Field{
		zap.String("mirror_operation", operation),
		zap.Int64("creator_id", creator.ID),
		zap.String("username", creator.Username),
	}

	if s.mirror == nil {
		result.Status = MirrorDisabled
	} else if found, err := write(ctx, creator); err != nil {
		result = MirrorResult{Status: MirrorFailed, Err: err}
		s.loggerOrDefault().Error("spreadsheet mirror write failed", append(fields, zap.Error(err))...)
	} else if !found {
		result.Status = MirrorNotFound
		s.loggerOrDefault().Warn("no matching spreadsheet row", fields...)
	}

	if s.observer != nil {
		s.observer.ObserveMirrorWrite(operation, string(result.Status))
	}
	return result
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("creators service error", attrs...)
}
