package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// DefaultKeyPrefix is the storage key prefix used when none is configured.
const DefaultKeyPrefix = "eco_edu_user_progress"

// RepositoryConfig configures a ProfileRepository.
type RepositoryConfig struct {
	// KeyPrefix is prepended to learner IDs to build storage keys.
	KeyPrefix string

	// DefaultName is the display name given to new profiles.
	DefaultName string
}

// ProfileRepository implements learner.Repository over a Backend.
type ProfileRepository struct {
	backend Backend
	clock   timeutil.Clock
	log     *logger.Logger
	cfg     RepositoryConfig
}

var _ learner.Repository = (*ProfileRepository)(nil)

// NewProfileRepository creates a repository.
func NewProfileRepository(backend Backend, clock timeutil.Clock, log *logger.Logger, cfg RepositoryConfig) *ProfileRepository {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = learner.DefaultDisplayName
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileRepository{
		backend: backend,
		clock:   clock,
		log:     log.With(logger.Component("profile_repository"), logger.Backend(backend.Name())),
		cfg:     cfg,
	}
}

// Key returns the storage key of a learner.
func (r *ProfileRepository) Key(learnerID string) string {
	return r.cfg.KeyPrefix + ":" + strings.TrimSpace(learnerID)
}

// Default returns a fresh profile for the learner dated today.
func (r *ProfileRepository) Default(learnerID string) *learner.Profile {
	return learner.NewDefaultProfile(learnerID, r.cfg.DefaultName, timeutil.Today(r.clock))
}

// Load implements learner.Repository.
//
// When the backend cannot be read the returned profile carries version 0,
// so a later Save can only create the record and never overwrites data
// that may still exist. A corrupt document keeps its stored version and
// is replaced by the next Save.
func (r *ProfileRepository) Load(ctx context.Context, learnerID string) *learner.Profile {
	key := r.Key(learnerID)

	rec, err := r.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return r.Default(learnerID)
	}
	if errors.Is(err, ErrCorruptRecord) {
		return r.replaceCorrupt(learnerID, key, rec.Version, err)
	}
	if err != nil {
		r.log.Warn("profile load failed, using defaults",
			logger.LearnerID(learnerID),
			logger.StorageKey(key),
			logger.Err(err),
		)
		return r.Default(learnerID)
	}

	p, err := DecodeProfile(rec.Data)
	if err != nil {
		return r.replaceCorrupt(learnerID, key, rec.Version, err)
	}

	if fixed := p.Normalize(learnerID, r.cfg.DefaultName, timeutil.Today(r.clock)); len(fixed) > 0 {
		r.log.Warn("stored profile repaired",
			logger.LearnerID(learnerID),
			logger.StorageKey(key),
			logger.Strings("fields", fixed),
		)
	}
	p.Version = rec.Version
	return p
}

// replaceCorrupt returns a default profile carrying the version of the
// unreadable record, so the next Save overwrites it.
func (r *ProfileRepository) replaceCorrupt(learnerID, key string, version int64, err error) *learner.Profile {
	r.log.Error("stored profile is corrupt, using defaults",
		logger.LearnerID(learnerID),
		logger.StorageKey(key),
		logger.Err(err),
	)
	p := r.Default(learnerID)
	p.Version = version
	return p
}

// Save implements learner.Repository.
func (r *ProfileRepository) Save(ctx context.Context, p *learner.Profile) error {
	key := r.Key(p.ID)

	data, err := EncodeProfile(p)
	if err != nil {
		r.log.Error("profile encode failed, write dropped",
			logger.LearnerID(p.ID),
			logger.Err(err),
		)
		return nil
	}

	version, err := r.backend.Put(ctx, key, data, p.Version)
	if errors.Is(err, ErrVersionConflict) {
		return shared.ErrProfileConflict
	}
	if err != nil {
		r.log.Warn("profile save failed, write dropped",
			logger.LearnerID(p.ID),
			logger.StorageKey(key),
			logger.Err(err),
		)
		return nil
	}

	p.Version = version
	return nil
}

// Ping reports backend health.
func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// BackendName returns the name of the underlying backend.
func (r *ProfileRepository) BackendName() string {
	return r.backend.Name()
}
