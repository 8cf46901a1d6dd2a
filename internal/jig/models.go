package jig

import (
	"time"

	"github.com/google/uuid"

	"jigpipe/internal/modules"
)

// JIG is one provisioned content unit with its ordered module list. The
// module list always includes the cover first and the ending last, so its
// length is at least two.
type JIG struct {
	ID          uuid.UUID
	DisplayName string
	CreatorID   string
	AuthorID    string
	CoverID     uuid.UUID
	EndingID    uuid.UUID
	PublishAt   *time.Time
	Live        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Modules     []modules.Module
}

// CreateParams describes a jig to provision. Nil cover or ending are
// auto-materialised as empty design-page modules.
type CreateParams struct {
	DisplayName string
	Cover       *modules.Module
	Modules     []modules.Module
	Ending      *modules.Module
	CreatorID   string
	PublishAt   *time.Time
}

// UpdateParams describes a conditional update. Nil fields stay untouched;
// a non-nil Modules slice replaces the inner module list (cover and ending
// keep their slots).
type UpdateParams struct {
	DisplayName *string
	AuthorID    *string
	Cover       *modules.Module
	Ending      *modules.Module
	Modules     []modules.Module
	ModulesSet  bool
	PublishAt   *time.Time
	PublishSet  bool
}
