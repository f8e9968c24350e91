// Package attachment tracks the upload of expense attachments after the expense
// row exists. Each expense with files goes through RowCreated, then
// AttachmentsPending, then AttachmentsComplete. A saga that stays pending was
// interrupted or had failures and is reported by the journal.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateRowCreated          State = "row_created"
	StateAttachmentsPending  State = "attachments_pending"
	StateAttachmentsComplete State = "attachments_complete"
)

var ErrInvalidTransition = errors.New("invalid saga transition")

// Saga is the upload progress of the attachments of one row. Account is the
// signed-in account that created it; only that account sees it as pending.
type Saga struct {
	ID        uuid.UUID
	Account   string
	List      string
	ItemID    string
	State     State
	Files     []string
	Uploaded  []string
	Failed    []string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outstanding returns the files that have not been uploaded yet.
func (s *Saga) Outstanding() []string {
	var out []string

	for _, f := range s.Files {
		if !slices.Contains(s.Uploaded, f) {
			out = append(out, f)
		}
	}

	return out
}

// Journal persists sagas so interrupted uploads can be reported after a restart.
type Journal interface {
	Save(ctx context.Context, s *Saga) error
	Pending(ctx context.Context, account string) ([]Saga, error)
}

// Tracker moves sagas between states, logging and journaling every transition.
// A journal failure is logged and does not stop the upload.
type Tracker struct {
	journal Journal
	log     *slog.Logger
	now     func() time.Time
}

func NewTracker(journal Journal, log *slog.Logger) *Tracker {
	if journal == nil {
		journal = NewMemoryJournal()
	}

	if log == nil {
		log = slog.Default()
	}

	return &Tracker{journal: journal, log: log, now: time.Now}
}

func (t *Tracker) Journal() Journal { return t.journal }

// Begin records that the row exists and its files are about to be uploaded.
func (t *Tracker) Begin(ctx context.Context, account, list, itemID string, files []string) *Saga {
	now := t.now().UTC()

	s := &Saga{
		ID:        uuid.New(),
		Account:   account,
		List:      list,
		ItemID:    itemID,
		State:     StateRowCreated,
		Files:     slices.Clone(files),
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.record(ctx, s)

	return s
}

// Uploading moves the saga to AttachmentsPending. Resumed sagas may already be there.
func (t *Tracker) Uploading(ctx context.Context, s *Saga) error {
	if s.State == StateAttachmentsComplete {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.State, StateAttachmentsPending)
	}

	s.State = StateAttachmentsPending
	s.Failed = nil
	s.LastError = ""
	t.touch(ctx, s)

	return nil
}

func (t *Tracker) Uploaded(s *Saga, file string) {
	if !slices.Contains(s.Uploaded, file) {
		s.Uploaded = append(s.Uploaded, file)
	}
}

func (t *Tracker) Failed(s *Saga, file string, err error) {
	s.Failed = append(s.Failed, file)
	s.LastError = err.Error()

	t.log.Warn("attachment upload failed", "saga", s.ID, "item_id", s.ItemID, "file", file, "error", err)
}

// Finish completes the saga when every file is uploaded and otherwise leaves it
// pending with its failures recorded.
func (t *Tracker) Finish(ctx context.Context, s *Saga) error {
	if s.State != StateAttachmentsPending {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.State, StateAttachmentsComplete)
	}

	if len(s.Outstanding()) == 0 {
		s.State = StateAttachmentsComplete
	}

	t.touch(ctx, s)

	return nil
}

func (t *Tracker) touch(ctx context.Context, s *Saga) {
	s.UpdatedAt = t.now().UTC()
	t.record(ctx, s)
}

func (t *Tracker) record(ctx context.Context, s *Saga) {
	t.log.Info("attachment saga",
		"saga", s.ID, "account", s.Account, "list", s.List, "item_id", s.ItemID, "state", s.State,
		"uploaded", len(s.Uploaded), "failed", len(s.Failed), "files", len(s.Files))

	if err := t.journal.Save(ctx, s); err != nil {
		t.log.Error("failed to journal attachment saga", "saga", s.ID, "error", err)
	}
}
