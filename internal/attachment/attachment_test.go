package attachment_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/attachment"
)

func newTracker() (*attachment.Tracker, *attachment.MemoryJournal) {
	j := attachment.NewMemoryJournal()
	return attachment.NewTracker(j, slog.New(slog.DiscardHandler)), j
}

func TestTracker_AllUploaded(t *testing.T) {
	ctx := context.Background()
	tr, j := newTracker()

	s := tr.Begin(ctx, "acc-1", "Gastos", "12", []string{"boleta.pdf", "foto.jpg"})
	assert.Equal(t, attachment.StateRowCreated, s.State)

	pending, err := j.Pending(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, tr.Uploading(ctx, s))
	tr.Uploaded(s, "boleta.pdf")
	tr.Uploaded(s, "foto.jpg")
	require.NoError(t, tr.Finish(ctx, s))

	assert.Equal(t, attachment.StateAttachmentsComplete, s.State)

	pending, err = j.Pending(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTracker_FailureStaysPending(t *testing.T) {
	ctx := context.Background()
	tr, j := newTracker()

	s := tr.Begin(ctx, "acc-1", "Gastos", "12", []string{"boleta.pdf", "foto.jpg"})
	require.NoError(t, tr.Uploading(ctx, s))
	tr.Uploaded(s, "boleta.pdf")
	tr.Failed(s, "foto.jpg", errors.New("quota exceeded"))
	require.NoError(t, tr.Finish(ctx, s))

	assert.Equal(t, attachment.StateAttachmentsPending, s.State)
	assert.Equal(t, []string{"foto.jpg"}, s.Outstanding())

	pending, err := j.Pending(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "12", pending[0].ItemID)
	assert.Equal(t, []string{"foto.jpg"}, pending[0].Failed)
	assert.Equal(t, "quota exceeded", pending[0].LastError)

	// resumed
	require.NoError(t, tr.Uploading(ctx, s))
	tr.Uploaded(s, "foto.jpg")
	require.NoError(t, tr.Finish(ctx, s))
	assert.Equal(t, attachment.StateAttachmentsComplete, s.State)
}

func TestTracker_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	s := tr.Begin(ctx, "acc-1", "Gastos", "1", nil)
	assert.ErrorIs(t, tr.Finish(ctx, s), attachment.ErrInvalidTransition)

	require.NoError(t, tr.Uploading(ctx, s))
	require.NoError(t, tr.Finish(ctx, s))
	assert.ErrorIs(t, tr.Uploading(ctx, s), attachment.ErrInvalidTransition)
}

func TestMemoryJournal_PendingIsPerAccount(t *testing.T) {
	ctx := context.Background()
	tr, j := newTracker()

	tr.Begin(ctx, "acc-1", "Gastos", "12", []string{"boleta.pdf"})
	tr.Begin(ctx, "acc-2", "Gastos", "13", []string{"factura.pdf"})

	type testCase struct {
		name    string
		account string
		want    []string
	}

	tests := []testCase{
		{name: "Owner", account: "acc-1", want: []string{"12"}},
		{name: "OtherAccount", account: "acc-2", want: []string{"13"}},
		{name: "Stranger", account: "acc-3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pending, err := j.Pending(ctx, tc.account)
			require.NoError(t, err)

			var got []string
			for _, s := range pending {
				assert.Equal(t, tc.account, s.Account)
				got = append(got, s.ItemID)
			}

			assert.Equal(t, tc.want, got)
		})
	}
}
