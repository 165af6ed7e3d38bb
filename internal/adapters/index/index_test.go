package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(account, subject string, offset time.Duration, label core.Label) core.Message {
	return core.Message{
		Subject: subject,
		From:    "sender@example.com",
		Date:    base.Add(offset),
		Folder:  "INBOX",
		Account: account,
		Label:   label,
	}
}

func runStoreTests(t *testing.T, store core.IndexStore) {
	ctx := context.Background()

	t.Run("upsert is idempotent per key", func(t *testing.T) {
		m := msg("a@x.com", "Can we schedule a demo?", 0, "")
		require.NoError(t, store.Upsert(ctx, m))
		require.NoError(t, store.Upsert(ctx, m.WithLabel(core.LabelInterested)))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := store.Search(ctx, core.SearchQuery{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, core.LabelInterested, got[0].Label)
		assert.Equal(t, m.Key(), got[0].Key())
	})

	t.Run("filters and ordering", func(t *testing.T) {
		_, err := store.ClearAll(ctx)
		require.NoError(t, err)

		require.NoError(t, store.Upsert(ctx, msg("a@x.com", "first", time.Minute, core.LabelSpam)))
		require.NoError(t, store.Upsert(ctx, msg("a@x.com", "second", 2*time.Minute, core.LabelInterested)))
		require.NoError(t, store.Upsert(ctx, msg("Bob@Y.com", "third", 3*time.Minute, core.LabelInterested)))

		got, err := store.Search(ctx, core.SearchQuery{}.Must(core.FieldLabel, string(core.LabelInterested)))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "third", got[0].Subject)
		assert.Equal(t, "second", got[1].Subject)

		got, err = store.Search(ctx, core.SearchQuery{}.Phrase(core.FieldAccount, "bob@y"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "third", got[0].Subject)

		got, err = store.Search(ctx, core.SearchQuery{}.
			Must(core.FieldLabel, string(core.LabelInterested)).
			Must(core.FieldFolder, "Archive"))
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = store.Search(ctx, core.SearchQuery{}.Must("subject", "x"))
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("page is capped", func(t *testing.T) {
		_, err := store.ClearAll(ctx)
		require.NoError(t, err)
		for i := 0; i < 25; i++ {
			require.NoError(t, store.Upsert(ctx, msg("a@x.com", fmt.Sprintf("m%d", i), time.Duration(i)*time.Second, "")))
		}

		got, err := store.Search(ctx, core.SearchQuery{})
		require.NoError(t, err)
		assert.Len(t, got, core.MaxPageSize)
		assert.Equal(t, "m24", got[0].Subject)

		got, err = store.Search(ctx, core.SearchQuery{Size: 100})
		require.NoError(t, err)
		assert.Len(t, got, core.MaxPageSize)
	})

	t.Run("clear all", func(t *testing.T) {
		n, err := store.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(25), n)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		got, err := store.Search(ctx, core.SearchQuery{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unlabeled write keeps stored label", func(t *testing.T) {
		m := msg("a@x.com", "Can we schedule a demo?", 0, "")
		require.NoError(t, store.Upsert(ctx, m.WithLabel(core.LabelInterested)))
		require.NoError(t, store.Upsert(ctx, m))

		got, err := store.Search(ctx, core.SearchQuery{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, core.LabelInterested, got[0].Label)

		require.NoError(t, store.Upsert(ctx, m.WithLabel(core.LabelMeetingBooked)))
		got, err = store.Search(ctx, core.SearchQuery{})
		require.NoError(t, err)
		assert.Equal(t, core.LabelMeetingBooked, got[0].Label)
	})

	t.Run("notified once per key", func(t *testing.T) {
		_, err := store.ClearAll(ctx)
		require.NoError(t, err)

		m := msg("a@x.com", "Can we schedule a demo?", 0, core.LabelInterested)
		first, err := store.MarkNotified(ctx, m.Key())
		require.NoError(t, err)
		assert.False(t, first, "documents that are not indexed cannot be claimed")

		require.NoError(t, store.Upsert(ctx, m))
		first, err = store.MarkNotified(ctx, m.Key())
		require.NoError(t, err)
		assert.True(t, first)

		require.NoError(t, store.Upsert(ctx, m.WithLabel("")))
		again, err := store.MarkNotified(ctx, m.Key())
		require.NoError(t, err)
		assert.False(t, again)

		_, err = store.ClearAll(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, m))
		first, err = store.MarkNotified(ctx, m.Key())
		require.NoError(t, err)
		assert.True(t, first)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	runStoreTests(t, store)
}

func TestSQLiteStore_PreservesDate(t *testing.T) {
	store, err := NewSQLiteStore(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	m := msg("a@x.com", "hello", 1500*time.Millisecond, core.LabelSpam)
	require.NoError(t, store.Upsert(context.Background(), m))

	got, err := store.Search(context.Background(), core.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, m.Date.Equal(got[0].Date))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!%!_off!!", escapeLike("50%_off!"))
}

type brokenResult struct{}

func (brokenResult) LastInsertId() (int64, error) { return 0, errors.New("unsupported") }
func (brokenResult) RowsAffected() (int64, error) { return 0, errors.New("unsupported") }

func TestRowsAffected_ErrorIsReported(t *testing.T) {
	_, err := rowsAffected(brokenResult{})
	assert.Error(t, err)
}
