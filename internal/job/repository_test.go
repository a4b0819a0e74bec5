package job

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/mxcore/internal/catalog"
)

func newQueued(path string) *Record {
	return NewRecord(path, "mp4-h264-aac", catalog.TierBalanced, time.Now())
}

func terminate(r *Record) {
	now := time.Now()
	r.State = CompletedState{EnqueuedAt: r.EnqueuedAt(), StartedAt: now, FinishedAt: now, OutputPath: r.Path + ".mp4"}
}

func TestSaveAndGet(t *testing.T) {
	repo := NewRepository()
	rec := newQueued("/media/a.mov")
	repo.Save(rec)

	got, ok := repo.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.Path, got.Path)
	assert.False(t, got.UpdatedAt.IsZero())

	byPath, ok := repo.GetByPath("/media/a.mov")
	require.True(t, ok)
	assert.Equal(t, rec.ID, byPath.ID)
}

func TestExistsOnlyForNonTerminal(t *testing.T) {
	repo := NewRepository()
	rec := newQueued("/media/a.mov")
	repo.Save(rec)
	assert.True(t, repo.Exists("/media/a.mov"))

	repo.Update(rec.ID, terminate)
	assert.False(t, repo.Exists("/media/a.mov"), "terminal records do not block re-admission")
	assert.False(t, repo.Exists("/media/unknown.mov"))
}

func TestGetAllOrderedByCreation(t *testing.T) {
	repo := NewRepository()
	base := time.Now()
	for i := 0; i < 5; i++ {
		rec := NewRecord(fmt.Sprintf("/m/%d.mov", i), "p", catalog.TierFast, base.Add(time.Duration(i)*time.Millisecond))
		repo.Save(rec)
	}

	all := repo.GetAll()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt))
	}
}

func TestGetByStatus(t *testing.T) {
	repo := NewRepository()
	a := newQueued("/m/a.mov")
	b := newQueued("/m/b.mov")
	repo.Save(a)
	repo.Save(b)
	repo.Update(b.ID, terminate)

	queued := repo.GetByStatus(PhaseQueued)
	require.Len(t, queued, 1)
	assert.Equal(t, a.ID, queued[0].ID)

	terminal := repo.GetByStatus(PhaseCompleted, PhaseFailed, PhaseCancelled)
	require.Len(t, terminal, 1)
	assert.Equal(t, b.ID, terminal[0].ID)
}

func TestUpdateUnknownID(t *testing.T) {
	repo := NewRepository()
	assert.False(t, repo.Update("nope", func(*Record) {}))
}

func TestDelete(t *testing.T) {
	repo := NewRepository()
	rec := newQueued("/m/a.mov")
	repo.Save(rec)
	repo.Delete(rec.ID)

	_, ok := repo.Get(rec.ID)
	assert.False(t, ok)
	_, ok = repo.GetByPath("/m/a.mov")
	assert.False(t, ok)
}

func TestClearRemovesOnlyTerminal(t *testing.T) {
	repo := NewRepository()
	active := newQueued("/m/active.mov")
	done := newQueued("/m/done.mov")
	repo.Save(active)
	repo.Save(done)
	repo.Update(done.ID, terminate)

	repo.Clear()

	assert.Equal(t, 1, repo.Count())
	_, ok := repo.Get(active.ID)
	assert.True(t, ok)
}

// TestPruneTerminal: at most NTerminal terminal records are retained, the
// oldest by UpdatedAt evicted first.
func TestPruneTerminal(t *testing.T) {
	repo := NewRepository()

	var oldest ID
	for i := 0; i < NTerminal+10; i++ {
		rec := newQueued(fmt.Sprintf("/m/%d.mov", i))
		repo.Save(rec)
		repo.Update(rec.ID, terminate)
		if i == 0 {
			oldest = rec.ID
		}
	}

	terminal := repo.GetByStatus(PhaseCompleted)
	assert.LessOrEqual(t, len(terminal), NTerminal)

	_, ok := repo.Get(oldest)
	assert.False(t, ok, "oldest terminal record evicted first")
}

func TestCloneIsValueCopy(t *testing.T) {
	rec := newQueued("/m/a.mov")
	clone := rec.Clone()
	clone.Path = "/m/other.mov"
	assert.Equal(t, "/m/a.mov", rec.Path)
}

func TestNewRecordHasUniqueIDs(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		rec := newQueued("/m/x.mov")
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}
}
