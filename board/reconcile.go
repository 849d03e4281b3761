package board

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// Move relocates a task within or across columns and renumbers every
// affected column to a dense 0..n-1 ordering. targetIndex values beyond the
// destination's size are clamped to the end, not rejected. The returned task
// is the final persisted state.
//
// The task row is rewritten with its new column first, so a reader sees the
// membership change immediately; the column renumbering that follows is a
// sequence of independent writes. A storage failure mid-way leaves the
// column partially renumbered.
func (s *Service) Move(ctx context.Context, taskID string, src, dst domain.ColumnID, targetIndex int) (domain.Task, error) {
	// The read happens under the column locks so the task state being moved
	// cannot be invalidated by a concurrent reconciliation.
	unlock := s.locks.lock(src, dst)
	defer unlock()

	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t == nil {
		return domain.Task{}, domain.ErrTaskNotFound
	}

	t.ColumnID = dst
	t.Position = targetIndex
	t.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateTask(ctx, *t); err != nil {
		return domain.Task{}, fmt.Errorf("move task %s: %w", taskID, err)
	}

	var writes int
	if src == dst {
		seq, err := s.store.ListColumn(ctx, dst)
		if err != nil {
			return domain.Task{}, fmt.Errorf("list column %s: %w", dst, err)
		}
		seq = removeByID(seq, taskID)
		idx := clampIndex(targetIndex, len(seq))
		seq = insertAt(seq, idx, *t)
		writes, err = s.persistSequence(ctx, seq)
		if err != nil {
			return domain.Task{}, err
		}
		t.Position = idx
	} else {
		srcSeq, err := s.store.ListColumn(ctx, src)
		if err != nil {
			return domain.Task{}, fmt.Errorf("list column %s: %w", src, err)
		}
		srcWrites, err := s.persistSequence(ctx, srcSeq)
		if err != nil {
			return domain.Task{}, err
		}

		dstSeq, err := s.store.ListColumn(ctx, dst)
		if err != nil {
			return domain.Task{}, fmt.Errorf("list column %s: %w", dst, err)
		}
		dstSeq = removeByID(dstSeq, taskID)
		idx := clampIndex(targetIndex, len(dstSeq))
		dstSeq = insertAt(dstSeq, idx, *t)
		dstWrites, err := s.persistSequence(ctx, dstSeq)
		if err != nil {
			return domain.Task{}, err
		}
		writes = srcWrites + dstWrites
		t.Position = idx
	}

	s.logger.WithFields(log.Fields{
		"task":   taskID,
		"source": src,
		"dest":   dst,
		"index":  t.Position,
		"writes": writes,
	}).Debug("task moved")

	s.notify.TaskMoved(domain.TaskMove{
		TaskID:              taskID,
		SourceColumnID:      src,
		DestinationColumnID: dst,
		NewIndex:            targetIndex,
		Task:                *t,
	})
	return *t, nil
}

// persistSequence assigns positions 0..n-1 in sequence order and writes back
// every task whose stored position differs. It returns the number of writes.
func (s *Service) persistSequence(ctx context.Context, seq []domain.Task) (int, error) {
	writes := 0
	for i := range seq {
		if seq[i].Position == i {
			continue
		}
		seq[i].Position = i
		if err := s.store.UpdateTask(ctx, seq[i]); err != nil {
			return writes, fmt.Errorf("renumber task %s in %s: %w", seq[i].ID, seq[i].ColumnID, err)
		}
		writes++
	}
	return writes, nil
}

// clampIndex bounds an insertion index to [0, size].
func clampIndex(idx, size int) int {
	if idx < 0 {
		return 0
	}
	if idx > size {
		return size
	}
	return idx
}

func removeByID(seq []domain.Task, id string) []domain.Task {
	out := seq[:0]
	for _, t := range seq {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func insertAt(seq []domain.Task, idx int, t domain.Task) []domain.Task {
	seq = append(seq, domain.Task{})
	copy(seq[idx+1:], seq[idx:])
	seq[idx] = t
	return seq
}
