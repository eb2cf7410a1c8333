package orchestrator

import (
	"context"
	"fmt"

	"github.com/steadylabs/steward/internal/session"
	"github.com/steadylabs/steward/pkg/models"
)

// ResumedSession pairs a rediscovered session record with its live handle.
type ResumedSession struct {
	// Record is the persisted session record.
	Record models.PersistedSession
	// Handle is the reattached session.
	Handle session.Handle
}

// ResumeTask reloads the last persisted snapshot for a task and reattaches
// to any session records still in progress. A record that fails to resume
// is deleted as stale rather than aborting the whole resume.
func (o *Orchestrator) ResumeTask(ctx context.Context, taskID string) (*models.Task, []ResumedSession, error) {
	task, err := o.cfg.Store.LoadTask(taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	o.hydrateCompleted(task)

	records, err := o.cfg.Store.ListSessions(taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("list session records: %w", err)
	}

	var resumed []ResumedSession
	for _, rec := range records {
		if rec.Status != models.SessionInProgress {
			continue
		}
		handle, err := o.cfg.Sessions.Resume(ctx, rec.SessionID)
		if err != nil {
			debugLog("resume session %s for subtask %s failed: %v; deleting stale record",
				rec.SessionID, rec.SubtaskID, err)
			if delErr := o.cfg.Store.DeleteSession(rec.SubtaskID); delErr != nil {
				debugLog("delete stale record %s: %v", rec.SubtaskID, delErr)
			}
			continue
		}
		resumed = append(resumed, ResumedSession{Record: rec, Handle: handle})
	}

	debugLog("resumed task %s with %d live sessions", taskID, len(resumed))
	return task, resumed, nil
}
