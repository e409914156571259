package command

import (
	"context"
	"fmt"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP DUPLICATES COMMAND
// Merges ledger entries sharing a person and a day. New writes go through the
// atomic upsert, so this only repairs legacy data.
//
// Groups are not merged transactionally: the survivor is updated, then the
// rest are deleted. A write landing between the two steps can leave a new
// duplicate for the next run.
// ══════════════════════════════════════════════════════════════════════════════

// CleanupDuplicatesCommand narrows the scan. All filters are optional.
type CleanupDuplicatesCommand struct {
	PersonID shared.PersonID
	Role     shared.Role
	Date     *time.Time
}

// Validate validates the command.
func (c CleanupDuplicatesCommand) Validate() error {
	if c.Role != "" && !c.Role.IsValid() {
		return shared.ErrInvalidRole
	}
	return nil
}

// CleanupDuplicatesResult contains the counts of a cleanup run.
type CleanupDuplicatesResult struct {
	GroupsProcessed int
	GroupsMerged    int
	RecordsDeleted  int
	Duration        time.Duration
}

// CleanupDuplicatesHandler handles CleanupDuplicatesCommand.
type CleanupDuplicatesHandler struct {
	engine
}

// NewCleanupDuplicatesHandler creates a new CleanupDuplicatesHandler.
func NewCleanupDuplicatesHandler(deps Deps) *CleanupDuplicatesHandler {
	return &CleanupDuplicatesHandler{engine: newEngine(deps)}
}

type groupKey struct {
	personID shared.PersonID
	date     string
}

// Handle executes the cleanup. Records are grouped by person and date and
// folded in insertion order; see attendance.Merge.
func (h *CleanupDuplicatesHandler) Handle(ctx context.Context, cmd CleanupDuplicatesCommand) (*CleanupDuplicatesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	start := h.Clock.Now()

	records, err := h.Ledger.List(ctx, attendance.Filter{
		PersonID: cmd.PersonID,
		Role:     cmd.Role,
		Date:     cmd.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup_duplicates: list records: %w", err)
	}

	var order []groupKey
	groups := make(map[groupKey][]*attendance.Record)
	for _, r := range records {
		k := groupKey{personID: r.PersonID, date: timeutil.DateKey(r.Date)}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	result := &CleanupDuplicatesResult{GroupsProcessed: len(order)}
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		survivor, duplicates := attendance.Merge(group, h.Clock.Now())
		if err := h.Ledger.Update(ctx, survivor); err != nil {
			return result, fmt.Errorf("cleanup_duplicates: update %s: %w", survivor.ID, err)
		}
		ids := make([]string, len(duplicates))
		for i, d := range duplicates {
			ids[i] = d.ID
		}
		deleted, err := h.Ledger.Delete(ctx, ids...)
		if err != nil {
			return result, fmt.Errorf("cleanup_duplicates: delete duplicates of %s: %w", survivor.ID, err)
		}

		result.GroupsMerged++
		result.RecordsDeleted += deleted
		h.Logger.Debug("merged duplicate attendance",
			logger.PersonID(k.personID.String()),
			logger.String("date", k.date),
			logger.RecordID(survivor.ID),
			logger.Int("deleted", deleted),
		)
	}

	result.Duration = h.Clock.Now().Sub(start)
	if result.GroupsMerged > 0 {
		h.publish(shared.NewDuplicatesMergedEvent(result.GroupsMerged, result.RecordsDeleted, h.Clock.Now()))
	}
	h.Logger.Info("duplicate cleanup finished",
		logger.Int("groups_processed", result.GroupsProcessed),
		logger.Int("groups_merged", result.GroupsMerged),
		logger.Int("records_deleted", result.RecordsDeleted),
	)
	return result, nil
}
