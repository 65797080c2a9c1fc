package coordinator

import (
	"context"
	"fmt"
	"sort"

	"scaletrack/models"
)

// assignUserLocked resolves the owner of an unassigned reading.
//
// Every user's reference weight (the weight of their most recent stored
// measurement, or their profile's initial weight if they have none) is
// compared against the reading. Users within the tolerance band become
// candidates; the one whose reference weight is numerically closest wins.
// Exact distance ties resolve deterministically to the lowest user id.
//
// With an empty candidate set the ignore-out-of-range policy drops the
// reading (models.NoUserID); otherwise the reading falls back to the
// currently selected user.
func (c *Coordinator) assignUserLocked(ctx context.Context, weight, tolerance float32) (int64, error) {
	users, err := c.users.GetAll(ctx)
	if err != nil {
		return models.NoUserID, fmt.Errorf("load users for assignment: %w", err)
	}

	type candidate struct {
		diff float32
		id   int64
	}
	var candidates []candidate

	for _, u := range users {
		list, err := c.measurements.GetAll(ctx, u.ID)
		if err != nil {
			return models.NoUserID, fmt.Errorf("load measurements of user %d: %w", u.ID, err)
		}

		ref := u.InitialWeight
		if len(list) > 0 {
			ref = list[0].Weight // newest first
		}

		if ref-tolerance <= weight && ref+tolerance >= weight {
			diff := ref - weight
			if diff < 0 {
				diff = -diff
			}
			candidates = append(candidates, candidate{diff: diff, id: u.ID})
		}
	}

	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].diff != candidates[j].diff {
				return candidates[i].diff < candidates[j].diff
			}
			return candidates[i].id < candidates[j].id
		})
		return candidates[0].id, nil
	}

	if c.cfg.Settings().IgnoreOutOfRange {
		return models.NoUserID, nil
	}

	return c.selectedUserLocked(ctx).ID, nil
}
