package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/fyrsmithlabs/cadence/internal/docstore"
	"github.com/fyrsmithlabs/cadence/internal/plan"
)

// PlanCollection is the document collection holding weekly plans.
const PlanCollection = "weekly_plans"

// repository maps WeeklyPlans onto the document store.
type repository struct {
	store docstore.Store
}

// active returns the user's active plans ordered by start date.
func (r *repository) active(ctx context.Context, userID string) ([]plan.WeeklyPlan, error) {
	docs, err := r.store.Find(ctx, PlanCollection, docstore.Filter{
		"user_id": userID,
		"status":  string(plan.PlanActive),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: find active plans: %w", ErrPersistence, err)
	}
	plans := make([]plan.WeeklyPlan, 0, len(docs))
	for _, doc := range docs {
		var p plan.WeeklyPlan
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("%w: decode plan: %w", ErrPersistence, err)
		}
		plans = append(plans, p)
	}
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].WeekStart < plans[j].WeekStart })
	return plans, nil
}

// archiveBefore archives active plans that ended before date.
func (r *repository) archiveBefore(ctx context.Context, userID, date string) (int, error) {
	n, err := r.store.UpdateMany(ctx, PlanCollection, docstore.Filter{
		"user_id": userID,
		"status":  string(plan.PlanActive),
	}, func(current []byte) ([]byte, error) {
		if gjson.GetBytes(current, "week_end").String() >= date {
			return current, nil
		}
		var p plan.WeeklyPlan
		if err := json.Unmarshal(current, &p); err != nil {
			return nil, err
		}
		p.Status = plan.PlanArchived
		return json.Marshal(p)
	})
	if err != nil {
		return n, fmt.Errorf("%w: archive plans: %w", ErrPersistence, err)
	}
	return n, nil
}

func (r *repository) insert(ctx context.Context, p *plan.WeeklyPlan) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode plan: %w", ErrPersistence, err)
	}
	if err := r.store.Insert(ctx, PlanCollection, doc); err != nil {
		return fmt.Errorf("%w: insert plan: %w", ErrPersistence, err)
	}
	return nil
}

// save replaces the stored plan with p.
func (r *repository) save(ctx context.Context, p *plan.WeeklyPlan) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode plan: %w", ErrPersistence, err)
	}
	_, err = r.store.FindOneAndUpdate(ctx, PlanCollection, docstore.Filter{"id": p.ID},
		func([]byte) ([]byte, error) { return doc, nil },
		docstore.WithUpsert(),
	)
	if err != nil {
		return fmt.Errorf("%w: save plan: %w", ErrPersistence, err)
	}
	return nil
}
