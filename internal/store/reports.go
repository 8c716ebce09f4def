package store

import (
	"context"
	"sort"
)

// ReportRepo is the repository for the reports store.
type ReportRepo struct {
	store objectStore[Report]
}

func NewReportRepo(g *Gateway) *ReportRepo {
	return &ReportRepo{
		store: objectStore[Report]{gw: g, name: StoreReports, orderBy: orderByIndex("startTime")},
	}
}

func (r *ReportRepo) Create(ctx context.Context, rep Report) (Outcome, error) {
	const op = "create report"
	if err := rep.Validate(); err != nil {
		return "", newError(KindValidation, op, err)
	}
	if err := r.store.add(ctx, op, rep.ID, rep); err != nil {
		return "", err
	}
	return OutcomeReportAdded, nil
}

// List returns every report ordered by start time.
func (r *ReportRepo) List(ctx context.Context) ([]Report, error) {
	reports, err := r.store.getAll(ctx, "list reports")
	if err != nil {
		return reports, err
	}
	// "9:05" and "09:05" index apart; compare as minutes.
	sort.SliceStable(reports, func(i, j int) bool {
		return ClockMinutes(reports[i].StartTime) < ClockMinutes(reports[j].StartTime)
	})
	return reports, nil
}

func (r *ReportRepo) Get(ctx context.Context, id string) (Report, error) {
	return r.store.get(ctx, "get report", id)
}

func (r *ReportRepo) Update(ctx context.Context, rep Report) (Outcome, error) {
	const op = "update report"
	if err := rep.Validate(); err != nil {
		return "", newError(KindValidation, op, err)
	}
	if err := r.store.put(ctx, op, rep.ID, rep); err != nil {
		return "", err
	}
	return OutcomeReportUpdated, nil
}

func (r *ReportRepo) Delete(ctx context.Context, id string) (Outcome, error) {
	if err := r.store.remove(ctx, "delete report", id); err != nil {
		return "", err
	}
	return OutcomeReportDeleted, nil
}

func (r *ReportRepo) DeleteAll(ctx context.Context) (Outcome, error) {
	if err := r.store.clear(ctx, "delete all reports"); err != nil {
		return "", err
	}
	return OutcomeReportsCleared, nil
}
