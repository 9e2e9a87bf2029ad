package incident

import (
	"context"
	"errors"
	"time"

	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/ports"
)

const defaultDashboardMonths = 6

type DashboardFilter struct {
	OrganizationID      int64
	ShippingWarehouseID int64
	TroubleCategoryID   int64
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
	// Months is how many calendar months, ending with the current one, the
	// monthly series covers. Zero means six.
	Months int
}

type MonthCount struct {
	Month     string
	Created   int
	Completed int
	Delayed   int
}

type DashboardSummary struct {
	Total       int
	ByStatus    map[domain.Status]int
	Delayed     int
	ByCategory  []ports.GroupCount
	ByWarehouse []ports.GroupCount
	Monthly     []MonthCount
	GeneratedAt time.Time
}

func (s *Service) Dashboard(ctx context.Context, filter DashboardFilter) (DashboardSummary, error) {
	if ctx == nil {
		return DashboardSummary{}, errors.New("context is required")
	}

	listFilter := ListFilter{
		OrganizationID:      filter.OrganizationID,
		ShippingWarehouseID: filter.ShippingWarehouseID,
		TroubleCategoryID:   filter.TroubleCategoryID,
		CreatedFrom:         filter.CreatedFrom,
		CreatedTo:           filter.CreatedTo,
		PageSize:            -1,
	}
	result, err := s.ListIncidents(ctx, listFilter)
	if err != nil {
		return DashboardSummary{}, err
	}

	repoFilter := s.toListFilter(listFilter)
	byCategory, err := s.repo.CountIncidentsBy(ctx, repoFilter, ports.GroupByTroubleCategory)
	if err != nil {
		return DashboardSummary{}, classify(err, "count incidents by category")
	}
	byWarehouse, err := s.repo.CountIncidentsBy(ctx, repoFilter, ports.GroupByShippingWarehouse)
	if err != nil {
		return DashboardSummary{}, classify(err, "count incidents by warehouse")
	}

	now := s.now()
	summary := DashboardSummary{
		Total:       result.Total,
		ByStatus:    make(map[domain.Status]int, len(domain.AllStatuses)),
		ByCategory:  byCategory,
		ByWarehouse: byWarehouse,
		Monthly:     s.monthBuckets(now, filter.Months),
		GeneratedAt: now,
	}
	for _, status := range domain.AllStatuses {
		summary.ByStatus[status] = 0
	}

	index := make(map[string]int, len(summary.Monthly))
	for i, bucket := range summary.Monthly {
		index[bucket.Month] = i
	}
	for _, item := range result.Items {
		summary.ByStatus[item.Status]++
		if item.Status.Delayed() {
			summary.Delayed++
		}
		i, ok := index[item.Incident.CreationDate.In(s.loc).Format("2006-01")]
		if !ok {
			continue
		}
		summary.Monthly[i].Created++
		switch {
		case item.Status == domain.StatusCompleted:
			summary.Monthly[i].Completed++
		case item.Status.Delayed():
			summary.Monthly[i].Delayed++
		}
	}
	return summary, nil
}

// monthBuckets returns empty buckets, oldest first, ending with the month of now.
func (s *Service) monthBuckets(now time.Time, months int) []MonthCount {
	if months <= 0 {
		months = defaultDashboardMonths
	}
	local := now.In(s.loc)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)

	out := make([]MonthCount, months)
	for i := range out {
		out[i].Month = first.AddDate(0, i-months+1, 0).Format("2006-01")
	}
	return out
}
