package incidents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/incidentflow/incidentflow/internal/domain"
)

// ListFilter selects a named subset of the incident list.
type ListFilter string

const (
	FilterTotal            ListFilter = "total"
	FilterOpen             ListFilter = "open"
	FilterCritical         ListFilter = "critical"
	FilterResolvedThisWeek ListFilter = "resolvedThisWeek"
	FilterUnassigned       ListFilter = "unassigned"
	FilterAssignedToMe     ListFilter = "assignedToMe"
)

// Pagination bounds for incident listing.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// ParseListFilter maps a raw filter string to a known filter,
// case-insensitively. Unknown or empty values fall back to the
// unfiltered list.
func ParseListFilter(raw string) ListFilter {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open":
		return FilterOpen
	case "critical":
		return FilterCritical
	case "resolvedthisweek":
		return FilterResolvedThisWeek
	case "unassigned":
		return FilterUnassigned
	case "assignedtome":
		return FilterAssignedToMe
	default:
		return FilterTotal
	}
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func clampPageSize(size int) int {
	if size < 1 {
		return 1
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// startOfWeekUTC returns midnight UTC of the Monday of t's week.
func startOfWeekUTC(t time.Time) time.Time {
	t = t.UTC()
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset = 6
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// ListParams holds raw listing inputs before clamping.
type ListParams struct {
	Page          int
	PageSize      int
	Filter        string
	CurrentUserID *string
}

// IncidentPage is one page of the incident list.
type IncidentPage struct {
	Items      []*domain.Incident `json:"items"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// CountItem is a labeled bucket count for dashboard breakdowns.
type CountItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardSummary aggregates incident counts for the dashboard view.
// Breakdown slices always carry every bucket, zero-filled, in a fixed
// order; the trend covers the last seven UTC days, oldest first.
type DashboardSummary struct {
	TotalIncidents        int         `json:"total_incidents"`
	OpenIncidents         int         `json:"open_incidents"`
	CriticalIncidents     int         `json:"critical_incidents"`
	ResolvedThisWeek      int         `json:"resolved_this_week"`
	UnassignedIncidents   int         `json:"unassigned_incidents"`
	AssignedToMeIncidents int         `json:"assigned_to_me_incidents"`
	SeverityBreakdown     []CountItem `json:"severity_breakdown"`
	StatusBreakdown       []CountItem `json:"status_breakdown"`
	Trend                 []CountItem `json:"trend"`
}

// ListIncidents returns one page of non-deleted incidents, newest
// first. Page and page size are clamped rather than rejected. The
// assignedToMe filter without an authenticated user yields an empty
// page instead of an error.
func (s *Service) ListIncidents(ctx context.Context, params ListParams) (*IncidentPage, error) {
	page := clampPage(params.Page)
	size := clampPageSize(params.PageSize)
	filter := ParseListFilter(params.Filter)

	if filter == FilterAssignedToMe && params.CurrentUserID == nil {
		return &IncidentPage{
			Items:      []*domain.Incident{},
			TotalCount: 0,
			Page:       page,
			PageSize:   size,
		}, nil
	}

	items, total, err := s.repo.List(ctx, ListQuery{
		Filter:        filter,
		Page:          page,
		PageSize:      size,
		CurrentUserID: params.CurrentUserID,
		WeekStart:     startOfWeekUTC(s.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if items == nil {
		items = []*domain.Incident{}
	}

	return &IncidentPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
	}, nil
}

// GetDashboardSummary builds the dashboard aggregation over all
// non-deleted incidents.
func (s *Service) GetDashboardSummary(ctx context.Context, currentUserID *string) (*DashboardSummary, error) {
	now := s.now().UTC()

	counts, err := s.repo.SummaryCounts(ctx, startOfWeekUTC(now), currentUserID)
	if err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	bySeverity, err := s.repo.SeverityCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("severity counts: %w", err)
	}

	byStatus, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	trendStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -6)
	perDay, err := s.repo.CreatedPerDay(ctx, trendStart)
	if err != nil {
		return nil, fmt.Errorf("created per day: %w", err)
	}

	summary := &DashboardSummary{
		TotalIncidents:        counts.Total,
		OpenIncidents:         counts.Open,
		CriticalIncidents:     counts.Critical,
		ResolvedThisWeek:      counts.ResolvedThisWeek,
		UnassignedIncidents:   counts.Unassigned,
		AssignedToMeIncidents: counts.AssignedToMe,
	}

	for _, sev := range domain.Severities() {
		summary.SeverityBreakdown = append(summary.SeverityBreakdown, CountItem{
			Label: string(sev),
			Count: bySeverity[sev],
		})
	}
	for _, status := range domain.Statuses() {
		summary.StatusBreakdown = append(summary.StatusBreakdown, CountItem{
			Label: string(status),
			Count: byStatus[status],
		})
	}
	for i := 0; i < 7; i++ {
		day := trendStart.AddDate(0, 0, i)
		summary.Trend = append(summary.Trend, CountItem{
			Label: day.Format("Mon"),
			Count: perDay[day.Format("2006-01-02")],
		})
	}

	return summary, nil
}
