package audit

import (
	"context"
	"errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// maxExportRows caps a CSV export.
	maxExportRows = 5000
)

// RepositoryPort is the storage the timeline reads.
type RepositoryPort interface {
	Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error)
}

// Service serves the audit timeline.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of audit rows, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Window(ctx, filters, (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching row up to the export cap.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.Window(ctx, filters, 0, maxExportRows)
}
