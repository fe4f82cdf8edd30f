package models

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Offset within int range.
	MaxPage = math.MaxInt / MaxPageSize
)

// PageRequest selects a zero-based page of results
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request to sane bounds
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows skipped before this page
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of results with pagination metadata
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalPages    int   `json:"total_pages"`
	TotalElements int64 `json:"total_elements"`
	Last          bool  `json:"last"`
}

// NewPage builds a page from its content and the total number of matching rows
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	req = req.Normalize()
	if content == nil {
		content = []T{}
	}
	totalPages := int((total + int64(req.Size) - 1) / int64(req.Size))
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalPages:    totalPages,
		TotalElements: total,
		Last:          req.Page+1 >= totalPages,
	}
}

// MapPage converts the content of a page, keeping its metadata
func MapPage[T, U any](p Page[T], fn func(T) (U, error)) (Page[U], error) {
	out := make([]U, 0, len(p.Content))
	for _, item := range p.Content {
		u, err := fn(item)
		if err != nil {
			return Page[U]{}, err
		}
		out = append(out, u)
	}
	return Page[U]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalPages:    p.TotalPages,
		TotalElements: p.TotalElements,
		Last:          p.Last,
	}, nil
}
