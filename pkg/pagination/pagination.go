// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

// Package pagination reads page/limit query parameters and describes the
// resulting window in list responses.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit applies when the request names no limit.
	DefaultLimit = 20
	// MaxLimit caps a single page.
	MaxLimit = 100
)

// Params is a 1-based page of Limit rows.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows before the page.
func (params Params) Offset() int {
	if params.Page <= 1 {
		return 0
	}
	return (params.Page - 1) * params.Limit
}

// Meta describes the page inside a list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta describes params against total matching rows.
func NewMeta(params Params, total int) Meta {
	pages := 0
	if params.Limit > 0 {
		pages = (total + params.Limit - 1) / params.Limit
	}
	return Meta{Page: params.Page, Limit: params.Limit, Total: total, TotalPages: pages}
}

// FromQuery parses "page" and "limit". Missing or unparsable values fall back
// to the first page of [DefaultLimit]; a limit above [MaxLimit] is capped.
func FromQuery(query url.Values) Params {
	params := Params{Page: atoi(query.Get("page"), 1), Limit: atoi(query.Get("limit"), DefaultLimit)}

	if params.Page < 1 {
		params.Page = 1
	}
	switch {
	case params.Limit < 1:
		params.Limit = DefaultLimit
	case params.Limit > MaxLimit:
		params.Limit = MaxLimit
	}

	return params
}

func atoi(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
