// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromQuery(t *testing.T) {
	cases := map[string]Params{
		"":                   {Page: 1, Limit: DefaultLimit},
		"page=3&limit=10":    {Page: 3, Limit: 10},
		"page=0&limit=-5":    {Page: 1, Limit: DefaultLimit},
		"page=abc&limit=x":   {Page: 1, Limit: DefaultLimit},
		"page=2&limit=10000": {Page: 2, Limit: MaxLimit},
	}

	for raw, expected := range cases {
		query, err := url.ParseQuery(raw)
		assert.NoError(t, err)
		assert.Equal(t, expected, FromQuery(query), raw)
	}
}

func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, Params{Page: 3, Limit: 20}.Offset())
}

func TestNewMeta(t *testing.T) {
	assert.Equal(t, Meta{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, NewMeta(Params{Page: 2, Limit: 20}, 41))
	assert.Equal(t, 0, NewMeta(Params{Page: 1, Limit: 20}, 0).TotalPages)
}
