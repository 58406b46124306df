// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package webutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestPageFromList(t *testing.T) {
	tests := []struct {
		name    string
		list    []int
		page    Pageable
		content []int
		total   int64
	}{
		{"last partial page", seq(1, 25), Pageable{Page: 2, Size: 10}, seq(21, 25), 25},
		{"first page", seq(1, 25), Pageable{Page: 0, Size: 10}, seq(1, 10), 25},
		{"empty list", []int{}, Pageable{Page: 0, Size: 10}, []int{}, 0},
		{"beyond end", []int{1, 2, 3}, Pageable{Page: 5, Size: 10}, []int{}, 3},
		{"offset would overflow negative", []int{1, 2, 3}, Pageable{Page: 576460752303423488, Size: 16}, []int{}, 3},
		{"offset would wrap to zero", []int{1, 2, 3}, Pageable{Page: 1152921504606846976, Size: 16}, []int{}, 3},
		{"negative page", []int{1, 2, 3}, Pageable{Page: -1, Size: 2}, []int{}, 3},
		{"huge size", []int{1, 2, 3}, Pageable{Page: 0, Size: math.MaxInt}, []int{1, 2, 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PageFromList(tt.list, tt.page)
			assert.Equal(t, tt.content, p.Content)
			assert.Equal(t, tt.total, p.TotalElements)
			assert.Equal(t, tt.page.Page, p.Number)
			assert.Equal(t, tt.page.Size, p.Size)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 3, NewPage([]int{}, Pageable{Size: 10}, 25).TotalPages())
	assert.Equal(t, 2, NewPage([]int{}, Pageable{Size: 10}, 20).TotalPages())
	assert.Equal(t, 0, NewPage([]int{}, Pageable{Size: 10}, 0).TotalPages())
	assert.Equal(t, 1, NewPage([]int{}, Pageable{Size: 0}, 5).TotalPages())
}

func TestParsePageable(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/audits?page=3&size=15", nil)
	assert.Equal(t, Pageable{Page: 3, Size: 15}, ParsePageable(r, 20))

	r = httptest.NewRequest(http.MethodGet, "/api/audits?page=-1&size=abc", nil)
	assert.Equal(t, Pageable{Page: 0, Size: 20}, ParsePageable(r, 20))

	r = httptest.NewRequest(http.MethodGet, "/api/audits?size=999999", nil)
	assert.Equal(t, Pageable{Page: 0, Size: MaxPageSize}, ParsePageable(r, 0))

	r = httptest.NewRequest(http.MethodGet, "/api/audits", nil)
	assert.Equal(t, Pageable{Page: 0, Size: DefaultPageSize}, ParsePageable(r, 0))
}

func TestParsePageableLargePage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/audits?page=576460752303423488&size=16", nil)
	p := ParsePageable(r, 20)
	assert.Equal(t, MaxPage, p.Page)
	assert.Positive(t, p.Offset())

	r = httptest.NewRequest(http.MethodGet, "/api/audits?page=1152921504606846976&size=2000", nil)
	p = ParsePageable(r, 20)
	assert.Equal(t, MaxPage*MaxPageSize, p.Offset())

	page := PageFromList([]int{1, 2, 3}, p)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(3), page.TotalElements)
}

func TestOffsetSaturates(t *testing.T) {
	assert.Equal(t, math.MaxInt, Pageable{Page: math.MaxInt, Size: 2}.Offset())
	assert.Equal(t, 30, Pageable{Page: 3, Size: 10}.Offset())
}

func TestPaginationHeadersMiddlePage(t *testing.T) {
	u, err := url.Parse("http://localhost/api/audits?page=1&size=10&fromDate=2020-01-01")
	require.NoError(t, err)

	h := PaginationHeaders(u, NewPage([]int{}, Pageable{Page: 1, Size: 10}, 35))

	assert.Equal(t, "35", h.Get(HeaderTotalCount))
	assert.Equal(t,
		`<http://localhost/api/audits?fromDate=2020-01-01&page=2&size=10>; rel="next",`+
			`<http://localhost/api/audits?fromDate=2020-01-01&page=0&size=10>; rel="prev",`+
			`<http://localhost/api/audits?fromDate=2020-01-01&page=3&size=10>; rel="last",`+
			`<http://localhost/api/audits?fromDate=2020-01-01&page=0&size=10>; rel="first"`,
		h.Get("Link"))
}

func TestPaginationHeadersEdges(t *testing.T) {
	u, err := url.Parse("http://localhost/api/audits")
	require.NoError(t, err)

	first := PaginationHeaders(u, NewPage([]int{}, Pageable{Page: 0, Size: 10}, 15))
	assert.Equal(t,
		`<http://localhost/api/audits?page=1&size=10>; rel="next",`+
			`<http://localhost/api/audits?page=1&size=10>; rel="last",`+
			`<http://localhost/api/audits?page=0&size=10>; rel="first"`,
		first.Get("Link"))

	empty := PaginationHeaders(u, NewPage([]int{}, Pageable{Page: 0, Size: 10}, 0))
	assert.Equal(t, "0", empty.Get(HeaderTotalCount))
	assert.Equal(t,
		`<http://localhost/api/audits?page=0&size=10>; rel="last",`+
			`<http://localhost/api/audits?page=0&size=10>; rel="first"`,
		empty.Get("Link"))
}

func TestPaginationHeadersEscapesSeparators(t *testing.T) {
	u, err := url.Parse("http://localhost/api/a;b,c")
	require.NoError(t, err)

	h := PaginationHeaders(u, NewPage([]int{}, Pageable{Page: 0, Size: 5}, 5))
	link := h.Get("Link")
	assert.Contains(t, link, "/api/a%3Bb%2Cc?page=0&size=5")
	assert.NotContains(t, link, "a;b")
}

func TestCreateAlerts(t *testing.T) {
	h := CreateEntityCreationAlert("bootkitApp", true, "audit", "42")
	assert.Equal(t, "bootkitApp.audit.created", h.Get("X-bootkitApp-alert"))
	assert.Equal(t, "42", h.Get("X-bootkitApp-params"))

	h = CreateEntityUpdateAlert("app", false, "audit", "a b&c")
	assert.Equal(t, "A audit is updated with identifier a b&c", h.Get("X-app-alert"))
	assert.Equal(t, "a+b%26c", h.Get("X-app-params"))

	h = CreateEntityDeletionAlert("app", false, "audit", "7")
	assert.Equal(t, "A audit is deleted with identifier 7", h.Get("X-app-alert"))

	h = CreateEntityCreationAlert("app", false, "audit", "7")
	assert.Equal(t, "A new audit is created with identifier 7", h.Get("X-app-alert"))

	h = CreateFailureAlert("app", true, "audit", "idexists", "A new audit cannot already have an ID")
	assert.Equal(t, "error.idexists", h.Get("X-app-error"))
	assert.Equal(t, "audit", h.Get("X-app-params"))

	h = CreateFailureAlert("app", false, "audit", "idexists", "A new audit cannot already have an ID")
	assert.Equal(t, "A new audit cannot already have an ID", h.Get("X-app-error"))
}

func TestWrapOrNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	WrapOrNotFound(rec, map[string]int{"id": 1}, true, http.Header{"X-Extra": {"yes"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Extra"))
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WrapOrNotFound[*int](rec, nil, false, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":404,"code":"NOT_FOUND","message":"not found"}`, rec.Body.String())
}
