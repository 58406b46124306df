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
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	HeaderTotalCount = "X-Total-Count"

	DefaultPageSize = 20
	MaxPageSize     = 2000

	// MaxPage keeps MaxPage*MaxPageSize within an int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Pageable is a zero-based page request.
type Pageable struct {
	Page int
	Size int
}

// Offset is the index of the first element of the page. It saturates at
// math.MaxInt instead of overflowing.
func (p Pageable) Offset() int {
	if p.Page > 0 && p.Size > 0 && p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// ParsePageable reads the page and size query parameters. Missing or
// invalid values fall back to page 0 and defaultSize; size is capped at
// MaxPageSize and page at MaxPage.
func ParsePageable(r *http.Request, defaultSize int) Pageable {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	p := Pageable{Size: defaultSize}
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v >= 0 {
		p.Page = min(v, MaxPage)
	}
	if v, err := strconv.Atoi(q.Get("size")); err == nil && v > 0 {
		p.Size = min(v, MaxPageSize)
	}
	return p
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
}

func NewPage[T any](content []T, p Pageable, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	return Page[T]{Content: content, Number: p.Page, Size: p.Size, TotalElements: total}
}

// TotalPages is one when Size is zero.
func (p Page[T]) TotalPages() int {
	if p.Size == 0 {
		return 1
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}

// PageFromList slices an in-memory list. A page starting beyond the end of
// the list is empty but still reports the list length as its total.
func PageFromList[T any](list []T, p Pageable) Page[T] {
	total := int64(len(list))
	start := p.Offset()
	if start < 0 || start >= len(list) || p.Size <= 0 {
		return NewPage[T](nil, p, total)
	}
	end := len(list)
	if p.Size < end-start {
		end = start + p.Size
	}
	return NewPage(list[start:end], p, total)
}

// PaginationHeaders returns X-Total-Count and an RFC 5988 Link header whose
// URIs are u with page and size replaced.
func PaginationHeaders[T any](u *url.URL, page Page[T]) http.Header {
	h := http.Header{}
	h.Set(HeaderTotalCount, strconv.FormatInt(page.TotalElements, 10))

	last := max(page.TotalPages()-1, 0)
	var links []string
	if page.Number < page.TotalPages()-1 {
		links = append(links, pageLink(u, page.Number+1, page.Size, "next"))
	}
	if page.Number > 0 {
		links = append(links, pageLink(u, page.Number-1, page.Size, "prev"))
	}
	links = append(links,
		pageLink(u, last, page.Size, "last"),
		pageLink(u, 0, page.Size, "first"))
	h.Set("Link", strings.Join(links, ","))
	return h
}

func pageLink(u *url.URL, number, size int, rel string) string {
	return fmt.Sprintf("<%s>; rel=%q", pageURI(u, number, size), rel)
}

func pageURI(u *url.URL, number, size int) string {
	cp := *u
	q := cp.Query()
	q.Set("page", strconv.Itoa(number))
	q.Set("size", strconv.Itoa(size))
	cp.RawQuery = q.Encode()
	s := cp.String()
	s = strings.ReplaceAll(s, ",", "%2C")
	return strings.ReplaceAll(s, ";", "%3B")
}
