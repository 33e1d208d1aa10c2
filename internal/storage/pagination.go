package storage

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPage indicates a page parameter that is not a number or is out
// of range.
var ErrInvalidPage = errors.New("invalid page")

// Page locates one page of a listing.
type Page struct {
	Number   int
	Size     int
	Total    int
	NumPages int
}

// NewPage parses the raw page parameter. An empty value is the first page and
// "last" is the last one. A listing with no rows still has one empty page.
func NewPage(raw string, size, total int) (Page, error) {
	if size <= 0 {
		return Page{}, errors.New("page size must be greater than zero")
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + size - 1) / size
	if numPages == 0 {
		numPages = 1
	}

	number := 1
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
	case raw == "last":
		number = numPages
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Page{}, ErrInvalidPage
		}
		number = n
	}
	if number < 1 || number > numPages {
		return Page{}, ErrInvalidPage
	}

	return Page{Number: number, Size: size, Total: total, NumPages: numPages}, nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}
