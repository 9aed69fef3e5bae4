package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"expensepie/internal/chart"
	"expensepie/internal/core"
)

// formatEuros formats cents as a Euro currency string (e.g., "€12,34").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// formatPercent renders a 0..1 share with one decimal.
func formatPercent(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 1, 64) + "%"
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrUnknownCategory,
	core.ErrUnknownColor,
	core.ErrMissingID,
	core.ErrDetailTooLong,
	core.ErrNameTooLong,
	core.ErrEmojiTooLong,
	chart.ErrInvalidWeight,
}

// statusForError maps domain errors to an HTTP status and a message that is
// safe to show. Unknown errors are reported as 500 without details.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, core.ErrCategoryInUse):
		return http.StatusConflict, "Category still has expenses"
	case errors.Is(err, core.ErrDuplicateName):
		return http.StatusConflict, "A category with this name already exists"
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, "Malformed request body"
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, capitalize(target.Error())
		}
	}
	return http.StatusInternalServerError, "Internal error"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// isHTMX reports whether the request came from an hx-* attribute.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
