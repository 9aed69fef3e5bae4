// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading category and expense input from
// either JSON or form-encoded bodies, so the API and the HTMX forms share
// one code path.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensepie/internal/core"
)

// maxBodyBytes caps request bodies; ledger entries are tiny.
const maxBodyBytes = 64 << 10

var (
	errBodyTooLarge  = errors.New("request body too large")
	errMalformedBody = errors.New("malformed request body")
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// categoryInput is the decoded body of a category create or update.
type categoryInput struct {
	Name     string
	Color    core.Color
	HasColor bool
	Emoji    string
	HasEmoji bool
}

func parseCategoryInput(p *RequestBodyParser) (categoryInput, error) {
	in := categoryInput{
		Name:     p.Get("name"),
		Emoji:    p.Get("emoji"),
		HasEmoji: p.Has("emoji"),
	}
	if raw := p.Get("color"); raw != "" {
		c, err := core.ParseColor(raw)
		if err != nil {
			return categoryInput{}, err
		}
		if op := p.Get("opacity"); op != "" {
			f, err := strconv.ParseFloat(op, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return categoryInput{}, fmt.Errorf("%w: opacity %q", core.ErrUnknownColor, op)
			}
			c = c.WithOpacity(f)
		}
		in.Color = c
		in.HasColor = true
	}
	return in, nil
}

// expenseInput is the decoded body of an expense create or update.
type expenseInput struct {
	CategoryID string
	Amount     core.Money
	Detail     string
}

func parseExpenseInput(p *RequestBodyParser) (expenseInput, error) {
	amount, err := core.ParseMoney(p.Get("amount"))
	if err != nil {
		return expenseInput{}, err
	}
	return expenseInput{
		CategoryID: p.Get("category_id"),
		Amount:     amount,
		Detail:     p.Get("detail"),
	}, nil
}
