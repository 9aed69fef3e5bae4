package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensepie/internal/core"
)

func newParser(t *testing.T, body, contentType string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
	}{
		{
			name:        "form value",
			body:        "name=Food&color=yellow",
			contentType: "application/x-www-form-urlencoded",
			key:         "name",
			want:        "Food",
		},
		{
			name:        "json string",
			body:        `{"name": "  Travel  "}`,
			contentType: "application/json",
			key:         "name",
			want:        "Travel",
			wantJSON:    true,
		},
		{
			name:     "json number",
			body:     `{"amount": 12.5}`,
			key:      "amount",
			want:     "12.5",
			wantJSON: true,
		},
		{
			name: "control characters stripped",
			body: "detail=a%01b",
			key:  "detail",
			want: "ab",
		},
		{
			name: "missing key",
			body: "name=x",
			key:  "color",
			want: "",
		},
		{
			name: "empty body",
			body: "",
			key:  "name",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, tt.body, tt.contentType)
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParserInvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	// Parse is idempotent.
	if err := p.Parse(); err == nil {
		t.Fatal("expected the same error on second Parse")
	}
}

func TestRequestBodyParserTooLarge(t *testing.T) {
	body := "detail=" + strings.Repeat("x", maxBodyBytes)
	p := NewRequestBodyParser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if err := p.Parse(); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("Parse() error = %v, want errBodyTooLarge", err)
	}
}

func TestHas(t *testing.T) {
	p := newParser(t, `{"emoji": ""}`, "application/json")
	if !p.Has("emoji") {
		t.Error("Has(emoji) = false for explicit empty value")
	}
	if p.Has("color") {
		t.Error("Has(color) = true for absent key")
	}
}

func TestParseCategoryInput(t *testing.T) {
	p := newParser(t, "name=Shopping&color=pink&opacity=0.3&emoji=%F0%9F%9B%8D", "")
	in, err := parseCategoryInput(p)
	if err != nil {
		t.Fatalf("parseCategoryInput() error = %v", err)
	}
	pink, _ := core.NamedColor("pink")
	if !in.HasColor || in.Color != pink.WithOpacity(0.3) {
		t.Errorf("Color = %+v, want pink at 0.3", in.Color)
	}
	if in.Name != "Shopping" || !in.HasEmoji {
		t.Errorf("unexpected input %+v", in)
	}

	for _, body := range []string{
		"name=x&color=mauve",
		"name=x&color=red&opacity=half",
		"name=x&color=red&opacity=NaN",
		"name=x&color=red&opacity=-Inf",
		"name=x&color=red&opacity=%2BInf",
		`{"name":"x","color":"red","opacity":"nan"}`,
	} {
		_, err = parseCategoryInput(newParser(t, body, ""))
		if !errors.Is(err, core.ErrUnknownColor) {
			t.Errorf("%s: expected ErrUnknownColor, got %v", body, err)
		}
	}
}

func TestParseExpenseInput(t *testing.T) {
	in, err := parseExpenseInput(newParser(t, "category_id=food&amount=12,50&detail=lunch", ""))
	if err != nil {
		t.Fatalf("parseExpenseInput() error = %v", err)
	}
	if in.Amount.Cents != 1250 || in.CategoryID != "food" || in.Detail != "lunch" {
		t.Errorf("unexpected input %+v", in)
	}

	for _, amount := range []string{"", "0", "abc", "-3"} {
		_, err := parseExpenseInput(newParser(t, "category_id=food&amount="+amount, ""))
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}
