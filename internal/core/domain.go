package core

import (
	"errors"
	"strings"
	"unicode/utf8"
)

type (
	Money struct {
		Cents int64
	}

	// Category groups expenses and decides the color of their chart slices.
	Category struct {
		ID    string
		Name  string
		Color Color
		Emoji string // Optional
	}

	Expense struct {
		ID         string
		CategoryID string
		Amount     Money
		Detail     string // Optional free text
	}

	// Settings holds user preferences that outlive a single request.
	Settings struct {
		DarkMode bool
	}
)

const (
	MaxCategoryNameLen = 50
	MaxEmojiRunes      = 8
	MaxDetailLen       = 200
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty category name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
	ErrCategoryInUse   = errors.New("category has expenses")
	ErrDuplicateName   = errors.New("duplicate category name")
	ErrUnknownColor    = errors.New("unknown color")
	ErrMissingID       = errors.New("missing id")
	ErrDetailTooLong   = errors.New("detail too long (max 200 characters)")
	ErrNameTooLong     = errors.New("category name too long (max 50 characters)")
	ErrEmojiTooLong    = errors.New("emoji too long (max 8 characters)")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingID
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLen {
		return ErrNameTooLong
	}
	if utf8.RuneCountInString(c.Emoji) > MaxEmojiRunes {
		return ErrEmojiTooLong
	}
	return nil
}

// Label returns the display name, prefixed by the emoji when one is set.
func (c Category) Label() string {
	if c.Emoji == "" {
		return c.Name
	}
	return c.Emoji + " " + c.Name
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(e.Detail) > MaxDetailLen {
		return ErrDetailTooLong
	}
	return nil
}
