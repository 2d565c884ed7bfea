// Package schema sanitizes raw oracle replies and validates them against the
// per-task reply shapes. Nothing that fails here is ever handed to a caller.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrEmpty is returned for blank or null payloads.
	ErrEmpty = errors.New("empty payload")
	// ErrNotJSON is returned when no well-formed JSON value can be recovered.
	ErrNotJSON = errors.New("payload is not JSON")
	// ErrInvalid is returned when a decoded payload violates its schema.
	ErrInvalid = errors.New("payload violates schema")
)

// #region validator

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("nonblank", validateNonBlank)
}

// validateNonBlank rejects strings that are empty after trimming whitespace.
func validateNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate runs the struct tags of v. Non-struct values pass.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("%w: nil value", ErrInvalid)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// #endregion validator

// #region sanitize

// Sanitize recovers the outermost JSON object or array from raw. It strips
// fenced code-block markers (with or without a language tag) and any prose
// before or after the JSON value.
func Sanitize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmpty
	}

	if strings.Contains(s, "```") {
		s = stripFence(s)
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		if strings.TrimSpace(s) == "null" {
			return "", ErrEmpty
		}
		return "", ErrNotJSON
	}
	// The first complete value wins; trailing prose is ignored.
	var v json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s[start:])).Decode(&v); err != nil {
		return "", ErrNotJSON
	}
	return string(v), nil
}

// stripFence returns the body of the first fenced block. An unterminated
// fence keeps everything after the opening line.
func stripFence(s string) string {
	open := strings.Index(s, "```")
	body := s[open+3:]
	// Drop the language tag on the opening line.
	if nl := strings.Index(body, "\n"); nl != -1 {
		tag := strings.TrimSpace(body[:nl])
		if !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// #endregion sanitize

// #region decode

// Decode sanitizes raw, unmarshals it into v and validates the result.
// Every failure wraps ErrEmpty, ErrNotJSON or ErrInvalid.
func Decode(raw string, v any) error {
	s, err := Sanitize(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	return Validate(v)
}

// #endregion decode

// #region clamp

// Clamp bounds v to [lo, hi].
func Clamp[T int | float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// OneOf reports whether v is one of allowed.
func OneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}

// #endregion clamp
