// Package parse recovers typed recipes from free-form model output. The
// model wraps its JSON in prose or code fences often enough that we scan
// for the object, run a repair pass, and only then decode.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pantrychef"
)

// errorContextWindow is how many bytes of the repaired payload are kept on
// either side of a decode error offset for diagnosis.
const errorContextWindow = 50

var (
	// ErrNoJSONObject means the raw output contained no top-level object.
	ErrNoJSONObject = errors.New("no JSON object found in model output")
	// ErrNoRecipes means decoding succeeded but no usable recipe survived.
	ErrNoRecipes = errors.New("no usable recipes in model output")
)

// SyntaxError is a structural decode failure with the byte offset and the
// surrounding slice of the repaired payload, kept structured so callers can
// report the malformed region instead of just a message.
type SyntaxError struct {
	Offset  int64
	Context string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid recipe payload at offset %d: %v (near %q)", e.Offset, e.Err, e.Context)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Dropped records a recipe discarded during validation and why.
type Dropped struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result is a parsed batch: the surviving recipes plus what was dropped.
type Result struct {
	Recipes []pantrychef.Recipe
	Dropped []Dropped
}

type envelope struct {
	Recipes []pantrychef.Recipe `json:"recipes"`
}

// Parse extracts, repairs, decodes and validates the recipe list embedded
// in raw model output. A recipe failing validation is dropped with a
// recorded reason rather than failing the batch; the batch fails only when
// nothing usable remains.
func Parse(raw string) (Result, error) {
	extracted, err := extract(raw)
	if err != nil {
		return Result{}, err
	}

	repaired := Repair(extracted)

	var env envelope
	if err := json.Unmarshal([]byte(repaired), &env); err != nil {
		return Result{}, newSyntaxError(repaired, err)
	}
	if len(env.Recipes) == 0 {
		return Result{}, fmt.Errorf("%w: missing or empty recipes array", ErrNoRecipes)
	}

	var res Result
	for i := range env.Recipes {
		r := env.Recipes[i]
		if err := r.Validate(); err != nil {
			slog.Warn("PARSER: Dropping invalid recipe", "name", r.Name, "reason", err)
			res.Dropped = append(res.Dropped, Dropped{Name: r.Name, Reason: err.Error()})
			continue
		}
		if sum := r.Nutrition.Sum(); sum != 100 {
			slog.Warn("PARSER: Nutrition shares do not sum to 100", "name", r.Name, "sum", sum)
		}
		res.Recipes = append(res.Recipes, r)
	}
	if len(res.Recipes) == 0 {
		return res, fmt.Errorf("%w: all %d recipes failed validation", ErrNoRecipes, len(env.Recipes))
	}
	return res, nil
}

// extract cuts the candidate object out of the raw text: greedy scan from
// the first '{' to the last '}'.
func extract(raw string) (string, error) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", ErrNoJSONObject
	}
	end := strings.LastIndex(raw, "}")
	if end < start {
		// Unterminated object; let the repair pass close it.
		return raw[start:], nil
	}
	return raw[start : end+1], nil
}

// newSyntaxError attaches the error offset context window when the decoder
// reports one.
func newSyntaxError(payload string, err error) error {
	var offset int64 = -1

	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		offset = syn.Offset
	case errors.As(err, &typ):
		offset = typ.Offset
	}
	if offset < 0 {
		return &SyntaxError{Offset: -1, Err: err}
	}

	pos := int(offset)
	if pos > len(payload) {
		pos = len(payload)
	}
	start := pos - errorContextWindow
	if start < 0 {
		start = 0
	}
	end := pos + errorContextWindow
	if end > len(payload) {
		end = len(payload)
	}
	return &SyntaxError{Offset: offset, Context: payload[start:end], Err: err}
}
