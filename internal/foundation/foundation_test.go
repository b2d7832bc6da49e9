package foundation

import (
	"errors"
	"regexp"
	"strconv"
	"testing"

	ferrors "git.home.luguber.info/inful/gwcrelease/internal/foundation/errors"
)

func TestResult(t *testing.T) {
	t.Run("Ok result", func(t *testing.T) {
		result := Ok[string, error]("success")
		if !result.IsOk() || result.IsErr() {
			t.Fatal("expected Ok result")
		}
		if result.Unwrap() != "success" {
			t.Errorf("Unwrap() = %q", result.Unwrap())
		}
	})

	t.Run("Err result", func(t *testing.T) {
		testErr := errors.New("test error")
		result := Err[string, error](testErr)
		if result.IsOk() {
			t.Fatal("expected Err result")
		}
		if !errors.Is(result.UnwrapErr(), testErr) {
			t.Error("UnwrapErr() does not match")
		}
		if result.UnwrapOr("fallback") != "fallback" {
			t.Error("UnwrapOr() should return fallback")
		}
	})

	t.Run("FlatMap stops on error", func(t *testing.T) {
		parse := func(s string) Result[int, error] {
			return FromTuple(strconv.Atoi(s))
		}
		ok := FlatMap(Ok[string, error]("42"), parse)
		if ok.Unwrap() != 42 {
			t.Errorf("FlatMap() = %d", ok.Unwrap())
		}
		bad := FlatMap(Ok[string, error]("x"), parse)
		if !bad.IsErr() {
			t.Error("expected parse failure")
		}
		called := false
		FlatMap(Err[string, error](errors.New("read")), func(string) Result[int, error] {
			called = true
			return Ok[int, error](0)
		})
		if called {
			t.Error("FlatMap must not call fn on Err")
		}
	})

	t.Run("Map and ToTuple", func(t *testing.T) {
		v, err := Map(Ok[int, error](2), func(i int) int { return i * 3 }).ToTuple()
		if err != nil || v != 6 {
			t.Errorf("ToTuple() = %d, %v", v, err)
		}
	})
}

func TestValidation(t *testing.T) {
	t.Run("OneOf validator", func(t *testing.T) {
		validator := OneOf("release_type", []string{"stable", "maintenance", "candidate"})
		if !validator("stable").Valid {
			t.Error("expected 'stable' to be valid")
		}
		if validator("beta").Valid {
			t.Error("expected 'beta' to be invalid")
		}
	})

	t.Run("chain collects every failure", func(t *testing.T) {
		digits := regexp.MustCompile(`^\d+$`)
		chain := NewValidatorChain(
			Matches("field", digits, "numeric"),
			OneOf("field", []string{"1", "2"}),
		)
		if !chain.Validate("1").Valid {
			t.Error("expected '1' to be valid")
		}
		result := chain.Validate("abc")
		if result.Valid || len(result.Errors) != 2 {
			t.Fatalf("expected two failures, got %+v", result)
		}
		err := result.ToError()
		if !ferrors.HasCategory(err, ferrors.CategoryValidation) {
			t.Errorf("ToError() category = %v", ferrors.GetCategory(err))
		}
	})

	t.Run("Matches accepts empty", func(t *testing.T) {
		if !Matches("f", regexp.MustCompile(`^x$`), "x")("").Valid {
			t.Error("empty value should pass")
		}
	})
}
