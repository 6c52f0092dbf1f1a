package command

import (
	"errors"
	"testing"
)

func TestParseUserID(t *testing.T) {
	cases := map[string]string{
		"<@123>":   "123",
		"<@!456>":  "456",
		"789":      "789",
		" 42 ":     "42",
		"<@abc>":   "",
		"someone":  "",
		"<@123":    "",
		"12a":      "",
		"<#12345>": "",
	}
	for input, want := range cases {
		got, ok := ParseUserID(input)
		if want == "" {
			if ok {
				t.Fatalf("%q: expected no match, got %q", input, got)
			}
			continue
		}
		if !ok || got != want {
			t.Fatalf("%q: expected %q, got %q (ok=%v)", input, want, got, ok)
		}
	}
}

var banParams = []Param{
	{Name: "user", Kind: KindUser, Required: true},
	{Name: "reason", Kind: KindString, Rest: true},
}

func TestParseTextPositional(t *testing.T) {
	args, err := ParseText(banParams, "<@!42>   being   rude  ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	user, ok := args.User("user")
	if !ok || user.ID != "42" {
		t.Fatalf("unexpected user %+v", user)
	}
	reason, _ := args.String("reason")
	if reason != "being   rude" {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestParseTextMissingRequired(t *testing.T) {
	_, err := ParseText(banParams, "   ")
	var argErr *ArgError
	if !errors.As(err, &argErr) || argErr.Reason != ReasonMissing {
		t.Fatalf("expected missing error, got %v", err)
	}
}

func TestParseTextInvalidUser(t *testing.T) {
	_, err := ParseText(banParams, "nobody spam")
	var argErr *ArgError
	if !errors.As(err, &argErr) || argErr.Reason != ReasonInvalidUser {
		t.Fatalf("expected invalid user error, got %v", err)
	}
}

func TestParseTextOptionalAbsent(t *testing.T) {
	args, err := ParseText(banParams, "123")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args.Has("reason") {
		t.Fatalf("reason should be absent")
	}
}

func TestParseTextInteger(t *testing.T) {
	params := []Param{{Name: "amount", Kind: KindInteger}}
	args, err := ParseText(params, "25")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n, _ := args.Int("amount"); n != 25 {
		t.Fatalf("expected 25, got %d", n)
	}
	if _, err := ParseText(params, "lots"); err == nil {
		t.Fatalf("expected invalid number error")
	}
}

func TestFromOptionsCoercion(t *testing.T) {
	params := []Param{
		{Name: "user", Kind: KindUser, Required: true},
		{Name: "minutes", Kind: KindInteger, Required: true},
		{Name: "enabled", Kind: KindBoolean},
	}
	args, err := FromOptions(params, map[string]any{
		"user":    "<@77>",
		"minutes": float64(10),
		"enabled": "off",
	})
	if err != nil {
		t.Fatalf("from options: %v", err)
	}
	if user, _ := args.User("user"); user.ID != "77" {
		t.Fatalf("unexpected user %+v", user)
	}
	if minutes, _ := args.Int("minutes"); minutes != 10 {
		t.Fatalf("unexpected minutes %d", minutes)
	}
	if enabled, ok := args.Bool("enabled"); !ok || enabled {
		t.Fatalf("expected enabled=false, got %v (ok=%v)", enabled, ok)
	}

	if _, err := FromOptions(params, map[string]any{"user": UserRef{ID: "1"}}); err == nil {
		t.Fatalf("expected missing minutes error")
	}
}
