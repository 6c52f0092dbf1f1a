package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindUser
	KindBoolean
)

// Param declares one positional argument. Rest consumes the remainder of a
// free-text line. AsText exposes a user param as a plain string option on the
// slash surface so ids of non-members can be given.
type Param struct {
	Name        string
	Description string
	Kind        Kind
	Required    bool
	Rest        bool
	AsText      bool
}

type UserRef struct {
	ID string
}

func (u UserRef) Mention() string {
	return "<@" + u.ID + ">"
}

var userIDPattern = regexp.MustCompile(`^<@!?(\d+)>$|^(\d+)$`)

// ParseUserID accepts <@id>, <@!id> or a bare numeric id.
func ParseUserID(value string) (string, bool) {
	match := userIDPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return "", false
	}
	if match[1] != "" {
		return match[1], true
	}
	return match[2], true
}

type ArgReason int

const (
	ReasonMissing ArgReason = iota
	ReasonInvalidUser
	ReasonInvalidNumber
	ReasonInvalidBool
)

type ArgError struct {
	Param  Param
	Reason ArgReason
}

func (e *ArgError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return fmt.Sprintf("missing required argument %q", e.Param.Name)
	case ReasonInvalidUser:
		return fmt.Sprintf("argument %q is not a user", e.Param.Name)
	case ReasonInvalidNumber:
		return fmt.Sprintf("argument %q is not a number", e.Param.Name)
	default:
		return fmt.Sprintf("argument %q is not a yes/no value", e.Param.Name)
	}
}

// Args holds coerced argument values keyed by param name.
type Args struct {
	values map[string]any
}

func NewArgs(values map[string]any) Args {
	return Args{values: values}
}

func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a Args) String(name string) (string, bool) {
	value, ok := a.values[name].(string)
	return value, ok
}

func (a Args) Int(name string) (int64, bool) {
	value, ok := a.values[name].(int64)
	return value, ok
}

func (a Args) User(name string) (UserRef, bool) {
	value, ok := a.values[name].(UserRef)
	return value, ok
}

func (a Args) Bool(name string) (bool, bool) {
	value, ok := a.values[name].(bool)
	return value, ok
}

// ParseText binds a free-text remainder to params positionally. Extra
// trailing tokens are ignored.
func ParseText(params []Param, raw string) (Args, error) {
	values := make(map[string]any, len(params))
	remaining := strings.TrimSpace(raw)
	for _, param := range params {
		if remaining == "" {
			if param.Required {
				return Args{}, &ArgError{Param: param, Reason: ReasonMissing}
			}
			continue
		}
		var token string
		if param.Rest {
			token, remaining = remaining, ""
		} else {
			token, remaining = splitFirst(remaining)
		}
		value, err := coerce(param, token)
		if err != nil {
			return Args{}, err
		}
		values[param.Name] = value
	}
	return Args{values: values}, nil
}

// FromOptions coerces structured option values against params.
func FromOptions(params []Param, options map[string]any) (Args, error) {
	values := make(map[string]any, len(params))
	for _, param := range params {
		raw, ok := options[param.Name]
		if !ok || raw == nil {
			if param.Required {
				return Args{}, &ArgError{Param: param, Reason: ReasonMissing}
			}
			continue
		}
		value, err := coerce(param, raw)
		if err != nil {
			return Args{}, err
		}
		values[param.Name] = value
	}
	return Args{values: values}, nil
}

func coerce(param Param, raw any) (any, error) {
	switch param.Kind {
	case KindUser:
		switch v := raw.(type) {
		case UserRef:
			return v, nil
		case string:
			if id, ok := ParseUserID(v); ok {
				return UserRef{ID: id}, nil
			}
		}
		return nil, &ArgError{Param: param, Reason: ReasonInvalidUser}
	case KindInteger:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case float64:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err == nil {
				return n, nil
			}
		}
		return nil, &ArgError{Param: param, Reason: ReasonInvalidNumber}
	case KindBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "on", "true", "yes", "enable", "enabled", "1":
				return true, nil
			case "off", "false", "no", "disable", "disabled", "0":
				return false, nil
			}
		}
		return nil, &ArgError{Param: param, Reason: ReasonInvalidBool}
	default:
		if v, ok := raw.(string); ok {
			return v, nil
		}
		return fmt.Sprint(raw), nil
	}
}

func splitFirst(value string) (string, string) {
	value = strings.TrimSpace(value)
	index := strings.IndexFunc(value, isSpace)
	if index < 0 {
		return value, ""
	}
	return value[:index], strings.TrimSpace(value[index:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
