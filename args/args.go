package args

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// BoolMode selects how boolean fields render as argument tokens.
type BoolMode int

const (
	// BoolOnOff renders a boolean as the flag name followed by a literal
	// "on" or "off" token (ip link set style: "arp off").
	BoolOnOff BoolMode = iota

	// BoolPresence renders a true boolean as the flag name alone and a
	// false boolean as nothing at all.
	BoolPresence
)

// Appender is implemented by option values with a custom multi-token
// encoding. AppendTokens appends the value's tokens to dst and returns the
// extended slice. Implementations return an error for values the command
// grammar cannot express (typically the type's zero value); Marshal wraps
// such errors in a [*MarshalError] naming the offending field.
type Appender interface {
	AppendTokens(dst []string) ([]string, error)
}

// ErrNotRepresentable is returned by [Appender] implementations for values
// that have no argument encoding. Callers detect it with errors.Is.
var ErrNotRepresentable = errors.New("args: value has no argument encoding")

// MarshalError reports a field that could not be serialized.
type MarshalError struct {
	Field string // external flag name of the offending field
	Err   error
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("args: field %q: %v", e.Field, e.Err)
}

func (e *MarshalError) Unwrap() error { return e.Err }

var appenderType = reflect.TypeOf((*Appender)(nil)).Elem()

// Marshal converts an option struct into an ordered argument token list.
// v must be a struct or a non-nil pointer to one. The result is a fresh
// slice owned by the caller; Marshal itself is a pure function of (v, mode)
// and is safe for concurrent use.
func Marshal(v any, mode BoolMode) ([]string, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.New("args: Marshal of nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("args: Marshal of non-struct type %s", rv.Type())
	}

	out := []string{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, skip := fieldName(field)
		if skip {
			continue
		}

		fv := rv.Field(i)
		if fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Slice {
			if fv.IsNil() {
				continue
			}
		}

		var err error
		out, err = appendField(out, name, fv, mode)
		if err != nil {
			return nil, &MarshalError{Field: name, Err: err}
		}
	}
	return out, nil
}

// fieldName resolves a field's external flag name from its `ip` tag.
// The second return is true when the field is excluded from serialization.
func fieldName(field reflect.StructField) (string, bool) {
	tag, ok := field.Tag.Lookup("ip")
	if !ok || tag == "" {
		return strings.ToLower(field.Name), false
	}
	if tag == "-" {
		return "", true
	}
	return tag, false
}

// appendField appends one present field's tokens to out.
func appendField(out []string, name string, fv reflect.Value, mode BoolMode) ([]string, error) {
	// Custom encodings take precedence over kind-based rules so that enum
	// types with an underlying string or integer kind still serialize
	// through their Appender method.
	if a, ok := asAppender(fv); ok {
		return a.AppendTokens(out)
	}

	if fv.Kind() == reflect.Pointer {
		fv = fv.Elem()
		if a, ok := asAppender(fv); ok {
			return a.AppendTokens(out)
		}
	}

	switch fv.Kind() {
	case reflect.String:
		return append(out, name, fv.String()), nil

	case reflect.Bool:
		return appendBool(out, name, fv.Bool(), mode), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(out, name, strconv.FormatInt(fv.Int(), 10)), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return append(out, name, strconv.FormatUint(fv.Uint(), 10)), nil

	case reflect.Slice:
		return appendSlice(out, name, fv)

	default:
		return nil, fmt.Errorf("unsupported field type %s", fv.Type())
	}
}

// appendBool renders a boolean per the active mode.
func appendBool(out []string, name string, b bool, mode BoolMode) []string {
	switch mode {
	case BoolPresence:
		if b {
			return append(out, name)
		}
		return out
	default:
		if b {
			return append(out, name, "on")
		}
		return append(out, name, "off")
	}
}

// appendSlice projects a collection of Appender flags to zero or more
// independent flag tokens. The slice itself contributes no delimiter and no
// leading flag-name token.
func appendSlice(out []string, name string, fv reflect.Value) ([]string, error) {
	if !fv.Type().Elem().Implements(appenderType) &&
		!reflect.PointerTo(fv.Type().Elem()).Implements(appenderType) {
		return nil, fmt.Errorf("unsupported slice element type %s", fv.Type().Elem())
	}
	var err error
	for i := 0; i < fv.Len(); i++ {
		a, ok := asAppender(fv.Index(i))
		if !ok {
			return nil, fmt.Errorf("unsupported slice element type %s", fv.Type().Elem())
		}
		out, err = a.AppendTokens(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// asAppender extracts an Appender from v, covering both value and pointer
// method receivers. Struct fields reached through an interface value are
// not addressable, so pointer-receiver methods are resolved on a copy.
func asAppender(v reflect.Value) (Appender, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Type().Implements(appenderType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, false
		}
		return v.Interface().(Appender), true
	}
	if v.Kind() != reflect.Pointer && reflect.PointerTo(v.Type()).Implements(appenderType) {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		return ptr.Interface().(Appender), true
	}
	return nil, false
}
