// builtin.go: Default conversion set for the Proteus engine
//
// RegisterDefaults bulk-loads the standard conversions every application
// needs: string parsing and formatting for the numeric, boolean, duration,
// timestamp and URL types, the full numeric cross-conversion matrix, and a
// small set of rules covering fmt.Stringer sources and last-resort string
// rendering.
//
// Registrar semantics: parsers that cannot make sense of a particular value
// decline (return no result) rather than fault; only genuinely exceptional
// conditions, like a malformed URL, surface as converter faults with a
// cause. Defaulting never happens here; that belongs to the facade.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"
)

var (
	stringType   = reflect.TypeFor[string]()
	boolType     = reflect.TypeFor[bool]()
	bytesType    = reflect.TypeFor[[]byte]()
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
	urlType      = reflect.TypeFor[*url.URL]()
	urlValueType = reflect.TypeFor[url.URL]()
	stringerType = reflect.TypeFor[fmt.Stringer]()

	// numericTypes drives the cross-conversion matrix. time.Duration is a
	// named int64 and therefore registered separately.
	numericTypes = []reflect.Type{
		reflect.TypeFor[int](),
		reflect.TypeFor[int8](),
		reflect.TypeFor[int16](),
		reflect.TypeFor[int32](),
		reflect.TypeFor[int64](),
		reflect.TypeFor[uint](),
		reflect.TypeFor[uint8](),
		reflect.TypeFor[uint16](),
		reflect.TypeFor[uint32](),
		reflect.TypeFor[uint64](),
		reflect.TypeFor[float32](),
		reflect.TypeFor[float64](),
	}
)

// RegisterDefaults populates r with the standard conversion set.
//
// Call it once during startup, before the first lookup. The set includes
// several hundred exact registrations plus three rules; applications layer
// their own registrations on top.
func RegisterDefaults(r *Registry) {
	registerStringConversions(r)
	registerNumericMatrix(r)
	registerBoolConversions(r)
	registerTimeConversions(r)
	registerURLConversions(r)
	registerByteConversions(r)
	registerDefaultRules(r)
}

// registerStringConversions wires string -> numeric parsing and
// numeric -> string formatting for every numeric type.
func registerStringConversions(r *Registry) {
	for _, nt := range numericTypes {
		nt := nt
		r.RegisterExact(stringType, nt, func(v any) (any, error) {
			return parseNumeric(v.(string), nt)
		})
		r.RegisterExact(nt, stringType, func(v any) (any, error) {
			return formatNumeric(reflect.ValueOf(v)), nil
		})
	}

	r.RegisterExact(stringType, boolType, func(v any) (any, error) {
		b, err := strconv.ParseBool(v.(string))
		if err != nil {
			return nil, nil // not a boolean shape, decline
		}
		return b, nil
	})
	r.RegisterExact(boolType, stringType, func(v any) (any, error) {
		return strconv.FormatBool(v.(bool)), nil
	})
}

// registerNumericMatrix wires every numeric type to every other numeric
// type through Go's value conversion rules.
func registerNumericMatrix(r *Registry) {
	for _, from := range numericTypes {
		for _, to := range numericTypes {
			if from == to {
				continue
			}
			to := to
			r.RegisterExact(from, to, func(v any) (any, error) {
				return reflect.ValueOf(v).Convert(to).Interface(), nil
			})
		}
	}
}

// registerBoolConversions wires bool <-> numeric using the 0/1 convention.
func registerBoolConversions(r *Registry) {
	for _, nt := range numericTypes {
		nt := nt
		r.RegisterExact(boolType, nt, func(v any) (any, error) {
			n := int64(0)
			if v.(bool) {
				n = 1
			}
			return reflect.ValueOf(n).Convert(nt).Interface(), nil
		})
		r.RegisterExact(nt, boolType, func(v any) (any, error) {
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.Float32, reflect.Float64:
				return rv.Float() != 0, nil
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				return rv.Uint() != 0, nil
			default:
				return rv.Int() != 0, nil
			}
		})
	}
}

// registerTimeConversions wires duration and timestamp parsing.
func registerTimeConversions(r *Registry) {
	r.RegisterExact(stringType, durationType, func(v any) (any, error) {
		d, err := time.ParseDuration(v.(string))
		if err != nil {
			return nil, nil // not a duration shape, decline
		}
		return d, nil
	})
	r.RegisterExact(durationType, stringType, func(v any) (any, error) {
		return v.(time.Duration).String(), nil
	})
	r.RegisterExact(reflect.TypeFor[int64](), durationType, func(v any) (any, error) {
		return time.Duration(v.(int64)), nil
	})
	r.RegisterExact(durationType, reflect.TypeFor[int64](), func(v any) (any, error) {
		return int64(v.(time.Duration)), nil
	})

	r.RegisterExact(stringType, timeType, func(v any) (any, error) {
		t, err := time.Parse(time.RFC3339, v.(string))
		if err != nil {
			return nil, nil // not an RFC3339 timestamp, decline
		}
		return t, nil
	})
	r.RegisterExact(timeType, stringType, func(v any) (any, error) {
		return v.(time.Time).Format(time.RFC3339), nil
	})
	r.RegisterExact(timeType, reflect.TypeFor[int64](), func(v any) (any, error) {
		return v.(time.Time).Unix(), nil
	})
}

// registerURLConversions wires string <-> URL. A malformed URL is a
// converter fault, not a decline: the caller asked for URL semantics and
// the parser can say exactly why the value has none.
//
// The parse target is the url.URL value type so the facade's pointer
// normalization serves *url.URL destinations from the same registration.
func registerURLConversions(r *Registry) {
	r.RegisterExact(stringType, urlValueType, func(v any) (any, error) {
		u, err := url.Parse(v.(string))
		if err != nil {
			return nil, err
		}
		return *u, nil
	})
	r.RegisterExact(urlType, stringType, func(v any) (any, error) {
		return v.(*url.URL).String(), nil
	})
	r.RegisterExact(urlValueType, stringType, func(v any) (any, error) {
		u := v.(url.URL)
		return u.String(), nil
	})
}

// registerByteConversions wires []byte <-> string.
func registerByteConversions(r *Registry) {
	r.RegisterExact(bytesType, stringType, func(v any) (any, error) {
		return string(v.([]byte)), nil
	})
	r.RegisterExact(stringType, bytesType, func(v any) (any, error) {
		return []byte(v.(string)), nil
	})
}

// registerDefaultRules wires the flexible fallbacks. Order matters within
// the registrar only for same-sub-type rules; across sub-types the bucket
// contract decides.
func registerDefaultRules(r *Registry) {
	// json.Number carries an unparsed literal; turning it into a string
	// intermediate lets the existing string parsers finish the job against
	// whatever destination was requested (two-stage conversion).
	r.RegisterRule(NewFixedSourceAnyDestRule(reflect.TypeFor[json.Number](), func(v any) (any, error) {
		return v.(json.Number).String(), nil
	}))

	// Any fmt.Stringer renders to string.
	r.RegisterRule(NewAssignableSourceFixedDestRule(stringerType, stringType, func(v any) (any, error) {
		return v.(fmt.Stringer).String(), nil
	}))

	// Last resort: anything renders to string. Registered as the most
	// permissive sub-type so every more precise registration wins first.
	r.RegisterRule(NewAnySourceFixedDestRule(stringType, func(v any) (any, error) {
		return fmt.Sprintf("%v", v), nil
	}))
}

// parseNumeric parses s into the numeric type nt, declining on values that
// do not have a numeric shape.
func parseNumeric(s string, nt reflect.Type) (any, error) {
	switch nt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, nt.Bits())
		if err != nil {
			return nil, nil
		}
		return reflect.ValueOf(n).Convert(nt).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, nt.Bits())
		if err != nil {
			return nil, nil
		}
		return reflect.ValueOf(n).Convert(nt).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, nt.Bits())
		if err != nil {
			return nil, nil
		}
		return reflect.ValueOf(f).Convert(nt).Interface(), nil
	default:
		return nil, nil
	}
}

// formatNumeric renders a numeric value in its canonical decimal form.
func formatNumeric(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits())
	default:
		return fmt.Sprintf("%v", rv.Interface())
	}
}
