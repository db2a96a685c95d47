package meld

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// coerce converts a decoded client value (JSON, MessagePack or a parsed call
// argument) into a value assignable to t.
//
// Scalars convert leniently between strings, numbers and booleans, since
// input elements always report strings. Composite values go through a JSON
// round trip.
func coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		s, ok := scalarString(rv)
		if !ok {
			return out, fmt.Errorf("cannot use %T as %s", v, t)
		}
		out.SetString(s)
		return out, nil

	case reflect.Bool:
		switch rv.Kind() {
		case reflect.Bool:
			out.SetBool(rv.Bool())
			return out, nil
		case reflect.String:
			b, err := strconv.ParseBool(rv.String())
			if err != nil {
				return out, err
			}
			out.SetBool(b)
			return out, nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(rv)
		if err != nil {
			return out, err
		}
		if out.OverflowInt(n) {
			return out, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(rv)
		if err != nil {
			return out, err
		}
		if n < 0 || out.OverflowUint(uint64(n)) {
			return out, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetUint(uint64(n))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, err := toFloat(rv)
		if err != nil {
			return out, err
		}
		out.SetFloat(f)
		return out, nil
	}

	if rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
		return rv.Convert(t), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return out, fmt.Errorf("cannot use %T as %s: %w", v, t, err)
	}
	return ptr.Elem(), nil
}

func scalarString(rv reflect.Value) (string, bool) {
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

func toInt(rv reflect.Value) (int64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", f)
		}
		return int64(f), nil
	case reflect.String:
		return strconv.ParseInt(rv.String(), 10, 64)
	}
	return 0, fmt.Errorf("cannot use %s as integer", rv.Type())
}

func toFloat(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return strconv.ParseFloat(rv.String(), 64)
	}
	return 0, fmt.Errorf("cannot use %s as float", rv.Type())
}
