package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/transcoder"
)

// parseArg reads one argument written as JSON against its WIT type.
//
//	record   {"port": 80, "address": [127, 0, 0, 1]}
//	variant  {"case": "ipv4", "value": {...}} or "case" without payload
//	enum     "ipv4"
//	flags    ["read", "write"]
//	option   null or the inner value
//	result   {"ok": v} or {"err": v}
//	list<u8> a string or an array of numbers
//	own/borrow a handle number
//
// Bare words that are not valid JSON are taken as strings, so enum cases
// and string arguments need no quoting on the command line.
func parseArg(t wit.Type, raw string) (transcoder.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		v = raw
	}
	return convert(t, v)
}

func convert(t wit.Type, v any) (transcoder.Value, error) {
	switch typ := t.(type) {
	case wit.Bool:
		switch b := v.(type) {
		case bool:
			return transcoder.Bool(b), nil
		case string:
			parsed, err := strconv.ParseBool(b)
			return transcoder.Bool(parsed), err
		}
	case wit.U8:
		n, err := unsigned(v, 8)
		return transcoder.U8(n), err
	case wit.U16:
		n, err := unsigned(v, 16)
		return transcoder.U16(n), err
	case wit.U32:
		n, err := unsigned(v, 32)
		return transcoder.U32(n), err
	case wit.U64:
		n, err := unsigned(v, 64)
		return transcoder.U64(n), err
	case wit.S8:
		n, err := signed(v, 8)
		return transcoder.S8(n), err
	case wit.S16:
		n, err := signed(v, 16)
		return transcoder.S16(n), err
	case wit.S32:
		n, err := signed(v, 32)
		return transcoder.S32(n), err
	case wit.S64:
		n, err := signed(v, 64)
		return transcoder.S64(n), err
	case wit.F32:
		f, err := float(v, 32)
		return transcoder.F32(f), err
	case wit.F64:
		f, err := float(v, 64)
		return transcoder.F64(f), err
	case wit.Char:
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) == 1 {
			r, _ := utf8.DecodeRuneInString(s)
			return transcoder.Char(r), nil
		}
	case wit.String:
		switch s := v.(type) {
		case string:
			return transcoder.String(s), nil
		case json.Number:
			return transcoder.String(s.String()), nil
		}
	case *wit.TypeDef:
		return convertDef(typ, v)
	}
	return nil, fmt.Errorf("cannot read %v as %s", v, transcoder.TypeName(t))
}

func convertDef(t *wit.TypeDef, v any) (transcoder.Value, error) {
	switch kind := t.Kind.(type) {
	case *wit.Record:
		obj, ok := v.(map[string]any)
		if !ok {
			break
		}
		rec := make(transcoder.Record, len(kind.Fields))
		for i, f := range kind.Fields {
			fv, err := convert(f.Type, obj[f.Name])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			rec[i] = transcoder.Field{Name: f.Name, Value: fv}
		}
		return rec, nil

	case *wit.Variant:
		name, payload := v, any(nil)
		if obj, ok := v.(map[string]any); ok {
			name, payload = obj["case"], obj["value"]
		}
		for _, c := range kind.Cases {
			if c.Name != name {
				continue
			}
			if c.Type == nil {
				return transcoder.Case(c.Name, nil), nil
			}
			pv, err := convert(c.Type, payload)
			if err != nil {
				return nil, fmt.Errorf("case %s: %w", c.Name, err)
			}
			return transcoder.Case(c.Name, pv), nil
		}
		return nil, fmt.Errorf("%s has no case %v", transcoder.TypeName(t), name)

	case *wit.Enum:
		if s, ok := v.(string); ok {
			for _, c := range kind.Cases {
				if c.Name == s {
					return transcoder.Enum(s), nil
				}
			}
			return nil, fmt.Errorf("%s has no case %q", transcoder.TypeName(t), s)
		}

	case *wit.Flags:
		items, ok := v.([]any)
		if !ok {
			break
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("flag name %v is not a string", it)
			}
			names = append(names, s)
		}
		return transcoder.FlagsByName(t, names...)

	case *wit.List:
		if s, ok := v.(string); ok {
			if _, isByte := kind.Type.(wit.U8); isByte {
				return transcoder.BytesOf([]byte(s)), nil
			}
		}
		items, ok := v.([]any)
		if !ok {
			break
		}
		list := make(transcoder.List, len(items))
		for i, it := range items {
			ev, err := convert(kind.Type, it)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = ev
		}
		return list, nil

	case *wit.Option:
		if v == nil {
			return transcoder.None(), nil
		}
		inner, err := convert(kind.Type, v)
		if err != nil {
			return nil, err
		}
		return transcoder.Some(inner), nil

	case *wit.Result:
		obj, ok := v.(map[string]any)
		if !ok {
			break
		}
		if okv, has := obj["ok"]; has {
			return resultSide(kind.OK, okv, false)
		}
		if e, has := obj["err"]; has {
			return resultSide(kind.Err, e, true)
		}

	case *wit.Tuple:
		items, ok := v.([]any)
		if !ok || len(items) != len(kind.Types) {
			break
		}
		tup := make(transcoder.Tuple, len(items))
		for i, it := range items {
			ev, err := convert(kind.Types[i], it)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			tup[i] = ev
		}
		return tup, nil

	case *wit.Own, *wit.Borrow:
		n, err := unsigned(v, 32)
		return transcoder.Handle(n), err

	case wit.Type:
		return convert(kind, v)
	}
	return nil, fmt.Errorf("cannot read %v as %s", v, transcoder.TypeName(t))
}

func resultSide(t wit.Type, v any, isErr bool) (transcoder.Value, error) {
	var payload transcoder.Value
	if t != nil {
		pv, err := convert(t, v)
		if err != nil {
			return nil, err
		}
		payload = pv
	}
	if isErr {
		return transcoder.Err(payload), nil
	}
	return transcoder.Ok(payload), nil
}

func number(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), true
	case string:
		return n, true
	}
	return "", false
}

func unsigned(v any, bits int) (uint64, error) {
	s, ok := number(v)
	if !ok {
		return 0, fmt.Errorf("%v is not a number", v)
	}
	return strconv.ParseUint(s, 0, bits)
}

func signed(v any, bits int) (int64, error) {
	s, ok := number(v)
	if !ok {
		return 0, fmt.Errorf("%v is not a number", v)
	}
	return strconv.ParseInt(s, 0, bits)
}

func float(v any, bits int) (float64, error) {
	s, ok := number(v)
	if !ok {
		return 0, fmt.Errorf("%v is not a number", v)
	}
	switch s {
	case "nan", "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bits)
}
