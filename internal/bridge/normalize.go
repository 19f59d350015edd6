package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// maxUnwrap bounds how many layers of string encoding are peeled off.
const maxUnwrap = 3

// Normalize turns a raw object, a JSON string holding an object, or a
// double-encoded string into plain JSON. Strings whose content is not an
// object, array or nested string are values and are returned as-is.
func Normalize(raw []byte) ([]byte, error) {
	data := bytes.TrimSpace(raw)
	for i := 0; i < maxUnwrap; i++ {
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty", ErrMalformedPayload)
		}
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: invalid json", ErrMalformedPayload)
		}
		res := gjson.ParseBytes(data)
		if res.Type != gjson.String {
			return data, nil
		}
		inner := strings.TrimSpace(res.Str)
		if inner == "" || !strings.ContainsAny(inner[:1], `{["`) || !gjson.Valid(inner) {
			return data, nil
		}
		data = []byte(inner)
	}
	return data, nil
}

// DecodeInto normalizes raw and unmarshals it into v. A string that does not
// fit v is decoded once more from its content, so "42" and "false" reach
// numeric and boolean targets the same way 42 and false do.
func DecodeInto(raw []byte, v any) error {
	data, err := Normalize(raw)
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if res := gjson.ParseBytes(data); res.Type == gjson.String {
		if json.Unmarshal([]byte(res.Str), v) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
}

// DecodeOr decodes raw over a copy of fallback, so absent fields keep their
// defaults. When raw cannot be decoded the failure is logged and fallback is
// returned untouched.
func DecodeOr[T any](raw []byte, fallback T) T {
	v := fallback
	if err := DecodeInto(raw, &v); err != nil {
		log.Warn().Err(err).Str("module", "bridge").Msg("payload decode failed, using fallback")
		return fallback
	}
	return v
}
