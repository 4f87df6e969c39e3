// File: control/json.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JSON config files and stats rendering.

package control

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"
)

// LoadJSON decodes the JSON file at path into dst.
func LoadJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := sonnet.Unmarshal(raw, dst); err != nil {
		return errors.Wrapf(err, "decode config %s", path)
	}
	return nil
}

// MarshalStats renders a stats snapshot as JSON.
func MarshalStats(stats map[string]any) ([]byte, error) {
	out, err := sonnet.Marshal(stats)
	if err != nil {
		return nil, errors.Wrap(err, "encode stats")
	}
	return out, nil
}

// Duration is a time.Duration that decodes from a JSON string ("250ms") or
// a number of milliseconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := sonnet.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := time.ParseDuration(str)
		if err != nil {
			return errors.Wrap(err, "duration")
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := sonnet.Unmarshal(b, &ms); err != nil {
		return errors.Wrap(err, "duration")
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return sonnet.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Number converts a decoded JSON value (float64, json.Number, int) to int64.
func Number(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
