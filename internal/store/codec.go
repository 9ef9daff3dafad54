package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"iuhsched/internal/model"
)

// shape tags the on-disk layout of a data file.
type shape int

const (
	shapeEmpty shape = iota
	// shapeFlat is the legacy {"schedule": [...], "tasks": [...]} layout.
	shapeFlat
	// shapeWeekly is {"tuanDD/MM/YYYY": {"schedule", "tasks"}, ..., "updated": ...}.
	shapeWeekly
)

func (s shape) String() string {
	switch s {
	case shapeFlat:
		return "flat"
	case shapeWeekly:
		return "weekly"
	default:
		return "empty"
	}
}

// document is the decoded file. Only the decoder looks at the raw shape;
// everything else works on buckets.
type document struct {
	shape   shape
	buckets []Bucket
	updated string
}

type bucketJSON struct {
	Schedule []model.SessionEntry `json:"schedule"`
	Tasks    []model.TaskEntry    `json:"tasks"`
}

var errNotObject = errors.New("data file is not a JSON object")

// decode reads either file shape into buckets, keeping the key order of the
// file. A flat file becomes a single bucket with an empty key.
func decode(data []byte) (document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return document{shape: shapeEmpty}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return document{}, fmt.Errorf("decode data file: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return document{}, errNotObject
	}

	type field struct {
		key string
		raw json.RawMessage
	}
	var fields []field
	flat := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return document{}, fmt.Errorf("decode data file: %w", err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return document{}, fmt.Errorf("decode data file key %q: %w", key, err)
		}
		if key == "schedule" {
			flat = true
		}
		fields = append(fields, field{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return document{}, fmt.Errorf("decode data file: %w", err)
	}

	if flat {
		var b bucketJSON
		if err := json.Unmarshal(data, &b); err != nil {
			return document{}, fmt.Errorf("decode flat data file: %w", err)
		}
		return document{
			shape:   shapeFlat,
			buckets: []Bucket{{Schedule: b.Schedule, Tasks: b.Tasks}},
		}, nil
	}

	doc := document{shape: shapeWeekly}
	for _, f := range fields {
		switch {
		case f.key == "updated":
			_ = json.Unmarshal(f.raw, &doc.updated)
		case IsBucketKey(f.key):
			var b bucketJSON
			if err := json.Unmarshal(f.raw, &b); err != nil {
				return document{}, fmt.Errorf("decode bucket %q: %w", f.key, err)
			}
			doc.buckets = append(doc.buckets, Bucket{Key: f.key, Schedule: b.Schedule, Tasks: b.Tasks})
		}
	}
	return doc, nil
}

// encode writes buckets in order as the week-based shape followed by the
// "updated" stamp. Non-ASCII text is written as is.
func encode(buckets []Bucket, updated string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, b := range buckets {
		key, err := marshal(b.Key)
		if err != nil {
			return nil, err
		}
		val, err := marshal(bucketJSON{
			Schedule: nonNil(b.Schedule),
			Tasks:    nonNil(b.Tasks),
		})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		buf.WriteByte(',')
	}
	stamp, err := marshal(updated)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"updated":`)
	buf.Write(stamp)
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
