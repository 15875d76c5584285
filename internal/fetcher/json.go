package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ooh-map/internal/model"
)

// ErrMalformedPayload marks input that is not a JSON array of objects.
// Callers degrade it to an empty dataset.
var ErrMalformedPayload = eris.New("json: payload is not an array")

// DecodeRecords decodes a JSON array of flat objects, keeping the key order of
// each object. Elements that are not objects are skipped and logged. Empty
// input, a non-array top level and broken syntax all yield ErrMalformedPayload.
func DecodeRecords(ctx context.Context, r io.Reader) (*model.Dataset, error) {
	decoder := json.NewDecoder(r)

	tok, err := decoder.Token()
	if err != nil {
		if err == io.EOF {
			return nil, eris.Wrap(ErrMalformedPayload, "json: empty input")
		}
		return nil, eris.Wrapf(ErrMalformedPayload, "json: read opening token: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, eris.Wrapf(ErrMalformedPayload, "json: expected '[', got %v", tok)
	}

	ds := &model.Dataset{}
	seen := make(map[string]bool)
	for i := 0; decoder.More(); i++ {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "json: context cancelled")
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, eris.Wrapf(ErrMalformedPayload, "json: decode element %d: %v", i, err)
		}

		rec, keys, err := decodeObject(raw)
		if err != nil {
			zap.L().Warn("json: skipping element", zap.Int("index", i), zap.Error(err))
			continue
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				ds.Columns = append(ds.Columns, k)
			}
		}
		ds.Records = append(ds.Records, rec)
	}

	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return nil, eris.Wrapf(ErrMalformedPayload, "json: read closing token: %v", err)
	}

	return ds, nil
}

func decodeObject(raw json.RawMessage) (model.Record, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, eris.Wrap(err, "json: read object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, eris.Errorf("json: expected object, got %s", raw)
	}

	rec := model.Record{}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, eris.Wrap(err, "json: read key")
		}
		key, _ := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, eris.Wrapf(err, "json: read value of %q", key)
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = scalar(v)
	}
	return rec, keys, nil
}

// scalar renders a decoded JSON value as a record field. Nested values are
// kept as compact JSON text.
func scalar(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}
