package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"winenotes/internal/records"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// recordFieldKinds maps each WineRecord JSON key to the Go kind it decodes into.
var recordFieldKinds = jsonFieldKinds(reflect.TypeOf(records.WineRecord{}))

func jsonFieldKinds(t reflect.Type) map[string]reflect.Kind {
	kinds := make(map[string]reflect.Kind, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		kinds[name] = f.Type.Kind()
	}
	return kinds
}

// decodeRecords parses a records array. The first element must carry the
// wineName and wineryName keys; an empty array is accepted. Field values of
// the wrong type are coerced the way form input is: text fields take the
// text form of numbers, amounts that do not parse become 0. Entries that are
// not objects are skipped.
func decodeRecords(data []byte) ([]records.WineRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after the top-level value", ErrMalformedJSON)
	}
	items, ok := top.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	if len(items) > 0 {
		first, ok := items[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: first entry is not an object", ErrShape)
		}
		for _, key := range []string{"wineName", "wineryName"} {
			if _, ok := first[key]; !ok {
				return nil, fmt.Errorf("%w: first entry has no %s", ErrShape, key)
			}
		}
	}

	recs := make([]records.WineRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		coerceRecord(obj)
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrShape, i+1, err)
		}
		var rec records.WineRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrShape, i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func coerceRecord(obj map[string]any) {
	for key, value := range obj {
		kind, known := recordFieldKinds[key]
		if !known {
			delete(obj, key)
			continue
		}
		switch kind {
		case reflect.String:
			obj[key] = textValue(value)
		case reflect.Float64:
			obj[key] = amountValue(value)
		case reflect.Slice:
			obj[key] = grapeValues(value)
		}
	}
}

func textValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func amountValue(value any) float64 {
	switch v := value.(type) {
	case json.Number:
		return records.ParseAmount(v.String())
	case string:
		return records.ParseAmount(v)
	default:
		return 0
	}
}

func grapeValues(value any) []records.GrapeComponent {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	grapes := make([]records.GrapeComponent, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		grapes = append(grapes, records.GrapeComponent{
			Variety:    textValue(obj["variety"]),
			Percentage: amountValue(obj["percentage"]),
		})
	}
	return grapes
}
