package layout

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/geom"
)

// MaxInputSize bounds the raw input accepted by [ReadInput].
const MaxInputSize = 16 << 20

// ParseInput validates raw detector JSON and converts it to an [Input].
//
// Validation is all-or-nothing: the first malformed field yields an
// INVALID_INPUT error naming its path and no partial input is returned.
// An input with no boxes and no labels parses successfully; rejecting it
// is left to the build step.
func ParseInput(data []byte) (*Input, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input must be a JSON object")
	}

	in := &Input{}

	if v := doc.Get("image_path"); v.Exists() && v.Type != gjson.Null {
		if v.Type != gjson.String {
			return nil, errors.New(errors.ErrCodeInvalidInput, "image_path: expected string, got %s", typeName(v))
		}
		in.ImagePath = v.String()
	}

	boxes, err := listField(doc, "ui_boxes")
	if err != nil {
		return nil, err
	}
	in.UIBoxes = make([]geom.Rect, 0, len(boxes))
	for i, b := range boxes {
		r, err := parseRect(b, fmt.Sprintf("ui_boxes[%d]", i))
		if err != nil {
			return nil, err
		}
		in.UIBoxes = append(in.UIBoxes, r)
	}

	labels, err := listField(doc, "text_labels")
	if err != nil {
		return nil, err
	}
	in.TextLabels = make([]TextLabel, 0, len(labels))
	for i, l := range labels {
		path := fmt.Sprintf("text_labels[%d]", i)
		if !l.IsObject() {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s: expected object, got %s", path, typeName(l))
		}
		text := l.Get("text")
		if text.Type != gjson.String {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s.text: expected string, got %s", path, typeName(text))
		}
		r, err := parseRect(l.Get("bbox"), path+".bbox")
		if err != nil {
			return nil, err
		}
		in.TextLabels = append(in.TextLabels, TextLabel{Text: text.String(), BBox: r})
	}

	return in, nil
}

// ReadInput reads and parses detector JSON from r.
func ReadInput(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(data) > MaxInputSize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "input exceeds %d bytes", MaxInputSize)
	}
	return ParseInput(data)
}

// ReadInputFile reads and parses a detector JSON file.
func ReadInputFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadInput(f)
}

func listField(doc gjson.Result, key string) ([]gjson.Result, error) {
	v := doc.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s: expected array, got %s", key, typeName(v))
	}
	return v.Array(), nil
}

func parseRect(v gjson.Result, path string) (geom.Rect, error) {
	if !v.IsObject() {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput, "%s: expected object with x, y, w, h, got %s", path, typeName(v))
	}
	var vals [4]float64
	for i, key := range [4]string{"x", "y", "w", "h"} {
		f := v.Get(key)
		if f.Type != gjson.Number {
			return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput, "%s.%s: expected number, got %s", path, key, typeName(f))
		}
		vals[i] = f.Float()
		if math.IsInf(vals[i], 0) || math.IsNaN(vals[i]) {
			return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput, "%s.%s: %s is out of range", path, key, f.Raw)
		}
	}
	r := geom.Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	if !r.Finite() {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput, "%s: extent overflows", path)
	}
	return r, nil
}

func typeName(v gjson.Result) string {
	switch {
	case !v.Exists():
		return "nothing"
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	}
	switch v.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	return "unknown"
}
