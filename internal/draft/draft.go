package draft

import (
	"bytes"
	"encoding/json"
	"maps"
)

// contentKey is the JSON key holding the draft's text.
const contentKey = "content"

// Draft is the payload supplied by a draft producer.
// Content is the text; Fields carries every other key (characters, plot points,
// title, ...) and passes through unvalidated.
type Draft struct {
	// Content is the draft text
	Content string

	// Fields holds auxiliary fields keyed by their JSON name
	Fields map[string]any
}

// MarshalJSON encodes the draft as a flat object: "content" plus every auxiliary
// field at top level. An empty Content writes no key of its own, so a "content"
// kept in Fields is written as-is and a draft that had none still has none.
func (d Draft) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+1)
	maps.Copy(out, d.Fields)
	if d.Content != "" {
		out[contentKey] = d.Content
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat draft object. Numbers are kept as json.Number so
// they re-encode verbatim. Only a non-empty string "content" moves into Content;
// any other "content" value, "" included, stays in Fields.
func (d *Draft) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	d.Content = ""
	d.Fields = nil
	if s, ok := raw[contentKey].(string); ok && s != "" {
		d.Content = s
		delete(raw, contentKey)
	}
	if len(raw) > 0 {
		d.Fields = raw
	}
	return nil
}

// Field returns an auxiliary field by name.
func (d Draft) Field(name string) (any, bool) {
	v, ok := d.Fields[name]
	return v, ok
}

// StringField returns an auxiliary field if it holds a string.
func (d Draft) StringField(name string) (string, bool) {
	s, ok := d.Fields[name].(string)
	return s, ok
}

// ParseDraft decodes a draft from JSON.
func ParseDraft(data []byte) (Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}
