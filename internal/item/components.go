package item

import "encoding/json"

// The data components blob is loosely structured. Each helper below matches
// one step of a fixed path and reports whether the step was present and of
// the expected shape.

const containerComponent = "minecraft:container"

// field returns the value stored under key when msg is a JSON object.
func field(msg json.RawMessage, key string) (json.RawMessage, bool) {
	if len(msg) == 0 {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(msg, &obj); err != nil || obj == nil {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

// path follows keys through nested objects.
func path(msg json.RawMessage, keys ...string) (json.RawMessage, bool) {
	cur := msg
	for _, k := range keys {
		next, ok := field(cur, k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func asString(msg json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", false
	}
	return s, true
}

func asArray(msg json.RawMessage) ([]json.RawMessage, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(msg, &arr); err != nil || arr == nil {
		return nil, false
	}
	return arr, true
}

// customName reads /value/display/value/Name/value. The stored value is itself
// a JSON-encoded string literal.
func customName(components json.RawMessage) (string, bool) {
	v, ok := path(components, "value", "display", "value", "Name", "value")
	if !ok {
		return "", false
	}
	encoded, ok := asString(v)
	if !ok {
		return "", false
	}
	return asString(json.RawMessage(encoded))
}

// containerEntries reads the /minecraft:container array.
func containerEntries(components json.RawMessage) ([]json.RawMessage, bool) {
	v, ok := field(components, containerComponent)
	if !ok {
		return nil, false
	}
	return asArray(v)
}
