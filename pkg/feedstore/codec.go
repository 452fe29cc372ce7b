package feedstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// binaryCodec passes bytes through unchanged.
type binaryCodec struct{}

func (binaryCodec) Encode(v []byte) ([]byte, error) { return v, nil }
func (binaryCodec) Decode(d []byte) ([]byte, error) { return d, nil }

// utf8Codec validates that the value is well-formed UTF-8 on the way
// in and returns bytes unchanged; Go strings/[]byte are UTF-8 native
// so this is mostly a pass-through with validation.
type utf8Codec struct{}

func (utf8Codec) Encode(v []byte) ([]byte, error) {
	if !utf8.Valid(v) {
		return nil, fmt.Errorf("feedstore: utf-8 codec: value is not valid UTF-8")
	}
	return v, nil
}
func (utf8Codec) Decode(d []byte) ([]byte, error) { return d, nil }

// jsonCodec wraps an opaque byte payload as a JSON string value,
// base64-encoding it so arbitrary binary survives the round trip.
type jsonCodec struct{}

func (jsonCodec) Encode(v []byte) ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(v))
}

func (jsonCodec) Decode(d []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return nil, fmt.Errorf("feedstore: decode json value: %w", err)
	}
	return base64.StdEncoding.DecodeString(s)
}

// CodecRegistry resolves a value-encoding name to a Codec. It ships
// with "binary", "utf-8", and "json" pre-registered and lets callers
// register additional named codecs.
type CodecRegistry struct {
	codecs map[string]Codec
}

// NewCodecRegistry returns a registry with the built-in codecs
// registered.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{codecs: make(map[string]Codec)}
	r.Register("binary", binaryCodec{})
	r.Register("utf-8", utf8Codec{})
	r.Register("json", jsonCodec{})
	return r
}

// Register adds or replaces the codec for name.
func (r *CodecRegistry) Register(name string, codec Codec) {
	r.codecs[name] = codec
}

// Resolve returns the codec registered for name, or ok=false if none
// is registered.
func (r *CodecRegistry) Resolve(name string) (Codec, bool) {
	c, ok := r.codecs[name]
	return c, ok
}

// ---------------------------------------------------------------------
// Binary-preserving JSON for IndexDB metadata.
// ---------------------------------------------------------------------

// byteStringTag marks a JSON string produced by encodeMetadataValue as
// an escaped byte string rather than ordinary text, so decodeMetadata
// can restore byte identity on the way back out.
const byteStringTag = "\x00fsbytes:"

// encodeMetadata serializes an arbitrary metadata value (itself
// produced by json.Marshal-compatible structures containing []byte
// fields) into canonical JSON where every []byte leaf is escaped under
// byteStringTag so it round-trips without the base64-vs-string
// ambiguity plain encoding/json already handles for []byte — this
// exists for *nested* maps/interfaces where a []byte arrives as
// `any` and would otherwise be marshaled as a UTF-8 string.
func encodeMetadata(v any) ([]byte, error) {
	return json.Marshal(tagBytes(v))
}

// decodeMetadata parses a record previously produced by
// encodeMetadata back into generic Go values, restoring []byte leaves.
func decodeMetadata(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("feedstore: decode metadata: %w", err)
	}
	return untagBytes(raw), nil
}

func tagBytes(v any) any {
	switch t := v.(type) {
	case []byte:
		return byteStringTag + base64.StdEncoding.EncodeToString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = tagBytes(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = tagBytes(val)
		}
		return out
	default:
		return v
	}
}

func untagBytes(v any) any {
	switch t := v.(type) {
	case string:
		if len(t) > len(byteStringTag) && t[:len(byteStringTag)] == byteStringTag {
			if decoded, err := base64.StdEncoding.DecodeString(t[len(byteStringTag):]); err == nil {
				return decoded
			}
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = untagBytes(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = untagBytes(val)
		}
		return out
	default:
		return v
	}
}
