// Package codec holds the encoders, decoders and compressors shared by the
// transports and the exporters.
package codec

import (
	"encoding/json"
	"io"
)

// Decoder reads one value of type T.
type Decoder[T any] interface {
	Decode(io.Reader) (T, error)
}

// Encoder writes one value of type T.
type Encoder[T any] interface {
	Encode(io.Writer, T) error
}

// JSONDecoder decodes JSON into T.
type JSONDecoder[T any] struct{}

// JSONEncoder encodes T as JSON.
type JSONEncoder[T any] struct{}

// NewJSONDecoder returns a JSON decoder for T.
func NewJSONDecoder[T any]() *JSONDecoder[T] { return &JSONDecoder[T]{} }

// NewJSONEncoder returns a JSON encoder for T.
func NewJSONEncoder[T any]() *JSONEncoder[T] { return &JSONEncoder[T]{} }

// Decode reads from an io.Reader, decodes the JSON data, and stores the result in a value of type T.
func (d *JSONDecoder[T]) Decode(r io.Reader) (T, error) {
	var t T
	err := json.NewDecoder(r).Decode(&t)
	return t, err
}

// Unmarshal decodes a complete JSON document.
func (d *JSONDecoder[T]) Unmarshal(b []byte) (T, error) {
	var t T
	err := json.Unmarshal(b, &t)
	return t, err
}

// Encode writes the JSON encoding of elem to an io.Writer.
func (e *JSONEncoder[T]) Encode(w io.Writer, elem T) error {
	return json.NewEncoder(w).Encode(elem)
}

// Marshal returns the JSON encoding of elem without a trailing newline.
func (e *JSONEncoder[T]) Marshal(elem T) ([]byte, error) {
	return json.Marshal(elem)
}
