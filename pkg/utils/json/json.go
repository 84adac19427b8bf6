// Package json wraps JSON serialization.
// It uses sonic on amd64/arm64 and encoding/json everywhere else, so the
// session document, corpus file and cache payloads share one codec.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v any) ([]byte, error)

	// MarshalIndent encodes v into indented JSON bytes.
	MarshalIndent func(v any, prefix, indent string) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v any) error

	// NewEncoder creates a new JSON encoder for the writer.
	NewEncoder func(w io.Writer) Encoder

	// NewDecoder creates a new JSON decoder for the reader.
	NewDecoder func(r io.Reader) Decoder

	usingSonic bool
)

// Encoder is a JSON encoder interface.
type Encoder interface {
	Encode(v any) error
}

// Decoder is a JSON decoder interface.
type Decoder interface {
	Decode(v any) error
}

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		api := sonic.ConfigStd
		Marshal = api.Marshal
		MarshalIndent = api.MarshalIndent
		Unmarshal = api.Unmarshal
		NewEncoder = func(w io.Writer) Encoder {
			return api.NewEncoder(w)
		}
		NewDecoder = func(r io.Reader) Decoder {
			return api.NewDecoder(r)
		}
		usingSonic = true
		return
	}

	Marshal = stdjson.Marshal
	MarshalIndent = stdjson.MarshalIndent
	Unmarshal = stdjson.Unmarshal
	NewEncoder = func(w io.Writer) Encoder {
		return stdjson.NewEncoder(w)
	}
	NewDecoder = func(r io.Reader) Decoder {
		return stdjson.NewDecoder(r)
	}
}

// IsUsingSonic returns true if sonic is being used for JSON operations.
func IsUsingSonic() bool {
	return usingSonic
}
