package wire

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes a value to JSON bytes.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON bytes into a value.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DecodePresenceMeta decodes and validates a presence payload.
func DecodePresenceMeta(data []byte) (*PresenceMeta, error) {
	var meta PresenceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode presence meta: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid presence meta: %w", err)
	}
	return &meta, nil
}

// DecodeTypingSignal decodes and validates a typing payload.
func DecodeTypingSignal(data []byte) (*TypingSignal, error) {
	var sig TypingSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("failed to decode typing signal: %w", err)
	}
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid typing signal: %w", err)
	}
	return &sig, nil
}
