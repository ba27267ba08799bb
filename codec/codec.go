package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Decode[T any](bz []byte) (T, error) {
	value := new(T)
	if err := json.Unmarshal(bz, value); err != nil {
		return *value, eris.Wrap(err, "failed to decode")
	}
	return *value, nil
}

func Encode(value any) ([]byte, error) {
	bz, err := json.Marshal(value)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode")
	}
	return bz, nil
}
