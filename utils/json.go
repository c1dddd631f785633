package utils

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
)

type JSONBufferPool struct {
	pool sync.Pool
}

func (p *JSONBufferPool) Get() *bytes.Buffer {
	if buf := p.pool.Get(); buf != nil {
		return buf.(*bytes.Buffer)
	}
	return bytes.NewBuffer(make([]byte, 0, 512))
}

func (p *JSONBufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	if buf.Cap() < 16*1024 {
		p.pool.Put(buf)
	}
}

var jsonPool = &JSONBufferPool{}

// recordAPI matches sonic.ConfigStd but keeps numbers as json.Number so
// integers beyond 2^53 survive a decode into interface{}.
var recordAPI = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

// Marshal encodes data without the trailing newline the stream encoder adds.
func Marshal(data interface{}) ([]byte, error) {
	buf := jsonPool.Get()
	defer jsonPool.Put(buf)

	if err := sonic.ConfigStd.NewEncoder(buf).Encode(data); err != nil {
		return nil, err
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

func Unmarshal[T any](data []byte, target *T) error {
	return sonic.ConfigStd.Unmarshal(data, target)
}

// UnmarshalInto decodes into an untyped destination pointer. Numbers landing
// in interface{} values come back as json.Number.
func UnmarshalInto(data []byte, target interface{}) error {
	return recordAPI.Unmarshal(data, target)
}

func UnmarshalConfig[T any](config interface{}, target *T) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if typed, ok := config.(*T); ok {
		*target = *typed
		return nil
	}

	configBytes, err := sonic.ConfigStd.Marshal(config)
	if err != nil {
		return err
	}

	return sonic.ConfigStd.Unmarshal(configBytes, target)
}
