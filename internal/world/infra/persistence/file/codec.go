package file

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec 存档体的压缩格式，编号写进文件头，不能改。
type Codec byte

const (
	CodecNone Codec = 0
	CodecZstd Codec = 1
	CodecLZ4  Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

// ParseCodec 配置里的名字到编号；空串视为 zstd。
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	case "none", "json":
		return CodecNone, nil
	default:
		return 0, fmt.Errorf("unknown world codec %q", name)
	}
}

func (c Codec) compress(src []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return src, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
	case CodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(src); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("compress: unsupported %s", c)
	}
}

func (c Codec) decompress(src []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return src, nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(src, nil)
	case CodecLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
	default:
		return nil, fmt.Errorf("decompress: unsupported %s", c)
	}
}
