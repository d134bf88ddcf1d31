package file

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	"Underworld/internal/shared/security"
	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
	"Underworld/modules/kit/errx"
)

// 文件布局：
//
//	magic(4) | format(1) | codec(1) | flags(1) | reserved(1) | version(8) | blake3(32) | body
//
// body = encrypt?(compress(json))，校验和覆盖落盘的 body。
var magic = [4]byte{'U', 'W', 'D', 'B'}

const (
	formatV1      byte = 1
	flagEncrypted byte = 1 << 0
	headerSize         = 4 + 1 + 1 + 1 + 1 + 8 + 32
)

var ErrCorruptFile = errx.NewPersistence("WORLD_FILE_CORRUPT", "世界存档文件损坏")

type corruption string

func (c corruption) ReasonCode() string { return string(c) }

const (
	badHeader        corruption = "bad_header"
	unknownFormat    corruption = "unknown_format"
	checksumMismatch corruption = "checksum_mismatch"
	missingSecret    corruption = "missing_secret"
	decryptFailed    corruption = "decrypt_failed"
	decompressFailed corruption = "decompress_failed"
)

type WorldRepository struct {
	path  string
	codec Codec
	key   []byte
}

type Option func(*WorldRepository)

func WithCodec(c Codec) Option {
	return func(r *WorldRepository) { r.codec = c }
}

// WithSecret 非空时对存档体做 AES-CBC 加密。
func WithSecret(secret string) Option {
	return func(r *WorldRepository) {
		if secret != "" {
			r.key = security.DeriveKey(secret)
		}
	}
}

func NewWorldRepository(path string, opts ...Option) *WorldRepository {
	r := &WorldRepository{path: path, codec: CodecZstd}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *WorldRepository) Path() string {
	return r.path
}

func (r *WorldRepository) LoadWorld(_ context.Context) ([]byte, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, port.ErrWorldNotFound.WithData("path", r.path)
	}
	if err != nil {
		return nil, errx.ErrPersistence.WithMsg("读取世界存档失败").WithCause(err)
	}
	return r.decode(raw)
}

// Save 先写临时文件再 rename，避免半截文件覆盖旧存档。
func (r *WorldRepository) Save(_ context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	out, err := r.encode(s.Version, s.Payload)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errx.ErrPersistence.WithCause(err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return errx.ErrPersistence.WithMsg("写入临时存档失败").WithCause(err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return errx.ErrPersistence.WithMsg("替换世界存档失败").WithCause(err)
	}
	return nil
}

func (r *WorldRepository) encode(version uint64, payload []byte) ([]byte, error) {
	body, err := r.codec.compress(payload)
	if err != nil {
		return nil, errx.ErrInternal.WithMsg("压缩世界存档失败").WithCause(err)
	}
	var flags byte
	if r.key != nil {
		body, err = security.Seal(body, r.key)
		if err != nil {
			return nil, errx.ErrInternal.WithMsg("加密世界存档失败").WithCause(err)
		}
		flags |= flagEncrypted
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	buf.Write(magic[:])
	buf.WriteByte(formatV1)
	buf.WriteByte(byte(r.codec))
	buf.WriteByte(flags)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.BigEndian, version)
	sum := blake3.Sum256(body)
	buf.Write(sum[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

func (r *WorldRepository) decode(raw []byte) ([]byte, error) {
	if len(raw) < headerSize || !bytes.Equal(raw[:4], magic[:]) {
		return nil, ErrCorruptFile.WithReason(badHeader)
	}
	if raw[4] != formatV1 {
		return nil, ErrCorruptFile.WithReason(unknownFormat).WithData("format", raw[4])
	}
	codec := Codec(raw[5])
	flags := raw[6]
	body := raw[headerSize:]

	sum := blake3.Sum256(body)
	if !bytes.Equal(sum[:], raw[16:headerSize]) {
		return nil, ErrCorruptFile.WithReason(checksumMismatch)
	}

	if flags&flagEncrypted != 0 {
		if r.key == nil {
			return nil, ErrCorruptFile.WithReason(missingSecret)
		}
		plain, err := security.Open(body, r.key)
		if err != nil {
			return nil, ErrCorruptFile.WithReason(decryptFailed).WithCause(err)
		}
		body = plain
	}
	payload, err := codec.decompress(body)
	if err != nil {
		return nil, ErrCorruptFile.WithReason(decompressFailed).WithCause(err)
	}
	return payload, nil
}

// Describe 读文件头，运维工具展示用。
func Describe(raw []byte) (string, error) {
	if len(raw) < headerSize || !bytes.Equal(raw[:4], magic[:]) {
		return "", ErrCorruptFile.WithReason(badHeader)
	}
	return fmt.Sprintf("format=%d codec=%s encrypted=%t version=%d body=%dB",
		raw[4], Codec(raw[5]), raw[6]&flagEncrypted != 0,
		binary.BigEndian.Uint64(raw[8:16]), len(raw)-headerSize), nil
}
