package file

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
)

func snapshot(t *testing.T, version uint64) *entity.WorldPersistSnapshot {
	t.Helper()
	state := entity.DefaultWorldState(time.UnixMilli(1_700_000_000_000))
	state.Version = version
	payload, err := entity.EncodeWorldState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &entity.WorldPersistSnapshot{Version: version, Payload: payload}
}

func TestWorldRepository_各编码往返(t *testing.T) {
	for _, tc := range []struct {
		name   string
		codec  Codec
		secret string
	}{
		{"none", CodecNone, ""},
		{"zstd", CodecZstd, ""},
		{"lz4", CodecLZ4, ""},
		{"zstd+aes", CodecZstd, "s3cret"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "world.db")
			repo := NewWorldRepository(path, WithCodec(tc.codec), WithSecret(tc.secret))
			s := snapshot(t, 7)
			if err := repo.Save(context.Background(), s); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := repo.LoadWorld(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !bytes.Equal(got, s.Payload) {
				t.Fatalf("payload mismatch:\n got %s\nwant %s", got, s.Payload)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Fatalf("tmp file left behind: %v", err)
			}
		})
	}
}

func TestWorldRepository_文件不存在(t *testing.T) {
	repo := NewWorldRepository(filepath.Join(t.TempDir(), "missing.db"))
	_, err := repo.LoadWorld(context.Background())
	if !errors.Is(err, port.ErrWorldNotFound) {
		t.Fatalf("err = %v, want ErrWorldNotFound", err)
	}
}

func TestWorldRepository_校验和不符(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.db")
	repo := NewWorldRepository(path)
	if err := repo.Save(context.Background(), snapshot(t, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = repo.LoadWorld(context.Background())
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("err = %v, want ErrCorruptFile", err)
	}
}

func TestWorldRepository_缺少密钥(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.db")
	if err := NewWorldRepository(path, WithSecret("k")).Save(context.Background(), snapshot(t, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := NewWorldRepository(path).LoadWorld(context.Background())
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("err = %v, want ErrCorruptFile", err)
	}
}

func TestWorldRepository_非存档文件(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.db")
	if err := os.WriteFile(path, []byte(`{"cityDistricts":{}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := NewWorldRepository(path).LoadWorld(context.Background())
	if !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("err = %v, want ErrCorruptFile", err)
	}
}

func TestDescribe_文件头(t *testing.T) {
	repo := NewWorldRepository("unused", WithCodec(CodecLZ4))
	out, err := repo.encode(42, []byte("{}"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	desc, err := Describe(out)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !strings.Contains(desc, "codec=lz4") || !strings.Contains(desc, "version=42") {
		t.Fatalf("describe = %q", desc)
	}
}

func TestParseCodec(t *testing.T) {
	if c, err := ParseCodec(""); err != nil || c != CodecZstd {
		t.Fatalf("ParseCodec(\"\") = %v, %v", c, err)
	}
	if _, err := ParseCodec("gzip"); err == nil {
		t.Fatalf("ParseCodec(gzip) want error")
	}
}
