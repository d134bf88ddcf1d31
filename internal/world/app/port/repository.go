package port

import (
	"context"

	"Underworld/internal/world/entity"
	"Underworld/modules/kit/errx"
)

const CodeWorldNotFound errx.Code = "WORLD_NOT_FOUND"

// ErrWorldNotFound 存储里还没有世界文档（首次启动）。
var ErrWorldNotFound = errx.NewNotFound(CodeWorldNotFound, "世界存档不存在")

// WorldRepository 只负责字节级读写，解码与默认值合并由上层处理。
type WorldRepository interface {
	LoadWorld(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, s *entity.WorldPersistSnapshot) error
}
