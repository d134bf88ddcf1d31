package ws

import (
	"github.com/go-viper/mapstructure/v2"

	"Underworld/modules/kit/errx"
)

const CodeBadMsg errx.Code = "WS_BAD_MSG"

var ErrBadMsg = errx.NewValidation(CodeBadMsg, "消息体格式有误")

// Bind 按 json tag 把 Body.Msg 解到 dst；msg 为空时 dst 保持零值。
func Bind(req *WsMsgReq, dst any) error {
	if req == nil || req.Body == nil {
		return ErrBadMsg.WithMsg("ws 请求为空")
	}
	if req.Body.Msg == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  dst,
	})
	if err != nil {
		return ErrBadMsg.WithCause(err)
	}
	if err := dec.Decode(req.Body.Msg); err != nil {
		return ErrBadMsg.WithCause(err)
	}
	return nil
}
