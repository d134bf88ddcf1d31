package entity

import "Underworld/modules/kit/errx"

const (
	CodePlayerNotFound  errx.Code = "PLAYER_NOT_FOUND"
	CodeUnknownSkill    errx.Code = "UNKNOWN_SKILL"
	CodeSkillOutOfRange errx.Code = "SKILL_OUT_OF_RANGE"
	CodeInvalidProgress errx.Code = "INVALID_PROGRESS"
)

var (
	ErrPlayerNotFound  = errx.NewNotFound(CodePlayerNotFound, "玩家不存在")
	ErrUnknownSkill    = errx.NewValidation(CodeUnknownSkill, "未知技能分支")
	ErrSkillOutOfRange = errx.NewValidation(CodeSkillOutOfRange, "技能等级越界")
	ErrInvalidProgress = errx.NewValidation(CodeInvalidProgress, "成长数据非法")
)
