package types

import "strconv"

// PlayerID 玩家唯一 id，0 表示“无人”。
type PlayerID int64

const NoPlayer PlayerID = 0

func (p PlayerID) Valid() bool {
	return p > 0
}

func (p PlayerID) String() string {
	return strconv.FormatInt(int64(p), 10)
}

func ParsePlayerID(s string) (PlayerID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NoPlayer, err
	}
	return PlayerID(v), nil
}

// DistrictID 街区 id，取值来自街区目录。
type DistrictID string

func (d DistrictID) String() string {
	return string(d)
}
