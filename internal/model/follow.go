// Package model はドメインモデルを定義する。
package model

import "time"

// Follow はフォロー関係のエッジを表す。
// (FollowerID, FolloweeID) の組は高々1つ。自己フォローは禁止。
type Follow struct {
	ID         string
	FollowerID string
	FolloweeID string
	FollowedAt time.Time
}
