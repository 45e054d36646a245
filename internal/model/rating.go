// Package model はドメインモデルを定義する。
package model

import "time"

// Rating は番組に対する評価を表す。
// 自然キーは (UserID, ShowID)。同一キーへの再投稿は既存レコードの上書き更新になる。
type Rating struct {
	ID      string
	UserID  string
	ShowID  string
	Rating  int
	Comment string
	RatedAt time.Time
}

// EpisodeRating はエピソード単位の評価を表す。
// 自然キーは (UserID, ShowID, SeasonNumber, EpisodeNumber)。
// Ratingと同じUPSERT不変条件を持つが、フィードへのファンアウトは行わない。
type EpisodeRating struct {
	ID            string
	UserID        string
	ShowID        string
	SeasonNumber  int
	EpisodeNumber int
	Rating        int
	Comment       string
	RatedAt       time.Time
}

// ShowRatingCount は集計期間内の番組ごとの評価件数を表す。
type ShowRatingCount struct {
	ShowID string
	Count  int
}
