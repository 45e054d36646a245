// Package model はドメインモデルを定義する。
package model

import "time"

// WatchStatusKind は視聴ステータスの種別を表す。
type WatchStatusKind string

const (
	// WatchStatusCurrentlyWatching は視聴中ステータス。
	WatchStatusCurrentlyWatching WatchStatusKind = "currently_watching"
	// WatchStatusWantToWatch は視聴予定ステータス。
	WatchStatusWantToWatch WatchStatusKind = "want_to_watch"
)

// IsValid はWatchStatusKindが定義済みの値かどうかを返す。
func (k WatchStatusKind) IsValid() bool {
	return k == WatchStatusCurrentlyWatching || k == WatchStatusWantToWatch
}

// WatchStatus はユーザーの番組視聴状態を表す。
// 自然キーは (UserID, ShowID) でUPSERTセマンティクス。明示的に削除可能。
type WatchStatus struct {
	ID             string
	UserID         string
	ShowID         string
	Status         WatchStatusKind
	CurrentSeason  *int
	CurrentEpisode *int
	Notes          string
	UpdatedAt      time.Time
}

// WatchlistEntry はウォッチリストへの登録を表す。
type WatchlistEntry struct {
	ID      string
	UserID  string
	ShowID  string
	AddedAt time.Time
}
