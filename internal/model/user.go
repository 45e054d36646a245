// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// usernameとemailは全ユーザーで一意。bioは任意項目。
type User struct {
	ID        string
	Name      string
	Username  string
	Email     string
	Bio       string
	CreatedAt time.Time
}
