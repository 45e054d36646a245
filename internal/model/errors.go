// Package model はドメインモデルを定義する。
package model

import "fmt"

// FieldError はバリデーション違反1件分のフィールドレベルエラーを表す。
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// バリデーションエラーの場合はFieldsに違反した制約の全リストが入る。
type APIError struct {
	Code     string       // エラーコード
	Message  string       // エラーメッセージ
	Category string       // カテゴリ: validation, user, social, rating, watch, feed, upstream, system
	Action   string       // ユーザー向け対処方法
	Fields   []FieldError // バリデーション違反の詳細（VALIDATION_FAILEDのみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeInvalidParameter      = "INVALID_PARAMETER"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeUsernameTaken         = "USERNAME_TAKEN"
	ErrCodeEmailTaken            = "EMAIL_TAKEN"
	ErrCodeSelfFollow            = "SELF_FOLLOW"
	ErrCodeFollowNotFound        = "FOLLOW_NOT_FOUND"
	ErrCodeEpisodeRatingNotFound = "EPISODE_RATING_NOT_FOUND"
	ErrCodeWatchStatusNotFound   = "WATCH_STATUS_NOT_FOUND"
	ErrCodeInvalidCursor         = "INVALID_CURSOR"
	ErrCodeUpstreamDisabled      = "TMDB_DISABLED"
	ErrCodeUpstreamUnavailable   = "TMDB_UNAVAILABLE"
	ErrCodeUpstreamTimeout       = "TMDB_TIMEOUT"
	ErrCodeUpstreamBadGateway    = "TMDB_BAD_GATEWAY"
)

// NewValidationFailedError はリクエスト形状の検証失敗エラーを生成する。
// 違反した制約は最初の1件ではなく全件をFieldsに含める。
func NewValidationFailedError(fields []FieldError) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "リクエストの内容が不正です。",
		Category: "validation",
		Action:   "errorsに列挙された各フィールドを修正して再送してください。",
		Fields:   fields,
	}
}

// NewInvalidRequestError はリクエストボディが解析できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidParameterError は不正なクエリ・パスパラメータのエラーを生成する。
func NewInvalidParameterError(name, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf("パラメータ %s が不正です: %s", name, reason),
		Category: "validation",
		Action:   "パラメータの形式を確認してください。",
	}
}

// NewUserNotFoundError は参照先ユーザーが存在しない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "user",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewUsernameTakenError はユーザー名の一意性違反エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "user",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailTakenError はメールアドレスの一意性違反エラーを生成する。
func NewEmailTakenError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "user",
		Action:   "別のメールアドレスを指定するか、既存アカウントを利用してください。",
	}
}

// NewSelfFollowError は自己フォローを拒否するエラーを生成する。
// 対象IDの存在有無にかかわらず拒否する。
func NewSelfFollowError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFollow,
		Message:  "自分自身をフォローすることはできません。",
		Category: "social",
		Action:   "フォロー対象に別のユーザーを指定してください。",
	}
}

// NewFollowNotFoundError はフォロー関係が存在しない場合のエラーを生成する。
func NewFollowNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeFollowNotFound,
		Message:  "フォロー関係が見つかりません。",
		Category: "social",
		Action:   "フォロー中のユーザーに対してのみ解除できます。",
	}
}

// NewEpisodeRatingNotFoundError はエピソード評価が存在しない場合のエラーを生成する。
func NewEpisodeRatingNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeEpisodeRatingNotFound,
		Message:  "指定されたエピソードの評価が見つかりません。",
		Category: "rating",
		Action:   "番組ID・シーズン番号・エピソード番号を確認してください。",
	}
}

// NewWatchStatusNotFoundError は視聴ステータスが存在しない場合のエラーを生成する。
func NewWatchStatusNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeWatchStatusNotFound,
		Message:  "この番組の視聴ステータスが見つかりません。",
		Category: "watch",
		Action:   "番組IDを確認してください。",
	}
}

// NewInvalidCursorError はフィードページネーションのカーソルが不正な場合のエラーを生成する。
func NewInvalidCursorError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCursor,
		Message:  "start_after の形式が不正です。",
		Category: "feed",
		Action:   "ISO 8601形式（例: 2024-04-10T15:23:00Z）で指定してください。",
	}
}

// NewUpstreamDisabledError はTMDBトークン未設定によりプロキシが無効な場合のエラーを生成する。
func NewUpstreamDisabledError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamDisabled,
		Message:  "TMDB APIトークンが設定されていないため、この機能は利用できません。",
		Category: "upstream",
		Action:   "サーバー管理者にTMDBトークンの設定を依頼してください。",
	}
}

// NewUpstreamUnavailableError はTMDBへの接続失敗・認証失敗時のエラーを生成する。
func NewUpstreamUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("TMDB APIに接続できません: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamTimeoutError はTMDBリクエストのタイムアウト時のエラーを生成する。
func NewUpstreamTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamTimeout,
		Message:  "TMDB APIへのリクエストがタイムアウトしました。",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamBadGatewayError はTMDBが異常応答を返した場合のエラーを生成する。
func NewUpstreamBadGatewayError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamBadGateway,
		Message:  fmt.Sprintf("TMDB APIが異常な応答を返しました: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
