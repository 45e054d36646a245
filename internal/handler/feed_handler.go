package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teli-app/teli/internal/middleware"
	"github.com/teli-app/teli/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// GetFeed は受信者のフィードを新しい順に返す。
	// startAfterが指定された場合はそれより厳密に古いアイテムのみを返す。
	GetFeed(ctx context.Context, userID string, startAfter *time.Time) ([]*model.FeedEntry, error)
}

// FeedHandler はフィード読み出しのHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{
		service: service,
	}
}

// feedEntryResponse はフィードアイテム1件分のAPIレスポンス。
// 投稿者のユーザーレコードが見つからない場合、user_nameとuser_usernameは省略される。
type feedEntryResponse struct {
	ID           string `json:"id"`
	RatingID     string `json:"rating_id"`
	UserID       string `json:"user_id"` // 評価を投稿したユーザーのID
	ShowID       string `json:"show_id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
	Timestamp    string `json:"timestamp"`
	UserName     string `json:"user_name,omitempty"`
	UserUsername string `json:"user_username,omitempty"`
}

// GetFeed は受信者のフィードを取得する。
// GET /users/{id}/feed?start_after=2024-04-10T15:23:00Z
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var startAfter *time.Time
	if raw := r.URL.Query().Get("start_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidCursorError())
			return
		}
		startAfter = &t
	}

	entries, err := h.service.GetFeed(r.Context(), userID, startAfter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	feed := make([]feedEntryResponse, 0, len(entries))
	for _, e := range entries {
		feed = append(feed, feedEntryResponse{
			ID:           e.ID,
			RatingID:     e.RatingID,
			UserID:       e.AuthorID,
			ShowID:       e.ShowID,
			Rating:       e.Rating,
			Comment:      e.Comment,
			Timestamp:    e.RatedAt.Format(time.RFC3339),
			UserName:     e.AuthorName,
			UserUsername: e.AuthorUsername,
		})
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"feed": feed})
}

// RequestValidator はリクエスト構造体の形状検証インターフェース。
type RequestValidator interface {
	// Struct は全フィールドを検証し、違反があればVALIDATION_FAILEDのAPIErrorを返す。
	Struct(req any) *model.APIError
}

// decodeAndValidate はリクエストボディをデコードして形状検証する。
// 失敗時はエラーレスポンスを書き込みfalseを返す。検証を通過するまで
// 副作用のある処理へは進ませない。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v RequestValidator, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	if apiErr := v.Struct(req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidRequest,
		model.ErrCodeInvalidParameter, model.ErrCodeSelfFollow,
		model.ErrCodeInvalidCursor:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound, model.ErrCodeFollowNotFound,
		model.ErrCodeEpisodeRatingNotFound, model.ErrCodeWatchStatusNotFound:
		return http.StatusNotFound
	case model.ErrCodeUsernameTaken, model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeUpstreamDisabled, model.ErrCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case model.ErrCodeUpstreamBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
