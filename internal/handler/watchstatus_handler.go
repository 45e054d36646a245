package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/watchstatus"
)

// WatchStatusServiceInterface は視聴ステータスハンドラーが必要とするサービスインターフェース。
type WatchStatusServiceInterface interface {
	// Upsert は視聴ステータスをUPSERTする。
	Upsert(ctx context.Context, input watchstatus.UpsertInput) (*watchstatus.UpsertResult, error)
	// Get は指定ユーザー・番組の視聴ステータスを取得する。
	Get(ctx context.Context, userID, showID string) (*model.WatchStatus, error)
	// ListCurrentlyWatching は視聴中の番組一覧を返す。
	ListCurrentlyWatching(ctx context.Context, userID string) ([]*model.WatchStatus, error)
	// ListWantToWatch は視聴予定の番組一覧を返す。
	ListWantToWatch(ctx context.Context, userID string) ([]*model.WatchStatus, error)
	// Delete は視聴ステータスを削除する。
	Delete(ctx context.Context, userID, showID string) error
	// AddToWatchlist はウォッチリストにエントリを追加し、発行したIDを返す。
	AddToWatchlist(ctx context.Context, userID, showID string) (string, error)
}

// WatchStatusHandler は視聴ステータス管理のHTTPハンドラー。
type WatchStatusHandler struct {
	service   WatchStatusServiceInterface
	validator RequestValidator
}

// NewWatchStatusHandler はWatchStatusHandlerを生成する。
func NewWatchStatusHandler(service WatchStatusServiceInterface, validator RequestValidator) *WatchStatusHandler {
	return &WatchStatusHandler{
		service:   service,
		validator: validator,
	}
}

// updateWatchStatusRequest は視聴ステータス更新リクエストのボディ。
type updateWatchStatusRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	ShowID         string `json:"show_id" validate:"required"`
	Status         string `json:"status" validate:"required,oneof=currently_watching want_to_watch"`
	CurrentSeason  *int   `json:"current_season" validate:"omitempty,min=1"`
	CurrentEpisode *int   `json:"current_episode" validate:"omitempty,min=1"`
	Notes          string `json:"notes"`
}

// userShowRequest はユーザーIDと番組IDのみを持つリクエストのボディ。
type userShowRequest struct {
	UserID string `json:"user_id" validate:"required"`
	ShowID string `json:"show_id" validate:"required"`
}

// watchStatusResponse は視聴ステータス1件分のAPIレスポンス。
type watchStatusResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	ShowID         string `json:"show_id"`
	Status         string `json:"status"`
	CurrentSeason  *int   `json:"current_season,omitempty"`
	CurrentEpisode *int   `json:"current_episode,omitempty"`
	Notes          string `json:"notes"`
	UpdatedAt      string `json:"updated_at"`
}

// UpdateWatchStatus は視聴ステータスの作成・上書き更新を処理する。
// 新規作成は201、既存の上書き更新は200を返す。
// POST /update_watch_status
func (h *WatchStatusHandler) UpdateWatchStatus(w http.ResponseWriter, r *http.Request) {
	var req updateWatchStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Upsert(r.Context(), watchstatus.UpsertInput{
		UserID:         req.UserID,
		ShowID:         req.ShowID,
		Status:         model.WatchStatusKind(req.Status),
		CurrentSeason:  req.CurrentSeason,
		CurrentEpisode: req.CurrentEpisode,
		Notes:          req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.Created {
		writeJSONResponse(w, http.StatusCreated, map[string]string{
			"message": "視聴ステータスを登録しました。",
			"id":      result.ID,
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "視聴ステータスを更新しました。",
		"id":      result.ID,
	})
}

// DeleteWatchStatus は視聴ステータスの削除を処理する。
// POST /delete_watch_status
func (h *WatchStatusHandler) DeleteWatchStatus(w http.ResponseWriter, r *http.Request) {
	var req userShowRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.Delete(r.Context(), req.UserID, req.ShowID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "視聴ステータスを削除しました。",
	})
}

// AddToWatchlist はウォッチリストへの追加を処理する。
// POST /add_to_watchlist
func (h *WatchStatusHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req userShowRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	id, err := h.service.AddToWatchlist(r.Context(), req.UserID, req.ShowID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "ウォッチリストに追加しました。",
		"id":      id,
	})
}

// GetWatchStatus は指定ユーザー・番組の視聴ステータスを取得する。
// GET /users/{id}/watch_status/{show_id}
func (h *WatchStatusHandler) GetWatchStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	showID := chi.URLParam(r, "show_id")

	status, err := h.service.Get(r.Context(), userID, showID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toWatchStatusResponse(status))
}

// ListCurrentlyWatching は視聴中の番組一覧を取得する。
// GET /users/{id}/currently_watching
func (h *WatchStatusHandler) ListCurrentlyWatching(w http.ResponseWriter, r *http.Request) {
	h.listByKind(w, r, h.service.ListCurrentlyWatching)
}

// ListWantToWatch は視聴予定の番組一覧を取得する。
// GET /users/{id}/want_to_watch
func (h *WatchStatusHandler) ListWantToWatch(w http.ResponseWriter, r *http.Request) {
	h.listByKind(w, r, h.service.ListWantToWatch)
}

func (h *WatchStatusHandler) listByKind(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]*model.WatchStatus, error)) {
	userID := chi.URLParam(r, "id")

	statuses, err := list(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]watchStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		resp = append(resp, toWatchStatusResponse(s))
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

func toWatchStatusResponse(s *model.WatchStatus) watchStatusResponse {
	return watchStatusResponse{
		ID:             s.ID,
		UserID:         s.UserID,
		ShowID:         s.ShowID,
		Status:         string(s.Status),
		CurrentSeason:  s.CurrentSeason,
		CurrentEpisode: s.CurrentEpisode,
		Notes:          s.Notes,
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
	}
}
