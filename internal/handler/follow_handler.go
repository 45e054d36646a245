package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teli-app/teli/internal/follow"
)

// FollowServiceInterface はフォローハンドラーが必要とするサービスインターフェース。
type FollowServiceInterface interface {
	// Follow はフォロー関係を作成する。既にフォロー済みの場合は何もしない（冪等）。
	Follow(ctx context.Context, followerID, followeeID string) (*follow.FollowResult, error)
	// Unfollow はフォロー関係を解除する。
	Unfollow(ctx context.Context, followerID, followeeID string) error
	// ListFollowing はフォローしているユーザーIDの一覧を返す。
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	// ListFollowers はフォロワーのユーザーIDの一覧を返す。
	ListFollowers(ctx context.Context, userID string) ([]string, error)
}

// FollowHandler はフォロー管理のHTTPハンドラー。
type FollowHandler struct {
	service   FollowServiceInterface
	validator RequestValidator
}

// NewFollowHandler はFollowHandlerを生成する。
func NewFollowHandler(service FollowServiceInterface, validator RequestValidator) *FollowHandler {
	return &FollowHandler{
		service:   service,
		validator: validator,
	}
}

// followRequest はフォロー・アンフォローリクエストのボディ。
type followRequest struct {
	FollowerID string `json:"follower_id" validate:"required"`
	FolloweeID string `json:"followee_id" validate:"required"`
}

// Follow はフォロー操作を処理する。
// POST /follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Follow(r.Context(), req.FollowerID, req.FolloweeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if result.AlreadyFollowing {
		writeJSONResponse(w, http.StatusOK, map[string]string{
			"message": "既にフォローしています。",
		})
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s が %s をフォローしました。", req.FollowerID, req.FolloweeID),
	})
}

// Unfollow はアンフォロー操作を処理する。
// POST /unfollow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.Unfollow(r.Context(), req.FollowerID, req.FolloweeID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "フォローを解除しました。",
	})
}

// ListFollowing はフォロー中のユーザー一覧を取得する。
// GET /users/{id}/following
func (h *FollowHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ids, err := h.service.ListFollowing(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if ids == nil {
		ids = []string{}
	}
	writeJSONResponse(w, http.StatusOK, map[string][]string{"following": ids})
}

// ListFollowers はフォロワー一覧を取得する。
// GET /users/{id}/followers
func (h *FollowHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ids, err := h.service.ListFollowers(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if ids == nil {
		ids = []string{}
	}
	writeJSONResponse(w, http.StatusOK, map[string][]string{"followers": ids})
}
