package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/rating"
)

// RatingServiceInterface は評価ハンドラーが必要とするサービスインターフェース。
type RatingServiceInterface interface {
	// Submit は番組評価をUPSERTし、保存されたレコードのIDを返す。
	// 新規評価の場合のみフォロワーへファンアウトする。
	Submit(ctx context.Context, input rating.SubmitInput) (string, error)
	// SubmitEpisode はエピソード評価をUPSERTし、保存されたレコードのIDを返す。
	// ファンアウトは行わない。
	SubmitEpisode(ctx context.Context, input rating.SubmitEpisodeInput) (string, error)
	// ListByUser は指定ユーザーの全番組評価を返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Rating, error)
	// ListByShow は指定番組に付いた全評価を返す。
	ListByShow(ctx context.Context, showID string) ([]*model.Rating, error)
	// ListEpisodesBySeason は指定シーズンの全エピソード評価を返す。
	ListEpisodesBySeason(ctx context.Context, userID, showID string, seasonNumber int) ([]*model.EpisodeRating, error)
	// GetEpisodeRating は特定エピソードの評価を取得する。
	GetEpisodeRating(ctx context.Context, userID, showID string, seasonNumber, episodeNumber int) (*model.EpisodeRating, error)
	// PopularShows は指定期間内の評価件数で番組をランキングする。
	PopularShows(ctx context.Context, timeframeDays, numMostPopular int) (*rating.PopularShowsResult, error)
}

// RatingHandler は評価管理のHTTPハンドラー。
type RatingHandler struct {
	service   RatingServiceInterface
	validator RequestValidator
}

// NewRatingHandler はRatingHandlerを生成する。
func NewRatingHandler(service RatingServiceInterface, validator RequestValidator) *RatingHandler {
	return &RatingHandler{
		service:   service,
		validator: validator,
	}
}

// addRatingRequest は番組評価リクエストのボディ。
type addRatingRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	ShowID  string `json:"show_id" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=10"`
	Comment string `json:"comment"`
}

// addEpisodeRatingRequest はエピソード評価リクエストのボディ。
type addEpisodeRatingRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	ShowID        string `json:"show_id" validate:"required"`
	SeasonNumber  int    `json:"season_number" validate:"required,min=1"`
	EpisodeNumber int    `json:"episode_number" validate:"required,min=1"`
	Rating        int    `json:"rating" validate:"required,min=1,max=10"`
	Comment       string `json:"comment"`
}

// ratingResponse は番組評価1件分のAPIレスポンス。
type ratingResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ShowID    string `json:"show_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// episodeRatingResponse はエピソード評価1件分のAPIレスポンス。
type episodeRatingResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	ShowID        string `json:"show_id"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
	Timestamp     string `json:"timestamp"`
}

// AddRating は番組評価の投稿を処理する。
// POST /ratings
func (h *RatingHandler) AddRating(w http.ResponseWriter, r *http.Request) {
	var req addRatingRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	id, err := h.service.Submit(r.Context(), rating.SubmitInput{
		UserID:  req.UserID,
		ShowID:  req.ShowID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "評価を登録しました。",
		"id":      id,
	})
}

// AddEpisodeRating はエピソード評価の投稿を処理する。
// POST /episode_ratings
func (h *RatingHandler) AddEpisodeRating(w http.ResponseWriter, r *http.Request) {
	var req addEpisodeRatingRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	id, err := h.service.SubmitEpisode(r.Context(), rating.SubmitEpisodeInput{
		UserID:        req.UserID,
		ShowID:        req.ShowID,
		SeasonNumber:  req.SeasonNumber,
		EpisodeNumber: req.EpisodeNumber,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "評価を登録しました。",
		"id":      id,
	})
}

// ListUserRatings はユーザーの評価一覧を取得する。
// GET /users/{id}/ratings
func (h *RatingHandler) ListUserRatings(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ratings, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toRatingResponses(ratings))
}

// ListShowRatings は番組に付いた評価一覧を取得する。
// GET /shows/{show_id}/ratings
func (h *RatingHandler) ListShowRatings(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "show_id")

	ratings, err := h.service.ListByShow(r.Context(), showID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toRatingResponses(ratings))
}

// ListEpisodeRatings はシーズンのエピソード評価一覧を取得する。
// episode_numberクエリが指定された場合はそのエピソードの評価1件を返す。
// GET /users/{id}/shows/{show_id}/season/{season_number}/ratings?episode_number=
func (h *RatingHandler) ListEpisodeRatings(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	showID := chi.URLParam(r, "show_id")

	seasonNumber, err := strconv.Atoi(chi.URLParam(r, "season_number"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidParameterError("season_number", "整数を指定してください"))
		return
	}

	if raw := r.URL.Query().Get("episode_number"); raw != "" {
		episodeNumber, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidParameterError("episode_number", "整数を指定してください"))
			return
		}

		er, err := h.service.GetEpisodeRating(r.Context(), userID, showID, seasonNumber, episodeNumber)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSONResponse(w, http.StatusOK, toEpisodeRatingResponse(er))
		return
	}

	ratings, err := h.service.ListEpisodesBySeason(r.Context(), userID, showID, seasonNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]episodeRatingResponse, 0, len(ratings))
	for _, er := range ratings {
		resp = append(resp, toEpisodeRatingResponse(er))
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

// PopularShows は期間内の評価件数による番組ランキングを取得する。
// GET /shows/popular?timeframe=7&num_most_popular=10
func (h *RatingHandler) PopularShows(w http.ResponseWriter, r *http.Request) {
	timeframeDays := 7
	if raw := r.URL.Query().Get("timeframe"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidParameterError("timeframe", "整数を指定してください"))
			return
		}
		timeframeDays = v
	}

	numMostPopular := 10
	if raw := r.URL.Query().Get("num_most_popular"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidParameterError("num_most_popular", "整数を指定してください"))
			return
		}
		numMostPopular = v
	}

	result, err := h.service.PopularShows(r.Context(), timeframeDays, numMostPopular)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	shows := make([]map[string]any, 0, len(result.Shows))
	for _, s := range result.Shows {
		shows = append(shows, toPopularShowEntry(s))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"popular_shows":     shows,
		"timeframe_days":    result.TimeframeDays,
		"total_shows_found": result.TotalShowsFound,
		"num_most_popular":  result.NumMostPopular,
	})
}

// toPopularShowEntry は番組詳細のフィールドと評価件数を同じ階層に展開する。
func toPopularShowEntry(s rating.PopularShow) map[string]any {
	entry := map[string]any{}
	if s.Detail != nil {
		if raw, err := json.Marshal(s.Detail); err == nil {
			_ = json.Unmarshal(raw, &entry)
		}
	}
	entry["rating_count"] = s.RatingCount
	entry["timeframe_days"] = s.TimeframeDays
	return entry
}

func toRatingResponses(ratings []*model.Rating) []ratingResponse {
	resp := make([]ratingResponse, 0, len(ratings))
	for _, rt := range ratings {
		resp = append(resp, ratingResponse{
			ID:        rt.ID,
			UserID:    rt.UserID,
			ShowID:    rt.ShowID,
			Rating:    rt.Rating,
			Comment:   rt.Comment,
			Timestamp: rt.RatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func toEpisodeRatingResponse(er *model.EpisodeRating) episodeRatingResponse {
	return episodeRatingResponse{
		ID:            er.ID,
		UserID:        er.UserID,
		ShowID:        er.ShowID,
		SeasonNumber:  er.SeasonNumber,
		EpisodeNumber: er.EpisodeNumber,
		Rating:        er.Rating,
		Comment:       er.Comment,
		Timestamp:     er.RatedAt.Format(time.RFC3339),
	}
}
