package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/tmdb"
)

// ShowServiceInterface は番組メタデータハンドラーが必要とするプロキシインターフェース。
type ShowServiceInterface interface {
	// SearchShows はTVシリーズを検索し、ホワイトリスト射影した結果を返す。
	SearchShows(ctx context.Context, query string, page int) (*tmdb.SearchResult, error)
	// FilterShows は条件検索し、ホワイトリスト射影した結果を返す。
	FilterShows(ctx context.Context, params url.Values) (*tmdb.SearchResult, error)
	// ShowDetail は番組の詳細をホワイトリスト射影して返す。
	ShowDetail(ctx context.Context, showID string) (*tmdb.ShowDetail, error)
	// SeasonDetail はシーズンの詳細を返す。
	SeasonDetail(ctx context.Context, showID string, seasonNumber int) (json.RawMessage, error)
	// EpisodeDetail はエピソードの詳細を返す。
	EpisodeDetail(ctx context.Context, showID string, seasonNumber, episodeNumber int) (json.RawMessage, error)
	// ContentRatings は番組のコンテンツレーティングを返す。
	ContentRatings(ctx context.Context, showID string) (json.RawMessage, error)
	// Genres はジャンル一覧を返す。
	Genres(ctx context.Context, nameFilter string) ([]map[string]any, error)
	// Languages は言語一覧を返す。
	Languages(ctx context.Context, nameFilter string) ([]map[string]any, error)
	// Countries は国一覧を返す。
	Countries(ctx context.Context, nameFilter string) ([]map[string]any, error)
}

// ShowHandler は番組メタデータプロキシのHTTPハンドラー。
type ShowHandler struct {
	service ShowServiceInterface
}

// NewShowHandler はShowHandlerを生成する。
func NewShowHandler(service ShowServiceInterface) *ShowHandler {
	return &ShowHandler{
		service: service,
	}
}

// filterPassthroughParams は絞り込み検索で上流に透過するクエリパラメータ。
var filterPassthroughParams = []string{
	"air_date.gte",
	"air_date.lte",
	"first_air_date_year",
	"first_air_date.gte",
	"first_air_date.lte",
	"include_adult",
	"include_null_first_air_dates",
	"language",
	"screened_theatrically",
	"sort_by",
	"timezone",
	"vote_average.gte",
	"vote_average.lte",
	"vote_count.gte",
	"vote_count.lte",
	"watch_region",
	"with_companies",
	"with_genres",
	"with_keywords",
	"with_networks",
	"with_origin_country",
	"with_original_language",
	"with_runtime.gte",
	"with_runtime.lte",
	"with_status",
	"with_watch_monetization_types",
	"with_watch_providers",
	"without_companies",
	"without_genres",
	"without_keywords",
	"without_watch_providers",
	"with_type",
}

// filterDateParams は日付形式（YYYY-MM-DD）の検証対象パラメータ。
var filterDateParams = []string{
	"air_date.gte",
	"air_date.lte",
	"first_air_date.gte",
	"first_air_date.lte",
}

// filterNumericParams は数値の検証対象パラメータ。
var filterNumericParams = []string{
	"vote_average.gte",
	"vote_average.lte",
	"vote_count.gte",
	"vote_count.lte",
	"with_runtime.gte",
	"with_runtime.lte",
	"first_air_date_year",
}

// SearchShows は番組検索を処理する。
// GET /shows/search?query=&page=
func (h *ShowHandler) SearchShows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidParameterError("query", "必須パラメータです"))
		return
	}

	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.SearchShows(r.Context(), query, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// FilterShows は条件による番組絞り込みを処理する。
// GET /shows/filter
func (h *ShowHandler) FilterShows(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	// 日付パラメータの形式検証（YYYY-MM-DD）
	for _, name := range filterDateParams {
		v := q.Get(name)
		if v == "" {
			continue
		}
		if len(v) != 10 || v[4] != '-' || v[7] != '-' {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidParameterError(name, "YYYY-MM-DD形式で指定してください"))
			return
		}
	}

	// 数値パラメータの検証
	for _, name := range filterNumericParams {
		v := q.Get(name)
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidParameterError(name, "数値を指定してください"))
			return
		}
	}

	params := url.Values{}
	for _, name := range filterPassthroughParams {
		if v := q.Get(name); v != "" {
			params.Set(name, v)
		}
	}
	if params.Get("language") == "" {
		params.Set("language", "en-US")
	}
	if params.Get("sort_by") == "" {
		params.Set("sort_by", "popularity.desc")
	}
	params.Set("page", strconv.Itoa(page))

	result, err := h.service.FilterShows(r.Context(), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// GetShowDetail は番組詳細を取得する。
// GET /shows/{show_id}
func (h *ShowHandler) GetShowDetail(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "show_id")

	detail, err := h.service.ShowDetail(r.Context(), showID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, detail)
}

// GetSeasonDetail はシーズン詳細を取得する。
// GET /shows/{show_id}/season/{season_number}
func (h *ShowHandler) GetSeasonDetail(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "show_id")

	seasonNumber, err := strconv.Atoi(chi.URLParam(r, "season_number"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidParameterError("season_number", "整数を指定してください"))
		return
	}

	detail, err := h.service.SeasonDetail(r.Context(), showID, seasonNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeRawJSONResponse(w, detail)
}

// GetEpisodeDetail はエピソード詳細を取得する。
// GET /shows/{show_id}/season/{season_number}/episode/{episode_number}
func (h *ShowHandler) GetEpisodeDetail(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "show_id")

	seasonNumber, err := strconv.Atoi(chi.URLParam(r, "season_number"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidParameterError("season_number", "整数を指定してください"))
		return
	}

	episodeNumber, err := strconv.Atoi(chi.URLParam(r, "episode_number"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidParameterError("episode_number", "整数を指定してください"))
		return
	}

	detail, err := h.service.EpisodeDetail(r.Context(), showID, seasonNumber, episodeNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeRawJSONResponse(w, detail)
}

// GetContentRatings は番組のコンテンツレーティングを取得する。
// GET /shows/content-ratings/{show_id}
func (h *ShowHandler) GetContentRatings(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "show_id")

	data, err := h.service.ContentRatings(r.Context(), showID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeRawJSONResponse(w, data)
}

// ListGenres はジャンル一覧を取得する。
// GET /genres?name=
func (h *ShowHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	h.listConfiguration(w, r, h.service.Genres)
}

// ListLanguages は言語一覧を取得する。
// GET /languages?name=
func (h *ShowHandler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	h.listConfiguration(w, r, h.service.Languages)
}

// ListCountries は国一覧を取得する。
// GET /countries?name=
func (h *ShowHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	h.listConfiguration(w, r, h.service.Countries)
}

func (h *ShowHandler) listConfiguration(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]map[string]any, error)) {
	data, err := list(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if data == nil {
		data = []map[string]any{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"data": data})
}

// pageParam はpageクエリパラメータを検証して返す。1未満は1に丸める。
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}

	page, err := strconv.Atoi(raw)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidParameterError("page", "正の整数を指定してください"))
		return 0, false
	}
	if page < 1 {
		page = 1
	}
	return page, true
}

// writeRawJSONResponse は上流から透過したJSONをそのまま書き込む。
func writeRawJSONResponse(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
