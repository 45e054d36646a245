// Package tmdb はTMDB APIへのメタデータプロキシを提供する。
// レスポンスはホワイトリストされたフィールドのみに射影して返す。
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/teli-app/teli/internal/metrics"
	"github.com/teli-app/teli/internal/model"
)

// maxRedirects はリダイレクト追従の上限。超過時は502として扱う。
const maxRedirects = 10

// errTooManyRedirects はリダイレクトループ検出用のセンチネルエラー。
var errTooManyRedirects = errors.New("リダイレクト回数が上限を超えました")

// httpResult はサーキットブレーカーを通過するHTTP応答。
// 非200ステータスはブレーカーの失敗にはカウントせず、呼び出し側で分類する。
type httpResult struct {
	status int
	body   []byte
}

// Client はTMDB APIのクライアント。
// トークン未設定の場合、全メソッドはTMDB_DISABLEDエラーを返す（プロセスは落とさない）。
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[httpResult]
	baseURL    string
	token      string
	collector  metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// tokenが空の場合もクライアント自体は生成され、呼び出し時に503を返す。
func NewClient(baseURL, token string, timeout time.Duration, collector metrics.MetricsCollector, logger *slog.Logger) *Client {
	httpClient := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	breaker := gobreaker.NewCircuitBreaker[httpResult](gobreaker.Settings{
		Name:    "tmdb",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: httpClient,
		breaker:    breaker,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		collector:  collector,
		logger:     logger,
	}
}

// Enabled はTMDBトークンが設定されているかを返す。
func (c *Client) Enabled() bool {
	return c.token != ""
}

// get はTMDB APIにGETリクエストを送り、200応答のボディを返す。
// 失敗はAPIErrorに分類される: タイムアウト→504、接続・認証・無効化→503、
// 異常応答・リダイレクトループ→502。
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if !c.Enabled() {
		return nil, model.NewUpstreamDisabledError()
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (httpResult, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return httpResult{}, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", reqErr)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return httpResult{}, doErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return httpResult{}, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", readErr)
		}
		return httpResult{status: resp.StatusCode, body: body}, nil
	})
	c.collector.RecordTMDBLatency(time.Since(start))

	if err != nil {
		return nil, c.classifyTransportError(path, err)
	}

	c.collector.RecordTMDBStatus(result.status)

	switch {
	case result.status == http.StatusOK:
		return result.body, nil
	case result.status == http.StatusUnauthorized:
		c.collector.RecordTMDBFailure("auth")
		c.logger.Error("TMDB APIの認証に失敗しました", slog.String("path", path))
		return nil, model.NewUpstreamUnavailableError("認証に失敗しました")
	default:
		c.collector.RecordTMDBFailure("status")
		c.logger.Error("TMDB APIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", result.status))
		return nil, model.NewUpstreamBadGatewayError(fmt.Sprintf("ステータス %d", result.status))
	}
}

// classifyTransportError はトランスポート層の失敗をAPIErrorに分類する。
func (c *Client) classifyTransportError(path string, err error) error {
	c.logger.Error("TMDB APIの呼び出しに失敗しました",
		slog.String("path", path),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		c.collector.RecordTMDBFailure("breaker_open")
		return model.NewUpstreamUnavailableError("一時的に遮断されています")
	case errors.Is(err, errTooManyRedirects):
		c.collector.RecordTMDBFailure("redirect_loop")
		return model.NewUpstreamBadGatewayError("リダイレクトが多すぎます")
	case isTimeout(err):
		c.collector.RecordTMDBFailure("timeout")
		return model.NewUpstreamTimeoutError()
	default:
		c.collector.RecordTMDBFailure("connection")
		return model.NewUpstreamUnavailableError("接続できませんでした")
	}
}

// isTimeout はタイムアウト起因のエラーかどうかを判定する。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SearchShows はTVシリーズを検索し、ホワイトリスト射影した結果を返す。
// pageが1未満の場合は1として扱う。
func (c *Client) SearchShows(ctx context.Context, query string, page int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("include_adult", "false")
	q.Set("page", fmt.Sprintf("%d", page))

	body, err := c.get(ctx, "/search/tv", q)
	if err != nil {
		return nil, err
	}
	return decodeSearchResult(body)
}

// FilterShows はdiscoverエンドポイントで条件検索し、ホワイトリスト射影した結果を返す。
// paramsの検証はハンドラー層で完了していること。
func (c *Client) FilterShows(ctx context.Context, params url.Values) (*SearchResult, error) {
	body, err := c.get(ctx, "/discover/tv", params)
	if err != nil {
		return nil, err
	}
	return decodeSearchResult(body)
}

// ShowDetail は番組の詳細をホワイトリスト射影して返す。
func (c *Client) ShowDetail(ctx context.Context, showID string) (*ShowDetail, error) {
	body, err := c.get(ctx, "/tv/"+url.PathEscape(showID), nil)
	if err != nil {
		return nil, err
	}

	var detail ShowDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, model.NewUpstreamBadGatewayError("レスポンスの解析に失敗しました")
	}
	return &detail, nil
}

// SeasonDetail はシーズンの詳細を返す。射影は行わず上流の応答をそのまま返す。
func (c *Client) SeasonDetail(ctx context.Context, showID string, seasonNumber int) (json.RawMessage, error) {
	path := fmt.Sprintf("/tv/%s/season/%d", url.PathEscape(showID), seasonNumber)
	return c.getRaw(ctx, path)
}

// EpisodeDetail はエピソードの詳細を返す。射影は行わず上流の応答をそのまま返す。
func (c *Client) EpisodeDetail(ctx context.Context, showID string, seasonNumber, episodeNumber int) (json.RawMessage, error) {
	path := fmt.Sprintf("/tv/%s/season/%d/episode/%d", url.PathEscape(showID), seasonNumber, episodeNumber)
	return c.getRaw(ctx, path)
}

// ContentRatings は番組のコンテンツレーティングを返す。
func (c *Client) ContentRatings(ctx context.Context, showID string) (json.RawMessage, error) {
	return c.getRaw(ctx, "/tv/"+url.PathEscape(showID)+"/content_ratings")
}

func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, model.NewUpstreamBadGatewayError("レスポンスの解析に失敗しました")
	}
	return json.RawMessage(body), nil
}

// Genres はジャンル一覧を返す。nameFilterが指定された場合は名前の部分一致で絞り込む。
func (c *Client) Genres(ctx context.Context, nameFilter string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("language", "en")
	body, err := c.get(ctx, "/genre/tv/list", q)
	if err != nil {
		return nil, err
	}

	// genresキーの下に配列が入っている
	var envelope struct {
		Genres []map[string]any `json:"genres"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, model.NewUpstreamBadGatewayError("レスポンスの解析に失敗しました")
	}
	return filterByName(envelope.Genres, nameFilter), nil
}

// Languages は言語一覧を返す。nameFilterが指定された場合は名前の部分一致で絞り込む。
func (c *Client) Languages(ctx context.Context, nameFilter string) ([]map[string]any, error) {
	return c.listConfiguration(ctx, "/configuration/languages", nameFilter)
}

// Countries は国一覧を返す。nameFilterが指定された場合は名前の部分一致で絞り込む。
func (c *Client) Countries(ctx context.Context, nameFilter string) ([]map[string]any, error) {
	return c.listConfiguration(ctx, "/configuration/countries", nameFilter)
}

func (c *Client) listConfiguration(ctx context.Context, path, nameFilter string) ([]map[string]any, error) {
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, model.NewUpstreamBadGatewayError("レスポンスの解析に失敗しました")
	}
	return filterByName(items, nameFilter), nil
}

// filterByName はnameフィールドの部分一致（大文字小文字を無視）で配列を絞り込む。
func filterByName(items []map[string]any, nameFilter string) []map[string]any {
	if nameFilter == "" {
		return items
	}

	needle := strings.ToLower(nameFilter)
	filtered := make([]map[string]any, 0, len(items))
	for _, item := range items {
		name, _ := item["name"].(string)
		if strings.Contains(strings.ToLower(name), needle) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func decodeSearchResult(body []byte) (*SearchResult, error) {
	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, model.NewUpstreamBadGatewayError("レスポンスの解析に失敗しました")
	}
	if result.Results == nil {
		result.Results = []ShowSummary{}
	}
	return &result, nil
}
