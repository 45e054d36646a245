package tmdb

import "encoding/json"

// RawField は上流レスポンスの任意型フィールドを保持する。
// 上流に存在しなかったフィールドは空文字列としてシリアライズされ、
// 存在したフィールドは元のJSON値をそのまま透過する。
type RawField json.RawMessage

// MarshalJSON はjson.Marshalerを実装する。未設定・nullは空文字列になる。
func (f RawField) MarshalJSON() ([]byte, error) {
	if len(f) == 0 || string(f) == "null" {
		return []byte(`""`), nil
	}
	return []byte(f), nil
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (f *RawField) UnmarshalJSON(data []byte) error {
	*f = append((*f)[0:0], data...)
	return nil
}

// ShowSummary は検索・絞り込み結果1件分のホワイトリスト射影。
// ここに列挙されたフィールド以外は上流から透過しない。
type ShowSummary struct {
	BackdropPath     RawField `json:"backdrop_path"`
	GenreIDs         RawField `json:"genre_ids"`
	ID               RawField `json:"id"`
	OriginCountry    RawField `json:"origin_country"`
	OriginalLanguage RawField `json:"original_language"`
	OriginalName     RawField `json:"original_name"`
	Overview         RawField `json:"overview"`
	Popularity       RawField `json:"popularity"`
	PosterPath       RawField `json:"poster_path"`
	FirstAirDate     RawField `json:"first_air_date"`
	Name             RawField `json:"name"`
}

// SearchResult は検索・絞り込みエンドポイントのレスポンス。
type SearchResult struct {
	Results      []ShowSummary `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// ShowDetail は番組詳細のホワイトリスト射影。
type ShowDetail struct {
	BackdropPath        RawField `json:"backdrop_path"`
	CreatedBy           RawField `json:"created_by"`
	EpisodeRunTime      RawField `json:"episode_run_time"`
	FirstAirDate        RawField `json:"first_air_date"`
	Genres              RawField `json:"genres"`
	ID                  RawField `json:"id"`
	InProduction        RawField `json:"in_production"`
	Languages           RawField `json:"languages"`
	LastAirDate         RawField `json:"last_air_date"`
	LastEpisodeToAir    RawField `json:"last_episode_to_air"`
	Name                RawField `json:"name"`
	NextEpisodeToAir    RawField `json:"next_episode_to_air"`
	Networks            RawField `json:"networks"`
	NumberOfEpisodes    RawField `json:"number_of_episodes"`
	NumberOfSeasons     RawField `json:"number_of_seasons"`
	OriginCountry       RawField `json:"origin_country"`
	OriginalLanguage    RawField `json:"original_language"`
	OriginalName        RawField `json:"original_name"`
	Overview            RawField `json:"overview"`
	PosterPath          RawField `json:"poster_path"`
	ProductionCompanies RawField `json:"production_companies"`
	ProductionCountries RawField `json:"production_countries"`
	Seasons             RawField `json:"seasons"`
	SpokenLanguages     RawField `json:"spoken_languages"`
	Status              RawField `json:"status"`
	Tagline             RawField `json:"tagline"`
	Type                RawField `json:"type"`
}
