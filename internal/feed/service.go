package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/repository"
)

// defaultPageSize はフィード読み出しの1ページあたりの件数。
const defaultPageSize = 50

// Service はフィード読み出しのサービス層。
type Service struct {
	userRepo repository.UserRepository
	feedRepo repository.FeedRepository
	pageSize int
}

// NewService はServiceの新しいインスタンスを生成する。
// pageSizeが0以下の場合はデフォルト値を使う。
func NewService(userRepo repository.UserRepository, feedRepo repository.FeedRepository, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Service{
		userRepo: userRepo,
		feedRepo: feedRepo,
		pageSize: pageSize,
	}
}

// GetFeed はユーザーのフィードをタイムスタンプ降順で返す。
// startAfterが指定された場合、そのタイムスタンプより厳密に古いアイテムのみを返す
// （排他的カーソル）。投稿者の表示名・ユーザー名は読み出し時に付加され、
// 投稿者のレコードが見つからないアイテムは名前なしのまま返る。
func (s *Service) GetFeed(ctx context.Context, userID string, startAfter *time.Time) ([]*model.FeedEntry, error) {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー存在確認に失敗しました: %w", err)
	}
	if !exists {
		return nil, model.NewUserNotFoundError(userID)
	}

	entries, err := s.feedRepo.ListByRecipient(ctx, userID, startAfter, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	return entries, nil
}
