// Package watchstatus は視聴ステータスとウォッチリストのドメインロジックを提供する。
package watchstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/repository"
	"github.com/teli-app/teli/internal/security"
)

// Service は視聴ステータス管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	watchRepo repository.WatchStatusRepository
	sanitizer security.UGCSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, watchRepo repository.WatchStatusRepository, sanitizer security.UGCSanitizerService) *Service {
	return &Service{
		userRepo:  userRepo,
		watchRepo: watchRepo,
		sanitizer: sanitizer,
	}
}

// UpsertInput は視聴ステータス更新の入力。
type UpsertInput struct {
	UserID         string
	ShowID         string
	Status         model.WatchStatusKind
	CurrentSeason  *int
	CurrentEpisode *int
	Notes          string
}

// UpsertResult は視聴ステータス更新の結果を表す。
type UpsertResult struct {
	ID string
	// Created は新規作成（HTTP 201）を、falseは上書き更新（HTTP 200）を意味する。
	Created bool
}

// Upsert は視聴ステータスを自然キー(user_id, show_id)でUPSERTする。
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (*UpsertResult, error) {
	if err := s.requireUser(ctx, input.UserID); err != nil {
		return nil, err
	}

	// 新規挿入時の主キー。競合時は既存行のIDがRETURNINGで返る。
	status := &model.WatchStatus{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		ShowID:         input.ShowID,
		Status:         input.Status,
		CurrentSeason:  input.CurrentSeason,
		CurrentEpisode: input.CurrentEpisode,
		Notes:          s.sanitizer.Sanitize(input.Notes),
		UpdatedAt:      time.Now().UTC(),
	}

	id, created, err := s.watchRepo.Upsert(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("視聴ステータスの保存に失敗しました: %w", err)
	}

	return &UpsertResult{ID: id, Created: created}, nil
}

// Get は指定ユーザー・番組の視聴ステータスを取得する。
// 存在しない場合はWATCH_STATUS_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID, showID string) (*model.WatchStatus, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	status, err := s.watchRepo.Find(ctx, userID, showID)
	if err != nil {
		return nil, fmt.Errorf("視聴ステータスの取得に失敗しました: %w", err)
	}
	if status == nil {
		return nil, model.NewWatchStatusNotFoundError()
	}
	return status, nil
}

// ListCurrentlyWatching は視聴中の番組一覧を返す。
func (s *Service) ListCurrentlyWatching(ctx context.Context, userID string) ([]*model.WatchStatus, error) {
	return s.listByKind(ctx, userID, model.WatchStatusCurrentlyWatching)
}

// ListWantToWatch は視聴予定の番組一覧を返す。
func (s *Service) ListWantToWatch(ctx context.Context, userID string) ([]*model.WatchStatus, error) {
	return s.listByKind(ctx, userID, model.WatchStatusWantToWatch)
}

func (s *Service) listByKind(ctx context.Context, userID string, kind model.WatchStatusKind) ([]*model.WatchStatus, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	statuses, err := s.watchRepo.ListByStatus(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("視聴ステータス一覧の取得に失敗しました: %w", err)
	}
	return statuses, nil
}

// Delete は視聴ステータスを削除する。
// 存在しない場合はWATCH_STATUS_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, userID, showID string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	deleted, err := s.watchRepo.Delete(ctx, userID, showID)
	if err != nil {
		return fmt.Errorf("視聴ステータスの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewWatchStatusNotFoundError()
	}
	return nil
}

// AddToWatchlist はウォッチリストにエントリを追加し、発行したIDを返す。
func (s *Service) AddToWatchlist(ctx context.Context, userID, showID string) (string, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return "", err
	}

	entry := &model.WatchlistEntry{
		ID:      uuid.NewString(),
		UserID:  userID,
		ShowID:  showID,
		AddedAt: time.Now().UTC(),
	}

	if err := s.watchRepo.AddToWatchlist(ctx, entry); err != nil {
		return "", fmt.Errorf("ウォッチリストへの追加に失敗しました: %w", err)
	}

	return entry.ID, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewUserNotFoundError(userID)
	}
	return nil
}
