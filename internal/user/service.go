// Package user はユーザー登録と参照のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/repository"
	"github.com/teli-app/teli/internal/security"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.UGCSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.UGCSanitizerService) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
	}
}

// RegisterInput はユーザー登録の入力。検証はハンドラー層で完了していること。
type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Bio      string
}

// Register は新規ユーザーを登録し、発行したIDを返す。
// username/emailの一意性はストアのUNIQUE制約で保証され、
// 違反時はUSERNAME_TAKEN / EMAIL_TAKENのAPIErrorが返る。
func (s *Service) Register(ctx context.Context, input RegisterInput) (string, error) {
	u := &model.User{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Username:  input.Username,
		Email:     input.Email,
		Bio:       s.sanitizer.Sanitize(input.Bio),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return "", err
	}

	return u.ID, nil
}

// GetUser は指定IDのユーザーを取得する。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return u, nil
}

// ListUsers は全ユーザーを返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}
