// Package follow はフォロー関係のドメインロジックを提供する。
package follow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teli-app/teli/internal/feed"
	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/repository"
)

// Service はフォロー管理のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	fanout     *feed.Engine
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, followRepo repository.FollowRepository, fanout *feed.Engine) *Service {
	return &Service{
		userRepo:   userRepo,
		followRepo: followRepo,
		fanout:     fanout,
	}
}

// FollowResult はフォロー操作の結果を表す。
type FollowResult struct {
	// AlreadyFollowing は既にフォロー済みだった場合にtrue。
	// その場合エッジ作成もバックフィルも行われていない。
	AlreadyFollowing bool
}

// Follow はfollowerIDからfolloweeIDへのフォロー関係を作成する。
// 自己フォローは対象の存在有無にかかわらず拒否する。
// 作成に成功した場合、フォロー先の直近評価をフォロワーのフィードへ
// ベストエフォートでバックフィルする。
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) (*FollowResult, error) {
	if followerID == followeeID {
		return nil, model.NewSelfFollowError()
	}

	// 両端のユーザーが実在することを確認する
	for _, id := range []string{followerID, followeeID} {
		exists, err := s.userRepo.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
		}
		if !exists {
			return nil, model.NewUserNotFoundError(id)
		}
	}

	f := &model.Follow{
		ID:         uuid.NewString(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		FollowedAt: time.Now().UTC(),
	}

	// 重複フォローはストアのUNIQUE制約で冪等に吸収される
	created, err := s.followRepo.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("フォロー関係の作成に失敗しました: %w", err)
	}
	if !created {
		return &FollowResult{AlreadyFollowing: true}, nil
	}

	// バックフィルはベストエフォート。失敗してもフォロー自体は成功とする
	s.fanout.BackfillOnFollow(ctx, followerID, followeeID)

	return &FollowResult{}, nil
}

// Unfollow はフォロー関係を解除する。
// 関係が存在しない場合はFOLLOW_NOT_FOUNDを返す。
// フォロー中に配信済みのフィードアイテムは回収しない。
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	deleted, err := s.followRepo.DeleteEdges(ctx, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}
	if deleted == 0 {
		return model.NewFollowNotFoundError()
	}
	return nil
}

// ListFollowing は指定ユーザーがフォローしているユーザーIDの一覧を返す。
func (s *Service) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.followRepo.ListFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
}

// ListFollowers は指定ユーザーをフォローしているユーザーIDの一覧を返す。
func (s *Service) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.followRepo.ListFollowerIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フォロワー一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
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
