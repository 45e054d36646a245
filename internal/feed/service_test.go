package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teli-app/teli/internal/model"
)

type mockUserRepo struct {
	existsFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	return m.existsFn(ctx, id)
}
func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) { return nil, nil }

// TestService_GetFeed はフィード読み出しがカーソルとページサイズを
// リポジトリに引き渡すことを検証する。
func TestService_GetFeed(t *testing.T) {
	cursor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var gotUserID string
	var gotBefore *time.Time
	var gotLimit int

	userRepo := &mockUserRepo{
		existsFn: func(ctx context.Context, id string) (bool, error) { return true, nil },
	}
	feedRepo := &mockFeedRepo{
		listByRecipientFn: func(ctx context.Context, userID string, before *time.Time, limit int) ([]*model.FeedEntry, error) {
			gotUserID = userID
			gotBefore = before
			gotLimit = limit
			return []*model.FeedEntry{{FeedItem: model.FeedItem{ID: "item-1"}}}, nil
		},
	}

	service := NewService(userRepo, feedRepo, 50)

	entries, err := service.GetFeed(context.Background(), "user-1", &cursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entry count = %d, want 1", len(entries))
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want %q", gotUserID, "user-1")
	}
	if gotBefore == nil || !gotBefore.Equal(cursor) {
		t.Errorf("before = %v, want %v", gotBefore, cursor)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want 50", gotLimit)
	}
}

// TestService_GetFeed_UserNotFound は存在しないユーザーのフィード取得が
// USER_NOT_FOUNDエラーになることを検証する。
func TestService_GetFeed_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		existsFn: func(ctx context.Context, id string) (bool, error) { return false, nil },
	}

	service := NewService(userRepo, &mockFeedRepo{}, 0)

	_, err := service.GetFeed(context.Background(), "ghost", nil)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// TestService_GetFeed_DefaultPageSize はpageSize未指定時にデフォルト値が
// 使われることを検証する。
func TestService_GetFeed_DefaultPageSize(t *testing.T) {
	var gotLimit int

	userRepo := &mockUserRepo{
		existsFn: func(ctx context.Context, id string) (bool, error) { return true, nil },
	}
	feedRepo := &mockFeedRepo{
		listByRecipientFn: func(ctx context.Context, userID string, before *time.Time, limit int) ([]*model.FeedEntry, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	service := NewService(userRepo, feedRepo, 0)

	if _, err := service.GetFeed(context.Background(), "user-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != defaultPageSize {
		t.Errorf("limit = %d, want %d", gotLimit, defaultPageSize)
	}
}
