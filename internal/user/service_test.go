package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teli-app/teli/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	createFn   func(ctx context.Context, user *model.User) error
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	existsFn   func(ctx context.Context, id string) (bool, error)
	listFn     func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return false, nil
}
func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

type mockSanitizer struct {
	sanitizeFn func(raw string) string
}

func (m *mockSanitizer) Sanitize(raw string) string {
	if m.sanitizeFn != nil {
		return m.sanitizeFn(raw)
	}
	return raw
}

// --- テスト ---

// TestService_Register は登録時にIDが発行され、自己紹介がサニタイズされて
// 格納されることを検証する。
func TestService_Register(t *testing.T) {
	var created *model.User

	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	sanitizer := &mockSanitizer{
		sanitizeFn: func(raw string) string { return "cleaned bio" },
	}

	service := NewService(repo, sanitizer)

	id, err := service.Register(context.Background(), RegisterInput{
		Name:     "田中太郎",
		Username: "tanaka",
		Email:    "tanaka@example.com",
		Bio:      "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}
	if created == nil {
		t.Fatal("Create was not called")
	}
	if created.ID != id {
		t.Errorf("stored id = %q, returned id = %q", created.ID, id)
	}
	if created.Bio != "cleaned bio" {
		t.Errorf("bio = %q, want sanitized value", created.Bio)
	}
	if created.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
	if created.CreatedAt.Location() != time.UTC {
		t.Error("created_at should be UTC")
	}
}

// TestService_Register_DuplicateUsername は一意性違反のAPIErrorが
// そのまま呼び出し元へ返ることを検証する。
func TestService_Register_DuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.NewUsernameTakenError(user.Username)
		},
	}

	service := NewService(repo, &mockSanitizer{})

	_, err := service.Register(context.Background(), RegisterInput{
		Name:     "田中太郎",
		Username: "tanaka",
		Email:    "tanaka@example.com",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUsernameTaken {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUsernameTaken)
	}
}

// TestService_GetUser はユーザーが取得でき、存在しない場合に
// USER_NOT_FOUNDが返ることを検証する。
func TestService_GetUser(t *testing.T) {
	want := &model.User{ID: "user-1", Name: "田中太郎", Username: "tanaka"}

	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return want, nil
			}
			return nil, nil
		},
	}

	service := NewService(repo, &mockSanitizer{})

	got, err := service.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	_, err = service.GetUser(context.Background(), "ghost")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// TestService_ListUsers はユーザー一覧がそのまま返ることを検証する。
func TestService_ListUsers(t *testing.T) {
	repo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{{ID: "user-1"}, {ID: "user-2"}}, nil
		},
	}

	service := NewService(repo, &mockSanitizer{})

	users, err := service.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("user count = %d, want 2", len(users))
	}
}
