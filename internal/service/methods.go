package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

// Method — именованный удалённый метод. args — позиционные аргументы в JSON-представлении
// (string, float64, bool, map[string]any, []any, nil).
type Method func(ctx context.Context, args []any) (any, error)

// Имена методов.
const (
	MethodCreateBlog            = "createBlog"
	MethodDeleteBlog            = "deleteBlog"
	MethodCreatePost            = "createPost"
	MethodInsertPostComment     = "insertPostComment"
	MethodDeletePostComment     = "deletePostComment"
	MethodSetPostCommentPrivate = "setPostCommentPrivate"
	MethodUpdateProfile         = "updateProfile"
	MethodChangePassword        = "changePassword"
	MethodAvatarUploadURL       = "avatarUploadURL"
	MethodConfirmAvatar         = "confirmAvatar"
	MethodRegister              = "register"
	MethodLogin                 = "login"
)

// Methods — реестр именованных методов.
type Methods struct {
	methods map[string]Method
}

// NewMethods регистрирует методы сервиса.
func NewMethods(s *Service) *Methods {
	m := &Methods{methods: make(map[string]Method)}

	m.Register(MethodCreateBlog, func(ctx context.Context, args []any) (any, error) {
		title, content := argString(args, 0), argString(args, 1)
		return s.CreateBlog(ctx, title, content)
	})

	m.Register(MethodDeleteBlog, func(ctx context.Context, args []any) (any, error) {
		return nil, s.DeleteBlog(ctx, argString(args, 0), argString(args, 1))
	})

	m.Register(MethodCreatePost, func(ctx context.Context, args []any) (any, error) {
		var keys []string
		if err := argObject(args, 2, &keys); err != nil {
			return nil, err
		}
		return s.CreatePost(ctx, argString(args, 0), argString(args, 1), keys)
	})

	m.Register(MethodInsertPostComment, func(ctx context.Context, args []any) (any, error) {
		return s.InsertPostComment(ctx, argString(args, 0), argString(args, 1), argString(args, 2))
	})

	m.Register(MethodDeletePostComment, func(ctx context.Context, args []any) (any, error) {
		return nil, s.DeletePostComment(ctx, argString(args, 0), argString(args, 1))
	})

	m.Register(MethodSetPostCommentPrivate, func(ctx context.Context, args []any) (any, error) {
		return s.SetPostCommentPrivate(ctx, argString(args, 0), argString(args, 1))
	})

	m.Register(MethodUpdateProfile, func(ctx context.Context, args []any) (any, error) {
		var update models.ProfileUpdate
		if err := argObject(args, 0, &update); err != nil {
			return nil, err
		}
		return s.UpdateProfile(ctx, update)
	})

	m.Register(MethodChangePassword, func(ctx context.Context, args []any) (any, error) {
		return nil, s.ChangePassword(ctx, argString(args, 0), argString(args, 1))
	})

	m.Register(MethodAvatarUploadURL, func(ctx context.Context, args []any) (any, error) {
		size, err := argInt64(args, 1)
		if err != nil {
			return nil, err
		}
		return s.AvatarUploadURL(ctx, argString(args, 0), size)
	})

	m.Register(MethodConfirmAvatar, func(ctx context.Context, args []any) (any, error) {
		return s.ConfirmAvatar(ctx, argString(args, 0))
	})

	m.Register(MethodRegister, func(ctx context.Context, args []any) (any, error) {
		return s.Register(ctx, argString(args, 0), argString(args, 1), argString(args, 2))
	})

	m.Register(MethodLogin, func(ctx context.Context, args []any) (any, error) {
		return s.Login(ctx, argString(args, 0), argString(args, 1))
	})

	return m
}

// Register добавляет или заменяет метод.
func (m *Methods) Register(name string, fn Method) {
	m.methods[name] = fn
}

// Names — отсортированный список зарегистрированных методов.
func (m *Methods) Names() []string {
	names := make([]string, 0, len(m.methods))
	for name := range m.methods {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Call вызывает метод по имени. ErrUnknownMethod, если имя не зарегистрировано.
func (m *Methods) Call(ctx context.Context, name string, args []any) (any, error) {
	const op = "service/methods/Call"

	fn, ok := m.methods[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, name, ErrUnknownMethod)
	}

	return fn(ctx, args)
}

// argString — i-й аргумент строкой; отсутствующий или не строковый — "".
func argString(args []any, i int) string {
	if i >= len(args) {
		return ""
	}

	s, _ := args[i].(string)
	return s
}

// argInt64 — i-й аргумент целым числом.
func argInt64(args []any, i int) (int64, error) {
	if i >= len(args) {
		return 0, ErrInvalidArgument
	}

	switch v := args[i].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, ErrInvalidArgument
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, ErrInvalidArgument
		}
		return n, nil
	default:
		return 0, ErrInvalidArgument
	}
}

// argObject декодирует i-й аргумент в out через JSON; отсутствующий аргумент оставляет out нетронутым.
func argObject(args []any, i int, out any) error {
	if i >= len(args) || args[i] == nil {
		return nil
	}

	raw, err := json.Marshal(args[i])
	if err != nil {
		return ErrInvalidArgument
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return ErrInvalidArgument
	}

	return nil
}
