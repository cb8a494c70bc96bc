package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/i18n"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// MinPasswordLength — минимальная длина нового пароля.
const MinPasswordLength = 8

// ErrUploadFailed — хранилище отклонило загрузку аватара.
var ErrUploadFailed = errors.New("views: avatar upload failed")

// ProfileDeps — зависимости представлений профиля.
type ProfileDeps struct {
	Profiles   live.Subscriber[models.Profile]
	Caller     live.Caller
	Identity   live.Identity
	Translator i18n.Translator
	Policy     ErrorPolicy
	Logger     *slog.Logger
	// HTTP — клиент загрузки по presigned URL; nil — http.DefaultClient.
	HTTP *http.Client
	// ImageTypes — допустимые типы аватара; пусто — image/jpeg и image/png.
	ImageTypes []string
	// SubscribeTimeout — предельное ожидание готовности; 0 — без ограничения.
	SubscribeTimeout time.Duration
}

// ProfileView — живой профиль пользователя.
type ProfileView struct {
	deps ProfileDeps
	rep  reporter

	mu     sync.Mutex
	userID string
	docs   *liveDocs[models.Profile]
	closed bool
}

// NewProfileView создаёт представление профиля.
func NewProfileView(deps ProfileDeps) *ProfileView {
	return &ProfileView{deps: deps, rep: newReporter(deps.Policy, deps.Translator, deps.Logger)}
}

// Open подписывается на профиль userID; "" — профиль текущего пользователя.
func (v *ProfileView) Open(ctx context.Context, userID string) error {
	const op = "views/profile/Open"

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("%s: %w", op, live.ErrClosed)
	}
	if v.docs != nil {
		return fmt.Errorf("%s: %w", op, ErrAlreadyOpen)
	}

	if userID == "" {
		userID = currentUserID(v.deps.Identity)
	}

	args := []any{}
	if userID != "" {
		args = []any{userID}
	}

	v.userID = userID
	v.docs = newLiveDocs(livequery.PubProfile, userID, args, v.deps.Profiles, v.deps.SubscribeTimeout,
		v.rep.log.With(slog.String("view", "profile")))

	if err := v.docs.start(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Profile — профиль, если он уже пришёл.
func (v *ProfileView) Profile() (models.Profile, bool) {
	v.mu.Lock()
	docs, id := v.docs, v.userID
	v.mu.Unlock()

	if docs == nil {
		return models.Profile{}, false
	}

	if id != "" {
		return docs.find(id)
	}

	// Аноним без id: публикация отдаёт не больше одного документа.
	if all := docs.m.Docs(); len(all) > 0 {
		return all[0], true
	}

	return models.Profile{}, false
}

// Ready — подписка на профиль готова.
func (v *ProfileView) Ready() bool {
	v.mu.Lock()
	docs := v.docs
	v.mu.Unlock()

	return docs != nil && docs.ready()
}

// Changes сигналит об изменениях профиля; nil до Open.
func (v *ProfileView) Changes() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.docs == nil {
		return nil
	}

	return v.docs.changes
}

// Close снимает подписку.
func (v *ProfileView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true

	if v.docs != nil {
		v.docs.close()
	}
}

// ProfileForm — форма редактирования профиля.
type ProfileForm struct {
	Username string
	Country  string
	Bio      string
}

// Valid — имя пользователя обязательно.
func (f ProfileForm) Valid() bool {
	return strings.TrimSpace(f.Username) != ""
}

// ProfileUpdateView — редактирование профиля.
type ProfileUpdateView struct {
	deps   ProfileDeps
	rep    reporter
	status statusBox

	mu   sync.Mutex
	form ProfileForm
}

// NewProfileUpdateView создаёт представление редактирования профиля.
func NewProfileUpdateView(deps ProfileDeps) *ProfileUpdateView {
	return &ProfileUpdateView{deps: deps, rep: newReporter(deps.Policy, deps.Translator, deps.Logger)}
}

// SetForm заполняет форму.
func (v *ProfileUpdateView) SetForm(f ProfileForm) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.form = f
}

// Status — сообщения последней отправки.
func (v *ProfileUpdateView) Status() Status {
	return v.status.get()
}

// Submit проверяет форму и вызывает updateProfile.
func (v *ProfileUpdateView) Submit(ctx context.Context) (*models.Profile, error) {
	const op = "views/profile/ProfileUpdateView.Submit"

	v.status.update(func(s *Status) { *s = Status{} })

	v.mu.Lock()
	form := v.form
	v.mu.Unlock()

	if !form.Valid() {
		return nil, v.rep.invalid(i18n.AllFieldsRequired, &v.status)
	}

	username := strings.TrimSpace(form.Username)
	country := strings.TrimSpace(form.Country)
	bio := strings.TrimSpace(form.Bio)

	update := models.ProfileUpdate{Username: &username, Country: &country, Bio: &bio}

	v.status.update(func(s *Status) { s.InProgress = true })

	var out models.Profile
	err := v.deps.Caller.Call(ctx, service.MethodUpdateProfile, []any{update}, &out)

	v.status.update(func(s *Status) { s.InProgress = false })

	if err != nil {
		return nil, v.rep.fail(op, err, &v.status)
	}

	v.status.update(func(s *Status) { s.Success = v.rep.tr.T(i18n.ProfileUpdated) })

	return &out, nil
}

// Close — у формы нет подписок.
func (v *ProfileUpdateView) Close() {}

// PasswordForm — форма смены пароля.
type PasswordForm struct {
	Old     string
	New     string
	Confirm string
}

// PasswordUpdateView — смена пароля.
type PasswordUpdateView struct {
	deps   ProfileDeps
	rep    reporter
	status statusBox
}

// NewPasswordUpdateView создаёт представление смены пароля.
func NewPasswordUpdateView(deps ProfileDeps) *PasswordUpdateView {
	return &PasswordUpdateView{deps: deps, rep: newReporter(deps.Policy, deps.Translator, deps.Logger)}
}

// Status — сообщения последней отправки.
func (v *PasswordUpdateView) Status() Status {
	return v.status.get()
}

// Submit проверяет форму и вызывает changePassword.
func (v *PasswordUpdateView) Submit(ctx context.Context, f PasswordForm) error {
	const op = "views/profile/PasswordUpdateView.Submit"

	v.status.update(func(s *Status) { *s = Status{} })

	switch {
	case f.Old == "" || f.New == "" || f.Confirm == "":
		return v.rep.invalid(i18n.AllFieldsRequired, &v.status)
	case f.New != f.Confirm:
		return v.rep.invalid(i18n.PasswordsMismatch, &v.status)
	case len([]rune(f.New)) < MinPasswordLength:
		return v.rep.invalid(i18n.PasswordTooShort, &v.status)
	}

	v.status.update(func(s *Status) { s.InProgress = true })

	err := v.deps.Caller.Call(ctx, service.MethodChangePassword, []any{f.Old, f.New}, nil)

	v.status.update(func(s *Status) { s.InProgress = false })

	if err != nil {
		return v.rep.fail(op, err, &v.status)
	}

	v.status.update(func(s *Status) { s.Success = v.rep.tr.T(i18n.PasswordChanged) })

	return nil
}

// Close — у формы нет подписок.
func (v *PasswordUpdateView) Close() {}

// ProfileImageView — загрузка аватара: presigned URL, PUT в хранилище, подтверждение.
type ProfileImageView struct {
	deps   ProfileDeps
	rep    reporter
	status statusBox
	http   *http.Client
	types  []string
}

// NewProfileImageView создаёт представление загрузки аватара.
func NewProfileImageView(deps ProfileDeps) *ProfileImageView {
	hc := deps.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	types := deps.ImageTypes
	if len(types) == 0 {
		types = []string{"image/jpeg", "image/png"}
	}

	return &ProfileImageView{
		deps:  deps,
		rep:   newReporter(deps.Policy, deps.Translator, deps.Logger),
		http:  hc,
		types: types,
	}
}

// Status — сообщения последней загрузки.
func (v *ProfileImageView) Status() Status {
	return v.status.get()
}

// Upload загружает body размера size и подтверждает аватар.
func (v *ProfileImageView) Upload(ctx context.Context, contentType string, size int64, body io.Reader) (*models.Profile, error) {
	const op = "views/profile/ProfileImageView.Upload"

	v.status.update(func(s *Status) { *s = Status{} })

	if !slices.Contains(v.types, contentType) || size <= 0 {
		return nil, v.rep.invalid(i18n.AvatarNotSupported, &v.status)
	}

	v.status.update(func(s *Status) { s.InProgress = true })
	defer v.status.update(func(s *Status) { s.InProgress = false })

	var info models.UploadInfo
	if err := v.deps.Caller.Call(ctx, service.MethodAvatarUploadURL, []any{contentType, size}, &info); err != nil {
		return nil, v.rep.fail(op, err, &v.status)
	}

	if err := v.put(ctx, info, contentType, size, body); err != nil {
		return nil, v.rep.fail(op, err, &v.status)
	}

	var out models.Profile
	if err := v.deps.Caller.Call(ctx, service.MethodConfirmAvatar, []any{info.AvatarKey}, &out); err != nil {
		return nil, v.rep.fail(op, err, &v.status)
	}

	return &out, nil
}

func (v *ProfileImageView) put(ctx context.Context, info models.UploadInfo, contentType string, size int64, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, info.UploadURL, body)
	if err != nil {
		return err
	}

	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	for k, val := range info.Headers {
		req.Header.Set(k, val)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	return nil
}

// Close — у формы нет подписок.
func (v *ProfileImageView) Close() {}
