package views

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateDeclaration — имя или маршрут уже объявлены.
var ErrDuplicateDeclaration = errors.New("views: duplicate declaration")

// Component — представление со временем жизни.
type Component interface {
	Close()
}

// Declaration — объявление представления: имя, маршрут и конструктор.
type Declaration[D any] struct {
	Name  string
	Route string
	New   func(deps D) Component
}

// ProfileDeclarations — представления раздела профиля.
var ProfileDeclarations = []Declaration[ProfileDeps]{
	{Name: "profile", Route: "/profile", New: func(d ProfileDeps) Component { return NewProfileView(d) }},
	{Name: "profile-update", Route: "/profile/update", New: func(d ProfileDeps) Component { return NewProfileUpdateView(d) }},
	{Name: "password-update", Route: "/profile/password", New: func(d ProfileDeps) Component { return NewPasswordUpdateView(d) }},
	{Name: "profile-image", Route: "/profile/image", New: func(d ProfileDeps) Component { return NewProfileImageView(d) }},
}

// Registry — реестр объявлений по имени и маршруту.
type Registry[D any] struct {
	mu      sync.RWMutex
	order   []string
	byName  map[string]Declaration[D]
	byRoute map[string]string
}

// NewRegistry создаёт реестр. Дубликаты — ошибка.
func NewRegistry[D any](decls ...Declaration[D]) (*Registry[D], error) {
	r := &Registry[D]{
		byName:  make(map[string]Declaration[D]),
		byRoute: make(map[string]string),
	}

	if err := r.Declare(decls...); err != nil {
		return nil, err
	}

	return r, nil
}

// Declare добавляет объявления. При конфликте реестр не меняется.
func (r *Registry[D]) Declare(decls ...Declaration[D]) error {
	const op = "views/registry/Declare"

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[string]struct{}, len(decls))
	routes := make(map[string]struct{}, len(decls))

	for _, d := range decls {
		if d.Name == "" || d.New == nil {
			return fmt.Errorf("%s: %q: name and constructor required", op, d.Name)
		}

		if _, ok := r.byName[d.Name]; ok {
			return fmt.Errorf("%s: name %q: %w", op, d.Name, ErrDuplicateDeclaration)
		}
		if _, ok := names[d.Name]; ok {
			return fmt.Errorf("%s: name %q: %w", op, d.Name, ErrDuplicateDeclaration)
		}

		if d.Route != "" {
			if _, ok := r.byRoute[d.Route]; ok {
				return fmt.Errorf("%s: route %q: %w", op, d.Route, ErrDuplicateDeclaration)
			}
			if _, ok := routes[d.Route]; ok {
				return fmt.Errorf("%s: route %q: %w", op, d.Route, ErrDuplicateDeclaration)
			}
			routes[d.Route] = struct{}{}
		}

		names[d.Name] = struct{}{}
	}

	for _, d := range decls {
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
		if d.Route != "" {
			r.byRoute[d.Route] = d.Name
		}
	}

	return nil
}

// Lookup ищет объявление по имени.
func (r *Registry[D]) Lookup(name string) (Declaration[D], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[name]
	return d, ok
}

// Route ищет объявление по маршруту.
func (r *Registry[D]) Route(path string) (Declaration[D], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byRoute[path]
	if !ok {
		return Declaration[D]{}, false
	}

	return r.byName[name], true
}

// Names — имена в порядке объявления.
func (r *Registry[D]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// Build создаёт представление по имени.
func (r *Registry[D]) Build(name string, deps D) (Component, bool) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}

	return d.New(deps), true
}
