package live

import "github.com/pribylovaa/go-blog-forum/internal/models"

// Signal — значение, которое может быть ещё не задано.
type Signal[T any] struct {
	value T
	set   bool
}

// Set задаёт значение.
func (s *Signal[T]) Set(v T) {
	s.value = v
	s.set = true
}

// Get возвращает значение и признак того, что оно задано.
func (s *Signal[T]) Get() (T, bool) {
	return s.value, s.set
}

// Inputs — combine-latest над размером страницы, страницей и строкой поиска.
// Эмиссия возможна только когда заданы все три сигнала.
type Inputs struct {
	PageSize   Signal[int]
	Page       Signal[int]
	SearchText Signal[string]
}

// Ready сообщает, заданы ли все сигналы.
func (in *Inputs) Ready() bool {
	_, a := in.PageSize.Get()
	_, b := in.Page.Get()
	_, c := in.SearchText.Get()

	return a && b && c
}

// Options строит параметры запроса из последних значений.
func (in *Inputs) Options() models.QueryOptions {
	size, _ := in.PageSize.Get()
	page, _ := in.Page.Get()
	text, _ := in.SearchText.Get()

	return BuildOptions(size, page, text)
}

type inputKind int8

const (
	inputPageSize inputKind = iota
	inputPage
	inputSearch
)

type inputEvent struct {
	kind inputKind
	num  int
	text string
}

func (in *Inputs) apply(ev inputEvent) {
	switch ev.kind {
	case inputPageSize:
		in.PageSize.Set(ev.num)
	case inputPage:
		in.Page.Set(ev.num)
	case inputSearch:
		in.SearchText.Set(ev.text)
	}
}
