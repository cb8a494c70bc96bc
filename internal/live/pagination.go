package live

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultPaginationID — id виджета пагинации по умолчанию.
const DefaultPaginationID = "pagination-default"

// PaginationState — состояние одного виджета пагинации.
// TotalItems задаётся извне и может отставать от содержимого страницы.
type PaginationState struct {
	ID           string
	ItemsPerPage int
	CurrentPage  int
	TotalItems   int64
}

// PageCount — число страниц (минимум 1).
func (s PaginationState) PageCount() int {
	if s.ItemsPerPage <= 0 || s.TotalItems <= 0 {
		return 1
	}

	return int((s.TotalItems + int64(s.ItemsPerPage) - 1) / int64(s.ItemsPerPage))
}

// Pagination — in-memory реестр виджетов пагинации.
// Операции над незарегистрированным id игнорируются.
type Pagination struct {
	states *xsync.Map[string, PaginationState]
}

// NewPagination создаёт пустой реестр.
func NewPagination() *Pagination {
	return &Pagination{states: xsync.NewMap[string, PaginationState]()}
}

// DefaultID — id виджета по умолчанию; одинаков при каждом вызове.
// Ленты, которым нужен свой виджет в общем реестре, задают FeedConfig.PaginationID.
func (p *Pagination) DefaultID() string {
	return DefaultPaginationID
}

// Register регистрирует (или перерегистрирует) виджет.
func (p *Pagination) Register(state PaginationState) {
	p.states.Store(state.ID, state)
}

// SetCurrentPage меняет текущую страницу виджета.
func (p *Pagination) SetCurrentPage(id string, page int) {
	p.update(id, func(s *PaginationState) { s.CurrentPage = page })
}

// SetTotalItems меняет общее число элементов виджета.
func (p *Pagination) SetTotalItems(id string, total int64) {
	p.update(id, func(s *PaginationState) { s.TotalItems = total })
}

// State возвращает состояние виджета.
func (p *Pagination) State(id string) (PaginationState, bool) {
	return p.states.Load(id)
}

// Unregister удаляет виджет.
func (p *Pagination) Unregister(id string) {
	p.states.Delete(id)
}

func (p *Pagination) update(id string, fn func(*PaginationState)) {
	p.states.Compute(id, func(old PaginationState, loaded bool) (PaginationState, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}

		fn(&old)
		return old, xsync.UpdateOp
	})
}
