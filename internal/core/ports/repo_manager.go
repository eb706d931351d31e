package ports

import "github.com/openmart/martd/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Items() domain.ItemRepository
	Accounts() domain.AccountRepository
	Close()
}
