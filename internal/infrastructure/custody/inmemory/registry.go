package inmemorycustody

import (
	"context"
	"fmt"
	"sync"

	"github.com/openmart/martd/internal/core/domain"
	"github.com/openmart/martd/internal/core/ports"
)

// Registry is a standalone asset registry mimicking an external custody
// service. Assets are minted to an owner and can only be moved by the
// operator once the owner has granted it approval, or by the operator
// itself when releasing assets it holds.
type Registry struct {
	lock      sync.RWMutex
	operator  string
	holders   map[domain.Asset]string
	approvals map[string]map[string]struct{} // owner -> approved operators
}

func NewRegistry(operator string) *Registry {
	return &Registry{
		operator:  operator,
		holders:   make(map[domain.Asset]string),
		approvals: make(map[string]map[string]struct{}),
	}
}

// NewCustodyService returns the registry as the custody port.
func NewCustodyService(operator string) ports.CustodyService {
	return NewRegistry(operator)
}

func (r *Registry) Mint(asset domain.Asset, owner string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if holder, ok := r.holders[asset]; ok {
		return fmt.Errorf("asset %s already minted to %s", asset, holder)
	}
	r.holders[asset] = owner
	return nil
}

func (r *Registry) SetApprovalForAll(owner, operator string, approved bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if approved {
		if _, ok := r.approvals[owner]; !ok {
			r.approvals[owner] = make(map[string]struct{})
		}
		r.approvals[owner][operator] = struct{}{}
		return
	}
	delete(r.approvals[owner], operator)
}

func (r *Registry) TransferCustody(
	_ context.Context, asset domain.Asset, from, to string,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	holder, ok := r.holders[asset]
	if !ok {
		return fmt.Errorf("unknown asset %s", asset)
	}
	if holder != from {
		return fmt.Errorf("asset %s is held by %s, not %s", asset, holder, from)
	}
	if from != r.operator && !r.isApproved(from, r.operator) {
		return fmt.Errorf("%s has not granted transfer capability to %s", from, r.operator)
	}

	r.holders[asset] = to
	return nil
}

func (r *Registry) CurrentHolder(_ context.Context, asset domain.Asset) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	holder, ok := r.holders[asset]
	if !ok {
		return "", fmt.Errorf("unknown asset %s", asset)
	}
	return holder, nil
}

func (r *Registry) isApproved(owner, operator string) bool {
	_, ok := r.approvals[owner][operator]
	return ok
}
