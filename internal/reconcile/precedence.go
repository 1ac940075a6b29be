package reconcile

import (
	"sort"

	"github.com/yourusername/racefuse/internal/models"
)

// Precedence is the explicit provider priority order used for field
// population. The backbone provider decides race membership and is always
// processed first; the rank order decides which provider may overwrite a
// field another provider already populated.
type Precedence struct {
	backbone models.Provider
	rank     map[models.Provider]int
	order    []models.Provider
}

// NewPrecedence builds a precedence from the configured order. The backbone
// is ranked first when the list does not mention it.
func NewPrecedence(backbone models.Provider, order []models.Provider) *Precedence {
	p := &Precedence{
		backbone: backbone,
		rank:     make(map[models.Provider]int, len(order)+1),
	}
	if !contains(order, backbone) {
		p.add(backbone)
	}
	for _, provider := range order {
		p.add(provider)
	}
	return p
}

func (p *Precedence) add(provider models.Provider) {
	if _, ok := p.rank[provider]; ok {
		return
	}
	p.rank[provider] = len(p.order)
	p.order = append(p.order, provider)
}

// Backbone returns the provider that defines race membership
func (p *Precedence) Backbone() models.Provider {
	return p.backbone
}

// Order returns the configured priority order, highest first
func (p *Precedence) Order() []models.Provider {
	out := make([]models.Provider, len(p.order))
	copy(out, p.order)
	return out
}

// Rank returns the position of provider in the order. Unknown providers rank
// below every configured one.
func (p *Precedence) Rank(provider models.Provider) int {
	if r, ok := p.rank[provider]; ok {
		return r
	}
	return len(p.order)
}

// Outranks reports whether a may overwrite a value written by b
func (p *Precedence) Outranks(a, b models.Provider) bool {
	return p.Rank(a) < p.Rank(b)
}

// processingOrder returns the providers present in records: the backbone
// first, then the others by rank, with unknown providers sorted by name last.
func (p *Precedence) processingOrder(present map[models.Provider]struct{}) []models.Provider {
	out := make([]models.Provider, 0, len(present))
	for provider := range present {
		if provider != p.backbone {
			out = append(out, provider)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := p.Rank(out[i]), p.Rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	if _, ok := present[p.backbone]; ok {
		out = append([]models.Provider{p.backbone}, out...)
	}
	return out
}

func contains(list []models.Provider, v models.Provider) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
