package domain

import (
	"errors"
	"math/rand"
	"strings"
)

var (
	// ErrItemOccupied 物品已被占领。仲裁逻辑不应让这种情况发生。
	ErrItemOccupied = errors.New("item already occupied")
	// ErrItemUnknown 物品不在本回合的物品池中
	ErrItemUnknown = errors.New("item not in pool")
)

// ItemPool 持有一回合固定的物品样本及其占用状态。
// 本身不加锁，由 Room 的互斥锁保护。
type ItemPool struct {
	items []Item
}

// Sample 从目录中无放回地随机抽取 n 个物品，n 超过目录大小时截断。
func Sample(catalog []CatalogEntry, n int, rng *rand.Rand) *ItemPool {
	if n > len(catalog) {
		n = len(catalog)
	}
	if n < 0 {
		n = 0
	}
	var perm []int
	if rng != nil {
		perm = rng.Perm(len(catalog))
	} else {
		perm = rand.Perm(len(catalog))
	}

	// 只取前 n 个下标，再按目录顺序排列，保证 Unoccupied 的顺序稳定
	picked := make([]bool, len(catalog))
	for _, idx := range perm[:n] {
		picked[idx] = true
	}
	items := make([]Item, 0, n)
	for i, e := range catalog {
		if picked[i] {
			items = append(items, Item{Name: strings.ToLower(e.Name), Icon: e.Icon})
		}
	}
	return &ItemPool{items: items}
}

// Unoccupied 按目录顺序返回尚未被占领的物品
func (p *ItemPool) Unoccupied() []Item {
	free := make([]Item, 0, len(p.items))
	for _, it := range p.items {
		if !it.Occupied {
			free = append(free, it)
		}
	}
	return free
}

// Claim 将物品标记为被 claimantID 占领，并记录证据照片。
func (p *ItemPool) Claim(name, claimantID, evidence string) error {
	name = strings.ToLower(name)
	for i := range p.items {
		if p.items[i].Name != name {
			continue
		}
		if p.items[i].Occupied {
			return ErrItemOccupied
		}
		p.items[i].Occupied = true
		p.items[i].ClaimantID = claimantID
		p.items[i].Evidence = evidence
		return nil
	}
	return ErrItemUnknown
}

// Find 按名称查找物品
func (p *ItemPool) Find(name string) (Item, bool) {
	name = strings.ToLower(name)
	for _, it := range p.items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

// Items 返回物品的副本
func (p *ItemPool) Items() []Item {
	return append([]Item(nil), p.items...)
}

func (p *ItemPool) Len() int { return len(p.items) }
