package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// maxCodeSpace 预先生成的房间码数量上限
const maxCodeSpace = 1 << 20

var ErrCodesExhausted = errors.New("no room code available")

// CodeGenerator 分配和回收房间码
type CodeGenerator interface {
	Acquire() (string, error)
	Release(code string)
}

// CodePool 预先生成 alphabet^length 的全部组合，随机取出，释放后放回。
type CodePool struct {
	mu    sync.Mutex
	free  []string
	inUse map[string]bool
	rng   *rand.Rand
}

// NewCodePool 创建房间码池
func NewCodePool(alphabet string, length int, rng *rand.Rand) (*CodePool, error) {
	symbols := []rune(alphabet)
	if len(symbols) == 0 || length <= 0 {
		return nil, fmt.Errorf("invalid room code alphabet %q or length %d", alphabet, length)
	}
	size := 1
	for i := 0; i < length; i++ {
		size *= len(symbols)
		if size > maxCodeSpace {
			return nil, fmt.Errorf("room code space %d^%d exceeds %d", len(symbols), length, maxCodeSpace)
		}
	}

	codes := make([]string, 0, size)
	for _, s := range symbols {
		codes = append(codes, string(s))
	}
	for i := 1; i < length; i++ {
		next := make([]string, 0, len(codes)*len(symbols))
		for _, prefix := range codes {
			for _, s := range symbols {
				next = append(next, prefix+string(s))
			}
		}
		codes = next
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CodePool{free: codes, inUse: make(map[string]bool), rng: rng}, nil
}

func (p *CodePool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return "", ErrCodesExhausted
	}
	i := p.rng.Intn(len(p.free))
	code := p.free[i]
	last := len(p.free) - 1
	p.free[i] = p.free[last]
	p.free = p.free[:last]
	p.inUse[code] = true
	return code, nil
}

func (p *CodePool) Release(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inUse[code] {
		return
	}
	delete(p.inUse, code)
	p.free = append(p.free, code)
}

// Available 剩余可用数量
func (p *CodePool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
