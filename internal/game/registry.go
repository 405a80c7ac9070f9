package game

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Registry 管理所有活跃房间。锁只保护 map 本身，调用 Room 的方法时不持有 Registry 的锁。
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	byCode   map[string]string
	codes    CodeGenerator
	settings Settings
	deps     Deps
}

// NewRegistry 创建注册表
func NewRegistry(codes CodeGenerator, settings Settings, deps Deps) *Registry {
	if codes == nil {
		panic("CodeGenerator cannot be nil for Registry")
	}
	if deps.Broadcaster == nil {
		panic("Broadcaster cannot be nil for Registry")
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		byCode:   make(map[string]string),
		codes:    codes,
		settings: settings,
		deps:     deps,
	}
}

// Create 分配 ID 和房间码并注册一个空房间
func (g *Registry) Create(opts Options) (*Room, error) {
	code, err := g.codes.Acquire()
	if err != nil {
		return nil, err
	}
	var hash []byte
	if opts.Password != "" {
		hash, err = bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			g.codes.Release(code)
			return nil, fmt.Errorf("bcrypt: hash room password: %w", err)
		}
	}
	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = "Room " + code
	}

	room := NewRoom(uuid.NewString(), code, opts, hash, g.settings, g.deps)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rooms[room.ID()]; exists {
		g.codes.Release(code)
		return nil, ErrRoomExists
	}
	g.rooms[room.ID()] = room
	g.byCode[code] = room.ID()
	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID(),
		"room_code": code,
		"capacity":  room.capacity,
		"locked":    len(hash) > 0,
	}).Info("Room created")
	return room, nil
}

// Lookup 按 ID 查找房间
func (g *Registry) Lookup(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	return r, ok
}

// LookupByCode 按房间码查找房间
func (g *Registry) LookupByCode(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.byCode[code]
	if !ok {
		return nil, false
	}
	r, ok := g.rooms[id]
	return r, ok
}

// Delete 注销并关闭房间，回收房间码。房间不存在时什么也不做。
func (g *Registry) Delete(id string) {
	g.mu.Lock()
	room, ok := g.rooms[id]
	if ok {
		delete(g.rooms, id)
		delete(g.byCode, room.Code())
	}
	g.mu.Unlock()
	if !ok {
		return
	}

	room.Close()
	g.codes.Release(room.Code())
	logrus.WithFields(logrus.Fields{"room_id": id, "room_code": room.Code()}).Info("Room deleted")
}

// Len 当前房间数量
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// List 返回所有房间的摘要，按创建时间排序
func (g *Registry) List() []Summary {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].createdAt.Equal(rooms[j].createdAt) {
			return rooms[i].code < rooms[j].code
		}
		return rooms[i].createdAt.Before(rooms[j].createdAt)
	})
	summaries := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		if r.Closed() {
			continue
		}
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// Sweep 删除已关闭的房间，以及空闲超过 maxIdle 的房间。返回删除的数量。
func (g *Registry) Sweep(now time.Time, maxIdle time.Duration) int {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	removed := 0
	for _, r := range rooms {
		if !r.Closed() {
			since, idle := r.IdleSince()
			if !idle || now.Sub(since) < maxIdle {
				continue
			}
			if notes := r.Expire(); len(notes) > 0 {
				g.deps.Broadcaster.Deliver(notes)
			}
		}
		g.Delete(r.ID())
		removed++
	}
	return removed
}

// Shutdown 关闭所有房间
func (g *Registry) Shutdown() {
	g.mu.Lock()
	rooms := g.rooms
	g.rooms = make(map[string]*Room)
	g.byCode = make(map[string]string)
	g.mu.Unlock()
	for _, r := range rooms {
		r.Close()
		g.codes.Release(r.Code())
	}
}
