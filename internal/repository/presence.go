package repository

import "context"

// PresenceRepository 记录在线玩家，用于重复登录检测和在线人数统计。
// 可以由 Redis 实现以便多个实例共享，也可以是进程内实现。
type PresenceRepository interface {
	// Register 登记 sessionID 使用 name 登录。
	// 同一个 session 或同一个名字已在线时返回 ErrDuplicateEntry。
	Register(ctx context.Context, sessionID, name string) error

	// Unregister 注销 session，不存在时不报错。
	Unregister(ctx context.Context, sessionID string) error

	// Count 返回当前在线人数。
	Count(ctx context.Context) (int, error)
}
