package domain

import (
	"math"
	"strings"
)

const (
	DefaultMinScore  = 0.5
	DefaultMinExtent = 0.3
)

// Thresholds 是判定检测结果是否有效的策略参数
type Thresholds struct {
	MinScore  float64 // 置信度必须严格大于该值
	MinExtent float64 // 水平或垂直跨度之一必须严格大于该值
}

// DefaultThresholds 返回默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{MinScore: DefaultMinScore, MinExtent: DefaultMinExtent}
}

// Arbiter 根据检测结果决定可以占领哪些物品。它是纯函数，没有副作用，
// 调用方 (Room) 负责把 读取空闲物品 -> Decide -> Claim 放在同一把锁里。
type Arbiter struct {
	Thresholds Thresholds
}

func NewArbiter(t Thresholds) Arbiter {
	return Arbiter{Thresholds: t}
}

// Decide 返回本次提交可以占领的物品名称（小写，按首次出现顺序，去重）
func (a Arbiter) Decide(unoccupied []Item, detections []Detection) []string {
	free := make(map[string]bool, len(unoccupied))
	for _, it := range unoccupied {
		free[strings.ToLower(it.Name)] = true
	}

	seen := make(map[string]bool)
	claims := make([]string, 0)
	for _, d := range detections {
		label := strings.ToLower(strings.TrimSpace(d.Label))
		if !free[label] || seen[label] {
			continue
		}
		if !(d.Score > a.Thresholds.MinScore) || math.IsInf(d.Score, 0) {
			continue
		}
		dx, dy, ok := d.Extent()
		if !ok {
			continue
		}
		// 物体太小（太远）的检测更可能是误判
		if !(dx > a.Thresholds.MinExtent || dy > a.Thresholds.MinExtent) {
			continue
		}
		seen[label] = true
		claims = append(claims, label)
	}
	return claims
}
