package domain

import "math"

// Vertex 是归一化坐标 (0..1) 下的一个点
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection 识别服务针对一张照片返回的单个检测结果
type Detection struct {
	Label string   `json:"label"`
	Score float64  `json:"score"`
	Box   []Vertex `json:"box"`
}

// Extent 返回包围框的水平和垂直跨度。ok 为 false 表示顶点不足 4 个或坐标不是有限值。
func (d Detection) Extent() (dx, dy float64, ok bool) {
	if len(d.Box) < 4 {
		return 0, 0, false
	}
	for _, v := range d.Box {
		if !finite(v.X) || !finite(v.Y) {
			return 0, 0, false
		}
	}
	minX, maxX := d.Box[0].X, d.Box[0].X
	minY, maxY := d.Box[0].Y, d.Box[0].Y
	for _, v := range d.Box[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	return maxX - minX, maxY - minY, true
}

// Rect 按 左上、右上、右下、左下 的顺序构造一个矩形包围框，方便测试和静态识别器使用
func Rect(x0, y0, x1, y1 float64) []Vertex {
	return []Vertex{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
