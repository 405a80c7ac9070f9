package domain

// Color 成员在房间里的颜色槽位
type Color string

const (
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
)

// Palette 房间的剩余颜色。从末尾取，归还时放回末尾。
type Palette struct {
	free []Color
}

// NewPalette 创建调色板，不传参数时使用默认的三种颜色
func NewPalette(colors ...Color) *Palette {
	if len(colors) == 0 {
		colors = []Color{ColorYellow, ColorBlue, ColorRed}
	}
	return &Palette{free: append([]Color(nil), colors...)}
}

// Take 取出一个空闲颜色
func (p *Palette) Take() (Color, bool) {
	if len(p.free) == 0 {
		return "", false
	}
	c := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return c, true
}

// Release 归还颜色。空值或已在调色板中的颜色会被忽略。
func (p *Palette) Release(c Color) {
	if c == "" {
		return
	}
	for _, f := range p.free {
		if f == c {
			return
		}
	}
	p.free = append(p.free, c)
}

func (p *Palette) Remaining() int { return len(p.free) }
