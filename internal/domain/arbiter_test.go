package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

func items(names ...string) []domain.Item {
	out := make([]domain.Item, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Item{Name: n})
	}
	return out
}

func TestArbiter_Decide(t *testing.T) {
	arb := domain.NewArbiter(domain.DefaultThresholds())
	big := domain.Rect(0.1, 0.1, 0.8, 0.8)

	tests := []struct {
		name       string
		unoccupied []domain.Item
		detections []domain.Detection
		want       []string
	}{
		{
			name:       "高置信度且足够大的检测可以占领",
			unoccupied: items("book", "spoon"),
			detections: []domain.Detection{{Label: "book", Score: 0.9, Box: big}},
			want:       []string{"book"},
		},
		{
			name:       "置信度 0.4 不通过",
			unoccupied: items("book"),
			detections: []domain.Detection{{Label: "book", Score: 0.4, Box: big}},
			want:       []string{},
		},
		{
			name:       "置信度恰好等于阈值不通过",
			unoccupied: items("book"),
			detections: []domain.Detection{{Label: "book", Score: 0.5, Box: big}},
			want:       []string{},
		},
		{
			name:       "只有一个方向超过跨度也可以",
			unoccupied: items("fork"),
			detections: []domain.Detection{{Label: "fork", Score: 0.7, Box: domain.Rect(0.1, 0.1, 0.2, 0.9)}},
			want:       []string{"fork"},
		},
		{
			name:       "两个方向都太小不通过",
			unoccupied: items("fork"),
			detections: []domain.Detection{{Label: "fork", Score: 0.7, Box: domain.Rect(0.1, 0.1, 0.3, 0.3)}},
			want:       []string{},
		},
		{
			name:       "顶点不足 4 个不通过",
			unoccupied: items("fork"),
			detections: []domain.Detection{{Label: "fork", Score: 0.7, Box: []domain.Vertex{{X: 0, Y: 0}, {X: 1, Y: 1}}}},
			want:       []string{},
		},
		{
			name:       "已被占领或不在物品池中的物品不通过",
			unoccupied: items("book"),
			detections: []domain.Detection{{Label: "car", Score: 0.9, Box: big}},
			want:       []string{},
		},
		{
			name:       "置信度为 NaN 或 Inf 不通过",
			unoccupied: items("book", "fork"),
			detections: []domain.Detection{
				{Label: "book", Score: math.NaN(), Box: domain.Rect(0, 0, 0.5, 0.5)},
				{Label: "fork", Score: math.Inf(1), Box: big},
			},
			want: []string{},
		},
		{
			name:       "坐标为 NaN 或 Inf 不通过",
			unoccupied: items("book", "fork", "spoon"),
			detections: []domain.Detection{
				{Label: "fork", Score: 0.9, Box: []domain.Vertex{
					{X: math.NaN(), Y: math.NaN()}, {X: math.NaN(), Y: math.NaN()},
					{X: math.NaN(), Y: math.NaN()}, {X: math.NaN(), Y: math.NaN()},
				}},
				{Label: "book", Score: 0.9, Box: domain.Rect(0, 0, math.Inf(1), 0.1)},
				{Label: "spoon", Score: 0.9, Box: domain.Rect(0.1, 0.1, 0.2, math.NaN())},
			},
			want: []string{},
		},
		{
			name:       "标签大小写不敏感且去重",
			unoccupied: items("book", "spoon"),
			detections: []domain.Detection{
				{Label: "Spoon", Score: 0.9, Box: big},
				{Label: "BOOK", Score: 0.8, Box: big},
				{Label: "spoon", Score: 0.95, Box: big},
			},
			want: []string{"spoon", "book"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, arb.Decide(tt.unoccupied, tt.detections))
		})
	}
}

func TestDetection_Extent(t *testing.T) {
	d := domain.Detection{Box: []domain.Vertex{{X: 0.5, Y: 0.2}, {X: 0.1, Y: 0.9}, {X: 0.7, Y: 0.4}, {X: 0.3, Y: 0.3}}}
	dx, dy, ok := d.Extent()
	assert.True(t, ok)
	assert.InDelta(t, 0.6, dx, 1e-9)
	assert.InDelta(t, 0.7, dy, 1e-9)
}

func TestDetection_Extent_NonFinite(t *testing.T) {
	d := domain.Detection{Box: domain.Rect(0, 0, math.NaN(), 0.5)}
	_, _, ok := d.Extent()
	assert.False(t, ok)
}
