package domain

// Role 成员在房间中的角色
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Member 表示一个参与者。它只记录所在房间的 ID，不持有 Room 引用。
type Member struct {
	ID           string   `json:"userId"`
	Name         string   `json:"name"`
	Avatar       string   `json:"avatar"`
	RoomID       string   `json:"-"`
	Role         Role     `json:"role"`
	Ready        bool     `json:"ready"`
	Acknowledged bool     `json:"-"`
	Color        Color    `json:"color"`
	Items        []string `json:"items"`
}

// NewMember 创建一个尚未加入房间的成员
func NewMember(id, name, avatar string) *Member {
	return &Member{ID: id, Name: name, Avatar: avatar, Role: RoleGuest, Items: []string{}}
}

// Join 加入房间并获得颜色
func (m *Member) Join(roomID string, color Color) {
	m.RoomID = roomID
	m.Color = color
	m.Role = RoleGuest
	m.Ready = false
	m.Acknowledged = false
	m.Items = []string{}
}

// Host 以房主身份加入。房主默认已准备。
func (m *Member) Host(roomID string, color Color) {
	m.Join(roomID, color)
	m.Promote()
}

// Promote 把成员提升为房主
func (m *Member) Promote() {
	m.Role = RoleHost
	m.Ready = true
}

// MarkReady 幂等
func (m *Member) MarkReady() { m.Ready = true }

// Leave 离开房间并归还颜色。已占领的物品保留用于结算。
func (m *Member) Leave() Color {
	c := m.Color
	m.RoomID = ""
	m.Color = ""
	return c
}

func (m *Member) IsHost() bool { return m.Role == RoleHost }

// AddItem 记录成员占领的物品
func (m *Member) AddItem(name string) { m.Items = append(m.Items, name) }

func (m *Member) ItemCount() int { return len(m.Items) }
