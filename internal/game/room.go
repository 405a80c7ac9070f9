package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// Broadcaster 投递房间产生的通知。实现方必须是非阻塞的，Room 可能在持锁时调用它。
type Broadcaster interface {
	Deliver(notifications []domain.Notification)
}

// Settings 每个回合的规则参数
type Settings struct {
	LimitTime      int           // 回合时长，单位为 tick
	TickInterval   time.Duration // 每个 tick 的间隔
	ClearItemCount int           // 占领数量 >= 该值即通关
	ItemsPerRound  int           // 每回合从目录中抽取的物品数
	EvidenceSlots  int           // 结算时每个成员证据照片的最少数量
	Thresholds     domain.Thresholds
	Catalog        []domain.CatalogEntry
}

// DefaultSettings 默认规则
func DefaultSettings() Settings {
	return Settings{
		LimitTime:      60,
		TickInterval:   time.Second,
		ClearItemCount: 3,
		ItemsPerRound:  len(domain.DefaultCatalog),
		EvidenceSlots:  3,
		Thresholds:     domain.DefaultThresholds(),
		Catalog:        domain.DefaultCatalog,
	}
}

// Options 创建房间时由房主提供的参数
type Options struct {
	Name      string
	Icon      string
	Password  string
	Capacity  int
	Certified bool
}

// Deps Room 的外部依赖
type Deps struct {
	Broadcaster Broadcaster
	Ticker      TickerCreator
	Rand        *rand.Rand // 非并发安全，为空时每个房间各自创建
	Now        func() time.Time

	// OnResult 回合结束的房间关闭时以最终结果异步调用，可以为空
	OnResult func(res domain.Result)
}

// Room 一个房间及其当前回合。所有字段由 mu 保护。
type Room struct {
	mu sync.Mutex

	id           string
	code         string
	name         string
	icon         string
	passwordHash []byte
	certified    bool
	capacity     int
	createdAt    time.Time

	state    domain.RoomState
	palette  *domain.Palette
	hostID   string
	members  []*domain.Member // 当前成员，按加入顺序
	roster   []*domain.Member // 回合开始时的全部成员，用于结算
	left     map[string]*domain.Member // 回合中途离开的成员，保存离开时的快照
	pool     *domain.ItemPool
	arbiter  domain.Arbiter
	settings Settings

	round      int
	remaining  int
	deadline   time.Time
	finishedAt time.Time
	timer      *countdown
	result     *domain.Result
	closed     bool

	broadcaster Broadcaster
	ticker      TickerCreator
	rng         *rand.Rand
	now         func() time.Time
	onResult    func(res domain.Result)
	log         *logrus.Entry
}

// NewRoom 创建处于 WAITING 状态的空房间。passwordHash 为空表示不设密码。
func NewRoom(id, code string, opts Options, passwordHash []byte, settings Settings, deps Deps) *Room {
	if deps.Broadcaster == nil {
		panic("Broadcaster cannot be nil for Room")
	}
	if deps.Ticker == nil {
		deps.Ticker = NewTickerCreator()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	palette := domain.NewPalette()
	capacity := opts.Capacity
	// 每个成员都要有不同的颜色，容量不能超过调色板大小
	if capacity <= 0 || capacity > palette.Remaining() {
		capacity = palette.Remaining()
	}
	if settings.EvidenceSlots <= 0 {
		settings.EvidenceSlots = settings.ClearItemCount
	}
	return &Room{
		id:           id,
		code:         code,
		name:         opts.Name,
		icon:         opts.Icon,
		passwordHash: passwordHash,
		certified:    opts.Certified,
		capacity:     capacity,
		createdAt:    deps.Now(),
		state:        domain.StateWaiting,
		palette:      palette,
		members:      make([]*domain.Member, 0, capacity),
		left:         make(map[string]*domain.Member),
		arbiter:      domain.NewArbiter(settings.Thresholds),
		settings:     settings,
		broadcaster:  deps.Broadcaster,
		ticker:       deps.Ticker,
		rng:          deps.Rand,
		now:          deps.Now,
		onResult:     deps.OnResult,
		log:          logrus.WithFields(logrus.Fields{"room_id": id, "room_code": code}),
	}
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Code() string { return r.code }

// State 当前状态
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Closed 房间是否已被销毁，销毁后注册表应将其删除
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// AllReady 当前所有成员是否都已准备
func (r *Room) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allReadyLocked()
}

func (r *Room) allReadyLocked() bool {
	for _, m := range r.members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// Host 房主加入空房间
func (r *Room) Host(m *domain.Member) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	if r.state != domain.StateWaiting || len(r.members) > 0 {
		return nil, domain.ErrInvalidState
	}
	if m.RoomID != "" {
		return nil, domain.ErrAlreadyInRoom
	}
	color, ok := r.palette.Take()
	if !ok {
		return nil, domain.ErrRoomFull.With("numMembers", r.capacity)
	}
	m.Host(r.id, color)
	r.members = append(r.members, m)
	r.hostID = m.ID
	r.log.WithField("member_id", m.ID).Info("Host joined room")

	return []domain.Notification{
		r.notify(domain.EventRoomJoined, domain.ScopeSender, []string{m.ID}, r.summaryLocked()),
		r.rosterLocked(),
		r.readyLocked(),
	}, nil
}

// Join 成员加入等待中的房间
func (r *Room) Join(m *domain.Member, password string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logCtx := r.log.WithField("member_id", m.ID)
	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	if r.state != domain.StateWaiting {
		return nil, domain.ErrInvalidState
	}
	if m.RoomID != "" || r.indexLocked(m.ID) >= 0 {
		return nil, domain.ErrAlreadyInRoom
	}
	if len(r.members) >= r.capacity {
		logCtx.Warn("Join rejected: room full")
		return nil, domain.ErrRoomFull.With("numMembers", r.capacity, "currentMembers", len(r.members))
	}
	if len(r.passwordHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)); err != nil {
			logCtx.Warn("Join rejected: wrong password")
			return nil, domain.ErrWrongPassword
		}
	}
	color, ok := r.palette.Take()
	if !ok {
		// 容量检查已保证不会发生
		logCtx.Error("Palette exhausted although capacity allows another member")
		return nil, domain.ErrRoomFull.With("numMembers", r.capacity, "currentMembers", len(r.members))
	}
	m.Join(r.id, color)
	r.members = append(r.members, m)
	logCtx.WithField("color", color).Info("Member joined room")

	return []domain.Notification{
		r.notify(domain.EventRoomJoined, domain.ScopeSender, []string{m.ID}, r.summaryLocked()),
		r.rosterLocked(),
		r.readyLocked(),
	}, nil
}

// Ready 标记成员已准备，幂等
func (r *Room) Ready(memberID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	m := r.memberLocked(memberID)
	if m == nil {
		return nil, domain.ErrNotInRoom
	}
	if r.state != domain.StateWaiting {
		return nil, domain.ErrInvalidState
	}
	m.MarkReady()
	return []domain.Notification{r.readyLocked()}, nil
}

// Leave 成员离开。任何状态下都可以离开；回合中离开的成员保留成绩但不再接收通知。
func (r *Room) Leave(memberID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	idx := r.indexLocked(memberID)
	if idx < 0 {
		return nil, domain.ErrNotInRoom
	}
	m := r.members[idx]
	if r.state != domain.StateWaiting {
		r.left[m.ID] = snapshot(m)
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	r.palette.Release(m.Leave())
	logCtx := r.log.WithFields(logrus.Fields{"member_id": m.ID, "state": r.state})
	logCtx.Info("Member left room")

	if len(r.members) == 0 {
		r.closeLocked()
		logCtx.Info("Last member left, room closed")
		return nil, nil
	}

	// 房主离开时由最早加入的成员接任
	if m.ID == r.hostID {
		next := r.members[0]
		next.Promote()
		r.hostID = next.ID
		logCtx.WithField("new_host_id", next.ID).Info("Host left, promoted next member")
	}

	notes := []domain.Notification{
		r.notify(domain.EventMemberLeft, domain.ScopeOthers, r.memberIDsLocked(), map[string]any{
			"userId": m.ID,
			"name":   m.Name,
		}),
		r.rosterLocked(),
	}
	if r.state == domain.StateWaiting {
		notes = append(notes, r.readyLocked())
	}
	if r.state.Terminal() && r.allAcknowledgedLocked() {
		notes = append(notes, r.closeNoticeLocked("acknowledged"))
		r.closeLocked()
	}
	return notes, nil
}

// Start 房主开始回合：抽取物品、启动倒计时、广播物品目录
func (r *Room) Start(memberID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	if r.memberLocked(memberID) == nil {
		return nil, domain.ErrNotInRoom
	}
	if memberID != r.hostID {
		return nil, domain.ErrNotHost
	}
	if !r.state.CanTransition(domain.StatePlaying) {
		return nil, domain.ErrInvalidState
	}
	if !r.allReadyLocked() {
		return nil, domain.ErrNotAllReady
	}

	r.pool = domain.Sample(r.settings.Catalog, r.settings.ItemsPerRound, r.rng)
	r.state = domain.StatePlaying
	r.round++
	r.remaining = r.settings.LimitTime
	r.deadline = r.now().Add(time.Duration(r.settings.LimitTime) * r.settings.TickInterval)
	r.roster = append([]*domain.Member(nil), r.members...)
	r.left = make(map[string]*domain.Member)
	r.result = nil

	round := r.round
	r.timer = startCountdown(r.ticker, r.settings.TickInterval, func() bool {
		return r.tick(round)
	})
	r.log.WithFields(logrus.Fields{
		"round":      round,
		"items":      r.pool.Len(),
		"limit_time": r.settings.LimitTime,
	}).Info("Round started")

	items := make([]map[string]string, 0, r.pool.Len())
	for _, it := range r.pool.Items() {
		items = append(items, map[string]string{"name": it.Name, "icon": it.Icon})
	}
	recipients := r.memberIDsLocked()
	return []domain.Notification{
		r.notify(domain.EventRoundStarted, domain.ScopeRoom, recipients, map[string]any{
			"items":     items,
			"limitTime": r.settings.LimitTime,
			"clearAt":   r.settings.ClearItemCount,
			"deadline":  r.deadline.UnixMilli(),
		}),
		r.notify(domain.EventRoundTick, domain.ScopeRoom, recipients, map[string]any{"times": r.remaining}),
	}, nil
}

// tick 由倒计时 goroutine 调用。返回 false 时倒计时结束。
func (r *Room) tick(round int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 房间已销毁或已进入下一状态时不再修改任何状态
	if r.closed || r.round != round || r.state != domain.StatePlaying {
		return false
	}
	r.remaining--
	if r.remaining < 0 {
		r.remaining = 0
	}
	recipients := r.memberIDsLocked()
	notes := []domain.Notification{
		r.notify(domain.EventRoundTick, domain.ScopeRoom, recipients, map[string]any{"times": r.remaining}),
	}
	if r.remaining > 0 {
		r.broadcaster.Deliver(notes)
		return true
	}

	finishNotes, err := r.finishLocked(domain.StateTimeOver)
	if err != nil {
		r.log.WithError(err).Error("Failed to finish round on time over")
	}
	r.broadcaster.Deliver(append(notes, finishNotes...))
	return false
}

// Submit 为一次照片提交做占领仲裁。读取空闲物品、仲裁、占领在同一把锁内完成，
// 因此同一物品只会有一次提交看到它是空闲的。
func (r *Room) Submit(memberID, evidence string, detections []domain.Detection) ([]string, []domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, domain.ErrRoomNotFound
	}
	// 识别调用是异步的，返回时成员可能已经离开
	m := r.memberLocked(memberID)
	if m == nil {
		return nil, nil, domain.ErrNotInRoom
	}
	// 超时后的提交仍计入成绩，但不会再触发通关
	if r.state != domain.StatePlaying && r.state != domain.StateTimeOver {
		return nil, nil, domain.ErrInvalidState
	}
	logCtx := r.log.WithFields(logrus.Fields{"member_id": memberID, "round": r.round, "state": r.state})

	candidates := r.arbiter.Decide(r.pool.Unoccupied(), detections)
	claimed := make([]string, 0, len(candidates))
	notes := make([]domain.Notification, 0, 2*len(candidates)+1)
	others := r.othersLocked(memberID)
	for _, name := range candidates {
		if err := r.pool.Claim(name, memberID, evidence); err != nil {
			logCtx.WithError(err).WithField("item", name).Error("Arbiter offered an item that cannot be claimed")
			continue
		}
		m.AddItem(name)
		claimed = append(claimed, name)
		// 超时后仍可计分，已缓存的结果失效
		r.result = nil
		notes = append(notes,
			r.notify(domain.EventClaimSucceeded, domain.ScopeSender, []string{memberID}, map[string]any{
				"playerName": m.Name,
				"objectName": name,
				"colorName":  m.Color,
				"count":      m.ItemCount(),
			}),
			r.notify(domain.EventClaimObserved, domain.ScopeOthers, others, map[string]any{
				"objectName": name,
				"otherName":  m.Name,
				"colorName":  m.Color,
			}),
		)
	}

	if len(claimed) == 0 {
		logCtx.WithField("detections", len(detections)).Debug("Submission produced no claim")
		notes = append(notes, r.notify(domain.EventClaimRejected, domain.ScopeSender, []string{memberID}, map[string]any{
			"detections": len(detections),
		}))
		return claimed, notes, nil
	}
	logCtx.WithFields(logrus.Fields{"claimed": claimed, "count": m.ItemCount()}).Info("Items claimed")

	if r.state == domain.StatePlaying && m.ItemCount() >= r.settings.ClearItemCount {
		finishNotes, err := r.finishLocked(domain.StateGameOver)
		if err != nil {
			logCtx.WithError(err).Error("Failed to finish round on clear")
		}
		notes = append(notes, finishNotes...)
	}
	return claimed, notes, nil
}

// Finish 结束回合，cause 只能是 TIME_OVER 或 GAME_OVER，且只会成功一次
func (r *Room) Finish(cause domain.RoomState) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	return r.finishLocked(cause)
}

func (r *Room) finishLocked(cause domain.RoomState) ([]domain.Notification, error) {
	if !cause.Terminal() || !r.state.CanTransition(cause) {
		return nil, domain.ErrInvalidState
	}
	r.state = cause
	r.finishedAt = r.now()
	r.timer.Cancel()
	r.log.WithFields(logrus.Fields{"round": r.round, "cause": cause}).Info("Round finished")

	event := domain.EventRoundTimedOut
	payload := map[string]any{"cause": cause}
	if cause == domain.StateGameOver {
		event = domain.EventRoundCleared
		if w := r.leaderLocked(); w != nil {
			payload["winnerId"] = w.ID
			payload["winnerName"] = w.Name
		}
	}
	return []domain.Notification{r.notify(event, domain.ScopeRoom, r.memberIDsLocked(), payload)}, nil
}

// Result 计算并缓存回合结果，只在终止状态下可用
func (r *Room) Result() (domain.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resultLocked()
}

func (r *Room) resultLocked() (domain.Result, error) {
	if !r.state.Terminal() {
		return domain.Result{}, ErrResultUnavailable
	}
	if r.result != nil {
		return *r.result, nil
	}
	participants := make([]domain.Participant, 0, len(r.roster))
	for _, m := range r.roster {
		if gone, ok := r.left[m.ID]; ok {
			participants = append(participants, domain.Participant{Member: gone, Left: true})
			continue
		}
		participants = append(participants, domain.Participant{Member: m})
	}
	res := domain.Result{
		RoomID:     r.id,
		RoomName:   r.name,
		Cause:      r.state,
		Members:    domain.ComputeResult(r.state, participants, r.pool, r.settings.EvidenceSlots),
		FinishedAt: r.finishedAt,
	}
	r.result = &res
	return res, nil
}

// ResultFor 把结果作为通知发给请求者
func (r *Room) ResultFor(memberID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	if r.memberLocked(memberID) == nil {
		return nil, domain.ErrNotInRoom
	}
	res, err := r.resultLocked()
	if err != nil {
		return nil, err
	}
	return []domain.Notification{r.notify(domain.EventResult, domain.ScopeSender, []string{memberID}, res)}, nil
}

// Acknowledge 成员确认已收到结果。所有当前成员确认后房间关闭。
func (r *Room) Acknowledge(memberID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	m := r.memberLocked(memberID)
	if m == nil {
		return nil, domain.ErrNotInRoom
	}
	if !r.state.Terminal() {
		return nil, ErrResultUnavailable
	}
	m.Acknowledged = true
	if !r.allAcknowledgedLocked() {
		return nil, nil
	}
	notes := []domain.Notification{r.closeNoticeLocked("acknowledged")}
	r.closeLocked()
	r.log.Info("All members acknowledged the result, room closed")
	return notes, nil
}

// Disband 房主解散房间，强制移除所有成员
func (r *Room) Disband(memberID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	if r.memberLocked(memberID) == nil {
		return nil, domain.ErrNotInRoom
	}
	if memberID != r.hostID {
		return nil, domain.ErrNotHost
	}
	recipients := r.memberIDsLocked()
	notes := make([]domain.Notification, 0, len(r.members)+1)
	for _, m := range r.members {
		notes = append(notes, r.notify(domain.EventMemberLeft, domain.ScopeRoom, recipients, map[string]any{
			"userId": m.ID,
			"name":   m.Name,
		}))
	}
	notes = append(notes, r.closeNoticeLocked("disbanded"))
	r.closeLocked()
	r.log.WithField("host_id", memberID).Info("Room disbanded by host")
	return notes, nil
}

// IdleSince 房间最后一次进入空闲状态的时间。回合进行中返回 false。
func (r *Room) IdleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.state == domain.StateWaiting:
		return r.createdAt, true
	case r.state.Terminal():
		return r.finishedAt, true
	default:
		return time.Time{}, false
	}
}

// Expire 关闭长时间无人处理的房间，并通知仍在房间里的成员
func (r *Room) Expire() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	notes := []domain.Notification{r.closeNoticeLocked("expired")}
	r.closeLocked()
	r.log.Info("Idle room expired")
	return notes
}

// Close 释放房间资源，可重复调用
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	// 结算前先缓存结果，成员离开后快照就不完整了
	if r.state.Terminal() {
		res, err := r.resultLocked()
		if err != nil {
			r.log.WithError(err).Warn("Failed to compute result before closing")
		} else if r.onResult != nil {
			go r.onResult(res)
		}
	}
	r.closed = true
	r.timer.Cancel()
	for _, m := range r.members {
		r.palette.Release(m.Leave())
	}
	r.members = nil
}

func snapshot(m *domain.Member) *domain.Member {
	cp := *m
	cp.Items = append([]string{}, m.Items...)
	return &cp
}

// MemberIDs 当前成员 ID
func (r *Room) MemberIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberIDsLocked()
}

// Member 返回成员的副本
func (r *Room) Member(memberID string) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.memberLocked(memberID)
	if m == nil {
		return domain.Member{}, false
	}
	return *snapshot(m), true
}

// Items 本回合物品的副本，回合开始前为空
func (r *Room) Items() []domain.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool == nil {
		return nil
	}
	return r.pool.Items()
}

// Summary 房间列表中展示的信息
type Summary struct {
	ID        string           `json:"roomId"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Icon      string           `json:"icon"`
	Members   string           `json:"members"`
	Number    int              `json:"number"`
	Capacity  int              `json:"numMembers"`
	Locked    bool             `json:"locked"`
	Certified bool             `json:"certified"`
	State     domain.RoomState `json:"state"`
	HostID    string           `json:"hostId"`
}

func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Room) summaryLocked() Summary {
	return Summary{
		ID:        r.id,
		Code:      r.code,
		Name:      r.name,
		Icon:      r.icon,
		Members:   fmt.Sprintf("%d/%d", len(r.members), r.capacity),
		Number:    len(r.members),
		Capacity:  r.capacity,
		Locked:    len(r.passwordHash) > 0,
		Certified: r.certified,
		State:     r.state,
		HostID:    r.hostID,
	}
}

type rosterEntry struct {
	UserID string       `json:"userId"`
	Name   string       `json:"name"`
	Avatar string       `json:"avatar"`
	IsHost bool         `json:"isHost"`
	Color  domain.Color `json:"color"`
	Ready  bool         `json:"ready"`
}

type rosterPayload struct {
	Summary
	List []rosterEntry `json:"list"`
}

func (r *Room) rosterLocked() domain.Notification {
	list := make([]rosterEntry, 0, len(r.members))
	for _, m := range r.members {
		list = append(list, rosterEntry{
			UserID: m.ID,
			Name:   m.Name,
			Avatar: m.Avatar,
			IsHost: m.ID == r.hostID,
			Color:  m.Color,
			Ready:  m.Ready,
		})
	}
	return r.notify(domain.EventRoomRoster, domain.ScopeRoom, r.memberIDsLocked(), rosterPayload{
		Summary: r.summaryLocked(),
		List:    list,
	})
}

type readyEntry struct {
	UserID string `json:"userId"`
	Ready  bool   `json:"isOk"`
}

func (r *Room) readyLocked() domain.Notification {
	entries := make([]readyEntry, 0, len(r.members))
	for _, m := range r.members {
		entries = append(entries, readyEntry{UserID: m.ID, Ready: m.Ready})
	}
	return r.notify(domain.EventReadyState, domain.ScopeRoom, r.memberIDsLocked(), map[string]any{
		"number":     len(r.members),
		"numMembers": r.capacity,
		"members":    entries,
		"isAllReady": r.allReadyLocked(),
	})
}

func (r *Room) closeNoticeLocked(reason string) domain.Notification {
	return r.notify(domain.EventRoomClosed, domain.ScopeRoom, r.memberIDsLocked(), map[string]any{
		"roomId": r.id,
		"reason": reason,
	})
}

func (r *Room) notify(event string, scope domain.Scope, recipients []string, payload any) domain.Notification {
	return domain.Notification{Event: event, Scope: scope, Recipients: recipients, Payload: payload}
}

func (r *Room) indexLocked(memberID string) int {
	for i, m := range r.members {
		if m.ID == memberID {
			return i
		}
	}
	return -1
}

func (r *Room) memberLocked(memberID string) *domain.Member {
	if i := r.indexLocked(memberID); i >= 0 {
		return r.members[i]
	}
	return nil
}

func (r *Room) memberIDsLocked() []string {
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		ids = append(ids, m.ID)
	}
	return ids
}

func (r *Room) othersLocked(memberID string) []string {
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m.ID != memberID {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func (r *Room) allAcknowledgedLocked() bool {
	for _, m := range r.members {
		if !m.Acknowledged {
			return false
		}
	}
	return true
}

// leaderLocked 当前占领数量最多的成员，数量相同时取先加入的
func (r *Room) leaderLocked() *domain.Member {
	var best *domain.Member
	for _, m := range r.roster {
		if best == nil || m.ItemCount() > best.ItemCount() {
			best = m
		}
	}
	return best
}

// IsRuleError 判断错误是否为需要返回给客户端的业务错误
func IsRuleError(err error) (*domain.RuleError, bool) {
	var re *domain.RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
