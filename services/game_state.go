package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/henryhehehe/puppywolf/models"
)

var (
	ErrPlayerNotFound  = errors.New("玩家不存在")
	ErrPlayerExists    = errors.New("玩家已在房间中")
	ErrRoomFull        = errors.New("房间已满")
	ErrGameInProgress  = errors.New("游戏正在进行中")
	ErrNotEnoughReady  = errors.New("所有玩家准备就绪后才能开始")
	ErrTooFewPlayers   = errors.New("玩家人数不足")
	ErrInvalidPhase    = errors.New("当前阶段无法执行该动作")
	ErrNotMayor        = errors.New("只有村长可以执行该动作")
	ErrMayorForbidden  = errors.New("村长不能执行该动作")
	ErrNotWerewolf     = errors.New("只有狼人可以在该阶段投票")
	ErrInvalidTarget   = errors.New("无效的目标玩家")
	ErrSelfVote        = errors.New("不能投票给自己")
	ErrInvalidWord     = errors.New("选择的词不在候选列表中")
	ErrEmptyGuess      = errors.New("猜词内容不能为空")
	ErrInvalidToken    = errors.New("无效的令牌类型")
	ErrNoMoreHints     = errors.New("没有更多可揭示的提示")
	ErrInvalidArgument = errors.New("无效的请求参数")
)

const maxGuessLength = 80

// GameState 单个房间的全部游戏状态
// 由房间控制器的事件循环独占读写，无需加锁
type GameState struct {
	RoomCode string
	Phase    models.GamePhase

	// 玩家按加入顺序排列，顺序即投票平票时的仲裁顺序
	Players []*models.Player

	SecretWord    string
	WordOptions   []string
	Difficulty    models.Difficulty
	NumWerewolves int
	TimeRemaining int
	TokensUsed    int
	HintsRevealed int
	Winner        models.Winner

	// TokenHistory 最新的令牌在最前
	TokenHistory []models.TokenAction
	// Guesses 按提交顺序追加，整轮保留
	Guesses []models.GuessEntry
	// votes 记录投票人到目标的映射，重复投票覆盖旧票
	votes map[string]string
	// villageVotes 投票阶段结束时的投票存档
	// 狼人指认阶段会复用 votes，终局结算成就以存档为准
	villageVotes map[string]string
}

// NewGameState 创建初始处于大厅阶段的游戏状态
func NewGameState(roomCode string) *GameState {
	return &GameState{
		RoomCode:     roomCode,
		Phase:        models.PhaseLobby,
		Players:      make([]*models.Player, 0),
		Difficulty:   models.DifficultyMedium,
		TokenHistory: make([]models.TokenAction, 0),
		Guesses:      make([]models.GuessEntry, 0),
		votes:        make(map[string]string),
	}
}

// FindPlayer 按ID查找玩家
func (gs *GameState) FindPlayer(id string) *models.Player {
	for _, p := range gs.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Mayor 返回当前村长，大厅阶段可能为空
func (gs *GameState) Mayor() *models.Player {
	for _, p := range gs.Players {
		if p.IsMayor {
			return p
		}
	}
	return nil
}

// AddPlayer 加入新玩家，仅大厅阶段允许
func (gs *GameState) AddPlayer(id, name, avatarURL string, isBot bool) (*models.Player, error) {
	if gs.Phase != models.PhaseLobby {
		return nil, ErrGameInProgress
	}
	if gs.FindPlayer(id) != nil {
		return nil, ErrPlayerExists
	}

	if avatarURL == "" {
		avatarURL = fmt.Sprintf(
			"https://api.dicebear.com/7.x/adventurer/svg?seed=%s&backgroundColor=b6e3f4,c0aede,d1d4f9,ffd5dc,ffdfbf",
			id,
		)
	}

	player := &models.Player{
		ID:        id,
		Name:      name,
		Role:      models.Villager,
		AvatarURL: avatarURL,
		IsBot:     isBot,
		IsReady:   false,
	}
	gs.Players = append(gs.Players, player)
	return player, nil
}

// RemovePlayer 移除玩家，返回是否找到
func (gs *GameState) RemovePlayer(id string) bool {
	for i, p := range gs.Players {
		if p.ID == id {
			gs.Players = append(gs.Players[:i], gs.Players[i+1:]...)
			delete(gs.votes, id)
			return true
		}
	}
	return false
}

// AllReady 检查是否所有玩家都已准备
func (gs *GameState) AllReady() bool {
	for _, p := range gs.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// HumanCount 统计真人玩家数量
func (gs *GameState) HumanCount() int {
	count := 0
	for _, p := range gs.Players {
		if !p.IsBot {
			count++
		}
	}
	return count
}

// numWerewolvesFor 按难度和人数推导狼人数量
// 始终保证 狼人数 <= 人数-2，给预言家和至少一名村民留出席位
func numWerewolvesFor(difficulty models.Difficulty, playerCount int) int {
	n := 1
	switch difficulty {
	case models.DifficultyEasy:
		if playerCount >= 8 {
			n = 2
		}
	case models.DifficultyHard:
		if playerCount >= 5 {
			n = 2
		}
		if playerCount >= 8 {
			n = 3
		}
	default:
		if playerCount >= 6 {
			n = 2
		}
	}
	if max := playerCount - 2; n > max {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}

// generateRolePool 生成角色池：狼人若干 + 预言家1名 + 其余村民
func generateRolePool(playerCount, numWerewolves int) []models.Role {
	roles := make([]models.Role, 0, playerCount)
	for i := 0; i < numWerewolves; i++ {
		roles = append(roles, models.Werewolf)
	}
	roles = append(roles, models.Seer)
	for len(roles) < playerCount {
		roles = append(roles, models.Villager)
	}
	return roles
}

// AssignRoles 洗牌分配角色并选出村长
func (gs *GameState) AssignRoles() {
	gs.NumWerewolves = numWerewolvesFor(gs.Difficulty, len(gs.Players))
	roles := generateRolePool(len(gs.Players), gs.NumWerewolves)
	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	// 村长优先从自愿者中随机产生，否则全体随机
	volunteers := make([]int, 0)
	for i, p := range gs.Players {
		if p.WantsMayor {
			volunteers = append(volunteers, i)
		}
	}
	var mayorIdx int
	if len(volunteers) > 0 {
		mayorIdx = volunteers[rand.Intn(len(volunteers))]
	} else {
		mayorIdx = rand.Intn(len(gs.Players))
	}

	for i, p := range gs.Players {
		p.Role = roles[i]
		p.IsMayor = i == mayorIdx
		p.VotesReceived = 0
		p.WantsMayor = false
	}
}

// ResetRoundFields 清空回合内字段，开新一轮前调用
func (gs *GameState) ResetRoundFields() {
	gs.SecretWord = ""
	gs.WordOptions = nil
	gs.TokensUsed = 0
	gs.HintsRevealed = 0
	gs.Winner = ""
	gs.TokenHistory = make([]models.TokenAction, 0)
	gs.Guesses = make([]models.GuessEntry, 0)
	gs.votes = make(map[string]string)
	gs.villageVotes = nil
}

// ResetToLobby 回到大厅：保留积分与成就，其余全部重置
func (gs *GameState) ResetToLobby() {
	gs.Phase = models.PhaseLobby
	gs.TimeRemaining = 0
	gs.ResetRoundFields()

	for _, p := range gs.Players {
		p.Role = models.Villager
		p.IsMayor = false
		p.IsReady = false
		p.WantsMayor = false
		p.VotesReceived = 0
	}
}

// RecordToken 追加一条令牌记录，最新的排在最前
func (gs *GameState) RecordToken(tokenType models.TokenType, targetPlayerID string) models.TokenAction {
	token := models.TokenAction{
		ID:             uuid.NewString(),
		Type:           tokenType,
		Timestamp:      time.Now().UnixMilli(),
		TargetPlayerID: targetPlayerID,
	}
	gs.TokenHistory = append([]models.TokenAction{token}, gs.TokenHistory...)
	gs.TokensUsed++
	return token
}

// RecordGuess 追加一条猜词记录
func (gs *GameState) RecordGuess(playerID, text string) models.GuessEntry {
	entry := models.GuessEntry{
		PlayerID:  playerID,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	gs.Guesses = append(gs.Guesses, entry)
	return entry
}

// LatestGuesserID 返回最近一次猜词的玩家ID
func (gs *GameState) LatestGuesserID() string {
	if len(gs.Guesses) == 0 {
		return ""
	}
	return gs.Guesses[len(gs.Guesses)-1].PlayerID
}

// CastVote 记录一票，同一玩家重复投票覆盖旧票
func (gs *GameState) CastVote(voterID, targetID string) {
	if old, ok := gs.votes[voterID]; ok {
		if p := gs.FindPlayer(old); p != nil && p.VotesReceived > 0 {
			p.VotesReceived--
		}
	}
	gs.votes[voterID] = targetID
	if p := gs.FindPlayer(targetID); p != nil {
		p.VotesReceived++
	}
}

// ArchiveVillageVotes 存档投票阶段的投票去向，进入狼人指认阶段前调用
func (gs *GameState) ArchiveVillageVotes() {
	archived := make(map[string]string, len(gs.votes))
	for voter, target := range gs.votes {
		archived[voter] = target
	}
	gs.villageVotes = archived
}

// VillageVoteFor 返回玩家在投票阶段投给的目标
// 已存档时读存档，否则读当前票，狼人指认票不会混入
func (gs *GameState) VillageVoteFor(voterID string) string {
	if gs.villageVotes != nil {
		return gs.villageVotes[voterID]
	}
	return gs.votes[voterID]
}

// HasVoted 检查玩家本阶段是否已投票
func (gs *GameState) HasVoted(voterID string) bool {
	_, ok := gs.votes[voterID]
	return ok
}

// VoteFor 返回玩家投给的目标ID
func (gs *GameState) VoteFor(voterID string) string {
	return gs.votes[voterID]
}

// VoteCount 当前阶段已投票人数
func (gs *GameState) VoteCount() int {
	return len(gs.votes)
}

// ClearVotes 清空投票记录并归零计票
func (gs *GameState) ClearVotes() {
	gs.votes = make(map[string]string)
	for _, p := range gs.Players {
		p.VotesReceived = 0
	}
}

// maskedWordHints 按已揭示数量生成提示串，未揭示的字符用下划线表示
func maskedWordHints(word string, revealed int) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	if revealed > len(runes) {
		revealed = len(runes)
	}
	parts := make([]string, len(runes))
	for i, r := range runes {
		switch {
		case i < revealed:
			parts[i] = string(r)
		case r == ' ':
			parts[i] = " "
		default:
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}

// Snapshot 构建指定玩家视角的状态快照
// 角色、秘密词、候选词按可见性规则过滤，机器人没有连接不需要快照
func (gs *GameState) Snapshot(viewerID string) models.GameState {
	viewer := gs.FindPlayer(viewerID)
	viewerIsWerewolf := viewer != nil && viewer.Role == models.Werewolf

	players := make([]models.Player, 0, len(gs.Players))
	for _, p := range gs.Players {
		pc := *p
		if gs.Phase != models.PhaseLobby && gs.Phase != models.PhaseGameOver && p.ID != viewerID {
			// 狼人之间互相可见，其余角色对外隐藏
			if !(viewerIsWerewolf && pc.Role == models.Werewolf) {
				pc.Role = ""
			}
		}
		players = append(players, pc)
	}

	// 秘密词只发给知情者；狼人猜预言家阶段和终局全员可见
	secretWord := ""
	knowsWord := false
	if gs.Phase == models.PhaseGameOver || gs.Phase == models.PhaseWerewolfGuess {
		knowsWord = true
	} else if viewer != nil &&
		(viewer.IsMayor || viewer.Role == models.Werewolf || viewer.Role == models.Seer) {
		knowsWord = true
	}
	if knowsWord {
		secretWord = gs.SecretWord
	}

	// 提示串发给不知道词的玩家
	hints := ""
	if !knowsWord && gs.HintsRevealed > 0 {
		hints = maskedWordHints(gs.SecretWord, gs.HintsRevealed)
	}

	// 候选词仅在选词阶段发给村长
	var wordOptions []string
	if gs.Phase == models.PhaseWordSelection && viewer != nil && viewer.IsMayor {
		wordOptions = gs.WordOptions
	}

	return models.GameState{
		Phase:           gs.Phase,
		RoomCode:        gs.RoomCode,
		Players:         players,
		SecretWord:      secretWord,
		SecretWordHints: hints,
		WordOptions:     wordOptions,
		TimeRemaining:   gs.TimeRemaining,
		TokensUsed:      gs.TokensUsed,
		TokenHistory:    gs.TokenHistory,
		Guesses:         gs.Guesses,
		Winner:          gs.Winner,
		MyPlayerID:      viewerID,
		Difficulty:      gs.Difficulty,
		HintsRevealed:   gs.HintsRevealed,
		NumWerewolves:   gs.NumWerewolves,
	}
}
