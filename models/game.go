package models

// GamePhase 游戏阶段
type GamePhase string

const (
	PhaseLobby         GamePhase = "LOBBY"          // 大厅等待阶段
	PhaseRoleReveal    GamePhase = "ROLE_REVEAL"    // 角色展示阶段
	PhaseWordSelection GamePhase = "WORD_SELECTION" // 村长选词阶段
	PhaseDayPhase      GamePhase = "DAY_PHASE"      // 白天提问阶段
	PhaseVoting        GamePhase = "VOTING"         // 投票阶段
	PhaseWerewolfGuess GamePhase = "WEREWOLF_GUESS" // 狼人猜预言家阶段
	PhaseGameOver      GamePhase = "GAME_OVER"      // 游戏结束阶段
)

// Role 游戏角色
type Role string

const (
	Villager Role = "VILLAGER" // 村民
	Werewolf Role = "WEREWOLF" // 狼人
	Seer     Role = "SEER"     // 预言家
)

// TokenType 村长提示令牌类型
type TokenType string

const (
	TokenYes     TokenType = "YES"
	TokenNo      TokenType = "NO"
	TokenMaybe   TokenType = "MAYBE"
	TokenSoClose TokenType = "SO_CLOSE"
	TokenWayOff  TokenType = "WAY_OFF"
	TokenCorrect TokenType = "CORRECT" // 终结令牌：记录后本轮立即结束
)

// Difficulty 词语难度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Winner 胜利阵营
type Winner string

const (
	WinnerVillage  Winner = "VILLAGE"  // 村民阵营
	WinnerWerewolf Winner = "WEREWOLF" // 狼人阵营
)

// 成就标识，跨回合累积且不会被撤销
const (
	AchievementSharpNose  = "SHARP_NOSE"   // 被 CORRECT 令牌指向的玩家
	AchievementWolfHunter = "WOLF_HUNTER"  // 投中狼人且村民获胜
	AchievementPackLeader = "PACK_LEADER"  // 担任村长且所在阵营获胜
	AchievementBigBadWolf = "BIG_BAD_WOLF" // 狼人阵营获胜时的狼人
)

// Player 玩家信息
// Score 和 Achievements 跨回合保留，其余回合字段每轮重置
type Player struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          Role     `json:"role"`
	IsMayor       bool     `json:"isMayor"`
	IsReady       bool     `json:"isReady"`
	WantsMayor    bool     `json:"wantsMayor"`
	AvatarURL     string   `json:"avatarUrl,omitempty"`
	VotesReceived int      `json:"votesReceived"`
	IsBot         bool     `json:"isBot"`
	Score         int      `json:"score"`
	Achievements  []string `json:"achievements,omitempty"`
}

// TokenAction 村长发出的提示令牌，只追加不修改
type TokenAction struct {
	ID             string    `json:"id"`
	Type           TokenType `json:"type"`
	Timestamp      int64     `json:"timestamp"`
	TargetPlayerID string    `json:"targetPlayerId,omitempty"`
}

// GuessEntry 玩家的猜词记录
// 同一玩家可以有多条记录，展示时以最新一条为准，全部保留用于赛后回放
type GuessEntry struct {
	PlayerID  string `json:"playerId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// GameState 发送给客户端的完整游戏状态快照
// 每次状态变更提交后按玩家视角过滤并全量推送
type GameState struct {
	Phase           GamePhase     `json:"phase"`
	RoomCode        string        `json:"roomCode"`
	Players         []Player      `json:"players"`
	SecretWord      string        `json:"secretWord"`
	SecretWordHints string        `json:"secretWordHints,omitempty"`
	WordOptions     []string      `json:"wordOptions,omitempty"`
	TimeRemaining   int           `json:"timeRemaining"`
	TokensUsed      int           `json:"tokensUsed"`
	TokenHistory    []TokenAction `json:"tokenHistory"`
	Guesses         []GuessEntry  `json:"guesses"`
	Winner          Winner        `json:"winner,omitempty"`
	MyPlayerID      string        `json:"myPlayerId"`
	Difficulty      Difficulty    `json:"difficulty"`
	HintsRevealed   int           `json:"hintsRevealed"`
	NumWerewolves   int           `json:"numWerewolves"`
}

// RoomInfo 房间浏览器使用的只读摘要
type RoomInfo struct {
	Code        string   `json:"code"`
	PlayerCount int      `json:"playerCount"`
	MaxPlayers  int      `json:"maxPlayers"`
	Phase       string   `json:"phase"`
	PlayerNames []string `json:"playerNames"`
}

// ReactionEvent 表情反应事件，即时广播不落入 GameState
type ReactionEvent struct {
	PlayerID string `json:"playerId"`
	Emoji    string `json:"emoji"`
}
