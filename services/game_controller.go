package services

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/henryhehehe/puppywolf/config"
	"github.com/henryhehehe/puppywolf/models"
)

// Sender 向客户端下发消息的抽象，由 WebSocketManager 实现
// 发送永远是尽力而为：目标没有连接（例如机器人）时静默忽略
type Sender interface {
	SendToPlayer(playerID string, msg models.ServerMessage)
	BroadcastToRoom(roomCode string, msg models.ServerMessage)
}

// 断线通知走内部消息类型，与客户端协议隔离
const internalMsgDisconnect = "_DISCONNECT"

// command 一条待处理的玩家意图，真人与机器人走同一条队列
type command struct {
	playerID string
	msg      models.ClientMessage
}

type eventKind int

const (
	evTick eventKind = iota
	evWordOptions
)

// engineEvent 定时器和异步任务投递的内部事件
// epoch 与当前回合比对，过期事件直接丢弃
type engineEvent struct {
	epoch int
	kind  eventKind
	words []string
}

// GameController 单个房间的控制器
// 所有状态变更都在 run 循环这一个 goroutine 里完成：
// 真人消息、机器人动作、倒计时事件统一排队，天然免锁
type GameController struct {
	game   *GameState
	sm     *StateMachine
	sender Sender
	words  WordSource
	cfg    config.GameConfig

	cmdCh  chan command
	evCh   chan engineEvent
	doneCh chan struct{}

	baseCtx    context.Context
	baseCancel context.CancelFunc
	stopOnce   sync.Once

	// epoch 每开一局或重置递增一次，用于作废遗留定时事件
	epoch      int
	tickCancel context.CancelFunc
	botCancel  context.CancelFunc
	bots       map[string]*AIPlayer

	// onEmpty 房间没有真人时回调注册表回收
	onEmpty func(roomCode string)

	// info 供房间浏览器读取的摘要，每次提交后原子更新
	info atomic.Value
}

// NewGameController 创建房间控制器，需调用 Start 启动事件循环
func NewGameController(roomCode string, sender Sender, words WordSource, cfg config.GameConfig, onEmpty func(string)) *GameController {
	game := NewGameState(roomCode)
	ctx, cancel := context.WithCancel(context.Background())
	gc := &GameController{
		game:       game,
		sm:         NewStateMachine(game),
		sender:     sender,
		words:      words,
		cfg:        cfg,
		cmdCh:      make(chan command, 64),
		evCh:       make(chan engineEvent, 64),
		doneCh:     make(chan struct{}),
		baseCtx:    ctx,
		baseCancel: cancel,
		bots:       make(map[string]*AIPlayer),
		onEmpty:    onEmpty,
	}
	gc.publishInfo()
	return gc
}

// Start 启动房间事件循环
func (gc *GameController) Start() {
	go gc.run()
}

// Stop 停止房间，释放所有后台 goroutine
func (gc *GameController) Stop() {
	gc.stopOnce.Do(func() {
		gc.baseCancel()
		close(gc.doneCh)
	})
}

// Dispatch 把一条玩家意图投入房间队列，房间已停止时丢弃
func (gc *GameController) Dispatch(playerID string, msg models.ClientMessage) {
	select {
	case gc.cmdCh <- command{playerID: playerID, msg: msg}:
	case <-gc.doneCh:
	}
}

// NotifyDisconnect 连接断开时由连接层调用
func (gc *GameController) NotifyDisconnect(playerID string) {
	gc.Dispatch(playerID, models.ClientMessage{Type: internalMsgDisconnect})
}

// Info 返回房间摘要，任意 goroutine 可安全调用
func (gc *GameController) Info() models.RoomInfo {
	info, _ := gc.info.Load().(models.RoomInfo)
	return info
}

func (gc *GameController) run() {
	defer gc.stopCountdown()
	for {
		select {
		case cmd := <-gc.cmdCh:
			gc.handleCommand(cmd)
		case ev := <-gc.evCh:
			gc.handleEvent(ev)
		case <-gc.doneCh:
			return
		}
	}
}

func (gc *GameController) handleCommand(cmd command) {
	changed, err := gc.apply(cmd)
	if err != nil {
		zap.L().Debug("指令被拒绝",
			zap.String("room", gc.game.RoomCode),
			zap.String("player", cmd.playerID),
			zap.String("type", cmd.msg.Type),
			zap.Error(err))
		gc.sender.SendToPlayer(cmd.playerID, models.ServerMessage{
			Type:    models.ServerMsgError,
			Payload: models.ErrorPayload{Message: err.Error()},
		})
		return
	}
	if changed {
		gc.commit()
	}
}

func (gc *GameController) apply(cmd command) (bool, error) {
	switch cmd.msg.Type {
	case models.ClientMsgJoinGame:
		var p models.JoinGamePayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleJoin(cmd.playerID, p)
	case internalMsgDisconnect:
		return gc.handleLeave(cmd.playerID)
	case models.ClientMsgToggleReady:
		return gc.handleToggleReady(cmd.playerID)
	case models.ClientMsgToggleWantsMayor:
		return gc.handleToggleWantsMayor(cmd.playerID)
	case models.ClientMsgSetDifficulty:
		var p models.SetDifficultyPayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleSetDifficulty(cmd.playerID, p)
	case models.ClientMsgAddBot:
		return gc.handleAddBot(cmd.playerID)
	case models.ClientMsgStartGame:
		return gc.handleStartGame(cmd.playerID)
	case models.ClientMsgChooseWord:
		var p models.ChooseWordPayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleChooseWord(cmd.playerID, p)
	case models.ClientMsgSubmitToken:
		var p models.SubmitTokenPayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleSubmitToken(cmd.playerID, p)
	case models.ClientMsgSubmitGuess:
		var p models.SubmitGuessPayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleSubmitGuess(cmd.playerID, p)
	case models.ClientMsgRevealHint:
		return gc.handleRevealHint(cmd.playerID)
	case models.ClientMsgVote:
		var p models.VotePayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleVote(cmd.playerID, p)
	case models.ClientMsgResetGame:
		return gc.handleResetGame(cmd.playerID)
	case models.ClientMsgSendReaction:
		var p models.SendReactionPayload
		if err := json.Unmarshal(cmd.msg.Payload, &p); err != nil {
			return false, ErrInvalidArgument
		}
		return gc.handleSendReaction(cmd.playerID, p)
	default:
		return false, ErrInvalidArgument
	}
}

func (gc *GameController) handleEvent(ev engineEvent) {
	// 过期回合的定时事件直接丢弃
	if ev.epoch != gc.epoch {
		return
	}
	switch ev.kind {
	case evWordOptions:
		// 异步取词只在选词阶段开始前有效，晚到说明已用兜底词库
		if gc.game.Phase == models.PhaseRoleReveal {
			gc.game.WordOptions = ev.words
		}
	case evTick:
		gc.handleTick()
	}
}

func (gc *GameController) handleTick() {
	if gc.game.TimeRemaining <= 0 {
		return
	}
	gc.game.TimeRemaining--
	if gc.game.TimeRemaining == 0 {
		gc.onCountdownExpired()
	}
	gc.commit()
}

func (gc *GameController) onCountdownExpired() {
	switch gc.game.Phase {
	case models.PhaseRoleReveal:
		gc.enterWordSelection()
	case models.PhaseWordSelection:
		// 村长超时未选词，系统代选一个
		options := gc.game.WordOptions
		if len(options) == 0 {
			options = fallbackWordOptions(gc.game.Difficulty, gc.cfg.WordOptionCount)
		}
		gc.chooseWord(options[rand.Intn(len(options))])
	case models.PhaseDayPhase:
		gc.enterVoting()
	case models.PhaseWerewolfGuess:
		// 狼人超时未达成指认，视为指认失败
		gc.endGame(models.WinnerVillage)
	}
}

// ---------- 指令处理 ----------

func (gc *GameController) handleJoin(playerID string, p models.JoinGamePayload) (bool, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return false, ErrInvalidArgument
	}
	if len(gc.game.Players) >= gc.cfg.MaxPlayers {
		return false, ErrRoomFull
	}
	if _, err := gc.game.AddPlayer(playerID, name, p.AvatarURL, false); err != nil {
		return false, err
	}
	zap.L().Info("玩家加入房间",
		zap.String("room", gc.game.RoomCode),
		zap.String("player", name))
	return true, nil
}

func (gc *GameController) handleLeave(playerID string) (bool, error) {
	changed := false
	if p := gc.game.FindPlayer(playerID); p != nil {
		changed = true
		if gc.game.Phase == models.PhaseLobby {
			gc.game.RemovePlayer(playerID)
			zap.L().Info("玩家离开房间",
				zap.String("room", gc.game.RoomCode),
				zap.String("player", p.Name))
		} else {
			// 对局中断线的玩家由机器人接管，保证局面能走完
			p.IsBot = true
			gc.bots[p.ID] = newAIPlayer(p.ID)
			gc.takeOverForPhase(p)
			zap.L().Info("断线玩家转为机器人接管",
				zap.String("room", gc.game.RoomCode),
				zap.String("player", p.Name))
		}
	}

	// 没有真人就回收，包括加入请求被拒、从未有人落座的房间
	if gc.game.HumanCount() == 0 && gc.onEmpty != nil {
		gc.onEmpty(gc.game.RoomCode)
	}
	return changed, nil
}

// takeOverForPhase 机器人接管断线玩家后，补上当前阶段欠缺的动作
func (gc *GameController) takeOverForPhase(p *models.Player) {
	ctx := gc.botCtx()
	switch gc.game.Phase {
	case models.PhaseWordSelection:
		if p.IsMayor {
			gc.scheduleBotWordChoice(ctx, p.ID, append([]string(nil), gc.game.WordOptions...))
		}
	case models.PhaseDayPhase:
		if p.IsMayor {
			gc.scheduleBotTokens(ctx, p.ID)
		} else {
			gc.scheduleBotGuesses(ctx, p.ID)
		}
	case models.PhaseVoting:
		if !gc.game.HasVoted(p.ID) {
			gc.scheduleBotVote(ctx, p.ID, gc.voteCandidates(false))
		}
	case models.PhaseWerewolfGuess:
		if p.Role == models.Werewolf && !gc.game.HasVoted(p.ID) {
			gc.scheduleBotVote(ctx, p.ID, gc.voteCandidates(true))
		}
	}
}

func (gc *GameController) handleToggleReady(playerID string) (bool, error) {
	if gc.game.Phase != models.PhaseLobby {
		return false, ErrInvalidPhase
	}
	p := gc.game.FindPlayer(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	p.IsReady = !p.IsReady
	return true, nil
}

func (gc *GameController) handleToggleWantsMayor(playerID string) (bool, error) {
	if gc.game.Phase != models.PhaseLobby {
		return false, ErrInvalidPhase
	}
	p := gc.game.FindPlayer(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	p.WantsMayor = !p.WantsMayor
	return true, nil
}

func (gc *GameController) handleSetDifficulty(playerID string, p models.SetDifficultyPayload) (bool, error) {
	if gc.game.Phase != models.PhaseLobby {
		return false, ErrInvalidPhase
	}
	if gc.game.FindPlayer(playerID) == nil {
		return false, ErrPlayerNotFound
	}
	switch p.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		gc.game.Difficulty = p.Difficulty
		return true, nil
	default:
		return false, ErrInvalidArgument
	}
}

func (gc *GameController) handleAddBot(playerID string) (bool, error) {
	if gc.game.Phase != models.PhaseLobby {
		return false, ErrInvalidPhase
	}
	if gc.game.FindPlayer(playerID) == nil {
		return false, ErrPlayerNotFound
	}
	if len(gc.game.Players) >= gc.cfg.MaxPlayers {
		return false, ErrRoomFull
	}

	botID := uuid.NewString()
	bot, err := gc.game.AddPlayer(botID, gc.pickBotName(), "", true)
	if err != nil {
		return false, err
	}
	gc.bots[botID] = newAIPlayer(botID)
	gc.scheduleBotReady(botID)
	zap.L().Info("添加机器人",
		zap.String("room", gc.game.RoomCode),
		zap.String("bot", bot.Name))
	return true, nil
}

func (gc *GameController) pickBotName() string {
	used := make(map[string]bool, len(gc.game.Players))
	for _, p := range gc.game.Players {
		used[p.Name] = true
	}
	for _, i := range rand.Perm(len(botNames)) {
		if !used[botNames[i]] {
			return botNames[i]
		}
	}
	return "Bot-" + uuid.NewString()[:4]
}

func (gc *GameController) handleStartGame(playerID string) (bool, error) {
	if gc.game.FindPlayer(playerID) == nil {
		return false, ErrPlayerNotFound
	}
	if err := gc.sm.CanStartGame(gc.cfg.MinPlayers); err != nil {
		return false, err
	}
	gc.startRound()
	return true, nil
}

func (gc *GameController) handleChooseWord(playerID string, p models.ChooseWordPayload) (bool, error) {
	if gc.game.Phase != models.PhaseWordSelection {
		return false, ErrInvalidPhase
	}
	player := gc.game.FindPlayer(playerID)
	if player == nil {
		return false, ErrPlayerNotFound
	}
	if !player.IsMayor {
		return false, ErrNotMayor
	}
	valid := false
	for _, w := range gc.game.WordOptions {
		if w == p.Word {
			valid = true
			break
		}
	}
	if !valid {
		return false, ErrInvalidWord
	}
	gc.chooseWord(p.Word)
	return true, nil
}

func (gc *GameController) handleSubmitToken(playerID string, p models.SubmitTokenPayload) (bool, error) {
	if gc.game.Phase != models.PhaseDayPhase {
		return false, ErrInvalidPhase
	}
	player := gc.game.FindPlayer(playerID)
	if player == nil {
		return false, ErrPlayerNotFound
	}
	if !player.IsMayor {
		return false, ErrNotMayor
	}
	switch p.TokenType {
	case models.TokenYes, models.TokenNo, models.TokenMaybe,
		models.TokenSoClose, models.TokenWayOff, models.TokenCorrect:
	default:
		return false, ErrInvalidToken
	}

	// 目标解析：显式有效目标 > 最近猜词者 > 随机非村长玩家
	target := p.TargetPlayerID
	if tp := gc.game.FindPlayer(target); tp == nil || tp.IsMayor {
		target = ""
	}
	if target == "" {
		target = gc.game.LatestGuesserID()
	}
	if target == "" {
		target = gc.randomNonMayorID()
	}

	gc.game.RecordToken(p.TokenType, target)
	if p.TokenType == models.TokenCorrect {
		// CORRECT 是终结令牌，记录后本轮立即以村民获胜结束
		gc.endGame(models.WinnerVillage)
	}
	return true, nil
}

func (gc *GameController) randomNonMayorID() string {
	ids := make([]string, 0, len(gc.game.Players))
	for _, p := range gc.game.Players {
		if !p.IsMayor {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return ids[rand.Intn(len(ids))]
}

func (gc *GameController) handleSubmitGuess(playerID string, p models.SubmitGuessPayload) (bool, error) {
	if gc.game.Phase != models.PhaseDayPhase {
		return false, ErrInvalidPhase
	}
	player := gc.game.FindPlayer(playerID)
	if player == nil {
		return false, ErrPlayerNotFound
	}
	if player.IsMayor {
		return false, ErrMayorForbidden
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return false, ErrEmptyGuess
	}
	if runes := []rune(text); len(runes) > maxGuessLength {
		text = string(runes[:maxGuessLength])
	}
	gc.game.RecordGuess(playerID, text)
	return true, nil
}

func (gc *GameController) handleRevealHint(playerID string) (bool, error) {
	if gc.game.Phase != models.PhaseDayPhase {
		return false, ErrInvalidPhase
	}
	player := gc.game.FindPlayer(playerID)
	if player == nil {
		return false, ErrPlayerNotFound
	}
	if !player.IsMayor {
		return false, ErrNotMayor
	}
	// 最后一个字符永不揭示，完整的词只能靠猜
	if limit := len([]rune(gc.game.SecretWord)) - 1; gc.game.HintsRevealed >= limit {
		return false, ErrNoMoreHints
	}
	gc.game.HintsRevealed++
	return true, nil
}

func (gc *GameController) handleVote(playerID string, p models.VotePayload) (bool, error) {
	voter := gc.game.FindPlayer(playerID)
	if voter == nil {
		return false, ErrPlayerNotFound
	}
	switch gc.game.Phase {
	case models.PhaseVoting:
	case models.PhaseWerewolfGuess:
		if voter.Role != models.Werewolf {
			return false, ErrNotWerewolf
		}
	default:
		return false, ErrInvalidPhase
	}
	target := gc.game.FindPlayer(p.TargetID)
	if target == nil {
		return false, ErrInvalidTarget
	}
	if target.ID == voter.ID {
		return false, ErrSelfVote
	}

	gc.game.CastVote(voter.ID, target.ID)

	if gc.game.Phase == models.PhaseVoting && gc.sm.VotingComplete() {
		gc.resolveVoting()
	} else if gc.game.Phase == models.PhaseWerewolfGuess && gc.sm.WerewolfGuessComplete() {
		gc.endGame(gc.sm.ResolveWerewolfGuess())
	}
	return true, nil
}

func (gc *GameController) handleResetGame(playerID string) (bool, error) {
	if gc.game.Phase != models.PhaseGameOver {
		return false, ErrInvalidPhase
	}
	if gc.game.FindPlayer(playerID) == nil {
		return false, ErrPlayerNotFound
	}

	// 作废所有遗留定时事件和机器人任务
	gc.epoch++
	gc.stopCountdown()
	gc.cancelBots()

	gc.game.ResetToLobby()
	for id := range gc.bots {
		if gc.game.FindPlayer(id) == nil {
			delete(gc.bots, id)
			continue
		}
		gc.scheduleBotReady(id)
	}
	zap.L().Info("房间重置回大厅", zap.String("room", gc.game.RoomCode))
	return true, nil
}

func (gc *GameController) handleSendReaction(playerID string, p models.SendReactionPayload) (bool, error) {
	if gc.game.FindPlayer(playerID) == nil {
		return false, ErrPlayerNotFound
	}
	emoji := strings.TrimSpace(p.Emoji)
	if emoji == "" {
		return false, ErrInvalidArgument
	}
	// 表情即时广播，不进入游戏状态
	gc.sender.BroadcastToRoom(gc.game.RoomCode, models.ServerMessage{
		Type:    models.ServerMsgReaction,
		Payload: models.ReactionEvent{PlayerID: playerID, Emoji: emoji},
	})
	return false, nil
}

// ---------- 阶段推进 ----------

func (gc *GameController) startRound() {
	gc.epoch++
	gc.game.AssignRoles()
	gc.game.ResetRoundFields()
	gc.game.Phase = models.PhaseRoleReveal
	gc.game.TimeRemaining = gc.cfg.RoleRevealSeconds

	gc.fetchWordOptions(gc.epoch)
	gc.startCountdown(gc.epoch)

	zap.L().Info("对局开始",
		zap.String("room", gc.game.RoomCode),
		zap.Int("players", len(gc.game.Players)),
		zap.Int("werewolves", gc.game.NumWerewolves),
		zap.String("difficulty", string(gc.game.Difficulty)))
}

// fetchWordOptions 异步拉取候选词，结果作为事件投回队列
func (gc *GameController) fetchWordOptions(epoch int) {
	difficulty := gc.game.Difficulty
	count := gc.cfg.WordOptionCount
	timeout := gc.cfg.WordFetchTimeout
	go func() {
		ctx, cancel := context.WithTimeout(gc.baseCtx, timeout)
		defer cancel()
		words, err := gc.words.WordOptions(ctx, difficulty, count)
		if err != nil {
			zap.L().Warn("获取候选词失败，将使用内置词库",
				zap.String("room", gc.game.RoomCode),
				zap.Error(err))
			return
		}
		select {
		case gc.evCh <- engineEvent{epoch: epoch, kind: evWordOptions, words: words}:
		case <-gc.doneCh:
		}
	}()
}

func (gc *GameController) enterWordSelection() {
	// 异步取词未到则用内置词库兜底
	if len(gc.game.WordOptions) == 0 {
		gc.game.WordOptions = fallbackWordOptions(gc.game.Difficulty, gc.cfg.WordOptionCount)
	}
	gc.game.Phase = models.PhaseWordSelection
	gc.game.TimeRemaining = gc.cfg.WordSelectionSeconds

	ctx := gc.newBotPhase()
	if mayor := gc.game.Mayor(); mayor != nil && mayor.IsBot {
		gc.scheduleBotWordChoice(ctx, mayor.ID, append([]string(nil), gc.game.WordOptions...))
	}
}

func (gc *GameController) chooseWord(word string) {
	gc.game.SecretWord = word
	gc.enterDayPhase()
}

func (gc *GameController) enterDayPhase() {
	gc.game.Phase = models.PhaseDayPhase
	gc.game.TimeRemaining = gc.cfg.DayPhaseSeconds
	gc.game.WordOptions = nil

	ctx := gc.newBotPhase()
	for _, p := range gc.game.Players {
		if !p.IsBot {
			continue
		}
		if p.IsMayor {
			gc.scheduleBotTokens(ctx, p.ID)
		} else {
			gc.scheduleBotGuesses(ctx, p.ID)
		}
	}
}

func (gc *GameController) enterVoting() {
	gc.game.Phase = models.PhaseVoting
	gc.game.TimeRemaining = 0
	gc.game.ClearVotes()

	ctx := gc.newBotPhase()
	candidates := gc.voteCandidates(false)
	for _, p := range gc.game.Players {
		if p.IsBot {
			gc.scheduleBotVote(ctx, p.ID, candidates)
		}
	}
}

func (gc *GameController) resolveVoting() {
	accused, werewolfCaught := gc.sm.ResolveVoting()
	if werewolfCaught {
		zap.L().Info("狼人被投出",
			zap.String("room", gc.game.RoomCode),
			zap.String("accused", accused.Name))
		gc.endGame(models.WinnerVillage)
		return
	}
	gc.enterWerewolfGuess()
}

func (gc *GameController) enterWerewolfGuess() {
	gc.game.Phase = models.PhaseWerewolfGuess
	gc.game.TimeRemaining = gc.cfg.WerewolfGuessSeconds
	gc.game.ArchiveVillageVotes()
	gc.game.ClearVotes()

	ctx := gc.newBotPhase()
	candidates := gc.voteCandidates(true)
	for _, p := range gc.game.Players {
		if p.IsBot && p.Role == models.Werewolf {
			gc.scheduleBotVote(ctx, p.ID, candidates)
		}
	}
}

func (gc *GameController) endGame(winner models.Winner) {
	applyGameResult(gc.game, winner)
	gc.game.Winner = winner
	gc.game.Phase = models.PhaseGameOver
	gc.game.TimeRemaining = 0
	gc.stopCountdown()
	gc.cancelBots()

	zap.L().Info("对局结束",
		zap.String("room", gc.game.RoomCode),
		zap.String("winner", string(winner)),
		zap.String("secretWord", gc.game.SecretWord))
}

// voteCandidates 采样当前可投票的候选人
// excludeWerewolves 为真时只留非狼人，供狼人指认预言家使用
func (gc *GameController) voteCandidates(excludeWerewolves bool) []voteCandidate {
	tokensAgainst := make(map[string]int)
	for _, t := range gc.game.TokenHistory {
		tokensAgainst[t.TargetPlayerID]++
	}
	candidates := make([]voteCandidate, 0, len(gc.game.Players))
	for _, p := range gc.game.Players {
		if excludeWerewolves && p.Role == models.Werewolf {
			continue
		}
		candidates = append(candidates, voteCandidate{
			ID:            p.ID,
			IsMayor:       p.IsMayor,
			TokensAgainst: tokensAgainst[p.ID],
		})
	}
	return candidates
}

// ---------- 定时与提交 ----------

// startCountdown 启动每秒一次的倒计时事件，随回合存活
// 阶段切换只需改写 TimeRemaining，不需要另起定时器
func (gc *GameController) startCountdown(epoch int) {
	gc.stopCountdown()
	ctx, cancel := context.WithCancel(gc.baseCtx)
	gc.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case gc.evCh <- engineEvent{epoch: epoch, kind: evTick}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (gc *GameController) stopCountdown() {
	if gc.tickCancel != nil {
		gc.tickCancel()
		gc.tickCancel = nil
	}
}

// newBotPhase 进入新阶段时调用，先取消上一阶段的机器人任务
func (gc *GameController) newBotPhase() context.Context {
	gc.cancelBots()
	ctx, cancel := context.WithCancel(gc.baseCtx)
	gc.botCancel = cancel
	return ctx
}

// botCtx 返回当前阶段的机器人上下文，阶段外调度退化为基础上下文
func (gc *GameController) botCtx() context.Context {
	if gc.botCancel == nil {
		return gc.newBotPhase()
	}
	// botCancel 不为空说明 newBotPhase 已建立当前阶段上下文
	ctx, cancel := context.WithCancel(gc.baseCtx)
	old := gc.botCancel
	gc.botCancel = func() {
		old()
		cancel()
	}
	return ctx
}

func (gc *GameController) cancelBots() {
	if gc.botCancel != nil {
		gc.botCancel()
		gc.botCancel = nil
	}
}

// commit 状态变更提交：刷新房间摘要并向每个真人推送其视角的快照
func (gc *GameController) commit() {
	gc.publishInfo()
	for _, p := range gc.game.Players {
		if p.IsBot {
			continue
		}
		gc.sender.SendToPlayer(p.ID, models.ServerMessage{
			Type:    models.ServerMsgStateUpdate,
			Payload: gc.game.Snapshot(p.ID),
		})
	}
}

func (gc *GameController) publishInfo() {
	names := make([]string, 0, len(gc.game.Players))
	for _, p := range gc.game.Players {
		names = append(names, p.Name)
	}
	gc.info.Store(models.RoomInfo{
		Code:        gc.game.RoomCode,
		PlayerCount: len(gc.game.Players),
		MaxPlayers:  gc.cfg.MaxPlayers,
		Phase:       string(gc.game.Phase),
		PlayerNames: names,
	})
}

// ---------- 机器人调度 ----------
// 机器人动作全部通过 Dispatch 提交，与真人共用校验路径；
// 阶段已切换时动作会被正常拒绝，无需额外判断。

func (gc *GameController) scheduleBotReady(botID string) {
	go func() {
		select {
		case <-gc.baseCtx.Done():
			return
		case <-time.After(botReadyDelay()):
		}
		gc.Dispatch(botID, models.ClientMessage{Type: models.ClientMsgToggleReady})
	}()
}

func (gc *GameController) scheduleBotWordChoice(ctx context.Context, botID string, options []string) {
	ai := gc.bots[botID]
	if ai == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(botWordChoiceDelay()):
		}
		word := ai.ChooseWord(options)
		if word == "" {
			return
		}
		payload, _ := json.Marshal(models.ChooseWordPayload{Word: word})
		gc.Dispatch(botID, models.ClientMessage{Type: models.ClientMsgChooseWord, Payload: payload})
	}()
}

func (gc *GameController) scheduleBotTokens(ctx context.Context, botID string) {
	ai := gc.bots[botID]
	if ai == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(botTokenDelay()):
			}
			payload, _ := json.Marshal(models.SubmitTokenPayload{TokenType: ai.PickToken()})
			gc.Dispatch(botID, models.ClientMessage{Type: models.ClientMsgSubmitToken, Payload: payload})
		}
	}()
}

func (gc *GameController) scheduleBotGuesses(ctx context.Context, botID string) {
	ai := gc.bots[botID]
	if ai == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(botGuessDelay()):
			}
			// 偶尔发表情代替猜词
			if rand.Intn(100) < 25 {
				payload, _ := json.Marshal(models.SendReactionPayload{Emoji: randomBotReaction()})
				gc.Dispatch(botID, models.ClientMessage{Type: models.ClientMsgSendReaction, Payload: payload})
				continue
			}
			payload, _ := json.Marshal(models.SubmitGuessPayload{Text: randomBotGuess()})
			gc.Dispatch(botID, models.ClientMessage{Type: models.ClientMsgSubmitGuess, Payload: payload})
		}
	}()
}

func (gc *GameController) scheduleBotVote(ctx context.Context, botID string, candidates []voteCandidate) {
	ai := gc.bots[botID]
	if ai == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(botVoteDelay()):
		}
		target := ai.PickVoteTarget(candidates)
		if target == "" {
			return
		}
		payload, _ := json.Marshal(models.VotePayload{TargetID: target})
		gc.Dispatch(botID, models.ClientMessage{Type: models.ClientMsgVote, Payload: payload})
	}()
}
