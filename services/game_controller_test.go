package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henryhehehe/puppywolf/config"
	"github.com/henryhehehe/puppywolf/models"
)

// fakeSender 捕获下发消息的测试替身
type fakeSender struct {
	mu        sync.Mutex
	sent      map[string][]models.ServerMessage
	broadcast []models.ServerMessage
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]models.ServerMessage)}
}

func (f *fakeSender) SendToPlayer(playerID string, msg models.ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[playerID] = append(f.sent[playerID], msg)
}

func (f *fakeSender) BroadcastToRoom(roomCode string, msg models.ServerMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, msg)
}

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		MinPlayers:           3,
		MaxPlayers:           10,
		RoleRevealSeconds:    8,
		WordSelectionSeconds: 30,
		DayPhaseSeconds:      240,
		WerewolfGuessSeconds: 30,
		WordOptionCount:      5,
		WordFetchTimeout:     time.Second,
	}
}

func newTestController(t *testing.T) (*GameController, *fakeSender) {
	t.Helper()
	sender := newFakeSender()
	gc := NewGameController("WOLF-0001", sender, NewBuiltinWordSource(), testGameConfig(), nil)
	t.Cleanup(gc.Stop)
	return gc, sender
}

// clientCmd 构造一条协议指令，测试直接走 apply 同步处理
func clientCmd(playerID, msgType string, payload interface{}) command {
	msg := models.ClientMessage{Type: msgType}
	if payload != nil {
		b, _ := json.Marshal(payload)
		msg.Payload = b
	}
	return command{playerID: playerID, msg: msg}
}

func joinPlayers(t *testing.T, gc *GameController, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := gc.apply(clientCmd(
			fmt.Sprintf("p%d", i),
			models.ClientMsgJoinGame,
			models.JoinGamePayload{Name: fmt.Sprintf("player-%d", i)},
		))
		require.NoError(t, err)
	}
}

// arrangeDayPhase 搭一个固定角色的白天局面：
// p1 村长（村民）、p2 狼人、p3 预言家、p4 村民，秘密词 Castle
func arrangeDayPhase(t *testing.T, gc *GameController) {
	t.Helper()
	joinPlayers(t, gc, 4)
	gc.game.Players[0].IsMayor = true
	gc.game.Players[0].Role = models.Villager
	gc.game.Players[1].Role = models.Werewolf
	gc.game.Players[2].Role = models.Seer
	gc.game.Players[3].Role = models.Villager
	gc.game.NumWerewolves = 1
	gc.game.Phase = models.PhaseDayPhase
	gc.game.SecretWord = "Castle"
	gc.game.TimeRemaining = gc.cfg.DayPhaseSeconds
}

func TestLobbyFlowStartsGame(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 3)

	_, err := gc.apply(clientCmd("p1", models.ClientMsgStartGame, nil))
	assert.ErrorIs(t, err, ErrNotEnoughReady)

	for i := 1; i <= 3; i++ {
		_, err := gc.apply(clientCmd(fmt.Sprintf("p%d", i), models.ClientMsgToggleReady, nil))
		require.NoError(t, err)
	}

	changed, err := gc.apply(clientCmd("p1", models.ClientMsgStartGame, nil))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.PhaseRoleReveal, gc.game.Phase)
	assert.Equal(t, 8, gc.game.TimeRemaining)

	mayors := 0
	for _, p := range gc.game.Players {
		if p.IsMayor {
			mayors++
		}
	}
	assert.Equal(t, 1, mayors)
}

func TestJoinRejectedWhenFull(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 10)

	_, err := gc.apply(clientCmd("p11", models.ClientMsgJoinGame,
		models.JoinGamePayload{Name: "latecomer"}))
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestSetDifficultyOnlyInLobby(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 1)

	_, err := gc.apply(clientCmd("p1", models.ClientMsgSetDifficulty,
		models.SetDifficultyPayload{Difficulty: models.DifficultyHard}))
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyHard, gc.game.Difficulty)

	_, err = gc.apply(clientCmd("p1", models.ClientMsgSetDifficulty,
		models.SetDifficultyPayload{Difficulty: "NIGHTMARE"}))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	gc.game.Phase = models.PhaseDayPhase
	_, err = gc.apply(clientCmd("p1", models.ClientMsgSetDifficulty,
		models.SetDifficultyPayload{Difficulty: models.DifficultyEasy}))
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestAddBot(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 1)

	changed, err := gc.apply(clientCmd("p1", models.ClientMsgAddBot, nil))
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, gc.game.Players, 2)

	bot := gc.game.Players[1]
	assert.True(t, bot.IsBot)
	assert.NotEmpty(t, bot.Name)
	assert.Contains(t, gc.bots, bot.ID)
}

func TestChooseWordValidation(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 4)
	gc.game.Players[0].IsMayor = true
	gc.game.Phase = models.PhaseWordSelection
	gc.game.WordOptions = []string{"Cat", "Dog", "Fish"}

	_, err := gc.apply(clientCmd("p2", models.ClientMsgChooseWord,
		models.ChooseWordPayload{Word: "Cat"}))
	assert.ErrorIs(t, err, ErrNotMayor)

	_, err = gc.apply(clientCmd("p1", models.ClientMsgChooseWord,
		models.ChooseWordPayload{Word: "Dragon"}))
	assert.ErrorIs(t, err, ErrInvalidWord)

	_, err = gc.apply(clientCmd("p1", models.ClientMsgChooseWord,
		models.ChooseWordPayload{Word: "Cat"}))
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDayPhase, gc.game.Phase)
	assert.Equal(t, "Cat", gc.game.SecretWord)
	assert.Nil(t, gc.game.WordOptions)
	assert.Equal(t, 240, gc.game.TimeRemaining)
}

func TestCorrectTokenEndsRound(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)

	_, err := gc.apply(clientCmd("p4", models.ClientMsgSubmitGuess,
		models.SubmitGuessPayload{Text: "Castle"}))
	require.NoError(t, err)

	// 不带目标的 CORRECT 令牌落到最近猜词者头上
	_, err = gc.apply(clientCmd("p1", models.ClientMsgSubmitToken,
		models.SubmitTokenPayload{TokenType: models.TokenCorrect}))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseGameOver, gc.game.Phase)
	assert.Equal(t, models.WinnerVillage, gc.game.Winner)
	require.NotEmpty(t, gc.game.TokenHistory)
	assert.Equal(t, "p4", gc.game.TokenHistory[0].TargetPlayerID)

	// 结算：村民阵营 +1，村长再 +1，狼人不得分
	assert.Equal(t, 2, gc.game.FindPlayer("p1").Score)
	assert.Equal(t, 0, gc.game.FindPlayer("p2").Score)
	assert.Equal(t, 1, gc.game.FindPlayer("p3").Score)
	assert.Equal(t, 1, gc.game.FindPlayer("p4").Score)
	assert.Contains(t, gc.game.FindPlayer("p4").Achievements, models.AchievementSharpNose)
	assert.Contains(t, gc.game.FindPlayer("p1").Achievements, models.AchievementPackLeader)
	assert.NotContains(t, gc.game.FindPlayer("p2").Achievements, models.AchievementBigBadWolf)
}

func TestTokenTargetResolution(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)

	// 显式有效目标直接采用
	_, err := gc.apply(clientCmd("p1", models.ClientMsgSubmitToken,
		models.SubmitTokenPayload{TokenType: models.TokenYes, TargetPlayerID: "p3"}))
	require.NoError(t, err)
	assert.Equal(t, "p3", gc.game.TokenHistory[0].TargetPlayerID)

	// 目标指向村长无效，无猜词记录时随机落到非村长玩家
	_, err = gc.apply(clientCmd("p1", models.ClientMsgSubmitToken,
		models.SubmitTokenPayload{TokenType: models.TokenNo, TargetPlayerID: "p1"}))
	require.NoError(t, err)
	target := gc.game.TokenHistory[0].TargetPlayerID
	assert.Contains(t, []string{"p2", "p3", "p4"}, target)
}

func TestTokenAndGuessRoleGates(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)

	_, err := gc.apply(clientCmd("p2", models.ClientMsgSubmitToken,
		models.SubmitTokenPayload{TokenType: models.TokenYes}))
	assert.ErrorIs(t, err, ErrNotMayor)

	_, err = gc.apply(clientCmd("p1", models.ClientMsgSubmitGuess,
		models.SubmitGuessPayload{Text: "Castle"}))
	assert.ErrorIs(t, err, ErrMayorForbidden)

	_, err = gc.apply(clientCmd("p2", models.ClientMsgSubmitGuess,
		models.SubmitGuessPayload{Text: "   "}))
	assert.ErrorIs(t, err, ErrEmptyGuess)
}

func TestGuessTruncatedToLimit(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)

	long := strings.Repeat("a", maxGuessLength+20)
	_, err := gc.apply(clientCmd("p2", models.ClientMsgSubmitGuess,
		models.SubmitGuessPayload{Text: long}))
	require.NoError(t, err)
	require.Len(t, gc.game.Guesses, 1)
	assert.Len(t, []rune(gc.game.Guesses[0].Text), maxGuessLength)
}

func TestRevealHintLimit(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)
	gc.game.SecretWord = "Cat"

	for i := 0; i < 2; i++ {
		_, err := gc.apply(clientCmd("p1", models.ClientMsgRevealHint, nil))
		require.NoError(t, err)
	}
	// 最后一个字符永不揭示
	_, err := gc.apply(clientCmd("p1", models.ClientMsgRevealHint, nil))
	assert.ErrorIs(t, err, ErrNoMoreHints)
	assert.Equal(t, 2, gc.game.HintsRevealed)
}

func TestVotingCatchesWerewolf(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)
	gc.enterVoting()
	require.Equal(t, models.PhaseVoting, gc.game.Phase)

	votes := map[string]string{"p2": "p1", "p1": "p2", "p3": "p2"}
	for voter, target := range votes {
		_, err := gc.apply(clientCmd(voter, models.ClientMsgVote,
			models.VotePayload{TargetID: target}))
		require.NoError(t, err)
	}
	assert.Equal(t, models.PhaseVoting, gc.game.Phase)

	// 最后一票触发结算
	_, err := gc.apply(clientCmd("p4", models.ClientMsgVote,
		models.VotePayload{TargetID: "p2"}))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseGameOver, gc.game.Phase)
	assert.Equal(t, models.WinnerVillage, gc.game.Winner)
	assert.Contains(t, gc.game.FindPlayer("p1").Achievements, models.AchievementWolfHunter)
	assert.Contains(t, gc.game.FindPlayer("p3").Achievements, models.AchievementWolfHunter)
}

func TestVotingMissGoesToWerewolfGuess(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)
	gc.enterVoting()

	// 2/2 平票，加入顺序更早的 p1（村民）被指认，狼人未暴露
	votes := []struct{ voter, target string }{
		{"p2", "p1"}, {"p3", "p1"}, {"p1", "p4"},
	}
	for _, v := range votes {
		_, err := gc.apply(clientCmd(v.voter, models.ClientMsgVote,
			models.VotePayload{TargetID: v.target}))
		require.NoError(t, err)
	}
	_, err := gc.apply(clientCmd("p4", models.ClientMsgVote,
		models.VotePayload{TargetID: "p1"}))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseWerewolfGuess, gc.game.Phase)
	assert.Equal(t, 30, gc.game.TimeRemaining)
	// 新阶段计票清零
	assert.Zero(t, gc.game.VoteCount())
}

func TestWerewolfGuessResolution(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)
	gc.enterWerewolfGuess()

	_, err := gc.apply(clientCmd("p1", models.ClientMsgVote,
		models.VotePayload{TargetID: "p3"}))
	assert.ErrorIs(t, err, ErrNotWerewolf)

	_, err = gc.apply(clientCmd("p2", models.ClientMsgVote,
		models.VotePayload{TargetID: "p2"}))
	assert.ErrorIs(t, err, ErrSelfVote)

	// 狼人指中预言家，整局翻盘
	_, err = gc.apply(clientCmd("p2", models.ClientMsgVote,
		models.VotePayload{TargetID: "p3"}))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseGameOver, gc.game.Phase)
	assert.Equal(t, models.WinnerWerewolf, gc.game.Winner)
	assert.Equal(t, 2, gc.game.FindPlayer("p2").Score)
	assert.Contains(t, gc.game.FindPlayer("p2").Achievements, models.AchievementBigBadWolf)
	assert.Zero(t, gc.game.FindPlayer("p1").Score)
}

func TestWolfHunterSettledFromVotingPhase(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)
	gc.enterVoting()

	// p4 投中了狼人 p2，但 2/1/1 票型指认的是村民 p3
	votes := []struct{ voter, target string }{
		{"p1", "p3"}, {"p2", "p3"}, {"p3", "p1"}, {"p4", "p2"},
	}
	for _, v := range votes {
		_, err := gc.apply(clientCmd(v.voter, models.ClientMsgVote,
			models.VotePayload{TargetID: v.target}))
		require.NoError(t, err)
	}
	require.Equal(t, models.PhaseWerewolfGuess, gc.game.Phase)

	// 狼人指错人，村民守住胜利
	_, err := gc.apply(clientCmd("p2", models.ClientMsgVote,
		models.VotePayload{TargetID: "p4"}))
	require.NoError(t, err)
	require.Equal(t, models.PhaseGameOver, gc.game.Phase)
	require.Equal(t, models.WinnerVillage, gc.game.Winner)

	// 成就按投票阶段的票结算，狼人指认票不算数
	assert.Contains(t, gc.game.FindPlayer("p4").Achievements, models.AchievementWolfHunter)
	assert.NotContains(t, gc.game.FindPlayer("p1").Achievements, models.AchievementWolfHunter)
	assert.NotContains(t, gc.game.FindPlayer("p2").Achievements, models.AchievementWolfHunter)
	assert.NotContains(t, gc.game.FindPlayer("p3").Achievements, models.AchievementWolfHunter)
}

func TestResetGameBackToLobby(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)

	_, err := gc.apply(clientCmd("p1", models.ClientMsgResetGame, nil))
	assert.ErrorIs(t, err, ErrInvalidPhase)

	gc.game.Phase = models.PhaseGameOver
	gc.game.FindPlayer("p3").Score = 7
	gc.game.FindPlayer("p3").Achievements = []string{models.AchievementSharpNose}

	_, err = gc.apply(clientCmd("p1", models.ClientMsgResetGame, nil))
	require.NoError(t, err)

	assert.Equal(t, models.PhaseLobby, gc.game.Phase)
	assert.Equal(t, 7, gc.game.FindPlayer("p3").Score)
	assert.Equal(t, []string{models.AchievementSharpNose}, gc.game.FindPlayer("p3").Achievements)
	for _, p := range gc.game.Players {
		assert.False(t, p.IsReady)
	}
}

func TestDisconnectInLobbyRemovesPlayer(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 2)

	_, err := gc.apply(clientCmd("p2", internalMsgDisconnect, nil))
	require.NoError(t, err)
	assert.Len(t, gc.game.Players, 1)
	assert.Nil(t, gc.game.FindPlayer("p2"))
}

func TestDisconnectMidGameConvertsToBot(t *testing.T) {
	gc, _ := newTestController(t)
	arrangeDayPhase(t, gc)

	_, err := gc.apply(clientCmd("p4", internalMsgDisconnect, nil))
	require.NoError(t, err)

	p4 := gc.game.FindPlayer("p4")
	require.NotNil(t, p4)
	assert.True(t, p4.IsBot)
	assert.Contains(t, gc.bots, "p4")
	assert.Len(t, gc.game.Players, 4)
}

func TestEmptyRoomTriggersRecycle(t *testing.T) {
	sender := newFakeSender()
	var recycled string
	gc := NewGameController("WOLF-0002", sender, NewBuiltinWordSource(), testGameConfig(),
		func(code string) { recycled = code })
	t.Cleanup(gc.Stop)

	_, err := gc.apply(clientCmd("p1", models.ClientMsgJoinGame,
		models.JoinGamePayload{Name: "solo"}))
	require.NoError(t, err)

	_, err = gc.apply(clientCmd("p1", internalMsgDisconnect, nil))
	require.NoError(t, err)
	assert.Equal(t, "WOLF-0002", recycled)
}

func TestRejectedJoinThenDisconnectRecyclesRoom(t *testing.T) {
	sender := newFakeSender()
	var recycled string
	gc := NewGameController("WOLF-0003", sender, NewBuiltinWordSource(), testGameConfig(),
		func(code string) { recycled = code })
	t.Cleanup(gc.Stop)

	// 加入请求被拒，房间里始终没有人落座
	_, err := gc.apply(clientCmd("p1", models.ClientMsgJoinGame,
		models.JoinGamePayload{Name: "   "}))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// 断线后房间必须可回收，不能留在房间列表里
	_, err = gc.apply(clientCmd("p1", internalMsgDisconnect, nil))
	require.NoError(t, err)
	assert.Equal(t, "WOLF-0003", recycled)
}

func TestCommitSendsPerViewerSnapshots(t *testing.T) {
	gc, sender := newTestController(t)
	arrangeDayPhase(t, gc)
	gc.commit()

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		msgs := sender.sent[id]
		require.NotEmpty(t, msgs, "player %s got no state update", id)
		last := msgs[len(msgs)-1]
		assert.Equal(t, models.ServerMsgStateUpdate, last.Type)
		snap, ok := last.Payload.(models.GameState)
		require.True(t, ok)
		assert.Equal(t, id, snap.MyPlayerID)
	}

	// 普通村民视角看不到狼人身份
	snap := sender.sent["p4"][len(sender.sent["p4"])-1].Payload.(models.GameState)
	for _, p := range snap.Players {
		if p.ID == "p2" {
			assert.Empty(t, p.Role)
		}
	}
}

func TestReactionBroadcastWithoutStateChange(t *testing.T) {
	gc, sender := newTestController(t)
	joinPlayers(t, gc, 2)

	changed, err := gc.apply(clientCmd("p2", models.ClientMsgSendReaction,
		models.SendReactionPayload{Emoji: "🐶"}))
	require.NoError(t, err)
	assert.False(t, changed)

	require.Len(t, sender.broadcast, 1)
	assert.Equal(t, models.ServerMsgReaction, sender.broadcast[0].Type)
	ev := sender.broadcast[0].Payload.(models.ReactionEvent)
	assert.Equal(t, "p2", ev.PlayerID)
	assert.Equal(t, "🐶", ev.Emoji)
}

func TestCountdownExpiryAdvancesPhases(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 4)
	gc.game.Players[0].IsMayor = true
	gc.game.Players[1].Role = models.Werewolf

	// 角色展示到期：进入选词，候选词兜底填充
	gc.game.Phase = models.PhaseRoleReveal
	gc.onCountdownExpired()
	assert.Equal(t, models.PhaseWordSelection, gc.game.Phase)
	assert.Len(t, gc.game.WordOptions, 5)

	// 选词到期：系统代选
	gc.onCountdownExpired()
	assert.Equal(t, models.PhaseDayPhase, gc.game.Phase)
	assert.NotEmpty(t, gc.game.SecretWord)

	// 白天到期：进入投票
	gc.onCountdownExpired()
	assert.Equal(t, models.PhaseVoting, gc.game.Phase)

	// 狼人指认超时：视为指认失败
	gc.game.Phase = models.PhaseWerewolfGuess
	gc.onCountdownExpired()
	assert.Equal(t, models.PhaseGameOver, gc.game.Phase)
	assert.Equal(t, models.WinnerVillage, gc.game.Winner)
}

func TestStaleTimerEventsDropped(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 3)
	gc.epoch = 2
	gc.game.Phase = models.PhaseDayPhase
	gc.game.TimeRemaining = 5

	gc.handleEvent(engineEvent{epoch: 1, kind: evTick})
	assert.Equal(t, 5, gc.game.TimeRemaining)

	gc.handleEvent(engineEvent{epoch: 2, kind: evTick})
	assert.Equal(t, 4, gc.game.TimeRemaining)
}

func TestWordOptionsEventOnlyDuringRoleReveal(t *testing.T) {
	gc, _ := newTestController(t)
	joinPlayers(t, gc, 3)
	gc.epoch = 1

	gc.game.Phase = models.PhaseRoleReveal
	gc.handleEvent(engineEvent{epoch: 1, kind: evWordOptions, words: []string{"Cat", "Dog"}})
	assert.Equal(t, []string{"Cat", "Dog"}, gc.game.WordOptions)

	// 选词阶段已用兜底词库，晚到的取词结果丢弃
	gc.game.Phase = models.PhaseWordSelection
	gc.game.WordOptions = []string{"Fish"}
	gc.handleEvent(engineEvent{epoch: 1, kind: evWordOptions, words: []string{"Owl"}})
	assert.Equal(t, []string{"Fish"}, gc.game.WordOptions)
}
