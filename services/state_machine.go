package services

import (
	"github.com/henryhehehe/puppywolf/models"
)

// StateMachine 负责阶段推进条件判定和投票结算
// 只做纯状态计算，定时与广播由房间控制器驱动
type StateMachine struct {
	game *GameState
}

// NewStateMachine 创建状态机实例
func NewStateMachine(game *GameState) *StateMachine {
	return &StateMachine{game: game}
}

// CanStartGame 检查大厅是否满足开局条件
func (sm *StateMachine) CanStartGame(minPlayers int) error {
	if sm.game.Phase != models.PhaseLobby {
		return ErrGameInProgress
	}
	if len(sm.game.Players) < minPlayers {
		return ErrTooFewPlayers
	}
	if !sm.game.AllReady() {
		return ErrNotEnoughReady
	}
	return nil
}

// VotingComplete 投票阶段是否结算：每名玩家都恰好投出一票
func (sm *StateMachine) VotingComplete() bool {
	return sm.game.VoteCount() >= len(sm.game.Players) && len(sm.game.Players) > 0
}

// WerewolfGuessComplete 狼人猜预言家阶段是否结算：所有狼人都已投票
func (sm *StateMachine) WerewolfGuessComplete() bool {
	voted := false
	for _, p := range sm.game.Players {
		if p.Role != models.Werewolf {
			continue
		}
		if !sm.game.HasVoted(p.ID) {
			return false
		}
		voted = true
	}
	return voted
}

// MostVoted 返回得票最高的玩家
// 平票时取加入顺序最早的一名，保证结算结果与投票到达顺序无关
func (sm *StateMachine) MostVoted() *models.Player {
	var accused *models.Player
	maxVotes := 0
	for _, p := range sm.game.Players {
		if p.VotesReceived > maxVotes {
			maxVotes = p.VotesReceived
			accused = p
		}
	}
	return accused
}

// ResolveVoting 结算投票阶段
// 被指认者是狼人则村民立即获胜，否则进入狼人猜预言家阶段
func (sm *StateMachine) ResolveVoting() (accused *models.Player, werewolfCaught bool) {
	accused = sm.MostVoted()
	if accused != nil && accused.Role == models.Werewolf {
		return accused, true
	}
	return accused, false
}

// ResolveWerewolfGuess 结算狼人指认预言家的结果
func (sm *StateMachine) ResolveWerewolfGuess() models.Winner {
	accused := sm.MostVoted()
	if accused != nil && accused.Role == models.Seer {
		return models.WinnerWerewolf
	}
	return models.WinnerVillage
}
