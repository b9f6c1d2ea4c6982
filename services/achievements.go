package services

import (
	"github.com/henryhehehe/puppywolf/models"
)

// 积分规则
const (
	scoreVillageWin = 1 // 村民阵营获胜，每名非狼人 +1
	scoreMayorBonus = 1 // 村长额外奖励
	scoreWolfWin    = 2 // 狼人阵营获胜，每名狼人 +2
)

// applyGameResult 在终局时结算积分并评定成就
// 积分和成就挂在玩家身上，跨回合累积，重置大厅时不清除
func applyGameResult(game *GameState, winner models.Winner) {
	correctGuesserID := findCorrectGuesserID(game)

	for _, p := range game.Players {
		onWinningSide := false
		if winner == models.WinnerVillage && p.Role != models.Werewolf {
			onWinningSide = true
			p.Score += scoreVillageWin
			if p.IsMayor {
				p.Score += scoreMayorBonus
			}
		}
		if winner == models.WinnerWerewolf && p.Role == models.Werewolf {
			onWinningSide = true
			p.Score += scoreWolfWin
			grantAchievement(p, models.AchievementBigBadWolf)
		}

		if p.ID == correctGuesserID {
			grantAchievement(p, models.AchievementSharpNose)
		}
		if onWinningSide && p.IsMayor {
			grantAchievement(p, models.AchievementPackLeader)
		}
		if winner == models.WinnerVillage {
			if target := game.FindPlayer(game.VillageVoteFor(p.ID)); target != nil && target.Role == models.Werewolf {
				grantAchievement(p, models.AchievementWolfHunter)
			}
		}
	}
}

// findCorrectGuesserID 返回本轮 CORRECT 令牌指向的玩家ID
func findCorrectGuesserID(game *GameState) string {
	for _, token := range game.TokenHistory {
		if token.Type == models.TokenCorrect {
			return token.TargetPlayerID
		}
	}
	return ""
}

// grantAchievement 授予成就，已持有则跳过
func grantAchievement(p *models.Player, id string) {
	for _, a := range p.Achievements {
		if a == id {
			return
		}
	}
	p.Achievements = append(p.Achievements, id)
}
