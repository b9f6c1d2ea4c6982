package services

import (
	"math/rand"
	"time"

	"github.com/henryhehehe/puppywolf/models"
)

// botPersonality 机器人性格，影响投票和发令牌的倾向
type botPersonality string

const (
	personalityAggressive botPersonality = "aggressive" // 激进型：跟风投热门目标
	personalityCautious   botPersonality = "cautious"   // 谨慎型：避开村长，随机投
	personalityStrategic  botPersonality = "strategic"  // 策略型：投被关注最少的人
	personalityRandom     botPersonality = "random"     // 随机型
)

var allPersonalities = []botPersonality{
	personalityAggressive,
	personalityCautious,
	personalityStrategic,
	personalityRandom,
}

// AIPlayer 机器人玩家的决策体
// 只做纯决策计算，所有动作都走与真人相同的消息通道提交
type AIPlayer struct {
	PlayerID    string
	Personality botPersonality
}

func newAIPlayer(playerID string) *AIPlayer {
	return &AIPlayer{
		PlayerID:    playerID,
		Personality: allPersonalities[rand.Intn(len(allPersonalities))],
	}
}

// voteCandidate 投票候选人信息，在阶段切换时采样
type voteCandidate struct {
	ID            string
	IsMayor       bool
	TokensAgainst int // 白天阶段指向该玩家的令牌数
}

// ChooseWord 村长机器人从候选词中选词
func (ai *AIPlayer) ChooseWord(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rand.Intn(len(options))]
}

// PickToken 村长机器人按权重抽一个提示令牌
// 机器人永远不发 CORRECT，终结令牌只能由真人村长裁定
func (ai *AIPlayer) PickToken() models.TokenType {
	r := rand.Intn(100)
	switch {
	case r < 30:
		return models.TokenYes
	case r < 60:
		return models.TokenNo
	case r < 80:
		return models.TokenMaybe
	case r < 90:
		return models.TokenSoClose
	default:
		return models.TokenWayOff
	}
}

// PickVoteTarget 按性格从候选人中挑选投票目标，永不投自己
func (ai *AIPlayer) PickVoteTarget(candidates []voteCandidate) string {
	pool := make([]voteCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != ai.PlayerID {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return ""
	}

	switch ai.Personality {
	case personalityAggressive:
		// 投令牌最集中的玩家
		best := pool[0]
		for _, c := range pool[1:] {
			if c.TokensAgainst > best.TokensAgainst {
				best = c
			}
		}
		return best.ID
	case personalityStrategic:
		// 投最不受关注的玩家
		best := pool[0]
		for _, c := range pool[1:] {
			if c.TokensAgainst < best.TokensAgainst {
				best = c
			}
		}
		return best.ID
	case personalityCautious:
		// 尽量避开村长
		nonMayor := make([]voteCandidate, 0, len(pool))
		for _, c := range pool {
			if !c.IsMayor {
				nonMayor = append(nonMayor, c)
			}
		}
		if len(nonMayor) > 0 {
			return nonMayor[rand.Intn(len(nonMayor))].ID
		}
		return pool[rand.Intn(len(pool))].ID
	default:
		return pool[rand.Intn(len(pool))].ID
	}
}

// 机器人各类动作的延迟区间，模拟真人反应节奏
func botReadyDelay() time.Duration {
	return time.Duration(1+rand.Intn(3)) * time.Second
}

func botWordChoiceDelay() time.Duration {
	return time.Duration(2+rand.Intn(3)) * time.Second
}

func botTokenDelay() time.Duration {
	return time.Duration(3+rand.Intn(4)) * time.Second
}

func botGuessDelay() time.Duration {
	return time.Duration(8+rand.Intn(13)) * time.Second
}

func botVoteDelay() time.Duration {
	return time.Duration(2+rand.Intn(5)) * time.Second
}
