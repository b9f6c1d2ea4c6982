package services

import "math/rand"

// 机器人名字池，与真人重名时退化为随机编号
var botNames = []string{
	"Luna", "Felix", "Shadow", "Maple", "Coco", "Mochi",
	"Pepper", "Honey", "Biscuit", "Pumpkin", "Stormy", "Hazel",
}

// 机器人猜词时附带的口头禅，拼在词前增加拟人感
var botGuessPrefixes = []string{
	"", "", "", // 多数时候直接报词
	"Is it ", "Maybe ", "Hmm... ", "Could be ",
}

// 机器人表情池
var botReactions = []string{
	"🐶", "🤔", "😂", "👀", "🔥", "🎉", "😱", "🐺",
}

// randomBotGuess 生成一条机器人猜词文本
// 从中等难度词库里抽词，保证内容看起来像真实猜测
func randomBotGuess() string {
	word := mediumWords[rand.Intn(len(mediumWords))]
	prefix := botGuessPrefixes[rand.Intn(len(botGuessPrefixes))]
	return prefix + word
}

// randomBotReaction 随机挑一个表情
func randomBotReaction() string {
	return botReactions[rand.Intn(len(botReactions))]
}
