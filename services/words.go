package services

import (
	"context"
	"errors"
	"math/rand"

	"github.com/henryhehehe/puppywolf/models"
)

// ErrWordSourceUnavailable 词源不可用
var ErrWordSourceUnavailable = errors.New("词源暂时不可用")

// WordSource 秘密词来源
// 引擎通过带超时的 context 调用，失败或超时后回退到内置词库
type WordSource interface {
	WordOptions(ctx context.Context, difficulty models.Difficulty, n int) ([]string, error)
}

// 内置词库，按难度分级
var easyWords = []string{
	"Cat", "Dog", "Fish", "Bird", "Bear", "Frog", "Cow", "Pig", "Duck", "Owl",
	"Rabbit", "Tiger", "Lion", "Horse", "Sheep", "Puppy", "Kitten", "Deer",
	"Pizza", "Bread", "Cheese", "Cookie", "Banana", "Apple", "Candy", "Cake",
	"Pasta", "Burger", "Taco", "Donut", "Honey", "Egg", "Milk", "Rice",
	"Ball", "Book", "Chair", "Door", "Clock", "Bell", "Key", "Lamp",
	"Bed", "Cup", "Hat", "Shoe", "Bag", "Kite", "Box", "Ring",
	"Sun", "Moon", "Star", "Tree", "Rain", "Snow", "Wind", "Fire",
	"River", "Beach", "Cloud", "Flower", "Rock", "Sand", "Leaf", "Grass",
	"School", "House", "Park", "Farm", "Garden", "Shop", "Zoo",
	"Dream", "Love", "Hope", "Joy", "Fun", "Play", "Song", "Gift",
}

var mediumWords = []string{
	"Elephant", "Penguin", "Dolphin", "Eagle", "Butterfly", "Fox", "Wolf",
	"Parrot", "Octopus", "Giraffe", "Kangaroo", "Turtle", "Hamster", "Panda",
	"Flamingo", "Jellyfish", "Seahorse", "Koala", "Hedgehog", "Otter", "Peacock",
	"Chocolate", "Coffee", "Sushi", "Watermelon", "Pancake", "Popcorn", "Avocado",
	"Strawberry", "Waffle", "Pretzel", "Mango", "Cinnamon", "Milkshake", "Pineapple",
	"Mountain", "Ocean", "Forest", "Desert", "Volcano", "Rainbow", "Thunder",
	"Sunset", "Waterfall", "Island", "Cave", "Meadow", "Canyon", "Tornado",
	"Mirror", "Castle", "Bridge", "Compass", "Lantern", "Treasure", "Crown",
	"Shield", "Sword", "Umbrella", "Backpack", "Ladder", "Anchor", "Balloon",
	"Library", "Museum", "Lighthouse", "Stadium", "Temple", "Palace", "Theater",
	"Aquarium", "Bakery", "Greenhouse", "Treehouse", "Igloo", "Cottage", "Mansion",
	"Astronaut", "Detective", "Pirate", "Wizard", "Knight", "Chef", "Pilot",
	"Ninja", "Samurai", "Doctor", "Firefighter", "Artist", "Musician", "Dancer",
	"Soccer", "Basketball", "Tennis", "Skateboard", "Surfing", "Archery", "Boxing",
	"Guitar", "Piano", "Violin", "Drums", "Trumpet", "Flute", "Origami",
	"Submarine", "Spaceship", "Bicycle", "Helicopter", "Robot", "Camera", "Rocket",
	"Birthday", "Halloween", "Christmas", "Fireworks", "Parade", "Festival", "Costume",
}

var hardWords = []string{
	"Chameleon", "Sloth", "Moose", "Falcon", "Swan", "Crab",
	"Glacier", "Coral", "Aurora", "Blizzard", "Tsunami", "Avalanche", "Eclipse",
	"Geyser", "Lagoon", "Savanna", "Oasis", "Tundra", "Reef", "Swamp",
	"Galaxy", "Asteroid", "Nebula", "Comet", "Satellite", "Blackhole", "Constellation",
	"Supernova", "Orbit", "Telescope", "Meteor", "Gravity", "Molecule", "Prism",
	"Kaleidoscope", "Pendulum", "Pinwheel", "Locket", "Bracelet", "Necklace", "Tiara",
	"Shadow", "Silence", "Echo", "Fortune", "Mystery", "Freedom", "Harmony",
	"Wisdom", "Courage", "Illusion", "Memory", "Balance", "Patience", "Curiosity",
	"Riddle", "Paradox", "Miracle", "Chaos", "Laughter", "Friendship",
	"Phoenix", "Griffin", "Centaur", "Pegasus", "Minotaur", "Kraken", "Hydra",
	"Sphinx", "Werewolf", "Vampire", "Zombie", "Goblin", "Troll", "Ogre",
	"Skeleton", "Heartbeat", "Fingerprint", "Backbone", "Eyelash", "Dimple",
	"Architect", "Inventor", "Explorer", "Blacksmith", "Carpenter", "Jester",
	"Hospital", "Airport", "Cathedral", "Warehouse", "Carnival", "Observatory",
	"Doorbell", "Chimney", "Staircase", "Bathtub", "Chandelier", "Fireplace",
	"Snowflake", "Breeze", "Frost", "Icicle", "Dewdrop", "Mist", "Sleet",
}

// BuiltinWordSource 基于内置词库的词源实现
type BuiltinWordSource struct{}

// NewBuiltinWordSource 创建内置词源实例
func NewBuiltinWordSource() *BuiltinWordSource {
	return &BuiltinWordSource{}
}

// WordOptions 从指定难度的词库中随机抽取 n 个不重复的候选词
func (s *BuiltinWordSource) WordOptions(ctx context.Context, difficulty models.Difficulty, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pickRandomWords(wordPool(difficulty), n), nil
}

// fallbackWordOptions 词源失败时的本地兜底
func fallbackWordOptions(difficulty models.Difficulty, n int) []string {
	return pickRandomWords(wordPool(difficulty), n)
}

func wordPool(difficulty models.Difficulty) []string {
	switch difficulty {
	case models.DifficultyEasy:
		return easyWords
	case models.DifficultyHard:
		return hardWords
	default:
		return mediumWords
	}
}

func pickRandomWords(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	perm := rand.Perm(len(pool))
	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = pool[perm[i]]
	}
	return words
}
