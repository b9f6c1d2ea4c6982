package models

import "encoding/json"

// 客户端到服务端的消息类型
const (
	ClientMsgJoinGame         = "JOIN_GAME"
	ClientMsgToggleReady      = "TOGGLE_READY"
	ClientMsgToggleWantsMayor = "TOGGLE_WANTS_MAYOR"
	ClientMsgStartGame        = "START_GAME"
	ClientMsgSubmitToken      = "SUBMIT_TOKEN"
	ClientMsgSubmitGuess      = "SUBMIT_GUESS"
	ClientMsgChooseWord       = "CHOOSE_WORD"
	ClientMsgVote             = "VOTE"
	ClientMsgResetGame        = "RESET_GAME"
	ClientMsgListRooms        = "LIST_ROOMS"
	ClientMsgAddBot           = "ADD_BOT"
	ClientMsgSendReaction     = "SEND_REACTION"
	ClientMsgRevealHint       = "REVEAL_HINT"
	ClientMsgSetDifficulty    = "SET_DIFFICULTY"
)

// 服务端到客户端的消息类型
const (
	ServerMsgStateUpdate = "STATE_UPDATE"
	ServerMsgError       = "ERROR"
	ServerMsgRoomList    = "ROOM_LIST"
	ServerMsgReaction    = "REACTION"
)

// ClientMessage 客户端消息统一信封，payload 按 type 延迟解析
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage 服务端消息统一信封
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// JoinGamePayload 加入游戏请求
// RoomCode 为空表示创建新房间
type JoinGamePayload struct {
	Name      string `json:"name"`
	RoomCode  string `json:"roomCode,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// SubmitTokenPayload 村长发令牌请求
type SubmitTokenPayload struct {
	TokenType      TokenType `json:"tokenType"`
	TargetPlayerID string    `json:"targetPlayerId,omitempty"`
}

// SubmitGuessPayload 猜词请求
type SubmitGuessPayload struct {
	Text string `json:"text"`
}

// ChooseWordPayload 村长选词请求
type ChooseWordPayload struct {
	Word string `json:"word"`
}

// VotePayload 投票请求
type VotePayload struct {
	TargetID string `json:"targetId"`
}

// SendReactionPayload 表情反应请求
type SendReactionPayload struct {
	Emoji string `json:"emoji"`
}

// SetDifficultyPayload 设置词语难度请求
type SetDifficultyPayload struct {
	Difficulty Difficulty `json:"difficulty"`
}

// ErrorPayload 错误响应，仅发送给出错的连接
type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomListPayload 房间列表响应
type RoomListPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}
