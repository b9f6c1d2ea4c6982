package services

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/henryhehehe/puppywolf/models"
)

// ErrNotInRoom 连接尚未加入任何房间
var ErrNotInRoom = errors.New("尚未加入房间")

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 64
)

// wsClient 单个客户端连接
// 下发消息先进缓冲通道，由独立的写循环消费，慢客户端拖不住房间
type wsClient struct {
	conn *websocket.Conn
	send chan models.ServerMessage
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan models.ServerMessage, sendBufferSize),
		done: make(chan struct{}),
	}
}

// writePump 串行写出缓冲中的消息，连接关闭或写失败时退出
func (c *wsClient) writePump() {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				zap.L().Debug("消息发送失败",
					zap.String("type", msg.Type),
					zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue 消息入队，永不阻塞
// 缓冲满时丢弃：状态推送是全量快照，丢掉的帧会被下一帧覆盖
func (c *wsClient) enqueue(msg models.ServerMessage) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		zap.L().Warn("发送缓冲已满，丢弃消息", zap.String("type", msg.Type))
	}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// WebSocketManager 管理全部客户端连接和玩家到房间的绑定
// 消息路由到房间控制器队列后立即返回，读循环不被游戏逻辑阻塞
type WebSocketManager struct {
	mu          sync.RWMutex
	clients     map[string]*wsClient
	roomMembers map[string]map[string]bool
	playerRoom  map[string]string

	roomManager *RoomManager
}

// NewWebSocketManager 创建连接管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:     make(map[string]*wsClient),
		roomMembers: make(map[string]map[string]bool),
		playerRoom:  make(map[string]string),
	}
}

// SetRoomManager 两段式装配：连接层和房间注册表互相引用，后装配打破环
func (wm *WebSocketManager) SetRoomManager(rm *RoomManager) {
	wm.roomManager = rm
}

// HandleConnection 接管一条已升级的 WebSocket 连接，阻塞直到连接关闭
func (wm *WebSocketManager) HandleConnection(conn *websocket.Conn) {
	playerID := uuid.NewString()
	client := newWSClient(conn)
	go client.writePump()

	wm.mu.Lock()
	wm.clients[playerID] = client
	wm.mu.Unlock()

	zap.L().Info("新连接建立", zap.String("player", playerID))
	defer wm.dropConnection(playerID)
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			zap.L().Debug("连接读取结束", zap.String("player", playerID), zap.Error(err))
			return
		}
		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// 畸形消息记日志后忽略，不断开连接
			zap.L().Warn("消息解析失败", zap.String("player", playerID), zap.Error(err))
			continue
		}
		wm.route(playerID, msg)
	}
}

func (wm *WebSocketManager) route(playerID string, msg models.ClientMessage) {
	switch msg.Type {
	case models.ClientMsgJoinGame:
		wm.handleJoin(playerID, msg)
	case models.ClientMsgListRooms:
		wm.SendToPlayer(playerID, models.ServerMessage{
			Type:    models.ServerMsgRoomList,
			Payload: models.RoomListPayload{Rooms: wm.roomManager.ListRooms()},
		})
	default:
		code := wm.roomOf(playerID)
		if code == "" {
			wm.sendError(playerID, ErrNotInRoom)
			return
		}
		ctrl, err := wm.roomManager.GetRoom(code)
		if err != nil {
			wm.sendError(playerID, err)
			return
		}
		ctrl.Dispatch(playerID, msg)
	}
}

func (wm *WebSocketManager) handleJoin(playerID string, msg models.ClientMessage) {
	var p models.JoinGamePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		wm.sendError(playerID, ErrInvalidArgument)
		return
	}
	code, ctrl, err := wm.roomManager.JoinGame(p.RoomCode)
	if err != nil {
		wm.sendError(playerID, err)
		return
	}
	wm.bindRoom(playerID, code)
	ctrl.Dispatch(playerID, msg)
}

// bindRoom 记录玩家所在房间，重复加入时覆盖旧绑定
func (wm *WebSocketManager) bindRoom(playerID, code string) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if old := wm.playerRoom[playerID]; old != "" && old != code {
		delete(wm.roomMembers[old], playerID)
	}
	wm.playerRoom[playerID] = code
	if wm.roomMembers[code] == nil {
		wm.roomMembers[code] = make(map[string]bool)
	}
	wm.roomMembers[code][playerID] = true
}

func (wm *WebSocketManager) roomOf(playerID string) string {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.playerRoom[playerID]
}

func (wm *WebSocketManager) dropConnection(playerID string) {
	wm.mu.Lock()
	client := wm.clients[playerID]
	delete(wm.clients, playerID)
	code := wm.playerRoom[playerID]
	delete(wm.playerRoom, playerID)
	if code != "" {
		delete(wm.roomMembers[code], playerID)
		if len(wm.roomMembers[code]) == 0 {
			delete(wm.roomMembers, code)
		}
	}
	wm.mu.Unlock()

	if client != nil {
		client.close()
	}
	zap.L().Info("连接断开", zap.String("player", playerID))
	if code == "" {
		return
	}
	if ctrl, err := wm.roomManager.GetRoom(code); err == nil {
		ctrl.NotifyDisconnect(playerID)
	}
}

// SendToPlayer 向单个玩家发送消息，无连接时静默忽略
func (wm *WebSocketManager) SendToPlayer(playerID string, msg models.ServerMessage) {
	wm.mu.RLock()
	client := wm.clients[playerID]
	wm.mu.RUnlock()
	if client != nil {
		client.enqueue(msg)
	}
}

// BroadcastToRoom 向房间内所有连接广播同一条消息
func (wm *WebSocketManager) BroadcastToRoom(roomCode string, msg models.ServerMessage) {
	wm.mu.RLock()
	ids := make([]string, 0, len(wm.roomMembers[roomCode]))
	for id := range wm.roomMembers[roomCode] {
		ids = append(ids, id)
	}
	wm.mu.RUnlock()

	for _, id := range ids {
		wm.SendToPlayer(id, msg)
	}
}

func (wm *WebSocketManager) sendError(playerID string, err error) {
	wm.SendToPlayer(playerID, models.ServerMessage{
		Type:    models.ServerMsgError,
		Payload: models.ErrorPayload{Message: err.Error()},
	})
}
