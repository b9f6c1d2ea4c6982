package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/henryhehehe/puppywolf/config"
	"github.com/henryhehehe/puppywolf/models"
)

// ErrRoomNotFound 房间不存在
var ErrRoomNotFound = errors.New("房间不存在")

const roomCodePrefix = "WOLF-"

// RoomManager 房间注册表
// 只负责房间的创建、查找和回收，游戏逻辑全部在各房间控制器内
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*GameController

	sender Sender
	words  WordSource
	cfg    config.GameConfig
}

// NewRoomManager 创建房间注册表
func NewRoomManager(sender Sender, words WordSource, cfg config.GameConfig) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*GameController),
		sender: sender,
		words:  words,
		cfg:    cfg,
	}
}

// JoinGame 解析加入请求：房间号为空则新建房间，否则查找现有房间
func (rm *RoomManager) JoinGame(roomCode string) (string, *GameController, error) {
	code := strings.ToUpper(strings.TrimSpace(roomCode))
	if code == "" {
		return rm.createRoom()
	}

	rm.mu.RLock()
	ctrl, ok := rm.rooms[code]
	rm.mu.RUnlock()
	if !ok {
		return "", nil, ErrRoomNotFound
	}
	return code, ctrl, nil
}

func (rm *RoomManager) createRoom() (string, *GameController, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	var code string
	for {
		code = fmt.Sprintf("%s%04d", roomCodePrefix, rand.Intn(10000))
		if _, exists := rm.rooms[code]; !exists {
			break
		}
	}

	ctrl := NewGameController(code, rm.sender, rm.words, rm.cfg, rm.removeRoom)
	rm.rooms[code] = ctrl
	ctrl.Start()

	zap.L().Info("创建房间", zap.String("room", code))
	return code, ctrl, nil
}

// GetRoom 按房间号查找控制器
func (rm *RoomManager) GetRoom(code string) (*GameController, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	ctrl, ok := rm.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return ctrl, nil
}

// ListRooms 列出可加入的房间：仅大厅阶段的房间可见
func (rm *RoomManager) ListRooms() []models.RoomInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	infos := make([]models.RoomInfo, 0, len(rm.rooms))
	for _, ctrl := range rm.rooms {
		info := ctrl.Info()
		if info.Phase == string(models.PhaseLobby) {
			infos = append(infos, info)
		}
	}
	return infos
}

// RoomInfoByCode 返回指定房间的摘要
func (rm *RoomManager) RoomInfoByCode(code string) (models.RoomInfo, error) {
	ctrl, err := rm.GetRoom(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return models.RoomInfo{}, err
	}
	return ctrl.Info(), nil
}

// removeRoom 回收房间，房间没有真人时由控制器回调触发
func (rm *RoomManager) removeRoom(code string) {
	rm.mu.Lock()
	ctrl, ok := rm.rooms[code]
	delete(rm.rooms, code)
	rm.mu.Unlock()

	if ok {
		ctrl.Stop()
		zap.L().Info("回收空房间", zap.String("room", code))
	}
}

// Shutdown 停止所有房间
func (rm *RoomManager) Shutdown() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for code, ctrl := range rm.rooms {
		ctrl.Stop()
		delete(rm.rooms, code)
	}
}
