package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/henryhehehe/puppywolf/config"
	"github.com/henryhehehe/puppywolf/logger"
	"github.com/henryhehehe/puppywolf/models"
	"github.com/henryhehehe/puppywolf/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有跨域请求，生产环境中应该更严格
	},
}

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}
	logger.InitLogger(cfg.LogLevel)
	defer zap.L().Sync()

	// 依赖装配：词源 -> 连接管理器 -> 房间注册表
	wordSource := services.NewBuiltinWordSource()
	wsManager := services.NewWebSocketManager()
	roomManager := services.NewRoomManager(wsManager, wordSource, cfg.Game)
	wsManager.SetRoomManager(roomManager)
	defer roomManager.Shutdown()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// 设置跨域中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// WebSocket连接处理，协议消息全部走这一个端点
	r.GET("/ws", func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			zap.L().Error("升级WebSocket连接失败", zap.Error(err))
			return
		}
		go wsManager.HandleConnection(ws)
	})

	// 只读API，供房间浏览器轮询使用
	api := r.Group("/api")
	{
		api.GET("/rooms", func(c *gin.Context) {
			c.JSON(http.StatusOK, models.RoomListPayload{Rooms: roomManager.ListRooms()})
		})
		api.GET("/rooms/:code", func(c *gin.Context) {
			info, err := roomManager.RoomInfoByCode(c.Param("code"))
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, info)
		})
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.L().Info("服务器启动", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zap.L().Fatal("服务器启动失败", zap.Error(err))
	}
}
