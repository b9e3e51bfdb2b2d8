package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"comms-service/internal/calls"
	"comms-service/internal/config"
	"comms-service/internal/db"
	"comms-service/internal/directory"
	"comms-service/internal/handlers"
	"comms-service/internal/messagelog"
	"comms-service/internal/middleware"
	"comms-service/internal/notify"
	"comms-service/internal/observability"
	"comms-service/internal/rabbitmq"
	"comms-service/internal/relay"
	"comms-service/internal/repositories"
	"comms-service/internal/telemetry"
	"comms-service/internal/ws"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s reason=%q",
		rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.comms", "comms-service", cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("event publisher disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	channelRepo := repositories.NewChannelRepo(database)
	memberRepo := repositories.NewMemberRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	callRepo := repositories.NewCallRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	hub := ws.NewHub()

	fanout := notify.NewFanout(notificationRepo, channelRepo, memberRepo, hub)
	dir := directory.NewService(channelRepo, memberRepo, hub, auditEmitter)
	msgLog := messagelog.NewService(messageRepo, memberRepo, hub, fanout)
	callManager := calls.NewManager(callRepo, memberRepo, hub, fanout, cfg.CallRingTimeout)
	relayIssuer := relay.NewIssuer(cfg.TurnSecret, cfg.TurnURIs, cfg.TurnTTL)

	channelHandler := handlers.NewChannelHandler(dir)
	messageHandler := handlers.NewMessageHandler(msgLog)
	callHandler := handlers.NewCallHandler(callManager)
	notificationHandler := handlers.NewNotificationHandler(fanout)
	relayHandler := handlers.NewRelayHandler(relayIssuer)

	channelWS := ws.NewChannelSocketHandler(hub, dir, cfg.JWTSecret)
	userWS := ws.NewUserSocketHandler(hub, dir, callManager, cfg.JWTSecret)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("comms-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.POST("/channels", authMiddleware, channelHandler.CreateChannel)
	router.POST("/channels/direct", authMiddleware, channelHandler.StartDirect)
	router.GET("/channels", authMiddleware, channelHandler.ListChannels)
	router.GET("/channels/building/:building_id", authMiddleware, channelHandler.GetBuildingChannel)
	router.GET("/channels/:channel_id/members", authMiddleware, channelHandler.ListMembers)
	router.POST("/channels/:channel_id/members", authMiddleware, channelHandler.AddMember)
	router.DELETE("/channels/:channel_id/members/:user_id", authMiddleware, channelHandler.RemoveMember)
	router.PATCH("/channels/:channel_id/members/:user_id/role", authMiddleware, channelHandler.ChangeRole)
	router.PATCH("/channels/:channel_id/members/:user_id/permissions", authMiddleware, channelHandler.SetWritable)
	router.DELETE("/channels/:channel_id", authMiddleware, channelHandler.CloseChannel)

	router.POST("/channels/:channel_id/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/channels/:channel_id/messages", authMiddleware, messageHandler.GetMessages)
	router.GET("/channels/:channel_id/media", authMiddleware, messageHandler.GetMedia)
	router.PATCH("/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)

	router.POST("/calls", authMiddleware, callHandler.StartCall)
	router.POST("/calls/:call_id/answer", authMiddleware, callHandler.AnswerCall)
	router.POST("/calls/:call_id/reject", authMiddleware, callHandler.RejectCall)
	router.POST("/calls/:call_id/end", authMiddleware, callHandler.EndCall)
	router.POST("/calls/signal", authMiddleware, callHandler.Signal)

	router.GET("/notifications", authMiddleware, notificationHandler.ListNotifications)
	router.GET("/notifications/unread-count", authMiddleware, notificationHandler.UnreadCount)
	router.POST("/notifications/:notification_id/read", authMiddleware, notificationHandler.MarkRead)
	router.POST("/notifications/read-all", authMiddleware, notificationHandler.MarkAllRead)

	router.GET("/relay/credentials", authMiddleware, relayHandler.Credentials)

	router.GET("/ws/channels/:channel_id", channelWS.Handle)
	router.GET("/ws/user", userWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, hub, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
