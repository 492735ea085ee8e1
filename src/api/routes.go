// Package api exposes the CRUD surface of the chat system over Fiber and
// the WebSocket upgrade endpoint over raw fasthttp. The handlers are thin:
// addressing, membership and routing decisions live in the chat package.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/zontana/chatwire/src/chat"
	"github.com/zontana/chatwire/src/hub"
	"github.com/zontana/chatwire/src/store"
)

// Handler carries the dependencies of the HTTP routes.
type Handler struct {
	Store   store.Store
	Service *chat.Service
	Hub     *hub.Hub
	Logger  zerolog.Logger
}

// Register mounts all routes on the app.
func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/user", h.createUser)
	api.Get("/user", h.listUsers)
	api.Get("/user/:userId", h.getUser)

	api.Post("/room", h.createRoom)
	api.Get("/room/:userId", h.roomsOfUser)
	api.Get("/room/:firstUserId/:secondUserId", h.roomOfPair)

	api.Post("/message", h.createMessage)
	api.Get("/message/:roomId", h.messagesOfRoom)

	api.Post("/group", h.createGroup)
	api.Get("/group/all", h.allGroups)
	api.Get("/group/user/:userId", h.groupsOfUser)
	api.Post("/group/message", h.createGroupMessage)
	api.Post("/group/:groupId/join", h.joinGroup)
	api.Get("/group/:groupId", h.groupByID)
	api.Get("/group/:groupId/messages", h.groupMessages)

	app.Get("/ws/info", h.wsInfo)
}

func (h *Handler) createUser(c fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, err)
	}
	if req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "username is required"})
	}
	u, err := h.Store.CreateUser(c.Context(), req.Username, req.Avatar)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *Handler) listUsers(c fiber.Ctx) error {
	users, err := h.Store.ListUsers(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) getUser(c fiber.Ctx) error {
	u, err := h.Store.GetUser(c.Context(), c.Params("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) createRoom(c fiber.Ctx) error {
	var req struct {
		SenderID   string `json:"senderId"`
		ReceiverID string `json:"receiverId"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, err)
	}
	if req.SenderID == "" || req.ReceiverID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "senderId and receiverId are required"})
	}
	room, err := h.Service.Rooms().ResolveOrCreate(c.Context(), req.SenderID, req.ReceiverID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

func (h *Handler) roomsOfUser(c fiber.Ctx) error {
	rooms, err := h.Service.Rooms().RoomsForUser(c.Context(), c.Params("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(rooms)
}

func (h *Handler) roomOfPair(c fiber.Ctx) error {
	room, err := h.Service.Rooms().RoomOfPair(c.Context(), c.Params("firstUserId"), c.Params("secondUserId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(room)
}

func (h *Handler) createMessage(c fiber.Ctx) error {
	var req struct {
		ChatRoomID string `json:"chatRoomId"`
		Sender     string `json:"sender"`
		Message    string `json:"message"`
		ImageURL   string `json:"imageUrl"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, err)
	}
	msg, err := h.Store.CreateMessage(c.Context(), req.ChatRoomID, req.Sender, req.Message, req.ImageURL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *Handler) messagesOfRoom(c fiber.Ctx) error {
	msgs, err := h.Store.MessagesForRoom(c.Context(), c.Params("roomId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *Handler) createGroup(c fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		CreatedBy   string `json:"createdBy"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, err)
	}
	g, err := h.Service.Groups().Create(c.Context(), req.Name, req.Description, req.CreatedBy)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

func (h *Handler) allGroups(c fiber.Ctx) error {
	groups, err := h.Service.Groups().ListAll(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(groups)
}

func (h *Handler) groupsOfUser(c fiber.Ctx) error {
	groups, err := h.Service.Groups().ListForUser(c.Context(), c.Params("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(groups)
}

func (h *Handler) joinGroup(c fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, err)
	}
	g, err := h.Service.Groups().Join(c.Context(), c.Params("groupId"), req.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(g)
}

func (h *Handler) groupByID(c fiber.Ctx) error {
	g, err := h.Service.Groups().GetByID(c.Context(), c.Params("groupId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(g)
}

// createGroupMessage goes through the router so the membership gate and the
// live fan-out apply to REST sends too.
func (h *Handler) createGroupMessage(c fiber.Ctx) error {
	var req struct {
		GroupChatRoomID string `json:"groupChatRoomId"`
		Sender          string `json:"sender"`
		Message         string `json:"message"`
		ImageURL        string `json:"imageUrl"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, err)
	}
	msg, err := h.Service.Router().SendGroup(c.Context(), req.Sender, req.GroupChatRoomID, req.Message, req.ImageURL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *Handler) groupMessages(c fiber.Ctx) error {
	msgs, err := h.Store.MessagesForGroup(c.Context(), c.Params("groupId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *Handler) wsInfo(c fiber.Ctx) error {
	stats := h.Hub.Stats()
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"clients":   stats.Clients,
		"channels":  len(stats.Channels),
		"online":    h.Service.Presence().Count(),
	})
}

// fail maps a chat/store error to its HTTP status and a stable code.
func (h *Handler) fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, store.ErrAlreadyMember), errors.Is(err, store.ErrSameUser):
		status = fiber.StatusBadRequest
	case errors.Is(err, chat.ErrNotMember):
		status = fiber.StatusForbidden
	case errors.Is(err, store.ErrEmptyMessage):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, store.ErrDuplicateUser), errors.Is(err, store.ErrRoomExists):
		status = fiber.StatusConflict
	default:
		h.Logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"code":    chat.ErrorCode(err),
		"message": err.Error(),
	})
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid body", "error": err.Error()})
}
