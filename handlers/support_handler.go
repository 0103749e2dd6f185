package handlers

import (
	"context"
	"fmt"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/anjiri1684/tutor_marketplace/middleware"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/websocket"
)

type OpenTicketRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required,max=5000"`
}

type TicketReplyRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func (h *Handler) OpenTicket(c *fiber.Ctx) error {
	var req OpenTicketRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	ticket, err := h.Support.Open(c.UserContext(), middleware.Profile(c).ID, req.Subject, req.Body)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ticket)
}

func (h *Handler) ListMyTickets(c *fiber.Ctx) error {
	list, err := h.Support.ListMine(c.UserContext(), middleware.Profile(c).ID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) GetTicket(c *fiber.Ctx) error {
	id, err := paramID(c, "ticketId")
	if err != nil {
		return err
	}
	ticket, err := h.Support.Get(c.UserContext(), id, middleware.Profile(c))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(ticket)
}

// ReplyToTicket serves both the owner and admins; the service decides which side replied.
func (h *Handler) ReplyToTicket(c *fiber.Ctx) error {
	id, err := paramID(c, "ticketId")
	if err != nil {
		return err
	}
	var req TicketReplyRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	msg, err := h.Support.Reply(c.UserContext(), id, middleware.Profile(c), req.Body)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *Handler) CloseTicket(c *fiber.Ctx) error {
	id, err := paramID(c, "ticketId")
	if err != nil {
		return err
	}
	if err := h.Support.Close(c.UserContext(), id, middleware.Profile(c)); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ticket closed"})
}

// ServeWs authenticates the first frame and then keeps the connection
// registered with the hub until the client goes away.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	userID, err := h.socketUser(context.Background(), authMsg.Token)
	if err != nil {
		h.Log.Info("websocket auth failed", zap.Error(err))
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	// After Register only the hub writes to c.
	if err := c.WriteJSON(fiber.Map{"type": "ready"}); err != nil {
		c.Close()
		return
	}
	client := &websocket.Client{UserID: userID, Conn: c}
	h.Hub.Register(client)
	defer h.Hub.Unregister(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.Log.Debug("websocket read error", zap.Stringer("user_id", userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Handler) parseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.Config.JWTSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	raw, _ := claims["user_id"].(string)
	return uuid.Parse(raw)
}

// socketUser resolves a websocket auth token to an active account.
func (h *Handler) socketUser(ctx context.Context, tokenString string) (uuid.UUID, error) {
	userID, err := h.parseToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	var user models.User
	if err := h.DB.WithContext(ctx).Select("id", "disabled").First(&user, "id = ?", userID).Error; err != nil {
		return uuid.Nil, errors.Wrap(err, "load websocket user")
	}
	if user.Disabled {
		return uuid.Nil, services.ErrAccountDisabled
	}
	return user.ID, nil
}
