package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/models"
)

const profileKey = "profile"

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

// UserID reads the authenticated subject from the JWT claims.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, false
	}
	raw, _ := claims["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// LoadProfile loads the caller's profile after Protected. Unknown and disabled
// accounts are turned away.
func LoadProfile(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := UserID(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", id).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Account not found"})
		}
		if user.Disabled {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Account is disabled"})
		}
		c.Locals(profileKey, user)
		return c.Next()
	}
}

// Profile returns the user stored by LoadProfile.
func Profile(c *fiber.Ctx) models.User {
	u, _ := c.Locals(profileKey).(models.User)
	return u
}

// AdminRequired must run after LoadProfile. Admin rights come from the stored
// profile, not from the token.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Profile(c).IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}

func RoleRequired(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Profile(c).Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}
