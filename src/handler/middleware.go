package handler

import (
	"context"
	"errors"

	"github.com/ASISBusiness/ecosystem/src/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextEntityIDKey holds the authenticated entity id in the gin context.
const ContextEntityIDKey = "entity_id"

func SetMiddlewares(ctx context.Context, ginRouter *gin.Engine) {
	ginRouter.Use(LoggerMiddleware(ctx))
}

func LoggerMiddleware(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {

		zlog := zerolog.Ctx(ctx).With().
			Str("path", c.FullPath()).
			Str("method", c.Request.Method).
			Logger()
		ctx = zlog.WithContext(ctx)
		c.Request = c.Request.WithContext(zlog.WithContext(ctx))
		c.Next()
	}
}

// EntityAuthMiddleware validates the X-API-Secret header and resolves the
// calling entity from X-Entity-Id. The console gateway terminates end-user
// auth; this service only trusts its shared secret.
func EntityAuthMiddleware(apiSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedSecret := c.GetHeader("X-API-Secret")

		if providedSecret == "" {
			err := domain.NewError(
				domain.ErrorCodeAuthNotAuthenticated,
				errors.New("missing API secret header"),
				domain.WithMsg("Missing API secret"),
			)
			respondWithError(c, err)
			return
		}

		if providedSecret != apiSecret {
			err := domain.NewError(
				domain.ErrorCodeAuthNotAuthenticated,
				errors.New("invalid API secret provided"),
				domain.WithMsg("Invalid API secret"),
			)
			respondWithError(c, err)
			return
		}

		entityID, err := uuid.Parse(c.GetHeader("X-Entity-Id"))
		if err != nil {
			respondWithError(c, domain.NewError(
				domain.ErrorCodeAuthNotAuthenticated,
				errors.New("missing or malformed entity id header"),
				domain.WithMsg("Missing entity id"),
			))
			return
		}

		c.Set(ContextEntityIDKey, entityID)
		c.Next()
	}
}

// entityIDFromContext returns the entity id set by EntityAuthMiddleware.
func entityIDFromContext(c *gin.Context) (uuid.UUID, error) {
	value, exists := c.Get(ContextEntityIDKey)
	if !exists {
		return uuid.Nil, errors.New("entity id not set in context")
	}
	entityID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("entity id has unexpected type")
	}
	return entityID, nil
}
