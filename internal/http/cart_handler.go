package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-llm/internal/domain"
	"glow-llm/internal/repository"
	"glow-llm/internal/service"
)

// CartHandler arma carritos a partir de rutinas y los persiste para la
// capa de presentacion.
type CartHandler struct {
	logger *zap.Logger
	carts  repository.CartRepository
}

func NewCartHandler(logger *zap.Logger, carts repository.CartRepository) *CartHandler {
	return &CartHandler{
		logger: logger,
		carts:  carts,
	}
}

// BuildCart maneja POST /cart.
func (h *CartHandler) BuildCart(c *gin.Context) {
	var routine domain.Routine
	if err := c.ShouldBindJSON(&routine); err != nil {
		h.logger.Warn("invalid cart request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	cart := service.BuildCart(routine)

	if h.carts != nil {
		if err := h.carts.Save(c.Request.Context(), cart); err != nil {
			// El carrito armado sigue siendo util aunque falle la persistencia.
			h.logger.Warn("cart save failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"cart": cart})
}
