package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/platform/apierr"
)

type loginResponse struct {
	types.TokenPair
	User types.User `json:"user"`
}

type renewalRequest struct {
	RenewalToken string `json:"refresh_token"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

var errBadBody = errors.New("request body is not valid JSON")

func (s *Server) register(c *gin.Context) {
	var reg types.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		respondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errBadBody)
		return
	}
	user, err := s.users.register(reg)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, apierr.CodeValidationFailed, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) login(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		respondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errBadBody)
		return
	}
	user, err := s.users.authenticate(creds)
	if err != nil {
		respondError(c, http.StatusUnauthorized, apierr.CodeInvalidCredential, err)
		return
	}
	pair, err := s.tokens.issue(user)
	if err != nil {
		s.log.Error("issue tokens failed", "error", err)
		respondError(c, http.StatusInternalServerError, "", errors.New("could not issue tokens"))
		return
	}
	c.Set(ctxUserID, user.ID)
	respondOK(c, loginResponse{TokenPair: pair, User: user})
}

func (s *Server) refresh(c *gin.Context) {
	var in renewalRequest
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.RenewalToken) == "" {
		respondError(c, http.StatusUnauthorized, apierr.CodeRefreshFailed, errRenewalUnknown)
		return
	}
	userID, err := s.tokens.renew(in.RenewalToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, apierr.CodeRefreshFailed, err)
		return
	}
	user, ok := s.users.get(userID)
	if !ok {
		respondError(c, http.StatusUnauthorized, apierr.CodeRefreshFailed, errRenewalUnknown)
		return
	}
	pair, err := s.tokens.issue(user)
	if err != nil {
		s.log.Error("issue tokens failed", "error", err)
		respondError(c, http.StatusInternalServerError, "", errors.New("could not issue tokens"))
		return
	}
	c.Set(ctxUserID, user.ID)
	respondOK(c, pair)
}

// logout revokes whatever it is given and always succeeds.
func (s *Server) logout(c *gin.Context) {
	var in renewalRequest
	_ = c.ShouldBindJSON(&in)
	s.tokens.revoke(bearerToken(c), strings.TrimSpace(in.RenewalToken))
	c.Status(http.StatusNoContent)
}

func (s *Server) verifyFault(c *gin.Context) {
	if s.faults.take(&s.faults.verifyFailures) {
		respondError(c, http.StatusServiceUnavailable, apierr.CodeUnavailable, errors.New("verification temporarily unavailable"))
	}
}

func (s *Server) verify(c *gin.Context) {
	respondOK(c, gin.H{"valid": true})
}

func (s *Server) listProducts(c *gin.Context) {
	respondOK(c, gin.H{"products": s.shop.list()})
}

func (s *Server) getProduct(c *gin.Context) {
	p, ok := s.shop.product(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, apierr.CodeProductNotFound, errProductNotFound)
		return
	}
	respondOK(c, p)
}

func (s *Server) cartFault(c *gin.Context) {
	if s.faults.take(&s.faults.cartFailures) {
		respondError(c, http.StatusInternalServerError, "", errors.New("cart service failed"))
	}
}

func (s *Server) getCart(c *gin.Context) {
	respondOK(c, s.shop.cart(c.GetString(ctxUserID)))
}

func (s *Server) addItem(c *gin.Context) {
	var in addItemRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errBadBody)
		return
	}
	if strings.TrimSpace(in.ProductID) == "" || in.Quantity <= 0 {
		respondError(c, http.StatusUnprocessableEntity, apierr.CodeValidationFailed, errors.New("product_id and a positive quantity are required"))
		return
	}
	if err := s.shop.add(c.GetString(ctxUserID), in.ProductID, in.Quantity); err != nil {
		s.respondShopError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateItem(c *gin.Context) {
	var in updateItemRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errBadBody)
		return
	}
	if in.Quantity <= 0 {
		respondError(c, http.StatusUnprocessableEntity, apierr.CodeValidationFailed, errors.New("quantity must be positive"))
		return
	}
	if err := s.shop.update(c.GetString(ctxUserID), c.Param("productId"), in.Quantity); err != nil {
		s.respondShopError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeItem(c *gin.Context) {
	s.shop.remove(c.GetString(ctxUserID), c.Param("productId"))
	c.Status(http.StatusNoContent)
}

func (s *Server) clearCart(c *gin.Context) {
	s.shop.clear(c.GetString(ctxUserID))
	c.Status(http.StatusNoContent)
}

func (s *Server) respondShopError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		respondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	s.log.Error("cart operation failed", "error", err)
	respondError(c, http.StatusInternalServerError, "", err)
}
