package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"permit-agent/internal/app"
	"permit-agent/internal/transport/http/response"
)

type AutocompleteHandler struct {
	addressService *app.AddressService
}

func NewAutocompleteHandler(addressService *app.AddressService) *AutocompleteHandler {
	return &AutocompleteHandler{addressService: addressService}
}

// Lookup proxies address suggestions for the given search text.
func (h *AutocompleteHandler) Lookup(c *gin.Context) {
	suggestions, err := h.addressService.Suggest(
		c.Request.Context(),
		c.Query("search"),
		c.Query("selected"),
	)
	if err != nil {
		response.Message(c, http.StatusBadGateway, "Address lookup failed.")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", suggestions)
}
