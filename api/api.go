package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tallyledger/tally"
)

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// OrdersAPI exposes the purchase ledger of the order service.
type OrdersAPI struct {
	orders *tally.Orders
	router *gin.Engine
}

// PaymentsAPI exposes the wallet ledger of the payment service.
type PaymentsAPI struct {
	payments *tally.Payments
	router   *gin.Engine
}

func (a OrdersAPI) Router() *gin.Engine {
	router := a.router
	router.GET("/health", health)
	router.POST("/purchases", a.CreatePurchase)
	router.GET("/purchases/:id", a.GetPurchase)
	router.GET("/purchases", a.GetAllPurchases)
	return a.router
}

func (a PaymentsAPI) Router() *gin.Engine {
	router := a.router
	router.GET("/health", health)
	router.POST("/wallets", a.CreateWallet)
	router.GET("/wallets/:user_id", a.GetWallet)
	router.POST("/wallets/:user_id/deposit", a.DepositWallet)
	return a.router
}

func NewOrdersAPI(o *tally.Orders) *OrdersAPI {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &OrdersAPI{orders: o, router: r}
}

func NewPaymentsAPI(p *tally.Payments) *PaymentsAPI {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &PaymentsAPI{payments: p, router: r}
}
