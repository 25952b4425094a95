package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"paydirekt-gateway/internal/handler"
	mw "paydirekt-gateway/internal/middleware"
	"paydirekt-gateway/internal/service"
)

type Server struct {
	echo             *echo.Echo
	paydirektHandler *handler.PaydirektHandler
}

func NewServer(paydirektService service.PaydirektService, merchantAPIKey string) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:             e,
		paydirektHandler: handler.NewPaydirektHandler(paydirektService),
	}

	s.setupRoutes(merchantAPIKey)
	return s
}

func (s *Server) setupRoutes(merchantAPIKey string) {
	s.echo.GET("/api/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api := s.echo.Group("/api", mw.APIKeyAuth(merchantAPIKey))

	// -------- merchant-facing checkout lifecycle --------
	api.POST("/checkouts", s.paydirektHandler.CreateCheckout)
	api.GET("/checkouts/:checkoutID", s.paydirektHandler.GetCheckout)
	api.POST("/checkouts/:checkoutID/refresh", s.paydirektHandler.RefreshCheckout)
	api.POST("/checkouts/:checkoutID/close", s.paydirektHandler.CloseCheckout)
	api.POST("/checkouts/:checkoutID/captures", s.paydirektHandler.CreateCapture)
	api.POST("/checkouts/:checkoutID/refunds", s.paydirektHandler.CreateRefund)
	api.POST("/captures/:transactionID/refresh", s.paydirektHandler.RefreshCapture)
	api.POST("/refunds/:transactionID/refresh", s.paydirektHandler.RefreshRefund)
	api.GET("/transactions", s.paydirektHandler.Transactions)

	// -------- paydirekt status-update webhook --------
	s.echo.POST("/notify/", s.paydirektHandler.Notify)
}

// Echo exposes the router for in-process tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
