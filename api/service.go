package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"SchoolPortal/api/auth"
	"SchoolPortal/internal/config"
)

type GatewayService struct {
	config map[string]interface{}
	auth   *auth.AuthService
	server *http.Server
}

func NewGatewayService(cfg map[string]interface{}, authSvc *auth.AuthService) *GatewayService {
	return &GatewayService{config: cfg, auth: authSvc}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

func (s *GatewayService) Start() error {
	port := config.IntFromConfig(s.config, "port", config.DefaultGatewayPort)
	academicsURL := config.StringFromConfig(s.config, "academics_url",
		fmt.Sprintf("http://localhost:%d", config.DefaultAcademicsPort))

	gw, err := NewGateway(s.auth, academicsURL)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("API Gateway started on :%d", port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Gateway server failed: %v", err)
		}
	}()
	return nil
}

func (s *GatewayService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
