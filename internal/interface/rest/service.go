package restservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/openmart/martd/internal/core/application"
	interfaces "github.com/openmart/martd/internal/interface"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port uint32
}

func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("missing port")
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

type service struct {
	version string
	config  Config
	appSvc  application.Service
	server  *http.Server
	handler *handler
}

func NewService(
	version string, svcConfig Config, appSvc application.Service,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}

	h := newHandler(appSvc)
	router := newRouter(h)

	server := &http.Server{
		Addr:              svcConfig.address(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &service{
		version: version,
		config:  svcConfig,
		appSvc:  appSvc,
		server:  server,
		handler: h,
	}, nil
}

func newRouter(h *handler) *mux.Router {
	router := mux.NewRouter()
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/info", h.getInfo).Methods(http.MethodGet)
	v1.HandleFunc("/items", h.listItem).Methods(http.MethodPost)
	v1.HandleFunc("/items", h.getItems).Methods(http.MethodGet)
	v1.HandleFunc("/items/{id}", h.getItem).Methods(http.MethodGet)
	v1.HandleFunc("/items/{id}/total-price", h.getTotalPrice).Methods(http.MethodGet)
	v1.HandleFunc("/items/{id}/purchase", h.purchase).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{account}/deposit", h.deposit).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{account}/balance", h.getBalance).Methods(http.MethodGet)
	v1.HandleFunc("/events", h.subscribeEvents).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}

func (s *service) Start() error {
	go s.handler.pumpEvents(s.appSvc.GetEventsChannel(context.Background()))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server exited unexpectedly")
		}
	}()

	log.Infof("started listening at %s", s.config.address())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// nolint:all
	s.server.Shutdown(ctx)
	log.Info("stopped server")

	s.appSvc.Stop()
	log.Info("stopped application service")
}
