package handler

import (
	"net/http"

	"github.com/Nzyazin/momopay/internal/core/logger"
	"github.com/Nzyazin/momopay/internal/core/usecase"
	"github.com/gorilla/mux"
)

type SystemHandler struct {
	usecase usecase.SystemUsecase
	log     logger.Logger
}

type HealthResponse struct {
	Status  string `json:"status"`
	API     string `json:"api"`
	MomoAPI string `json:"momo_api"`
}

type ConfigTestResponse struct {
	APIUserID         *string `json:"api_user_id"`
	TargetEnvironment string  `json:"target_environment"`
	MomoBaseURL       string  `json:"momo_base_url"`
	ConfigLoaded      bool    `json:"config_loaded"`
}

func NewSystemHandler(usecase usecase.SystemUsecase, log logger.Logger) *SystemHandler {
	return &SystemHandler{usecase: usecase, log: log}
}

func (h *SystemHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Root).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/config/test", h.ConfigTest).Methods(http.MethodGet)
}

func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "MTN Momo Payment API is running!"})
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.usecase.CheckProvider(r.Context()); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		API:     "running",
		MomoAPI: "accessible",
	})
}

func (h *SystemHandler) ConfigTest(w http.ResponseWriter, r *http.Request) {
	summary := h.usecase.ConfigSummary()
	respondWithJSON(w, http.StatusOK, ConfigTestResponse{
		APIUserID:         summary.APIUserID,
		TargetEnvironment: summary.TargetEnvironment,
		MomoBaseURL:       summary.BaseURL,
		ConfigLoaded:      summary.ConfigLoaded,
	})
}
