// Package server exposes the pricer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/contactkeval/option-lattice/internal/batch"
	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// PriceRequest is a single pricing query, from a query string or a JSON body.
type PriceRequest struct {
	Type   string  `json:"type" schema:"type"`
	Spot   float64 `json:"spot" schema:"spot,required"`
	Strike float64 `json:"strike" schema:"strike,required"`
	Days   float64 `json:"days" schema:"days,required"`
	Rate   float64 `json:"rate" schema:"rate"`
	Sigma  float64 `json:"sigma" schema:"sigma,required"`
	Steps  int     `json:"steps" schema:"steps"`
	Model  string  `json:"model" schema:"model"`
	Strict bool    `json:"strict" schema:"strict"`
}

type PriceResponse struct {
	RequestID  string  `json:"request_id"`
	Model      string  `json:"model"`
	OptionType string  `json:"option_type"`
	Price      float64 `json:"price"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	Msg       string `json:"message"`
}

// Server routes pricing requests. job and prov back POST /run and may be nil.
type Server struct {
	router  *mux.Router
	prov    data.Provider
	job     *batch.Job
	decoder *schema.Decoder
}

// New builds the router. job is the batch job run by POST /run; prov resolves
// spot prices for batch requests that name an underlying.
func New(job *batch.Job, prov data.Provider) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		prov:    prov,
		job:     job,
		decoder: schema.NewDecoder(),
	}
	s.decoder.IgnoreUnknownKeys(true)

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/price", s.getPrice).Methods(http.MethodGet)
	v1.HandleFunc("/price", s.postPrice).Methods(http.MethodPost)
	v1.HandleFunc("/batch", s.postBatch).Methods(http.MethodPost)
	s.router.HandleFunc("/run", s.run).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting REST server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Infof("shutting down REST server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) getPrice(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	var req PriceRequest
	if err := s.decoder.Decode(&req, r.URL.Query()); err != nil {
		setErrorResponse(w, id, http.StatusBadRequest, "bad_request", err)
		return
	}
	s.price(w, id, req)
}

func (s *Server) postPrice(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	var req PriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		setErrorResponse(w, id, http.StatusBadRequest, "bad_request", err)
		return
	}
	s.price(w, id, req)
}

func (s *Server) price(w http.ResponseWriter, id string, req PriceRequest) {
	log := logger.WithField("request_id", id)

	optType := pricing.Call
	if req.Type != "" {
		t, err := pricing.ParseOptionType(req.Type)
		if err != nil {
			setErrorResponse(w, id, http.StatusBadRequest, "invalid_parameter", err)
			return
		}
		optType = t
	}
	steps := req.Steps
	if steps == 0 {
		steps = config.DefaultSteps
	}

	model, err := pricing.Lookup(req.Model, req.Strict)
	if err != nil {
		setErrorResponse(w, id, statusFor(err), "invalid_parameter", err)
		return
	}
	params, err := pricing.NewParams(req.Spot, req.Strike, req.Days, req.Rate, req.Sigma, steps)
	if err != nil {
		setErrorResponse(w, id, statusFor(err), "invalid_parameter", err)
		return
	}
	v, err := pricing.Price(model, params, optType)
	if err != nil {
		setErrorResponse(w, id, statusFor(err), "pricing_failed", err)
		return
	}

	log.Debugf("priced %s %s S=%.4f K=%.4f price=%.6f", model.Name(), optType, req.Spot, req.Strike, v)
	setResponse(w, PriceResponse{RequestID: id, Model: model.Name(), OptionType: string(optType), Price: v})
}

func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	var job batch.Job
	if err := decodeJSON(w, r, &job); err != nil {
		setErrorResponse(w, id, http.StatusBadRequest, "bad_request", err)
		return
	}
	// The log level belongs to the server, not to callers.
	job.Verbosity = nil
	s.runJob(w, r, id, &job)
}

// run executes the job loaded at startup.
func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if s.job == nil {
		setErrorResponse(w, id, http.StatusNotFound, "no_job", errors.New("server was started without a job"))
		return
	}
	logger.WithField("request_id", id).Infof("received /run request")
	// Each run gets its own copy so concurrent calls do not share defaults.
	job := *s.job
	s.runJob(w, r, id, &job)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request, id string, job *batch.Job) {
	res, err := batch.NewEngine(job, s.prov).Run(r.Context())
	if err != nil {
		setErrorResponse(w, id, statusFor(err), "batch_failed", err)
		return
	}
	setResponse(w, res)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidParameter),
		errors.Is(err, pricing.ErrUnknownModel),
		errors.Is(err, pricing.ErrUnknownOptionType),
		errors.Is(err, pricing.ErrDegenerateProbability),
		errors.Is(err, batch.ErrInvalidJob):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func setResponse(w http.ResponseWriter, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

func setErrorResponse(w http.ResponseWriter, id string, statusCode int, errType string, err error) {
	logger.WithField("request_id", id).Errorf("%s: %v", errType, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := errorResponse{RequestID: id, Type: errType, Msg: err.Error()}
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		logger.Errorf("encode error response: %v", encodeErr)
	}
}
