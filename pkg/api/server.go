// Diagonator Core
// Copyright (c) 2026 The Diagonator Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Diagonator Core.
//
// Diagonator Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Diagonator Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Diagonator Core.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the JSON-RPC 2.0 surface over HTTP POST and WebSocket.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/methods"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models/requests"
	"github.com/DiagonatorProject/diagonator-core/pkg/config"
	"github.com/DiagonatorProject/diagonator-core/pkg/service/session"
	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

// APIPath is the versioned endpoint served for both POST and WebSocket.
const APIPath = "/api/v0"

var JSONRPCErrorParseError = models.ErrorObject{
	Code:    -32700,
	Message: "Parse error",
}

var JSONRPCErrorInvalidRequest = models.ErrorObject{
	Code:    -32600,
	Message: "Invalid Request",
}

var JSONRPCErrorMethodNotFound = models.ErrorObject{
	Code:    -32601,
	Message: "Method not found",
}

var JSONRPCErrorInternalError = models.ErrorObject{
	Code:    -32603,
	Message: "Internal error",
}

func makeJSONRPCError(code int, message string) models.ErrorObject {
	return models.ErrorObject{
		Code:    code,
		Message: message,
	}
}

type MethodMap struct {
	sync.Map
}

func isValidMethodName(name string) bool {
	for _, r := range name {
		if (r < 'a' || r > 'z') && r != '.' {
			return false
		}
	}
	return name != ""
}

func (m *MethodMap) AddMethod(
	name string,
	handler func(requests.RequestEnv) (any, error),
) error {
	if name == "" {
		return errors.New("method name cannot be empty")
	} else if !isValidMethodName(name) {
		return fmt.Errorf("method name contains invalid characters: %s", name)
	} else if _, exists := m.GetMethod(name); exists {
		return fmt.Errorf("method already exists: %s", name)
	}
	m.Store(strings.ToLower(name), handler)
	return nil
}

func (m *MethodMap) GetMethod(name string) (func(requests.RequestEnv) (any, error), bool) {
	fn, ok := m.Load(strings.ToLower(name))
	if !ok {
		return nil, false
	}
	method, ok := fn.(func(requests.RequestEnv) (any, error))
	if !ok {
		return nil, false
	}
	return method, true
}

func NewMethodMap() *MethodMap {
	var m MethodMap

	defaultMethods := map[string]func(requests.RequestEnv) (any, error){
		// session
		models.MethodSession:       methods.HandleSession,
		models.MethodSessionUnlock: methods.HandleSessionUnlock,
		models.MethodSessionLock:   methods.HandleSessionLock,
		// requirements
		models.MethodRequirementsComplete: methods.HandleCompleteRequirement,
		models.MethodRequirementsAdd:      methods.HandleAddRequirement,
		// utils
		models.MethodVersion: methods.HandleVersion,
	}

	for name, fn := range defaultMethods {
		err := m.AddMethod(name, fn)
		if err != nil {
			log.Error().Err(err).Msgf("error adding default method: %s", name)
		}
	}

	return &m
}

// handleRequest validates a client request and forwards it to the
// appropriate method handler. Returns the method's result object.
//
//nolint:gocritic // single-use parameter in API handler
func handleRequest(
	methodMap *MethodMap,
	env requests.RequestEnv,
	req models.RequestObject,
) (any, *models.ErrorObject) {
	log.Debug().Interface("request", req).Msg("received request")

	fn, ok := methodMap.GetMethod(req.Method)
	if !ok {
		log.Error().Str("method", req.Method).Msg("unknown method")
		return nil, &JSONRPCErrorMethodNotFound
	}

	if req.ID == nil {
		log.Error().Str("method", req.Method).Msg("missing ID for request")
		return nil, &JSONRPCErrorInvalidRequest
	}

	env.ID = *req.ID
	env.Params = req.Params

	resp, err := fn(env)
	if err != nil {
		log.Error().Err(err).Msg("error handling request")
		rpcError := makeJSONRPCError(1, err.Error())
		return nil, &rpcError
	}
	return resp, nil
}

// sendWSResponse marshals a method result and sends it to the client.
func sendWSResponse(s *melody.Session, id uuid.UUID, result any) error {
	log.Debug().Interface("result", result).Msg("sending response")

	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}

	if err := s.Write(data); err != nil {
		return fmt.Errorf("failed to write websocket response: %w", err)
	}
	return nil
}

// sendWSError sends a JSON-RPC error object response to the client.
func sendWSError(s *melody.Session, id uuid.UUID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")

	resp := models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling error response: %w", err)
	}

	err = s.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to session: %w", err)
	}
	return nil
}

// processRequestObject parses an incoming message, dispatches a request to
// its method handler and returns the id, result and error to respond with.
func processRequestObject(
	methodMap *MethodMap,
	env requests.RequestEnv, //nolint:gocritic // single-use parameter in API handler
	msg []byte,
) (uuid.UUID, any, *models.ErrorObject) {
	if !json.Valid(msg) {
		log.Error().Msg("request payload is not valid JSON")
		return uuid.Nil, nil, &JSONRPCErrorParseError
	}

	var req models.RequestObject
	err := json.Unmarshal(msg, &req)

	if err == nil && req.JSONRPC != "2.0" {
		id := uuid.Nil
		if req.ID != nil {
			id = *req.ID
		}
		log.Error().Str("version", req.JSONRPC).Msg("unsupported JSON-RPC version")
		return id, nil, &JSONRPCErrorInvalidRequest
	}

	if err == nil && req.Method != "" {
		if req.ID == nil {
			// request is a notification, nothing to respond with
			log.Info().Interface("req", req).Msg("received notification, ignoring")
			return uuid.Nil, nil, nil
		}

		resp, rpcError := handleRequest(methodMap, env, req)
		if rpcError != nil {
			return *req.ID, nil, rpcError
		}
		return *req.ID, resp, nil
	}

	// can't identify the message
	return uuid.Nil, nil, &JSONRPCErrorInvalidRequest
}

// handleWSMessage parses all incoming WS requests and forwards them to the
// method handlers.
func handleWSMessage(
	methodMap *MethodMap,
	cfg *config.Instance,
	mgr *session.Manager,
) func(s *melody.Session, msg []byte) {
	return func(s *melody.Session, msg []byte) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("panic in websocket handler")
				err := sendWSError(s, uuid.Nil, JSONRPCErrorInternalError)
				if err != nil {
					log.Error().Err(err).Msg("error sending panic error response")
				}
			}
		}()

		// ping command for heartbeat operation
		if bytes.Equal(msg, []byte("ping")) {
			err := s.Write([]byte("pong"))
			if err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		env := requests.RequestEnv{
			Config:  cfg,
			Manager: mgr,
			IsLocal: isLoopback(s.Request.RemoteAddr),
		}

		id, resp, rpcError := processRequestObject(methodMap, env, msg)
		if rpcError != nil {
			if err := sendWSError(s, id, *rpcError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}
		if id == uuid.Nil {
			return
		}
		if err := sendWSResponse(s, id, resp); err != nil {
			log.Error().Err(err).Msg("error sending response")
		}
	}
}

func isLoopback(remoteAddr string) bool {
	rawIP := strings.SplitN(remoteAddr, ":", 2)
	clientIP := net.ParseIP(rawIP[0])
	return clientIP != nil && clientIP.IsLoopback()
}

// handlePostRequest serves single JSON-RPC requests over plain HTTP POST.
func handlePostRequest(
	methodMap *MethodMap,
	cfg *config.Instance,
	mgr *session.Manager,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "error reading request body", http.StatusInternalServerError)
			return
		}

		env := requests.RequestEnv{
			Config:  cfg,
			Manager: mgr,
			IsLocal: isLoopback(r.RemoteAddr),
		}

		id, resp, rpcError := processRequestObject(methodMap, env, body)

		w.Header().Set("Content-Type", "application/json")

		var data []byte
		var marshalErr error
		if rpcError != nil {
			data, marshalErr = json.Marshal(models.ResponseErrorObject{
				JSONRPC: "2.0",
				ID:      id,
				Error:   rpcError,
			})
		} else {
			data, marshalErr = json.Marshal(models.ResponseObject{
				JSONRPC: "2.0",
				ID:      id,
				Result:  resp,
			})
		}
		if marshalErr != nil {
			log.Error().Err(marshalErr).Msg("error marshalling POST response")
			http.Error(w, "error marshalling response", http.StatusInternalServerError)
			return
		}

		if _, err := w.Write(data); err != nil {
			log.Error().Err(err).Msg("error writing POST response")
		}
	}
}

// broadcastNotifications consumes incoming notifications and broadcasts
// them to all connected WebSocket clients as JSON-RPC notifications.
func broadcastNotifications(
	ctx context.Context,
	m *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping notification broadcaster")
			return
		case notif, ok := <-notifications:
			if !ok {
				return
			}
			req := models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			}

			data, err := json.Marshal(req)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}

			if err := m.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

func allowedOrigins(cfg *config.Instance) []string {
	port := cfg.APIPort()
	origins := []string{
		fmt.Sprintf("http://localhost:%d", port),
		fmt.Sprintf("https://localhost:%d", port),
		fmt.Sprintf("http://127.0.0.1:%d", port),
		fmt.Sprintf("https://127.0.0.1:%d", port),
	}
	for _, origin := range cfg.AllowedOrigins() {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
		)
	}
	return origins
}

func checkWebSocketOrigin(origin string, allowed []string) bool {
	// Allow empty origin (same-origin and non-browser clients).
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	log.Debug().Msgf("websocket origin: %s rejected", origin)
	return false
}

// Start runs the API server until ctx is cancelled. It returns early with
// an error if the endpoint cannot be bound.
func Start(
	ctx context.Context,
	cfg *config.Instance,
	mgr *session.Manager,
	notifications <-chan models.Notification,
) error {
	origins := allowedOrigins(cfg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(config.APIRequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	methodMap := NewMethodMap()

	m := melody.New()
	m.Upgrader.CheckOrigin = func(r *http.Request) bool {
		return checkWebSocketOrigin(r.Header.Get("Origin"), origins)
	}
	m.HandleMessage(handleWSMessage(methodMap, cfg, mgr))
	go broadcastNotifications(ctx, m, notifications)

	r.Route(APIPath, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			if err := m.HandleRequest(w, r); err != nil {
				log.Error().Err(err).Msg("handling websocket request")
			}
		})
		r.Post("/", handlePostRequest(methodMap, cfg, mgr))
	})

	server := &http.Server{
		Addr:              "127.0.0.1:" + strconv.Itoa(cfg.APIPort()),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)

	go func() {
		log.Info().Msgf("starting HTTP server on %s", server.Addr)

		lc := &net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", server.Addr)
		if err != nil {
			serverDone <- fmt.Errorf("failed to bind API endpoint: %w", err)
			return
		}

		serverDone <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down HTTP server")
		}
		if err := m.Close(); err != nil {
			log.Debug().Err(err).Msg("error closing websocket sessions")
		}
		return nil
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
