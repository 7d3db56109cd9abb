// Package server exposes excerpt commands over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	maximumRequestBodyBytes = 1 << 20
	headerContentType       = "Content-Type"
	mimeTypeJSON            = "application/json"

	capabilitiesRoute    = "GET /capabilities"
	healthRoute          = "GET /{$}"
	commandRoute         = "POST /commands/{" + commandPathValue + "}"
	commandPathValue     = "command"
	errorCommandNotFound = "command not found"

	listenFormat         = "listen on %s: %w"
	serveFormat          = "serve excerpt commands: %w"
	shutdownFormat       = "shutdown excerpt server: %w"
	readBodyFormat       = "read request body: %v"
	encodeResponseFormat = "encode response: %v"

	logMessageListening = "excerpt server listening"
	logMessageCommand   = "command failed"
	logFieldAddress     = "address"
	logFieldCommand     = "command"
	logFieldStatus      = "status"
)

// Capability describes a command exposed by the server.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CommandRequest holds the raw payload supplied by clients.
type CommandRequest struct {
	Payload json.RawMessage
}

// CommandResponse is the body of a successful command.
type CommandResponse struct {
	Output      string   `json:"output"`
	Format      string   `json:"format"`
	Link        string   `json:"link,omitempty"`
	ActualStart int      `json:"actualStart,omitempty"`
	ActualEnd   int      `json:"actualEnd,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// CommandExecutor runs one named command.
type CommandExecutor interface {
	Execute(ctx context.Context, request CommandRequest) (CommandResponse, error)
}

// CommandExecutorFunc adapts a function into a CommandExecutor.
type CommandExecutorFunc func(context.Context, CommandRequest) (CommandResponse, error)

// Execute invokes the underlying function.
func (executor CommandExecutorFunc) Execute(ctx context.Context, request CommandRequest) (CommandResponse, error) {
	return executor(ctx, request)
}

// Config defines runtime options for the server.
type Config struct {
	Address         string
	Capabilities    []Capability
	Executors       map[string]CommandExecutor
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server serves capability metadata and executes commands over HTTP.
type Server struct {
	config Config
}

// NewServer creates a Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.Capabilities == nil {
		normalized.Capabilities = []Capability{}
	}
	if normalized.Executors == nil {
		normalized.Executors = map[string]CommandExecutor{}
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Server{config: normalized}
}

// Handler returns the HTTP routes served by the server. Requests with a method a
// route does not accept get 405 from the mux.
func (server Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(capabilitiesRoute, server.handleCapabilities)
	router.HandleFunc(healthRoute, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	router.HandleFunc(commandRoute, server.handleCommand)
	return router
}

// Run serves until ctx is canceled, then shuts down gracefully. notify receives
// the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenError := net.Listen("tcp", server.config.Address)
	if listenError != nil {
		return fmt.Errorf(listenFormat, server.config.Address, listenError)
	}
	boundAddress := listener.Addr().String()
	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: defaultShutdownDuration}

	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		if serveError := httpServer.Serve(listener); !errors.Is(serveError, http.ErrServerClosed) {
			return fmt.Errorf(serveFormat, serveError)
		}
		return nil
	})
	group.Go(func() error {
		<-groupContext.Done()
		shutdownContext, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		if shutdownError := httpServer.Shutdown(shutdownContext); shutdownError != nil && !errors.Is(shutdownError, http.ErrServerClosed) {
			return fmt.Errorf(shutdownFormat, shutdownError)
		}
		return nil
	})

	server.config.Logger.Info(logMessageListening, zap.String(logFieldAddress, boundAddress))
	if notify != nil {
		notify(boundAddress)
	}
	return group.Wait()
}

func (server Server) handleCapabilities(writer http.ResponseWriter, _ *http.Request) {
	respond(writer, http.StatusOK, struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.config.Capabilities})
}

func (server Server) handleCommand(writer http.ResponseWriter, request *http.Request) {
	commandName := request.PathValue(commandPathValue)
	executor, found := server.config.Executors[commandName]
	if !found {
		respond(writer, http.StatusNotFound, errorBody{Error: errorCommandNotFound})
		return
	}
	body, readError := io.ReadAll(io.LimitReader(request.Body, maximumRequestBodyBytes))
	if readError != nil {
		respond(writer, http.StatusBadRequest, errorBody{Error: fmt.Sprintf(readBodyFormat, readError)})
		return
	}
	response, executeError := executor.Execute(request.Context(), CommandRequest{Payload: body})
	if executeError != nil {
		statusCode, message := describeError(executeError)
		server.config.Logger.Debug(logMessageCommand,
			zap.String(logFieldCommand, commandName),
			zap.Int(logFieldStatus, statusCode),
			zap.Error(executeError),
		)
		respond(writer, statusCode, errorBody{Error: message})
		return
	}
	respond(writer, http.StatusOK, response)
}

type errorBody struct {
	Error string `json:"error"`
}

// respond encodes payload before writing the status so an encoding failure can
// still be reported as 500.
func respond(writer http.ResponseWriter, statusCode int, payload any) {
	var buffer bytes.Buffer
	writer.Header().Set(headerContentType, mimeTypeJSON)
	if encodeError := json.NewEncoder(&buffer).Encode(payload); encodeError != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(errorBody{Error: fmt.Sprintf(encodeResponseFormat, encodeError)})
		return
	}
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}
